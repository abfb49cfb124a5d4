package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"skh-agent/internal/domain"
)

const providerName = "openai"

// chatAPI is the subset of *goopenai.Client used here.
type chatAPI interface {
	CreateChatCompletion(ctx context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error)
}

// Client is an OpenAI-compatible completion client.
type Client struct {
	api chatAPI
}

type Option func(*goopenai.ClientConfig)

func WithBaseURL(baseURL string) Option {
	return func(cfg *goopenai.ClientConfig) {
		cfg.BaseURL = chatBaseURL(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(cfg *goopenai.ClientConfig) {
		cfg.HTTPClient = httpClient
	}
}

// NewClient creates a Client authenticated by apiKey.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai: API key must not be empty")
	}
	cfg := goopenai.DefaultConfig(apiKey)
	cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Client{api: goopenai.NewClientWithConfig(cfg)}, nil
}

// chatBaseURL normalises a host to the /v1 root go-openai expects.
func chatBaseURL(baseURL string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	if strings.HasSuffix(base, "/v1") {
		return base
	}
	return base + "/v1"
}

// Generate sends one chat completion. Model turns are sent as assistant
// messages and the system instruction leads the conversation.
func (c *Client) Generate(ctx context.Context, req domain.CompletionRequest) (string, error) {
	if req.Model == "" {
		return "", errors.New("openai: model must not be empty")
	}

	chatReq := goopenai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: buildMessages(req),
	}
	if req.Temperature != nil {
		chatReq.Temperature = *req.Temperature
	}
	if req.JSON {
		chatReq.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	res, err := c.api.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", fmt.Errorf("openai: request failed: %w", upstreamError(err))
	}
	if len(res.Choices) == 0 {
		return "", errors.New("openai: no choices in response")
	}
	return res.Choices[0].Message.Content, nil
}

func buildMessages(req domain.CompletionRequest) []goopenai.ChatCompletionMessage {
	messages := make([]goopenai.ChatCompletionMessage, 0, len(req.History)+2)
	if req.SystemInstruction != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: req.SystemInstruction,
		})
	}
	for _, m := range req.History {
		role := goopenai.ChatMessageRoleUser
		if m.Role == domain.RoleModel {
			role = goopenai.ChatMessageRoleAssistant
		}
		messages = append(messages, goopenai.ChatCompletionMessage{Role: role, Content: m.Text})
	}
	return append(messages, goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleUser,
		Content: req.Prompt,
	})
}

func upstreamError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		status := ""
		if apiErr.Code != nil {
			status = strings.ToUpper(fmt.Sprint(apiErr.Code))
		}
		return &domain.UpstreamError{
			Provider:   providerName,
			StatusCode: apiErr.HTTPStatusCode,
			Status:     status,
			Message:    apiErr.Message,
			Err:        err,
		}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return &domain.UpstreamError{
			Provider:   providerName,
			StatusCode: reqErr.HTTPStatusCode,
			Message:    reqErr.Error(),
			Err:        err,
		}
	}
	return err
}
