// Package gemini adapts the Google GenAI SDK to the completion shape used by
// the site's AI features.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"skh-agent/internal/domain"
)

const providerName = "gemini"

type Client struct {
	client *genai.Client
}

type Option func(*genai.ClientConfig)

// WithBaseURL points the client at a different API host, e.g. a test server.
func WithBaseURL(baseURL string) Option {
	return func(cfg *genai.ClientConfig) {
		cfg.HTTPOptions.BaseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(cfg *genai.ClientConfig) {
		cfg.HTTPClient = httpClient
	}
}

// NewClient creates a Gemini Developer API client authenticated by apiKey.
func NewClient(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini: API key must not be empty")
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Client{client: client}, nil
}

// Generate sends one completion request. History is replayed in order before
// the prompt; upstream failures are returned as *domain.UpstreamError.
func (c *Client) Generate(ctx context.Context, req domain.CompletionRequest) (string, error) {
	if req.Model == "" {
		return "", errors.New("gemini: model must not be empty")
	}

	res, err := c.client.Models.GenerateContent(ctx, req.Model, buildContents(req), buildConfig(req))
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", upstreamError(err))
	}
	return res.Text(), nil
}

func buildContents(req domain.CompletionRequest) []*genai.Content {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, m := range req.History {
		role := genai.Role(genai.RoleUser)
		if m.Role == domain.RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Text, role))
	}
	return append(contents, genai.NewContentFromText(req.Prompt, genai.RoleUser))
}

func buildConfig(req domain.CompletionRequest) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if req.SystemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}
	if req.Temperature != nil {
		temp := *req.Temperature
		cfg.Temperature = &temp
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}
	return cfg
}

func upstreamError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &domain.UpstreamError{
			Provider:   providerName,
			StatusCode: apiErr.Code,
			Status:     apiErr.Status,
			Message:    apiErr.Message,
			Err:        err,
		}
	}
	return err
}
