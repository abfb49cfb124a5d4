package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"skh-agent/internal/domain"
)

// ---------------------------------------------------------------------------
// chatBaseURL helper
// ---------------------------------------------------------------------------

func TestChatBaseURL(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{"https://api.openai.com/v1", "https://api.openai.com/v1"},
		{"https://api.openai.com/v1/", "https://api.openai.com/v1"},
		{"http://localhost:8080", "http://localhost:8080/v1"},
		{"", "https://api.openai.com/v1"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, chatBaseURL(tc.base), "base=%q", tc.base)
	}
}

// ---------------------------------------------------------------------------
// NewClient
// ---------------------------------------------------------------------------

func TestNewClient_EmptyKey(t *testing.T) {
	_, err := NewClient("")
	require.Error(t, err)
	require.Contains(t, err.Error(), "API key")
}

func TestNewClient_Valid(t *testing.T) {
	c, err := NewClient("sk-test")
	require.NoError(t, err)
	require.NotNil(t, c.api)
}

// ---------------------------------------------------------------------------
// Client.Generate
// ---------------------------------------------------------------------------

type sentRequest struct {
	Model          string  `json:"model"`
	Temperature    float64 `json:"temperature"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient("sk-test",
		WithBaseURL(srv.URL),
		WithHTTPClient(&http.Client{Timeout: 2 * time.Second}),
	)
	require.NoError(t, err)
	return c
}

func captureServer(t *testing.T, sent *sentRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, sent))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-123",
			"object": "chat.completion",
			"created": 1670000000,
			"choices": [{
				"index": 0,
				"message": { "role": "assistant", "content": "Hello from mock" }
			}]
		}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerate_HappyPath(t *testing.T) {
	var sent sentRequest
	c := newTestClient(t, captureServer(t, &sent))

	temp := float32(0.9)
	out, err := c.Generate(context.Background(), domain.CompletionRequest{
		Model:             "gpt-4o-mini",
		SystemInstruction: "You are the SKH.GLOBAL official AI Assistant.",
		Prompt:            "hi",
		Temperature:       &temp,
	})
	require.NoError(t, err)
	require.Equal(t, "Hello from mock", out)

	require.Equal(t, "gpt-4o-mini", sent.Model)
	require.InDelta(t, 0.9, sent.Temperature, 0.0001)
	require.Nil(t, sent.ResponseFormat)
	require.Len(t, sent.Messages, 2)
	require.Equal(t, "system", sent.Messages[0].Role)
	require.Equal(t, "You are the SKH.GLOBAL official AI Assistant.", sent.Messages[0].Content)
	require.Equal(t, "user", sent.Messages[1].Role)
}

func TestGenerate_JSONMode(t *testing.T) {
	var sent sentRequest
	c := newTestClient(t, captureServer(t, &sent))

	_, err := c.Generate(context.Background(), domain.CompletionRequest{Model: "gpt-4o-mini", Prompt: "a bakery", JSON: true})
	require.NoError(t, err)
	require.NotNil(t, sent.ResponseFormat)
	require.Equal(t, "json_object", sent.ResponseFormat.Type)
}

func TestGenerate_MapsModelTurnsToAssistant(t *testing.T) {
	var sent sentRequest
	c := newTestClient(t, captureServer(t, &sent))

	history := []domain.ChatMessage{
		{Role: domain.RoleUser, Text: "u1"},
		{Role: domain.RoleModel, Text: "m1"},
		{Role: domain.RoleUser, Text: "u2"},
		{Role: domain.RoleModel, Text: "m2"},
		{Role: domain.RoleUser, Text: "u3"},
		{Role: domain.RoleModel, Text: "m3"},
	}
	_, err := c.Generate(context.Background(), domain.CompletionRequest{
		Model:             "gpt-4o-mini",
		SystemInstruction: "sys",
		History:           history,
		Prompt:            "u4",
	})
	require.NoError(t, err)

	require.Len(t, sent.Messages, len(history)+2)
	wantRoles := []string{"system", "user", "assistant", "user", "assistant", "user", "assistant", "user"}
	wantText := []string{"sys", "u1", "m1", "u2", "m2", "u3", "m3", "u4"}
	for i := range sent.Messages {
		require.Equal(t, wantRoles[i], sent.Messages[i].Role, "message %d", i)
		require.Equal(t, wantText[i], sent.Messages[i].Content, "message %d", i)
	}
}

func TestGenerate_EmptyModel(t *testing.T) {
	c, err := NewClient("sk-test")
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), domain.CompletionRequest{Prompt: "hi"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "model")
}

func TestGenerate_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Generate(context.Background(), domain.CompletionRequest{Model: "gpt-4o-mini", Prompt: "hi"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "no choices")
}

func TestGenerate_UpstreamStatus(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"429", http.StatusTooManyRequests, `{"error":{"message":"Rate limit reached","type":"requests","code":"rate_limit_exceeded"}}`},
		{"401", http.StatusUnauthorized, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`},
		{"500", http.StatusInternalServerError, `{"error":{"message":"internal server error","type":"server_error"}}`},
		{"503 plain body", http.StatusServiceUnavailable, `upstream connect error`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := newTestClient(t, srv)
			_, err := c.Generate(context.Background(), domain.CompletionRequest{Model: "gpt-4o-mini", Prompt: "hi"})
			require.Error(t, err)
			require.Contains(t, err.Error(), "request failed")

			var upstream *domain.UpstreamError
			require.True(t, errors.As(err, &upstream))
			require.Equal(t, "openai", upstream.Provider)
			require.Equal(t, tc.status, upstream.HTTPStatusCode())
		})
	}
}

func TestGenerate_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c, err := NewClient("sk-test", WithBaseURL(srv.URL), WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), domain.CompletionRequest{Model: "gpt-4o-mini", Prompt: "hi"})
	require.Error(t, err)
}
