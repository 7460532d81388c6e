package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/todo-agent/internal/model"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func completion(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id": "cmpl-1",
		"choices": []map[string]any{
			{"index": 0, "message": map[string]any{"role": "assistant", "content": content}},
		},
	})
	return string(b)
}

func TestExtractSendsVisionRequest(t *testing.T) {
	var got map[string]any
	var headers http.Header

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		headers = r.Header.Clone()
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completion(`[{"title":"Reply to Ana","priority":"high","tags":["Work"]}]`)))
	}))
	defer server.Close()

	c := New(Options{
		APIKey:        "sk-test",
		BaseURL:       server.URL + "/v1/",
		Model:         "vision-model",
		CustomPrompt:  "Prefer short titles.",
		CustomHeaders: map[string]string{"X-Team": "blue", "Authorization": "Token override"},
		CustomBody:    map[string]any{"temperature": 0.2, "max_tokens": 500},
	})

	todos, err := c.Extract(context.Background(), pngHeader, []string{"Work", "Life"})
	require.NoError(t, err)
	require.Len(t, todos, 1)
	assert.Equal(t, "Reply to Ana", todos[0].Title)
	assert.Equal(t, model.PriorityHigh, todos[0].Priority)

	assert.Equal(t, "blue", headers.Get("X-Team"))
	assert.Equal(t, "Token override", headers.Get("Authorization"))
	assert.Equal(t, "application/json", headers.Get("Content-Type"))

	assert.Equal(t, "vision-model", got["model"])
	assert.EqualValues(t, 500, got["max_tokens"])
	assert.EqualValues(t, 0.2, got["temperature"])

	messages := got["messages"].([]any)
	require.Len(t, messages, 2)
	system := messages[0].(map[string]any)
	assert.Equal(t, "system", system["role"])
	prompt := system["content"].(string)
	assert.Contains(t, prompt, "Work, Life")
	assert.Contains(t, prompt, "Prefer short titles.")

	user := messages[1].(map[string]any)
	parts := user["content"].([]any)
	require.Len(t, parts, 2)
	image := parts[1].(map[string]any)["image_url"].(map[string]any)["url"].(string)
	assert.True(t, strings.HasPrefix(image, "data:image/png;base64,"), image)
}

func TestExtractDefaultsMaxTokensAndBearer(t *testing.T) {
	var got map[string]any
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(completion("[]")))
	}))
	defer server.Close()

	c := New(Options{APIKey: "sk-test", BaseURL: server.URL})
	todos, err := c.Extract(context.Background(), []byte("not an image"), nil)
	require.NoError(t, err)
	assert.Empty(t, todos)
	assert.Equal(t, "Bearer sk-test", auth)
	assert.EqualValues(t, 1000, got["max_tokens"])
	assert.Equal(t, "gpt-4o-mini", got["model"])
}

func TestOptionsFromConfigSendsOverridesVerbatim(t *testing.T) {
	var got map[string]any
	var headers http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(completion("[]")))
	}))
	defer server.Close()

	opts, err := OptionsFromConfig(model.AIConfig{
		BaseURL:           server.URL,
		Model:             "gemini-2.0-flash",
		CustomHeadersJSON: `{"X-Goog-Api-Client": "todoagent"}`,
		CustomBodyJSON:    `{"topP": 0.5, "generationConfig": {"maxOutputTokens": 10}}`,
		TimeoutSec:        5,
	}, "sk-test")
	require.NoError(t, err)

	_, err = New(opts).Extract(context.Background(), pngHeader, nil)
	require.NoError(t, err)

	assert.Equal(t, "todoagent", headers.Get("X-Goog-Api-Client"))
	assert.EqualValues(t, 0.5, got["topP"])
	require.Contains(t, got, "generationConfig")
	assert.EqualValues(t, 10, got["generationConfig"].(map[string]any)["maxOutputTokens"])
	assert.NotContains(t, got, "topp")
}

func TestOptionsFromConfigRejectsMalformedJSON(t *testing.T) {
	_, err := OptionsFromConfig(model.AIConfig{CustomBodyJSON: "[1, 2]"}, "sk-test")
	assert.Error(t, err)

	_, err = OptionsFromConfig(model.AIConfig{CustomHeadersJSON: `{"X-Count": 3}`}, "sk-test")
	assert.Error(t, err)
}

func TestExtractMissingAPIKeyMakesNoRequest(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	c := New(Options{APIKey: "  ", BaseURL: server.URL})
	_, err := c.Extract(context.Background(), pngHeader, nil)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	assert.Zero(t, calls.Load())
}

func TestExtractErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantMsg    string
		wantParse  bool
	}{
		{
			name:       "api error envelope",
			status:     http.StatusUnauthorized,
			body:       `{"error":{"type":"auth","message":"invalid api key"}}`,
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "invalid api key",
		},
		{
			name:       "plain error body",
			status:     http.StatusBadGateway,
			body:       "upstream down",
			wantStatus: http.StatusBadGateway,
			wantMsg:    "upstream down",
		},
		{
			name:    "garbage envelope",
			status:  http.StatusOK,
			body:    "<html>",
			wantMsg: "decoding response",
		},
		{
			name:      "malformed content",
			status:    http.StatusOK,
			body:      completion(`[{"title": "unterminated"`),
			wantParse: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := New(Options{APIKey: "sk", BaseURL: server.URL})
			_, err := c.Extract(context.Background(), pngHeader, nil)
			require.Error(t, err)

			if tt.wantParse {
				var perr *ParseError
				assert.True(t, errors.As(err, &perr))
				return
			}
			var xerr *ExtractionError
			require.True(t, errors.As(err, &xerr))
			assert.Equal(t, tt.wantStatus, xerr.StatusCode)
			assert.Contains(t, xerr.Message, tt.wantMsg)
		})
	}
}

func TestExtractTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := New(Options{APIKey: "sk", BaseURL: url})
	_, err := c.Extract(context.Background(), pngHeader, nil)
	var xerr *ExtractionError
	require.ErrorAs(t, err, &xerr)
	assert.NotEmpty(t, xerr.Message)
}

func TestBuildSystemPromptOmitsEmptySections(t *testing.T) {
	prompt := buildSystemPrompt(nil, "   ")
	assert.NotContains(t, prompt, "Available categories")
	assert.NotContains(t, prompt, "Additional instructions")
	assert.Contains(t, prompt, "[]")
}
