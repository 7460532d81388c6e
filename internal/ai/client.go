package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nhle/todo-agent/internal/model"
)

const (
	defaultBaseURL   = "https://api.openai.com/v1"
	defaultModel     = "gpt-4o-mini"
	defaultMaxTokens = 1000
	defaultTimeout   = 60 * time.Second
)

// Options configures a Client.
type Options struct {
	APIKey        string
	BaseURL       string
	Model         string
	CustomPrompt  string
	CustomHeaders map[string]string
	CustomBody    map[string]any
	Timeout       time.Duration

	// HTTPClient overrides the transport; Timeout is ignored when set.
	HTTPClient *http.Client
}

// OptionsFromConfig builds client options from the ai config section,
// decoding the JSON header and body overrides.
func OptionsFromConfig(cfg model.AIConfig, apiKey string) (Options, error) {
	headers, err := cfg.Headers()
	if err != nil {
		return Options{}, err
	}
	body, err := cfg.Body()
	if err != nil {
		return Options{}, err
	}
	return Options{
		APIKey:        apiKey,
		BaseURL:       cfg.BaseURL,
		Model:         cfg.Model,
		CustomPrompt:  cfg.CustomPrompt,
		CustomHeaders: headers,
		CustomBody:    body,
		Timeout:       cfg.Timeout(),
	}, nil
}

// Client extracts todo candidates from screenshots through an
// OpenAI-compatible chat completions API with vision input. It holds no
// conversation state; every call is independent.
type Client struct {
	apiKey        string
	baseURL       string
	model         string
	customPrompt  string
	customHeaders map[string]string
	customBody    map[string]any
	client        *http.Client
}

// New creates a new extraction client with the given options.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = defaultModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		apiKey:        opts.APIKey,
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		model:         opts.Model,
		customPrompt:  opts.CustomPrompt,
		customHeaders: opts.CustomHeaders,
		customBody:    opts.CustomBody,
		client:        httpClient,
	}
}

// Extract sends image to the model together with the known category names
// and returns the proposed todos, possibly none.
func (c *Client) Extract(
	ctx context.Context,
	image []byte,
	categories []string,
) ([]model.ExtractedTodo, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return nil, ErrMissingAPIKey
	}

	body, err := c.requestBody(image, categories)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	for k, v := range c.customHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &ExtractionError{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ExtractionError{Message: "reading response: " + err.Error(), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(respBody))
		var apiErr apiErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		return nil, &ExtractionError{StatusCode: resp.StatusCode, Message: msg}
	}

	var result apiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &ExtractionError{Message: "decoding response: " + err.Error(), Err: err}
	}
	if len(result.Choices) == 0 {
		return []model.ExtractedTodo{}, nil
	}

	return ParseCandidates(result.Choices[0].Message.Content)
}

// requestBody marshals the completion request and merges the custom body
// overrides over its top-level keys.
func (c *Client) requestBody(image []byte, categories []string) ([]byte, error) {
	dataURL := "data:" + imageMIME(image) + ";base64," + base64.StdEncoding.EncodeToString(image)

	reqBody := apiRequest{
		Model:     c.model,
		MaxTokens: defaultMaxTokens,
		Messages: []apiMessage{
			{
				Role:    "system",
				Content: buildSystemPrompt(categories, c.customPrompt),
			},
			{
				Role: "user",
				Content: []apiContentPart{
					{Type: "text", Text: userInstruction},
					{Type: "image_url", ImageURL: &apiImageURL{URL: dataURL}},
				},
			},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}
	if len(c.customBody) == 0 {
		return bodyBytes, nil
	}

	var merged map[string]any
	if err := json.Unmarshal(bodyBytes, &merged); err != nil {
		return nil, fmt.Errorf("merging custom body: %w", err)
	}
	for k, v := range c.customBody {
		merged[k] = v
	}
	bodyBytes, err = json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("marshaling merged request: %w", err)
	}
	return bodyBytes, nil
}

// imageMIME sniffs the image type, defaulting to PNG.
func imageMIME(image []byte) string {
	mime := http.DetectContentType(image)
	if strings.HasPrefix(mime, "image/") {
		return mime
	}
	return "image/png"
}

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	Messages  []apiMessage `json:"messages"`
}

// apiMessage content is either a string or a list of parts.
type apiMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type apiContentPart struct {
	Type     string       `json:"type"`
	Text     string       `json:"text,omitempty"`
	ImageURL *apiImageURL `json:"image_url,omitempty"`
}

type apiImageURL struct {
	URL string `json:"url"`
}

type apiResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type apiErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
