// Package openai is a minimal synchronous client for OpenAI-compatible
// chat and legacy completion endpoints.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/promptworksco/promptrun/pkg/llm"
)

const (
	// DefaultBaseURL is the hosted OpenAI API root.
	DefaultBaseURL = "https://api.openai.com"

	// DefaultTimeout bounds a single request. LLM requests can be slow,
	// especially on large prompts.
	DefaultTimeout = 2 * time.Minute

	chatPath       = "/v1/chat/completions"
	completionPath = "/v1/completions"
)

// Config carries the connection settings for a Client.
type Config struct {
	// BaseURL is the API root (e.g., "https://api.openai.com").
	// Empty means DefaultBaseURL.
	BaseURL string

	// APIKey is sent as a Bearer token on every request.
	APIKey string

	// Timeout bounds each request. Zero means DefaultTimeout.
	Timeout time.Duration
}

// Client issues one request at a time against an OpenAI-compatible API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a new Client.
func New(config Config, logger *zap.Logger) *Client {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  config.APIKey,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// CreateChatCompletion sends a chat completion request and returns the full response.
func (c *Client) CreateChatCompletion(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	var resp llm.ChatResponse
	if err := c.post(ctx, chatPath, req, &resp); err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, errors.New("response does not contain any choices")
	}

	return &resp, nil
}

// CreateCompletion sends a legacy text completion request and returns the full response.
func (c *Client) CreateCompletion(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	var resp llm.CompletionResponse
	if err := c.post(ctx, completionPath, req, &resp); err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, errors.New("response does not contain any choices")
	}

	return &resp, nil
}

// post marshals in, POSTs it to path, and unmarshals the response into out.
// Non-2xx responses are decoded into the API error body when possible.
func (c *Client) post(ctx context.Context, path string, in, out any) error {
	reqBody, err := json.Marshal(in)
	if err != nil {
		return errors.Wrap(err, "marshal request")
	}

	url := c.baseURL + path
	c.logger.Debug("sending request",
		zap.String("url", url),
		zap.Int("body_size", len(reqBody)),
	)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return errors.Wrap(err, "do request")
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return errors.Wrap(err, "read response")
	}

	c.logger.Debug("received response",
		zap.Int("status", httpResp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		var apiErr llm.ErrorResponse
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
			return errors.Errorf("api returned %d: %s", httpResp.StatusCode, apiErr.Error.Message)
		}
		return errors.Errorf("api returned %d: %s", httpResp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, "unmarshal response")
	}

	return nil
}
