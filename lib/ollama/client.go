// Copyright 2025 Antfly, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ollama is an HTTP client for an Ollama-compatible model
// server. It implements chat completions with optional structured
// output, model listing, model pulls with streamed progress, and the
// server version probe.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/antflydb/weaver/lib/chat"
)

const (
	// DefaultBaseURL is the local Ollama server.
	DefaultBaseURL = "http://localhost:11434"

	// DefaultTimeout is the HTTP timeout for metadata requests.
	DefaultTimeout = 30 * time.Second

	// DefaultChatTimeout is the HTTP timeout for chat completions,
	// sized for small models on CPU.
	DefaultChatTimeout = 10 * time.Minute

	// DefaultPullTimeout is the HTTP timeout for model downloads.
	DefaultPullTimeout = 60 * time.Minute
)

// Client talks to one Ollama server.
type Client struct {
	baseURL         string
	httpClient      *http.Client
	chatClient      *http.Client
	pullClient      *http.Client
	logger          *zap.Logger
	progressHandler ProgressHandler
}

var _ chat.Backend = (*Client)(nil)

// ProgressHandler is called to report pull progress. total is zero when
// the server has not reported a size yet.
type ProgressHandler func(completed, total int64, status string)

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the server base URL
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithChatTimeout sets the HTTP timeout for chat completions
func WithChatTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.chatClient.Timeout = timeout
	}
}

// WithProgressHandler sets the progress handler for model pulls
func WithProgressHandler(h ProgressHandler) ClientOption {
	return func(c *Client) {
		c.progressHandler = h
	}
}

// NewClient creates a new Ollama client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		chatClient: &http.Client{
			Timeout: DefaultChatTimeout,
		},
		pullClient: &http.Client{
			Timeout: DefaultPullTimeout,
		},
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// StatusError is a non-2xx reply from the server.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("ollama returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("ollama returned status %d: %s", e.StatusCode, e.Message)
}

// Retryable reports whether the failure is worth retrying: rate limits
// and server-side errors are, client errors are not.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsRetryable reports whether err should be retried. Transport-level
// failures (refused connections, resets, timeouts) are retryable;
// definitive server verdicts (4xx other than 429) are not.
func IsRetryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

type errorResponse struct {
	Error string `json:"error"`
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(body))
	var wire errorResponse
	if err := json.Unmarshal(body, &wire); err == nil && wire.Error != "" {
		msg = wire.Error
	}
	return &StatusError{StatusCode: resp.StatusCode, Message: msg}
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chat.Message `json:"messages"`
	Stream   bool           `json:"stream"`
	Format   map[string]any `json:"format,omitempty"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Model           string       `json:"model"`
	Message         chat.Message `json:"message"`
	Done            bool         `json:"done"`
	TotalDuration   int64        `json:"total_duration"`
	PromptEvalCount int          `json:"prompt_eval_count"`
	EvalCount       int          `json:"eval_count"`
}

// Chat runs one non-streaming chat completion.
func (c *Client) Chat(ctx context.Context, req chat.Request) (*chat.Response, error) {
	url := c.baseURL + "/api/chat"
	c.logger.Debug("Sending chat request",
		zap.String("url", url),
		zap.String("model", req.Model),
		zap.Int("messages", len(req.Messages)),
		zap.Bool("structured", req.Format != nil))

	payload, err := json.Marshal(chatRequest{
		Model:    req.Model,
		Messages: req.Messages,
		Stream:   false,
		Format:   req.Format,
		Options:  req.Options,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.chatClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending chat request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var wire chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decoding chat response: %w", err)
	}

	return &chat.Response{
		Content:          wire.Message.Content,
		PromptTokens:     wire.PromptEvalCount,
		CompletionTokens: wire.EvalCount,
		Duration:         time.Duration(wire.TotalDuration),
	}, nil
}

// ModelInfo describes one locally available model.
type ModelInfo struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	Digest     string    `json:"digest"`
	ModifiedAt time.Time `json:"modified_at"`
}

// ListModels returns the models available on the server.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	url := c.baseURL + "/api/tags"
	c.logger.Debug("Listing models", zap.String("url", url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listing models: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var wire struct {
		Models []ModelInfo `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decoding model list: %w", err)
	}
	return wire.Models, nil
}

// HasModel reports whether the named model is already present on the
// server. Bare names match their ":latest" form.
func (c *Client) HasModel(ctx context.Context, name string) (bool, error) {
	models, err := c.ListModels(ctx)
	if err != nil {
		return false, err
	}
	for _, m := range models {
		if m.Name == name || m.Name == name+":latest" {
			return true, nil
		}
	}
	return false, nil
}

type pullProgress struct {
	Status    string `json:"status"`
	Digest    string `json:"digest"`
	Total     int64  `json:"total"`
	Completed int64  `json:"completed"`
	Error     string `json:"error"`
}

// Pull downloads a model onto the server, streaming progress through
// the configured handler.
func (c *Client) Pull(ctx context.Context, name string) error {
	url := c.baseURL + "/api/pull"
	c.logger.Info("Pulling model", zap.String("model", name), zap.String("url", url))

	payload, err := json.Marshal(map[string]any{"model": name})
	if err != nil {
		return fmt.Errorf("encoding pull request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.pullClient.Do(req)
	if err != nil {
		return fmt.Errorf("pulling model: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}

	// The server streams newline-delimited JSON progress objects until
	// the final "success" status.
	dec := json.NewDecoder(resp.Body)
	for {
		var progress pullProgress
		if err := dec.Decode(&progress); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("decoding pull progress: %w", err)
		}
		if progress.Error != "" {
			return fmt.Errorf("pulling model %s: %s", name, progress.Error)
		}
		if c.progressHandler != nil {
			status := progress.Status
			if progress.Digest != "" {
				status = progress.Digest
			}
			c.progressHandler(progress.Completed, progress.Total, status)
		}
	}

	c.logger.Info("Model pulled successfully", zap.String("model", name))
	return nil
}

// Version returns the server version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	url := c.baseURL + "/api/version"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching version: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", statusError(resp)
	}

	var wire struct {
		Version string `json:"version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return "", fmt.Errorf("decoding version: %w", err)
	}
	return wire.Version, nil
}
