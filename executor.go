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

package weaver

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/antflydb/weaver/lib/anchor"
	"github.com/antflydb/weaver/lib/chat"
	"github.com/antflydb/weaver/lib/linking"
	"github.com/antflydb/weaver/lib/ollama"
	"github.com/antflydb/weaver/lib/prompts"
	"github.com/antflydb/weaver/lib/tokenizer"
)

const (
	// DefaultMaxRetries is the total number of attempts for a model
	// request, first try included.
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the base backoff unit; attempt n waits
	// n * DefaultRetryDelay before the next try.
	DefaultRetryDelay = time.Second
)

// Executor runs the model tasks for one document.
type Executor interface {
	// RunNER returns the text with entities wrapped in markers.
	RunNER(ctx context.Context, text string) (string, error)

	// RunLinking links the entities of marker-tagged text and anchors
	// them onto the marker-stripped text.
	RunLinking(ctx context.Context, nerfulText string) ([]linking.Mention, error)

	// RunCombined recognizes and links entities in one pass, anchored
	// onto the original text.
	RunCombined(ctx context.Context, text string) ([]linking.Mention, error)
}

// Fallback controls whether anchoring may rescan from the start of the
// text when a forward search misses.
type Fallback string

const (
	// FallbackAuto keeps each task's native behavior: on for combined
	// extraction, off for two-stage linking.
	FallbackAuto Fallback = "auto"
	FallbackOn   Fallback = "on"
	FallbackOff  Fallback = "off"
)

// ExecutorOptions tunes a RetryingExecutor. Zero values pick defaults.
type ExecutorOptions struct {
	MaxRetries int
	RetryDelay time.Duration
	Fallback   Fallback

	// Tokenizer, when set, is used to log prompt token counts before
	// each request.
	Tokenizer tokenizer.Tokenizer
}

// RetryingExecutor is the production executor: structured prompts with a
// schema-constrained reply, transient failures retried with linear
// backoff, reasoning preambles stripped.
type RetryingExecutor struct {
	backend    chat.Backend
	model      string
	maxRetries int
	retryDelay time.Duration
	fallback   Fallback
	tokens     tokenizer.Tokenizer
	logger     *zap.Logger
}

var _ Executor = (*RetryingExecutor)(nil)

// NewRetryingExecutor creates an executor for the given backend and model
func NewRetryingExecutor(backend chat.Backend, model string, opts ExecutorOptions, logger *zap.Logger) *RetryingExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.Fallback == "" {
		opts.Fallback = FallbackAuto
	}
	return &RetryingExecutor{
		backend:    backend,
		model:      model,
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
		fallback:   opts.Fallback,
		tokens:     opts.Tokenizer,
		logger:     logger,
	}
}

// RunCombined recognizes and links entities with a single model call.
func (e *RetryingExecutor) RunCombined(ctx context.Context, text string) ([]linking.Mention, error) {
	candidates, err := e.requestTags(ctx, "combined", prompts.Combined(text))
	if err != nil {
		return nil, err
	}
	return e.anchorTags(text, candidates, anchor.Options{
		GlobalFallback: e.fallbackEnabled(true),
	}), nil
}

// RunNER tags entities in the text with markers.
func (e *RetryingExecutor) RunNER(ctx context.Context, text string) (string, error) {
	task := "ner"
	RecordModelRequest(e.model, task)
	start := time.Now()

	messages := prompts.NER(text)
	e.logPromptSize(task, messages)

	resp, err := e.chatWithRetry(ctx, chat.Request{Model: e.model, Messages: messages})
	e.observe(task, start, err)
	if err != nil {
		return "", err
	}
	if resp == nil || resp.Content == "" {
		return "", chat.ErrEmptyResponse
	}
	RecordTokenUsage(e.model, resp.PromptTokens, resp.CompletionTokens)

	return chat.StripReasoning(resp.Content), nil
}

// RunLinking links the entities of marker-tagged text.
func (e *RetryingExecutor) RunLinking(ctx context.Context, nerfulText string) ([]linking.Mention, error) {
	candidates, err := e.requestTags(ctx, "linking", prompts.Linking(nerfulText))
	if err != nil {
		return nil, err
	}
	return e.anchorTags(nerfulText, candidates, anchor.Options{
		StripMarkers:   prompts.Markers(),
		GlobalFallback: e.fallbackEnabled(false),
	}), nil
}

// requestTags runs one schema-constrained request and decodes the
// candidate list out of the reply.
func (e *RetryingExecutor) requestTags(ctx context.Context, task string, messages []chat.Message) ([]linking.Candidate, error) {
	RecordModelRequest(e.model, task)
	start := time.Now()

	e.logPromptSize(task, messages)

	resp, err := e.chatWithRetry(ctx, chat.Request{
		Model:    e.model,
		Messages: messages,
		Format:   chat.TagListSchema(),
	})
	e.observe(task, start, err)
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.Content == "" {
		return nil, chat.ErrEmptyResponse
	}
	RecordTokenUsage(e.model, resp.PromptTokens, resp.CompletionTokens)

	return chat.DecodeCandidates(chat.StripReasoning(resp.Content))
}

func (e *RetryingExecutor) anchorTags(source string, candidates []linking.Candidate, opts anchor.Options) []linking.Mention {
	mentions, dropped := anchor.Anchor(source, candidates, opts)
	RecordEntityCreation(e.model, len(mentions))
	if dropped > 0 {
		RecordDroppedCandidates(e.model, dropped)
		e.logger.Debug("Dropped unanchorable candidates",
			zap.String("model", e.model),
			zap.Int("dropped", dropped),
			zap.Int("anchored", len(mentions)))
	}
	return mentions
}

// chatWithRetry retries transient failures with linear backoff. Attempt
// n sleeps n * retryDelay before the next try; terminal errors and
// exhausted budgets surface the last error unchanged.
func (e *RetryingExecutor) chatWithRetry(ctx context.Context, req chat.Request) (*chat.Response, error) {
	var lastErr error
	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		resp, err := e.backend.Chat(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !ollama.IsRetryable(err) {
			return nil, err
		}
		if attempt == e.maxRetries {
			break
		}

		delay := time.Duration(attempt) * e.retryDelay
		e.logger.Warn("Model request failed, backing off",
			zap.String("model", req.Model),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", e.maxRetries),
			zap.Duration("delay", delay),
			zap.Error(err))
		RecordModelRetry(e.model)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}

func (e *RetryingExecutor) fallbackEnabled(taskDefault bool) bool {
	switch e.fallback {
	case FallbackOn:
		return true
	case FallbackOff:
		return false
	default:
		return taskDefault
	}
}

func (e *RetryingExecutor) logPromptSize(task string, messages []chat.Message) {
	if e.tokens == nil {
		return
	}
	total := 0
	for _, m := range messages {
		total += e.tokens.CountTokens(m.Content)
	}
	e.logger.Debug("Prompt prepared",
		zap.String("model", e.model),
		zap.String("task", task),
		zap.Int("prompt_tokens", total))
}

func (e *RetryingExecutor) observe(task string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	RecordRequestDuration(task, e.model, status, time.Since(start).Seconds())
}

// SimpleExecutor is the legacy executor kept for comparison runs: plain
// single-message prompts, no retry, and strict forward-only anchoring
// where an unlocatable entity fails the document.
type SimpleExecutor struct {
	backend chat.Backend
	model   string
	logger  *zap.Logger
}

var _ Executor = (*SimpleExecutor)(nil)

// NewSimpleExecutor creates the legacy executor
func NewSimpleExecutor(backend chat.Backend, model string, logger *zap.Logger) *SimpleExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SimpleExecutor{backend: backend, model: model, logger: logger}
}

// RunNER tags entities using the legacy single-message prompt.
func (e *SimpleExecutor) RunNER(ctx context.Context, text string) (string, error) {
	RecordModelRequest(e.model, "ner")
	start := time.Now()

	resp, err := e.backend.Chat(ctx, chat.Request{Model: e.model, Messages: prompts.SimpleNER(text)})
	e.observe("ner", start, err)
	if err != nil {
		return "", err
	}
	if resp == nil || resp.Content == "" {
		return "", chat.ErrEmptyResponse
	}
	RecordTokenUsage(e.model, resp.PromptTokens, resp.CompletionTokens)

	return chat.StripReasoning(resp.Content), nil
}

// RunLinking links tagged text with the legacy prompt and strict
// anchoring.
func (e *SimpleExecutor) RunLinking(ctx context.Context, nerfulText string) ([]linking.Mention, error) {
	RecordModelRequest(e.model, "linking")
	start := time.Now()

	resp, err := e.backend.Chat(ctx, chat.Request{
		Model:    e.model,
		Messages: prompts.SimpleLinking(nerfulText),
		Format:   chat.TagListSchema(),
	})
	e.observe("linking", start, err)
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.Content == "" {
		return nil, chat.ErrEmptyResponse
	}
	RecordTokenUsage(e.model, resp.PromptTokens, resp.CompletionTokens)

	candidates, err := chat.DecodeCandidates(resp.Content)
	if err != nil {
		return nil, err
	}

	mentions, err := anchor.AnchorStrict(nerfulText, candidates, prompts.Markers())
	if err != nil {
		return nil, err
	}
	RecordEntityCreation(e.model, len(mentions))
	return mentions, nil
}

// RunCombined chains recognition and linking; the legacy pipeline has no
// single-call mode.
func (e *SimpleExecutor) RunCombined(ctx context.Context, text string) ([]linking.Mention, error) {
	nerOutput, err := e.RunNER(ctx, text)
	if err != nil {
		return nil, err
	}
	return e.RunLinking(ctx, nerOutput)
}

func (e *SimpleExecutor) observe(task string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	RecordRequestDuration(task, e.model, status, time.Since(start).Seconds())
}
