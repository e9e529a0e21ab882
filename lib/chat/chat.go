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

// Package chat defines the model-conversation types shared by backends
// and executors: role-tagged messages, the Backend interface, and the
// hygiene applied to raw model output before it is interpreted.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Message roles understood by chat backends.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request describes one chat completion call.
type Request struct {
	// Model is the backend model name, e.g. "gemma3:4b".
	Model string

	// Messages is the conversation so far, in order.
	Messages []Message

	// Format, when non-nil, is a JSON schema the backend must constrain
	// its output to.
	Format map[string]any

	// Options are passed through to the backend untouched
	// (temperature, num_ctx, ...).
	Options map[string]any
}

// Response is the backend's reply to a Request.
type Response struct {
	Content string

	// Token counts as reported by the backend, zero when unknown.
	PromptTokens     int
	CompletionTokens int

	// Duration is the backend-reported total processing time.
	Duration time.Duration
}

// Backend executes chat requests against a model server.
type Backend interface {
	Chat(ctx context.Context, req Request) (*Response, error)
}

// ErrEmptyResponse reports that the backend produced no content at all.
// It is terminal: retrying the same prompt is not expected to help.
var ErrEmptyResponse = errors.New("empty response from model")

// MalformedOutputError reports model output that could not be
// interpreted as the requested structure. It is terminal and surfaced
// as the failing job's error, never as a process-wide failure.
type MalformedOutputError struct {
	// Err is the decode or validation failure.
	Err error

	// Snippet is a bounded prefix of the offending output, for logs.
	Snippet string
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("malformed model output: %v", e.Err)
}

func (e *MalformedOutputError) Unwrap() error {
	return e.Err
}

const snippetLimit = 200

func malformed(err error, content string) *MalformedOutputError {
	if len(content) > snippetLimit {
		content = content[:snippetLimit]
	}
	return &MalformedOutputError{Err: err, Snippet: content}
}

const reasoningEnd = "</think>"

// StripReasoning removes a chain-of-thought preamble from model output.
// Reasoning models emit their scratchpad before a closing marker; only
// the content after the last marker is the answer. Output without a
// marker is returned unchanged.
func StripReasoning(content string) string {
	idx := strings.LastIndex(content, reasoningEnd)
	if idx < 0 {
		return content
	}
	return strings.TrimSpace(content[idx+len(reasoningEnd):])
}
