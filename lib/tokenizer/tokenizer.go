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

// Package tokenizer provides token counting for prompt-size accounting.
// Counts are approximate for non-OpenAI models but close enough to spot
// prompts that blow past a model's context window.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// Tokenizer provides token counting for text.
type Tokenizer interface {
	// CountTokens returns the number of tokens in the text.
	CountTokens(text string) int
}

// BPETokenizer uses OpenAI's tiktoken BPE tokenization.
type BPETokenizer struct {
	tiktoken *tiktoken.Tiktoken
}

var _ Tokenizer = (*BPETokenizer)(nil)

func init() {
	// Set the offline loader for tiktoken to avoid network requests
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// NewBPETokenizer creates a BPE tokenizer using tiktoken-go with embedded dictionaries.
// The encoding parameter specifies which BPE encoding to use:
// - "cl100k_base": GPT-4, GPT-3.5-turbo (recommended general-purpose default)
// - "o200k_base": GPT-4o models
// - "r50k_base": GPT-3 models (davinci, curie, etc.)
func NewBPETokenizer(encoding string) (*BPETokenizer, error) {
	if encoding == "" {
		encoding = "cl100k_base"
	}

	tk, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding %q: %w", encoding, err)
	}

	return &BPETokenizer{tiktoken: tk}, nil
}

// CountTokens returns the number of tokens in the text.
func (t *BPETokenizer) CountTokens(text string) int {
	if text == "" {
		return 0
	}

	tokens := t.tiktoken.Encode(text, nil, nil)
	return len(tokens)
}
