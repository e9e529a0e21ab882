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

package tokenizer

import "testing"

func TestBPETokenizerCountTokens(t *testing.T) {
	tk, err := NewBPETokenizer("")
	if err != nil {
		t.Fatalf("NewBPETokenizer() error = %v", err)
	}

	if got := tk.CountTokens(""); got != 0 {
		t.Errorf("CountTokens(\"\") = %d, want 0", got)
	}

	short := tk.CountTokens("Alice has a dog")
	if short == 0 {
		t.Error("CountTokens returned 0 for non-empty text")
	}

	long := tk.CountTokens("Alice has a dog. The dog likes long walks around Princeton University.")
	if long <= short {
		t.Errorf("longer text counted %d tokens, short text %d", long, short)
	}
}

func TestNewBPETokenizerUnknownEncoding(t *testing.T) {
	if _, err := NewBPETokenizer("not-a-real-encoding"); err == nil {
		t.Error("expected error for unknown encoding")
	}
}
