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
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/antflydb/weaver/lib/linking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockExecutor implements Executor with function fields.
type mockExecutor struct {
	nerFunc      func(ctx context.Context, text string) (string, error)
	linkingFunc  func(ctx context.Context, nerfulText string) ([]linking.Mention, error)
	combinedFunc func(ctx context.Context, text string) ([]linking.Mention, error)
}

func (m *mockExecutor) RunNER(ctx context.Context, text string) (string, error) {
	return m.nerFunc(ctx, text)
}

func (m *mockExecutor) RunLinking(ctx context.Context, nerfulText string) ([]linking.Mention, error) {
	return m.linkingFunc(ctx, nerfulText)
}

func (m *mockExecutor) RunCombined(ctx context.Context, text string) ([]linking.Mention, error) {
	return m.combinedFunc(ctx, text)
}

func makeTexts(n int) []string {
	texts := make([]string, n)
	for i := range texts {
		texts[i] = fmt.Sprintf("document %d", i)
	}
	return texts
}

func TestRunBatchKeepsInputOrder(t *testing.T) {
	texts := makeTexts(6)
	exec := &mockExecutor{combinedFunc: func(_ context.Context, text string) ([]linking.Mention, error) {
		// Early documents finish last so completion order differs from
		// input order.
		if strings.HasSuffix(text, "0") || strings.HasSuffix(text, "1") {
			time.Sleep(20 * time.Millisecond)
		}
		return []linking.Mention{{Text: text}}, nil
	}}

	results := RunBatch(context.Background(), exec, texts, BatchOptions{Workers: 3})
	require.Len(t, results, len(texts))
	for i, res := range results {
		assert.Equal(t, texts[i], res.Text)
		require.NoError(t, res.Err)
		require.Len(t, res.Entities, 1)
		assert.Equal(t, texts[i], res.Entities[0].Text)
	}
}

func TestRunBatchIsolatesFailures(t *testing.T) {
	texts := []string{"good one", "bad one", "good two"}
	exec := &mockExecutor{combinedFunc: func(_ context.Context, text string) ([]linking.Mention, error) {
		if strings.HasPrefix(text, "bad") {
			return nil, fmt.Errorf("model refused")
		}
		return []linking.Mention{{Text: text}}, nil
	}}

	results := RunBatch(context.Background(), exec, texts, BatchOptions{Workers: 2})
	require.Len(t, results, 3)

	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)

	assert.Empty(t, results[1].Entities)
	require.Len(t, results[0].Entities, 1)
	require.Len(t, results[2].Entities, 1)
}

func TestRunBatchSeparateMode(t *testing.T) {
	exec := &mockExecutor{
		nerFunc: func(_ context.Context, text string) (string, error) {
			return "[START_ENT]" + text + "[END_ENT]", nil
		},
		linkingFunc: func(_ context.Context, nerfulText string) ([]linking.Mention, error) {
			return []linking.Mention{{Text: nerfulText}}, nil
		},
	}

	results := RunBatch(context.Background(), exec, []string{"Alice"}, BatchOptions{Mode: ModeSeparate})
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	assert.Equal(t, "[START_ENT]Alice[END_ENT]", results[0].NEROutput)
	require.Len(t, results[0].Entities, 1)
}

func TestRunBatchSeparateModeWrapsStageErrors(t *testing.T) {
	tests := []struct {
		name    string
		nerErr  error
		linkErr error
		want    string
	}{
		{"recognition failure", fmt.Errorf("timeout"), nil, "recognizing entities"},
		{"linking failure", nil, fmt.Errorf("bad span"), "linking entities"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &mockExecutor{
				nerFunc: func(_ context.Context, text string) (string, error) {
					return "tagged " + text, tt.nerErr
				},
				linkingFunc: func(context.Context, string) ([]linking.Mention, error) {
					return nil, tt.linkErr
				},
			}

			results := RunBatch(context.Background(), exec, []string{"doc"}, BatchOptions{Mode: ModeSeparate})
			require.Len(t, results, 1)
			require.Error(t, results[0].Err)
			assert.Contains(t, results[0].Err.Error(), tt.want)

			// A failed job never carries partial recognition output.
			assert.Empty(t, results[0].NEROutput)
			assert.Empty(t, results[0].Entities)
		})
	}
}

func TestRunBatchRecoversPanics(t *testing.T) {
	exec := &mockExecutor{combinedFunc: func(_ context.Context, text string) ([]linking.Mention, error) {
		if text == "document 1" {
			panic("executor bug")
		}
		return []linking.Mention{{Text: text}}, nil
	}}

	results := RunBatch(context.Background(), exec, makeTexts(3), BatchOptions{Workers: 1})
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	require.Error(t, results[1].Err)
	assert.Contains(t, results[1].Err.Error(), "job panicked")
	assert.NoError(t, results[2].Err)
}

func TestRunBatchProgressIsMonotonic(t *testing.T) {
	texts := makeTexts(5)
	exec := &mockExecutor{combinedFunc: func(context.Context, string) ([]linking.Mention, error) {
		return nil, nil
	}}

	var calls []int
	RunBatch(context.Background(), exec, texts, BatchOptions{
		Workers: 3,
		Progress: func(completed, total int) {
			assert.Equal(t, len(texts), total)
			calls = append(calls, completed)
		},
	})

	require.Len(t, calls, len(texts))
	for i, completed := range calls {
		assert.Equal(t, i+1, completed)
	}
}

func TestRunBatchCanceledContextFailsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := &mockExecutor{combinedFunc: func(context.Context, string) ([]linking.Mention, error) {
		t.Error("executor must not run after cancellation")
		return nil, nil
	}}

	results := RunBatch(ctx, exec, makeTexts(3), BatchOptions{Workers: 1})
	require.Len(t, results, 3)
	for _, res := range results {
		require.Error(t, res.Err)
		assert.ErrorIs(t, res.Err, context.Canceled)
	}
}

func TestRunBatchBoundsConcurrency(t *testing.T) {
	var active, peak atomic.Int64
	exec := &mockExecutor{combinedFunc: func(context.Context, string) ([]linking.Mention, error) {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
		return nil, nil
	}}

	RunBatch(context.Background(), exec, makeTexts(10), BatchOptions{Workers: 2})
	assert.LessOrEqual(t, peak.Load(), int64(2))
}
