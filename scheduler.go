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
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/antflydb/weaver/lib/linking"
)

// DefaultWorkers is the batch scheduler's default concurrency.
const DefaultWorkers = 4

// Mode selects how the executor processes each document.
type Mode string

const (
	// ModeCombined runs recognition and linking in one model call.
	ModeCombined Mode = "combined"

	// ModeSeparate runs recognition first and links the tagged text in
	// a second call.
	ModeSeparate Mode = "separate"
)

// JobResult is the outcome of processing one text. Exactly one of
// Entities or Err is meaningful; a failed job keeps its slot with an
// empty entity list.
type JobResult struct {
	Text      string
	NEROutput string
	Entities  []linking.Mention
	Err       error
}

// BatchOptions configures RunBatch. Zero values pick defaults.
type BatchOptions struct {
	// Workers bounds the number of in-flight documents.
	Workers int

	// Mode defaults to ModeCombined.
	Mode Mode

	// Progress, when set, is called after each finished job with the
	// number of completed jobs and the total. Calls are serialized.
	Progress func(completed, total int)

	Logger *zap.Logger
}

// RunBatch processes every text with the executor under bounded
// concurrency. Results come back index-aligned with texts, and one
// job's failure never affects the others. Canceling the context fails
// the jobs that have not finished.
func RunBatch(ctx context.Context, exec Executor, texts []string, opts BatchOptions) []JobResult {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	mode := opts.Mode
	if mode == "" {
		mode = ModeCombined
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	results := make([]JobResult, len(texts))
	sem := semaphore.NewWeighted(int64(workers))

	var (
		wg         sync.WaitGroup
		progressMu sync.Mutex
		completed  int
	)

	logger.Info("Starting batch",
		zap.Int("texts", len(texts)),
		zap.Int("workers", workers),
		zap.String("mode", string(mode)))

	for i, text := range texts {
		if err := sem.Acquire(ctx, 1); err != nil {
			for j := i; j < len(texts); j++ {
				results[j] = JobResult{Text: texts[j], Err: fmt.Errorf("job canceled: %w", err)}
				RecordJob(string(mode), "error")
			}
			break
		}

		wg.Add(1)
		go func(i int, text string) {
			defer wg.Done()
			defer sem.Release(1)

			JobStarted()
			results[i] = runJob(ctx, exec, text, mode)
			JobFinished()

			status := "ok"
			if results[i].Err != nil {
				status = "error"
				logger.Debug("Job failed",
					zap.Int("index", i),
					zap.Error(results[i].Err))
			}
			RecordJob(string(mode), status)

			if opts.Progress != nil {
				progressMu.Lock()
				completed++
				func() {
					defer func() {
						if r := recover(); r != nil {
							logger.Debug("Progress callback panicked", zap.Any("panic", r))
						}
					}()
					opts.Progress(completed, len(texts))
				}()
				progressMu.Unlock()
			}
		}(i, text)
	}

	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	logger.Info("Batch finished",
		zap.Int("texts", len(texts)),
		zap.Int("failed", failed))

	return results
}

// runJob executes one document, isolating panics so a misbehaving
// executor cannot take down the batch.
func runJob(ctx context.Context, exec Executor, text string, mode Mode) (res JobResult) {
	res = JobResult{Text: text}
	defer func() {
		if r := recover(); r != nil {
			res = JobResult{Text: text, Err: fmt.Errorf("job panicked: %v", r)}
		}
	}()

	if mode == ModeSeparate {
		nerOutput, err := exec.RunNER(ctx, text)
		if err != nil {
			return JobResult{Text: text, Err: fmt.Errorf("recognizing entities: %w", err)}
		}
		entities, err := exec.RunLinking(ctx, nerOutput)
		if err != nil {
			return JobResult{Text: text, Err: fmt.Errorf("linking entities: %w", err)}
		}
		res.NEROutput = nerOutput
		res.Entities = entities
		return res
	}

	entities, err := exec.RunCombined(ctx, text)
	if err != nil {
		return JobResult{Text: text, Err: err}
	}
	res.Entities = entities
	return res
}
