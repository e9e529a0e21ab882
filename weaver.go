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

// Package weaver orchestrates batch named-entity recognition and entity
// linking runs against an Ollama server, scoring predictions against
// annotated datasets.
package weaver

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/antflydb/weaver/lib/chat"
	"github.com/antflydb/weaver/lib/dataset"
	"github.com/antflydb/weaver/lib/evaluation"
	"github.com/antflydb/weaver/lib/ollama"
	"go.uber.org/zap"
)

// ProgressFunc reports batch progress for a dataset as jobs finish.
type ProgressFunc func(dataset string, completed, total int)

// RunSummary is the outcome of one dataset run.
type RunSummary struct {
	Dataset  string
	FilePath string
	Metadata Metadata
	Metrics  evaluation.Metrics
}

// Weaver wires an Ollama-backed executor to datasets and results files.
type Weaver struct {
	config Config
	logger *zap.Logger

	client *ollama.Client
	cache  *ChatCache
	exec   Executor
}

// New creates a Weaver from config. Zero-valued config fields fall back to
// DefaultConfig. Extra client options are applied after the ones derived
// from config, so callers can attach a pull progress handler.
func New(config Config, logger *zap.Logger, clientOpts ...ollama.ClientOption) *Weaver {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("weaver")

	def := DefaultConfig()
	if config.OllamaURL == "" {
		config.OllamaURL = def.OllamaURL
	}
	if config.Model == "" {
		config.Model = def.Model
	}
	if config.DatasetsDir == "" {
		config.DatasetsDir = def.DatasetsDir
	}
	if config.ResultsDir == "" {
		config.ResultsDir = def.ResultsDir
	}
	if config.Mode == "" {
		config.Mode = def.Mode
	}
	if config.Fallback == "" {
		config.Fallback = def.Fallback
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = def.MaxRetries
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = def.RetryDelay
	}
	if config.Workers <= 0 {
		config.Workers = def.Workers
	}
	if config.ChatTimeout <= 0 {
		config.ChatTimeout = def.ChatTimeout
	}

	opts := append([]ollama.ClientOption{
		ollama.WithBaseURL(config.OllamaURL),
		ollama.WithChatTimeout(config.ChatTimeout),
		ollama.WithLogger(logger.Named("ollama")),
	}, clientOpts...)
	client := ollama.NewClient(opts...)

	var backend chat.Backend = client
	var cache *ChatCache
	if config.CacheEnabled {
		cache = NewChatCache(logger.Named("chat-cache"))
		backend = cache.WrapBackend(backend, "ollama")
	}

	var exec Executor
	if config.Simple {
		exec = NewSimpleExecutor(backend, config.Model, logger)
	} else {
		exec = NewRetryingExecutor(backend, config.Model, ExecutorOptions{
			MaxRetries: config.MaxRetries,
			RetryDelay: config.RetryDelay,
			Fallback:   config.Fallback,
		}, logger)
	}

	return &Weaver{
		config: config,
		logger: logger,
		client: client,
		cache:  cache,
		exec:   exec,
	}
}

// Client returns the underlying Ollama client.
func (w *Weaver) Client() *ollama.Client {
	return w.client
}

// Close releases the chat cache, if one is enabled.
func (w *Weaver) Close() {
	if w.cache != nil {
		w.cache.Close()
	}
}

// EnsureModel checks that the configured model is available on the Ollama
// server and pulls it when missing.
func (w *Weaver) EnsureModel(ctx context.Context) error {
	ok, err := w.client.HasModel(ctx, w.config.Model)
	if err != nil {
		return fmt.Errorf("checking model %s: %w", w.config.Model, err)
	}
	if ok {
		return nil
	}

	w.logger.Info("Model not found locally, pulling", zap.String("model", w.config.Model))
	if err := w.client.Pull(ctx, w.config.Model); err != nil {
		return fmt.Errorf("pulling model %s: %w", w.config.Model, err)
	}
	return nil
}

// Run processes every configured dataset in sequence, writing a results
// file and scoring each one. It returns the summaries of the datasets that
// completed, alongside any error that stopped the run.
func (w *Weaver) Run(ctx context.Context, progress ProgressFunc) ([]RunSummary, error) {
	datasets, err := w.loadDatasets()
	if err != nil {
		return nil, err
	}

	w.logger.Info("Starting run",
		zap.Int("datasets", len(datasets)),
		zap.String("model", w.config.Model),
		zap.String("mode", string(w.config.Mode)))

	summaries := make([]RunSummary, 0, len(datasets))
	for _, ds := range datasets {
		if err := ctx.Err(); err != nil {
			return summaries, err
		}

		var dsProgress func(completed, total int)
		if progress != nil {
			name := ds.Name
			dsProgress = func(completed, total int) { progress(name, completed, total) }
		}

		summary, err := w.RunDataset(ctx, ds, dsProgress)
		if err != nil {
			return summaries, fmt.Errorf("dataset %s: %w", ds.Name, err)
		}
		summaries = append(summaries, *summary)
	}
	return summaries, nil
}

// RunDataset processes a single dataset: batch inference, results file,
// metrics. The configured document limit is applied here.
func (w *Weaver) RunDataset(ctx context.Context, ds *dataset.Dataset, progress func(completed, total int)) (*RunSummary, error) {
	docs := ds.Documents
	if w.config.Limit > 0 && len(docs) > w.config.Limit {
		docs = docs[:w.config.Limit]
	}
	run := &dataset.Dataset{Name: ds.Name, Documents: docs}

	w.logger.Info("Processing dataset",
		zap.String("dataset", run.Name),
		zap.Int("documents", len(run.Documents)))

	jobs := RunBatch(ctx, w.exec, run.Texts(), BatchOptions{
		Workers:  w.config.Workers,
		Mode:     w.config.Mode,
		Progress: progress,
		Logger:   w.logger,
	})

	rf := BuildResults(run, w.config.Model, jobs)
	path, err := WriteResults(rf, w.config.ResultsDir)
	if err != nil {
		return nil, err
	}

	metrics := evaluation.Score(rf.Results)
	RecordEvaluation(run.Name, w.config.Model, metrics)

	w.logger.Info("Dataset complete",
		zap.String("dataset", run.Name),
		zap.String("results", path),
		zap.Int("successful", rf.Metadata.Successful),
		zap.Int("failed", rf.Metadata.Failed),
		zap.Float64("micro_f1", metrics.MicroF1))

	if w.config.RunLog != "" {
		record := evaluation.NewRunRecord(run.Name, w.config.Model, metrics)
		record.ResultsFile = path
		if err := evaluation.AppendRunLog(w.config.RunLog, record); err != nil {
			w.logger.Warn("Appending run log", zap.String("path", w.config.RunLog), zap.Error(err))
		}
	}

	return &RunSummary{
		Dataset:  run.Name,
		FilePath: path,
		Metadata: rf.Metadata,
		Metrics:  metrics,
	}, nil
}

// loadDatasets resolves the configured dataset selection. A bare name is
// looked up as <DatasetsDir>/<name>.json; a value ending in .json is used
// as a path directly. An empty selection loads every dataset in the
// directory.
func (w *Weaver) loadDatasets() ([]*dataset.Dataset, error) {
	if w.config.Dataset == "" {
		return dataset.LoadAll(w.config.DatasetsDir)
	}

	path := w.config.Dataset
	if filepath.Ext(path) != ".json" {
		path = filepath.Join(w.config.DatasetsDir, w.config.Dataset+".json")
	}
	ds, err := dataset.Load(path)
	if err != nil {
		return nil, err
	}
	return []*dataset.Dataset{ds}, nil
}
