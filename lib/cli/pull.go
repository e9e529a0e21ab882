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

// Package cli provides shared CLI functions for weaver model management
// and run reporting.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/antflydb/weaver/lib/ollama"
)

// PullOptions contains options for pulling models through Ollama
type PullOptions struct {
	OllamaURL string
}

// ListOptions contains options for listing models
type ListOptions struct {
	OllamaURL string
}

// PullModel downloads a model through the Ollama server, printing
// download progress. Models already present are left alone.
func PullModel(modelName string, opts PullOptions) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := ollama.NewClient(
		ollama.WithBaseURL(opts.OllamaURL),
		ollama.WithProgressHandler(PrintProgress),
	)

	ok, err := client.HasModel(ctx, modelName)
	if err != nil {
		return fmt.Errorf("failed to check local models: %w", err)
	}
	if ok {
		fmt.Printf("Model %s is already available\n", modelName)
		return nil
	}

	fmt.Printf("Pulling %s from %s...\n", modelName, opts.OllamaURL)
	if err := client.Pull(ctx, modelName); err != nil {
		return fmt.Errorf("failed to pull model: %w", err)
	}

	fmt.Printf("\n✓ Model %s pulled successfully\n", modelName)
	return nil
}

// ListModels lists the models available on the Ollama server
func ListModels(opts ListOptions) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := ollama.NewClient(ollama.WithBaseURL(opts.OllamaURL))

	fmt.Printf("Fetching model list from %s...\n\n", opts.OllamaURL)

	models, err := client.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}

	if len(models) == 0 {
		fmt.Println("No models available on the server.")
		fmt.Println("\nUse 'weaver pull <model-name>' to download models.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tSIZE\tDIGEST\tMODIFIED")

	for _, model := range models {
		digest := model.Digest
		if len(digest) > 12 {
			digest = digest[:12]
		}

		modified := ""
		if !model.ModifiedAt.IsZero() {
			modified = model.ModifiedAt.Format("2006-01-02 15:04")
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			model.Name,
			FormatBytes(model.Size),
			digest,
			modified,
		)
	}
	return w.Flush()
}

// FormatBytes formats bytes as human-readable string
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// PrintProgress prints download progress to stdout
func PrintProgress(completed, total int64, status string) {
	if total <= 0 {
		fmt.Printf("\r  %s", status)
		return
	}

	percent := float64(completed) / float64(total) * 100
	barWidth := 30
	filled := int(float64(barWidth) * float64(completed) / float64(total))

	bar := strings.Repeat("=", filled) + strings.Repeat("-", barWidth-filled)
	fmt.Printf("\r  %s: [%s] %.1f%% (%s/%s)",
		status, bar, percent, FormatBytes(completed), FormatBytes(total))

	if completed >= total {
		fmt.Println()
	}
}

// PrintBatchProgress renders an in-place progress bar for one dataset's
// batch run.
func PrintBatchProgress(dataset string, completed, total int) {
	if total <= 0 {
		return
	}

	percent := float64(completed) / float64(total) * 100
	barWidth := 30
	filled := int(float64(barWidth) * float64(completed) / float64(total))

	bar := strings.Repeat("=", filled) + strings.Repeat("-", barWidth-filled)
	fmt.Printf("\r  %s: [%s] %.1f%% (%d/%d)",
		dataset, bar, percent, completed, total)

	if completed >= total {
		fmt.Println()
	}
}
