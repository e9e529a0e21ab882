// Copyright 2025 Antfly, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/antflydb/antfly-go/libaf/healthserver"
	"github.com/antflydb/weaver"
	"github.com/antflydb/weaver/lib/cli"
	"github.com/antflydb/weaver/lib/ollama"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run inference on one or more datasets",
	Long: `Run every document of the selected datasets through the configured
Ollama model, write a results file per dataset, and print the scores.

Examples:
  # Run a single dataset
  weaver run --dataset ace2004

  # Run every dataset in the jsons directory with a specific model
  weaver run --all --model qwen3:8b

  # Quick pass over the first 20 documents, recognition and linking
  # in separate model calls
  weaver run --dataset msnbc --limit 20 --mode separate`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(runCmd)

	// Run command flags
	runCmd.Flags().String("model", weaver.DefaultModel, "Ollama model to run")
	mustBindPFlag("model", runCmd.Flags().Lookup("model"))
	runCmd.Flags().String("dataset", "", "dataset name or path to a dataset JSON file")
	mustBindPFlag("dataset", runCmd.Flags().Lookup("dataset"))
	runCmd.Flags().Bool("all", false, "run every dataset in the jsons directory")
	mustBindPFlag("all", runCmd.Flags().Lookup("all"))
	runCmd.Flags().String("jsons-dir", "data/jsons", "directory of dataset JSON files")
	mustBindPFlag("jsons_dir", runCmd.Flags().Lookup("jsons-dir"))
	runCmd.Flags().String("results-dir", "results", "directory where results files are written")
	mustBindPFlag("results_dir", runCmd.Flags().Lookup("results-dir"))
	runCmd.Flags().Int("max-workers", weaver.DefaultWorkers, "concurrent model requests")
	mustBindPFlag("max_workers", runCmd.Flags().Lookup("max-workers"))
	runCmd.Flags().Int("limit", 0, "max documents per dataset (0 runs all)")
	mustBindPFlag("limit", runCmd.Flags().Lookup("limit"))
	runCmd.Flags().String("mode", string(weaver.ModeCombined), "prompting mode (combined, separate)")
	mustBindPFlag("mode", runCmd.Flags().Lookup("mode"))
	runCmd.Flags().Bool("simple", false, "use the single-prompt executor (no retries, strict anchoring)")
	mustBindPFlag("simple", runCmd.Flags().Lookup("simple"))
	runCmd.Flags().String("fallback", string(weaver.FallbackAuto), "re-anchor out-of-order candidates from the start of the text (auto, on, off)")
	mustBindPFlag("anchor.global_fallback", runCmd.Flags().Lookup("fallback"))
	runCmd.Flags().Bool("cache", false, "serve repeated identical chat requests from memory")
	mustBindPFlag("cache.enabled", runCmd.Flags().Lookup("cache"))
	runCmd.Flags().String("run-log", "", "append one JSON line of metrics per dataset to this file")
	mustBindPFlag("run_log", runCmd.Flags().Lookup("run-log"))
	runCmd.Flags().Int("health-port", 4200, "health/metrics server port")
	mustBindPFlag("health_port", runCmd.Flags().Lookup("health-port"))
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Create logger from config
	logger := newLogger()
	defer func() {
		_ = logger.Sync()
	}()

	ds := viper.GetString("dataset")
	if viper.GetBool("all") {
		ds = ""
	} else if ds == "" {
		return fmt.Errorf("either --dataset or --all is required")
	}

	// Build weaver config from viper/env. max_retries, retry_delay and
	// ollama.timeout have no flags; they come from the config file or env.
	cfg := weaver.Config{
		OllamaURL:    viper.GetString("ollama.url"),
		Model:        viper.GetString("model"),
		Dataset:      ds,
		DatasetsDir:  viper.GetString("jsons_dir"),
		ResultsDir:   viper.GetString("results_dir"),
		Mode:         weaver.Mode(viper.GetString("mode")),
		Simple:       viper.GetBool("simple"),
		Fallback:     weaver.Fallback(viper.GetString("anchor.global_fallback")),
		MaxRetries:   viper.GetInt("max_retries"),
		RetryDelay:   viper.GetDuration("retry_delay"),
		Workers:      viper.GetInt("max_workers"),
		Limit:        viper.GetInt("limit"),
		CacheEnabled: viper.GetBool("cache.enabled"),
		ChatTimeout:  viper.GetDuration("ollama.timeout"),
		RunLog:       viper.GetString("run_log"),
	}

	// Track readiness state
	ready := &atomic.Bool{}
	ready.Store(false)

	// Start health server with readiness checker
	healthserver.Start(logger, viper.GetInt("health_port"), ready.Load)

	w := weaver.New(cfg, logger, ollama.WithProgressHandler(cli.PrintProgress))
	defer w.Close()

	if err := w.EnsureModel(ctx); err != nil {
		return err
	}
	ready.Store(true)

	summaries, err := w.Run(ctx, cli.PrintBatchProgress)
	if len(summaries) > 0 {
		fmt.Println()
		rows := make([]cli.EvaluationRow, 0, len(summaries))
		for _, s := range summaries {
			rows = append(rows, cli.EvaluationRow{
				Name:    s.Dataset,
				Model:   cfg.Model,
				Metrics: s.Metrics,
			})
		}
		if perr := cli.PrintEvaluationTable(rows); perr != nil && err == nil {
			err = perr
		}
	}
	return err
}
