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
	"fmt"
	"os"
	"path/filepath"

	"github.com/antflydb/weaver/lib/cli"
	"github.com/antflydb/weaver/lib/evaluation"
	"github.com/bytedance/sonic/encoder"
	"github.com/spf13/cobra"
)

var evaluateCmd = &cobra.Command{
	Use:     "evaluate <results-file-or-dir> [more...]",
	Aliases: []string{"eval"},
	Short:   "Score saved results files",
	Long: `Re-score results files produced by 'weaver run'. A directory argument
scores every JSON file inside it.

Each file is scored with the same micro precision/recall/F1 computation
the run command uses, so saved runs can be re-checked or compared without
re-running inference.

Examples:
  # Score a single results file
  weaver evaluate results/ace2004_gemma3_4b_results.json

  # Score every saved run and emit machine-readable reports
  weaver evaluate --json results/

  # Append the scores to a shared run log
  weaver evaluate --run-log runs.jsonl results/`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	// Evaluate command flags
	evaluateCmd.Flags().Bool("json", false, "print reports as JSON instead of a table")
	evaluateCmd.Flags().String("run-log", "", "append one JSON line of metrics per file to this file")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	runLog, _ := cmd.Flags().GetString("run-log")

	paths, err := resolveResultsPaths(args)
	if err != nil {
		return err
	}

	reports := make([]*evaluation.Report, 0, len(paths))
	for _, path := range paths {
		report, err := evaluation.ScoreResultsFile(path)
		if err != nil {
			return fmt.Errorf("failed to score %s: %w", path, err)
		}
		reports = append(reports, report)
	}

	if runLog != "" {
		for _, report := range reports {
			ds, model := reportOrigin(report)
			record := evaluation.NewRunRecord(ds, model, report.Metrics)
			record.ResultsFile = report.FilePath
			if err := evaluation.AppendRunLog(runLog, record); err != nil {
				return fmt.Errorf("failed to append run log: %w", err)
			}
		}
	}

	if asJSON {
		enc := encoder.NewStreamEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}

	rows := make([]cli.EvaluationRow, 0, len(reports))
	for _, report := range reports {
		ds, model := reportOrigin(report)
		rows = append(rows, cli.EvaluationRow{Name: ds, Model: model, Metrics: report.Metrics})
	}
	return cli.PrintEvaluationTable(rows)
}

// resolveResultsPaths expands directory arguments into their JSON files
// (sorted); file arguments pass through as given.
func resolveResultsPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(arg, "*.json"))
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no results files in %s", arg)
		}
		paths = append(paths, matches...)
	}
	return paths, nil
}

// reportOrigin pulls the dataset and model names out of a report's
// metadata, falling back to the file path for bare result arrays.
func reportOrigin(report *evaluation.Report) (dataset, model string) {
	dataset, _ = report.Metadata["dataset"].(string)
	model, _ = report.Metadata["model"].(string)
	if dataset == "" {
		dataset = report.FilePath
	}
	return dataset, model
}
