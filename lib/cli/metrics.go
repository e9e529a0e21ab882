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

package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/antflydb/weaver/lib/evaluation"
)

// EvaluationRow pairs a scored run with its identifying labels.
type EvaluationRow struct {
	Name    string
	Model   string
	Metrics evaluation.Metrics
}

// PrintEvaluationTable renders per-run metrics as an aligned table.
func PrintEvaluationTable(rows []EvaluationRow) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "DATASET\tMODEL\tTP\tFP\tFN\tPRECISION\tRECALL\tF1")

	for _, row := range rows {
		m := row.Metrics
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%.4f\t%.4f\t%.4f\n",
			row.Name,
			row.Model,
			m.TP,
			m.FP,
			m.FN,
			m.MicroPrecision,
			m.MicroRecall,
			m.MicroF1,
		)
	}
	return w.Flush()
}
