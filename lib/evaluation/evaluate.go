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

// Package evaluation scores predicted entity links against gold
// annotations. A prediction counts as correct only when its span
// matches a gold span exactly and both URIs normalize to the same page
// title; matching is one-to-one within a document.
package evaluation

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/antflydb/weaver/lib/linking"
)

// Result is one scored document: what the dataset says against what the
// model produced. This is also the row format of persisted results
// files.
type Result struct {
	ID          string            `json:"id"`
	Corpus      string            `json:"corpus"`
	SourceFile  string            `json:"source_file"`
	GroundTruth []linking.Mention `json:"ground_truth"`
	Predicted   Prediction        `json:"predicted"`
}

// Prediction holds the model side of a result row.
type Prediction struct {
	// NEROutput is the marked-up intermediate text of the two-stage
	// pipeline; empty in combined mode.
	NEROutput string `json:"ner_output,omitempty"`

	Entities []linking.Mention `json:"entities"`

	// Error is the job's terminal failure, empty on success.
	Error string `json:"error,omitempty"`
}

// Metrics are micro-averaged over every entity in the scored corpus.
// Field names follow the persisted report format.
type Metrics struct {
	TP             int     `json:"TP"`
	FP             int     `json:"FP"`
	FN             int     `json:"FN"`
	MicroPrecision float64 `json:"Micro_Precision"`
	MicroRecall    float64 `json:"Micro_Recall"`
	MicroF1        float64 `json:"Micro_F1_Score"`
}

// Score computes micro P/R/F1 over the given documents. Within each
// document, predictions greedily claim the first unmatched gold entity
// with the same exact span and the same normalized URI; every unmatched
// gold entity is a false negative and every unmatched prediction a
// false positive.
func Score(results []Result) Metrics {
	var tp, fp, fn int

	for _, doc := range results {
		gold := doc.GroundTruth
		pred := doc.Predicted.Entities

		matchedGold := make([]bool, len(gold))
		matchedPred := 0

		for _, p := range pred {
			for i, g := range gold {
				if matchedGold[i] {
					continue
				}
				spanMatch := p.BeginIndex == g.BeginIndex && p.EndIndex == g.EndIndex
				if !spanMatch {
					continue
				}
				if linking.NormalizeURI(p.URI) != linking.NormalizeURI(g.URI) {
					continue
				}
				tp++
				matchedGold[i] = true
				matchedPred++
				break
			}
		}

		for _, m := range matchedGold {
			if !m {
				fn++
			}
		}
		fp += len(pred) - matchedPred
	}

	m := Metrics{TP: tp, FP: fp, FN: fn}
	if tp+fp > 0 {
		m.MicroPrecision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		m.MicroRecall = float64(tp) / float64(tp+fn)
	}
	if m.MicroPrecision+m.MicroRecall > 0 {
		m.MicroF1 = 2 * m.MicroPrecision * m.MicroRecall / (m.MicroPrecision + m.MicroRecall)
	}
	return m
}

// Report is the scored summary of one results file.
type Report struct {
	FilePath string         `json:"file_path"`
	Metadata map[string]any `json:"metadata"`
	Metrics  Metrics        `json:"metrics"`
}

// ScoreResultsFile loads a persisted results file and scores it. Both
// the wrapped form ({"metadata": ..., "results": [...]}) and a bare
// result array are accepted.
func ScoreResultsFile(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading results file: %w", err)
	}

	report := &Report{FilePath: path}

	var wrapped struct {
		Metadata map[string]any `json:"metadata"`
		Results  []Result       `json:"results"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil {
		if wrapped.Results == nil {
			return nil, fmt.Errorf("results file %s has no results array", path)
		}
		report.Metadata = wrapped.Metadata
		report.Metrics = Score(wrapped.Results)
		return report, nil
	}

	var rows []Result
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parsing results file %s: %w", path, err)
	}
	report.Metrics = Score(rows)
	return report, nil
}
