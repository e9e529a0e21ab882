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
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/antflydb/weaver/lib/dataset"
	"github.com/antflydb/weaver/lib/evaluation"
	"github.com/antflydb/weaver/lib/linking"
	"github.com/bytedance/sonic/decoder"
	"github.com/bytedance/sonic/encoder"
)

// Metadata describes one completed batch run over a single dataset.
type Metadata struct {
	Dataset      string    `json:"dataset"`
	Model        string    `json:"model"`
	Timestamp    time.Time `json:"timestamp"`
	TotalSamples int       `json:"total_samples"`
	Successful   int       `json:"successful"`
	Failed       int       `json:"failed"`
}

// ResultsFile pairs run metadata with per-document predictions. It is the
// on-disk interchange format between the run and evaluate commands.
type ResultsFile struct {
	Metadata Metadata            `json:"metadata"`
	Results  []evaluation.Result `json:"results"`
}

// BuildResults joins a dataset with the job results of a batch run, pairing
// documents and jobs by index. Slices of unequal length are zipped to the
// shorter one. Entities and ground truth are never null in the output so
// downstream tooling can iterate without nil checks.
func BuildResults(ds *dataset.Dataset, model string, jobs []JobResult) *ResultsFile {
	n := len(ds.Documents)
	if len(jobs) < n {
		n = len(jobs)
	}

	results := make([]evaluation.Result, 0, n)
	successful := 0
	for i := 0; i < n; i++ {
		doc := ds.Documents[i]
		job := jobs[i]

		pred := evaluation.Prediction{
			NEROutput: job.NEROutput,
			Entities:  job.Entities,
		}
		if pred.Entities == nil {
			pred.Entities = []linking.Mention{}
		}
		if job.Err != nil {
			pred.Error = job.Err.Error()
		} else {
			successful++
		}

		gold := doc.GroundTruth
		if gold == nil {
			gold = []linking.Mention{}
		}

		results = append(results, evaluation.Result{
			ID:          doc.ID,
			Corpus:      doc.Corpus,
			SourceFile:  doc.SourceFile,
			GroundTruth: gold,
			Predicted:   pred,
		})
	}

	return &ResultsFile{
		Metadata: Metadata{
			Dataset:      ds.Name,
			Model:        model,
			Timestamp:    time.Now().UTC(),
			TotalSamples: len(results),
			Successful:   successful,
			Failed:       len(results) - successful,
		},
		Results: results,
	}
}

// SanitizeModelName makes a model name safe for use in a filename by
// replacing ":" and "/" with "_".
func SanitizeModelName(model string) string {
	return strings.NewReplacer(":", "_", "/", "_").Replace(model)
}

// ResultsFileName returns the canonical filename for a run over the given
// dataset and model, e.g. "aida_gemma3_4b_results.json".
func ResultsFileName(dataset, model string) string {
	return fmt.Sprintf("%s_%s_results.json", dataset, SanitizeModelName(model))
}

// WriteResults writes rf into dir under its canonical filename and returns
// the full path. The file is written to a temp path first and renamed into
// place so readers never observe a partial file.
func WriteResults(rf *ResultsFile, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating results dir: %w", err)
	}

	destPath := filepath.Join(dir, ResultsFileName(rf.Metadata.Dataset, rf.Metadata.Model))
	tmpPath := destPath + ".tmp"
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating results file: %w", err)
	}

	cleanup := func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}

	enc := encoder.NewStreamEncoder(tmpFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rf); err != nil {
		cleanup()
		return "", fmt.Errorf("encoding results: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("closing results file: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("renaming results file: %w", err)
	}
	return destPath, nil
}

// ReadResults loads a results file previously written by WriteResults.
func ReadResults(path string) (*ResultsFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening results file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var rf ResultsFile
	if err := decoder.NewStreamDecoder(f).Decode(&rf); err != nil {
		return nil, fmt.Errorf("decoding results file %s: %w", path, err)
	}
	return &rf, nil
}
