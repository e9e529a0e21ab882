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

package evaluation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// RunRecord is one evaluation appended to the run log as a single JSON
// line, so metric history across models and datasets stays greppable.
type RunRecord struct {
	Timestamp      time.Time `json:"timestamp"`
	Dataset        string    `json:"dataset"`
	Model          string    `json:"model"`
	ResultsFile    string    `json:"results_file,omitempty"`
	TP             int       `json:"tp"`
	FP             int       `json:"fp"`
	FN             int       `json:"fn"`
	MicroPrecision float64   `json:"micro_precision"`
	MicroRecall    float64   `json:"micro_recall"`
	MicroF1        float64   `json:"micro_f1"`
}

// NewRunRecord stamps a record for the given evaluation.
func NewRunRecord(dataset, model string, m Metrics) RunRecord {
	return RunRecord{
		Timestamp:      time.Now().UTC(),
		Dataset:        dataset,
		Model:          model,
		TP:             m.TP,
		FP:             m.FP,
		FN:             m.FN,
		MicroPrecision: m.MicroPrecision,
		MicroRecall:    m.MicroRecall,
		MicroF1:        m.MicroF1,
	}
}

// AppendRunLog appends one JSON line to the log file, creating it and
// its directory if needed.
func AppendRunLog(logFile string, record RunRecord) error {
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		return fmt.Errorf("creating run log dir: %w", err)
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening run log: %w", err)
	}

	line, err := json.Marshal(record)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("marshaling run record: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		_ = f.Close()
		return fmt.Errorf("appending run record: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing run log: %w", err)
	}
	return nil
}
