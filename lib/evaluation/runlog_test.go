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
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendRunLog(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "runs.jsonl")

	metrics := Metrics{TP: 3, FP: 1, FN: 2, MicroPrecision: 0.75, MicroRecall: 0.6, MicroF1: 2.0 / 3.0}
	first := NewRunRecord("aida", "gemma3:4b", metrics)
	first.ResultsFile = "results/aida_gemma3_4b_results.json"
	require.NoError(t, AppendRunLog(logFile, first))
	require.NoError(t, AppendRunLog(logFile, NewRunRecord("kore50", "gemma3:4b", metrics)))

	f, err := os.Open(logFile)
	require.NoError(t, err)
	defer f.Close()

	var records []RunRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec RunRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		records = append(records, rec)
	}
	require.NoError(t, scanner.Err())

	require.Len(t, records, 2)
	assert.Equal(t, "aida", records[0].Dataset)
	assert.Equal(t, "results/aida_gemma3_4b_results.json", records[0].ResultsFile)
	assert.Equal(t, "kore50", records[1].Dataset)
	assert.Empty(t, records[1].ResultsFile)
	assert.Equal(t, 3, records[1].TP)
	assert.False(t, records[0].Timestamp.IsZero())
}
