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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antflydb/weaver/lib/linking"
)

func mention(text, uri string, begin, end int) linking.Mention {
	return linking.Mention{Text: text, URI: uri, BeginIndex: begin, EndIndex: end}
}

func TestScoreOneMatchOneSpurious(t *testing.T) {
	results := []Result{{
		GroundTruth: []linking.Mention{
			mention("Alice", "https://en.wikipedia.org/wiki/Alice", 0, 5),
		},
		Predicted: Prediction{Entities: []linking.Mention{
			mention("Alice", "https://en.wikipedia.org/wiki/Alice", 0, 5),
			mention("dog", "https://en.wikipedia.org/wiki/Dog", 12, 15),
		}},
	}}

	m := Score(results)
	assert.Equal(t, 1, m.TP)
	assert.Equal(t, 1, m.FP)
	assert.Equal(t, 0, m.FN)
	assert.InDelta(t, 0.5, m.MicroPrecision, 1e-9)
	assert.InDelta(t, 1.0, m.MicroRecall, 1e-9)
	assert.InDelta(t, 2.0/3.0, m.MicroF1, 1e-9)
}

func TestScoreRequiresBothSpanAndURI(t *testing.T) {
	gold := []linking.Mention{mention("Paris", "https://en.wikipedia.org/wiki/Paris", 0, 5)}

	tests := []struct {
		name string
		pred linking.Mention
		tp   int
	}{
		{
			name: "span right, uri wrong",
			pred: mention("Paris", "https://en.wikipedia.org/wiki/Paris,_Texas", 0, 5),
			tp:   0,
		},
		{
			name: "uri right, span shifted",
			pred: mention("Paris", "https://en.wikipedia.org/wiki/Paris", 1, 6),
			tp:   0,
		},
		{
			name: "equivalent uri forms",
			pred: mention("Paris", "http://EN.WIKIPEDIA.ORG/wiki/Paris#History", 0, 5),
			tp:   1,
		},
		{
			name: "dbpedia form of the same title",
			pred: mention("Paris", "https://dbpedia.org/resource/Paris?lang=en", 0, 5),
			tp:   1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Score([]Result{{
				GroundTruth: gold,
				Predicted:   Prediction{Entities: []linking.Mention{tt.pred}},
			}})
			assert.Equal(t, tt.tp, m.TP)
			if tt.tp == 0 {
				assert.Equal(t, 1, m.FP)
				assert.Equal(t, 1, m.FN)
			}
		})
	}
}

func TestScoreMatchingIsOneToOne(t *testing.T) {
	alice := mention("Alice", "uri:alice", 0, 5)

	// Two identical predictions cannot both claim the single gold entity.
	m := Score([]Result{{
		GroundTruth: []linking.Mention{alice},
		Predicted:   Prediction{Entities: []linking.Mention{alice, alice}},
	}})
	assert.Equal(t, 1, m.TP)
	assert.Equal(t, 1, m.FP)
	assert.Equal(t, 0, m.FN)

	// And one prediction satisfies at most one of two identical golds.
	m = Score([]Result{{
		GroundTruth: []linking.Mention{alice, alice},
		Predicted:   Prediction{Entities: []linking.Mention{alice}},
	}})
	assert.Equal(t, 1, m.TP)
	assert.Equal(t, 0, m.FP)
	assert.Equal(t, 1, m.FN)
}

func TestScoreAggregatesAcrossDocuments(t *testing.T) {
	alice := mention("Alice", "uri:alice", 0, 5)
	bob := mention("Bob", "uri:bob", 0, 3)

	m := Score([]Result{
		{GroundTruth: []linking.Mention{alice}, Predicted: Prediction{Entities: []linking.Mention{alice}}},
		{GroundTruth: []linking.Mention{bob}, Predicted: Prediction{Entities: nil, Error: "model request failed"}},
	})
	assert.Equal(t, 1, m.TP)
	assert.Equal(t, 0, m.FP)
	assert.Equal(t, 1, m.FN)
	assert.InDelta(t, 1.0, m.MicroPrecision, 1e-9)
	assert.InDelta(t, 0.5, m.MicroRecall, 1e-9)
}

func TestScoreEmptyInputHasNoNaNs(t *testing.T) {
	m := Score(nil)
	assert.Equal(t, Metrics{}, m)

	m = Score([]Result{{}})
	assert.Zero(t, m.MicroPrecision)
	assert.Zero(t, m.MicroRecall)
	assert.Zero(t, m.MicroF1)
}

func TestScoreResultsFileWrapped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aida_gemma3_4b_results.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"metadata": {"dataset": "aida", "model": "gemma3:4b", "total_samples": 1},
		"results": [
			{
				"id": "aida_0",
				"corpus": "Alice has a dog",
				"ground_truth": [{"text": "Alice", "uri": "uri:alice", "beginIndex": 0, "endIndex": 5}],
				"predicted": {"ner_output": null, "entities": [{"text": "Alice", "uri": "uri:alice", "beginIndex": 0, "endIndex": 5}], "error": null}
			}
		]
	}`), 0o644))

	report, err := ScoreResultsFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, report.FilePath)
	assert.Equal(t, "aida", report.Metadata["dataset"])
	assert.Equal(t, 1, report.Metrics.TP)
	assert.InDelta(t, 1.0, report.Metrics.MicroF1, 1e-9)
}

func TestScoreResultsFileBareArray(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rows.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"ground_truth": [], "predicted": {"entities": [{"text": "x", "uri": "u", "beginIndex": 0, "endIndex": 1}]}}
	]`), 0o644))

	report, err := ScoreResultsFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Metrics.FP)
	assert.Nil(t, report.Metadata)
}

func TestScoreResultsFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := ScoreResultsFile(filepath.Join(dir, "missing.json"))
	require.Error(t, err)

	noResults := filepath.Join(dir, "noresults.json")
	require.NoError(t, os.WriteFile(noResults, []byte(`{"metadata": {}}`), 0o644))
	_, err = ScoreResultsFile(noResults)
	require.Error(t, err)

	garbage := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte(`not json at all`), 0o644))
	_, err = ScoreResultsFile(garbage)
	require.Error(t, err)
}
