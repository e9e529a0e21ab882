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

package linking

import (
	"testing"
)

func TestNormalizeURI(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{
			name:     "wikipedia https",
			uri:      "https://en.wikipedia.org/wiki/Jon_Voight",
			expected: "jon_voight",
		},
		{
			name:     "wikipedia http uppercase host with fragment",
			uri:      "http://EN.WIKIPEDIA.ORG/wiki/Jon_Voight#cite",
			expected: "jon_voight",
		},
		{
			name:     "wikipedia other language host",
			uri:      "https://de.wikipedia.org/wiki/Berlin",
			expected: "berlin",
		},
		{
			name:     "dbpedia resource with query",
			uri:      "https://dbpedia.org/resource/Brad_Pitt?lang=en",
			expected: "brad_pitt",
		},
		{
			name:     "dbpedia http",
			uri:      "http://dbpedia.org/resource/Angelina_Jolie",
			expected: "angelina_jolie",
		},
		{
			name:     "empty",
			uri:      "",
			expected: "",
		},
		{
			name:     "unrecognized scheme kept lowercased",
			uri:      "urn:isbn:0451450523",
			expected: "urn:isbn:0451450523",
		},
		{
			name:     "bare title passes through",
			uri:      "Jon_Voight",
			expected: "jon_voight",
		},
		{
			name:     "wikipedia without scheme keeps host",
			uri:      "en.wikipedia.org/wiki/Foo",
			expected: "en.wikipedia.org/wiki/foo",
		},
		{
			name:     "fragment and query both stripped",
			uri:      "https://en.wikipedia.org/wiki/Paris#History?x=1",
			expected: "paris",
		},
		{
			name:     "query before fragment",
			uri:      "https://dbpedia.org/resource/Paris?x=1#frag",
			expected: "paris",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeURI(tt.uri); got != tt.expected {
				t.Errorf("NormalizeURI(%q) = %q, want %q", tt.uri, got, tt.expected)
			}
		})
	}
}

func TestNormalizeURI_EquivalentForms(t *testing.T) {
	// The same identity written as Wikipedia and via different casing must
	// normalize to the same key.
	forms := []string{
		"https://en.wikipedia.org/wiki/Jon_Voight",
		"http://en.wikipedia.org/wiki/Jon_Voight",
		"http://EN.WIKIPEDIA.ORG/wiki/Jon_Voight#cite",
		"https://en.wikipedia.org/wiki/jon_voight?action=view",
	}
	for _, f := range forms {
		if got := NormalizeURI(f); got != "jon_voight" {
			t.Errorf("NormalizeURI(%q) = %q, want jon_voight", f, got)
		}
	}
}
