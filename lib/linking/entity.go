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

// Package linking defines the entity-linking data model: mentions anchored
// to character spans in a source text, their pre-anchoring candidates, and
// knowledge-base identity normalization.
package linking

// Mention is a linked entity occurrence in a specific source text.
// Offsets form a half-open [BeginIndex, EndIndex) range and are only
// meaningful relative to the text they were anchored against.
type Mention struct {
	Text       string `json:"text"`
	URI        string `json:"uri"`
	BeginIndex int    `json:"beginIndex"`
	EndIndex   int    `json:"endIndex"`
}

// Candidate is a model-produced entity before re-anchoring: it carries the
// literal surface text and a knowledge-base URI but no offsets.
type Candidate struct {
	Text string `json:"text"`
	URI  string `json:"uri"`
}

// CandidateList is the structured-output payload shape the model returns
// for linking and combined requests.
type CandidateList struct {
	Tags []Candidate `json:"tags"`
}
