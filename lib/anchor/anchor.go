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

// Package anchor maps entity text returned by a model back onto character
// offsets in the source text it was extracted from. Models lowercase,
// reorder, or hallucinate mentions; anchoring tolerates casing drift,
// optionally recovers out-of-order mentions, and drops text that does not
// occur in the source at all.
package anchor

import (
	"fmt"
	"strings"

	"github.com/antflydb/weaver/lib/linking"
)

// Options controls anchoring behavior.
type Options struct {
	// StripMarkers are removed from the source before matching. The
	// two-stage linking path uses this to erase entity markup so offsets
	// index the clean text.
	StripMarkers []string

	// GlobalFallback retries a failed forward search from position 0.
	// This recovers mentions the model emitted out of textual order, at
	// the cost of possibly anchoring two identical surface forms to the
	// same occurrence. A fallback hit does not advance the cursor.
	GlobalFallback bool
}

// Strip returns source with all configured markers removed.
func (o Options) Strip(source string) string {
	for _, m := range o.StripMarkers {
		source = strings.ReplaceAll(source, m, "")
	}
	return source
}

// Anchor locates each candidate's text in source and emits mentions with
// [BeginIndex, EndIndex) offsets into the marker-stripped source.
// Matching is case-insensitive with a monotonically advancing cursor;
// candidates that cannot be located are dropped, never errored. The
// second return value is the number of dropped candidates.
func Anchor(source string, candidates []linking.Candidate, opts Options) ([]linking.Mention, int) {
	haystack := strings.ToLower(opts.Strip(source))

	mentions := make([]linking.Mention, 0, len(candidates))
	dropped := 0
	cursor := 0

	for _, cand := range candidates {
		needle := strings.ToLower(cand.Text)

		if rel := strings.Index(haystack[cursor:], needle); rel >= 0 {
			start := cursor + rel
			end := start + len(cand.Text)
			cursor = end
			mentions = append(mentions, linking.Mention{
				Text:       cand.Text,
				URI:        cand.URI,
				BeginIndex: start,
				EndIndex:   end,
			})
			continue
		}

		if opts.GlobalFallback {
			if start := strings.Index(haystack, needle); start >= 0 {
				mentions = append(mentions, linking.Mention{
					Text:       cand.Text,
					URI:        cand.URI,
					BeginIndex: start,
					EndIndex:   start + len(cand.Text),
				})
				continue
			}
		}

		dropped++
	}

	return mentions, dropped
}

// AnchorStrict is the forward-only variant used by the legacy pipeline:
// no fallback, and the first candidate that cannot be located from the
// cursor fails the whole anchoring.
func AnchorStrict(source string, candidates []linking.Candidate, stripMarkers []string) ([]linking.Mention, error) {
	haystack := strings.ToLower(Options{StripMarkers: stripMarkers}.Strip(source))

	mentions := make([]linking.Mention, 0, len(candidates))
	cursor := 0

	for _, cand := range candidates {
		rel := strings.Index(haystack[cursor:], strings.ToLower(cand.Text))
		if rel < 0 {
			return nil, fmt.Errorf("candidate %q not found in source text from offset %d", cand.Text, cursor)
		}
		start := cursor + rel
		end := start + len(cand.Text)
		cursor = end
		mentions = append(mentions, linking.Mention{
			Text:       cand.Text,
			URI:        cand.URI,
			BeginIndex: start,
			EndIndex:   end,
		})
	}

	return mentions, nil
}
