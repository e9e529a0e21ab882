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
	"regexp"
	"strings"
)

var (
	wikiPrefix     = regexp.MustCompile(`https?://[^/]+/wiki/`)
	resourcePrefix = regexp.MustCompile(`https?://[^/]+/resource/`)
)

// NormalizeURI canonicalizes a knowledge-base URI to a lowercased page
// title so that Wikipedia and DBpedia forms of the same identity compare
// equal. Unrecognized URIs are returned lowercased rather than rejected;
// fragment and query suffixes are always stripped.
func NormalizeURI(uri string) string {
	if uri == "" {
		return ""
	}

	uri = strings.ToLower(uri)
	normalized := uri

	switch {
	case strings.Contains(uri, "wikipedia.org/wiki/"):
		normalized = wikiPrefix.ReplaceAllString(uri, "")
	case strings.Contains(uri, "dbpedia.org/resource/"):
		normalized = resourcePrefix.ReplaceAllString(uri, "")
	}

	if i := strings.IndexByte(normalized, '#'); i >= 0 {
		normalized = normalized[:i]
	}
	if i := strings.IndexByte(normalized, '?'); i >= 0 {
		normalized = normalized[:i]
	}

	return normalized
}
