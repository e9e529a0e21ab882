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

package chat

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/antflydb/weaver/lib/linking"
)

// tagListSchemaJSON is the structured-output contract for entity tag
// lists. The same text is sent to the backend as a format constraint
// and used locally to validate what came back.
const tagListSchemaJSON = `{
  "type": "object",
  "properties": {
    "tags": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "text": {"type": "string"},
          "uri": {"type": "string"}
        },
        "required": ["text", "uri"]
      }
    }
  },
  "required": ["tags"]
}`

var tagListSchema = jsonschema.MustCompileString("taglist.json", tagListSchemaJSON)

// TagListSchema returns the tag-list JSON schema as a fresh map,
// suitable for a Request's Format field.
func TagListSchema() map[string]any {
	var m map[string]any
	if err := json.Unmarshal([]byte(tagListSchemaJSON), &m); err != nil {
		panic(fmt.Sprintf("tag list schema: %v", err))
	}
	return m
}

// DecodeCandidates parses model output into a candidate list,
// validating it against the tag-list schema first. Any failure is a
// *MalformedOutputError.
func DecodeCandidates(content string) ([]linking.Candidate, error) {
	var v any
	if err := json.Unmarshal([]byte(content), &v); err != nil {
		return nil, malformed(fmt.Errorf("decoding tags: %w", err), content)
	}
	if err := tagListSchema.Validate(v); err != nil {
		return nil, malformed(fmt.Errorf("validating tags: %w", err), content)
	}

	var list linking.CandidateList
	if err := json.Unmarshal([]byte(content), &list); err != nil {
		return nil, malformed(fmt.Errorf("decoding tags: %w", err), content)
	}
	return list.Tags, nil
}
