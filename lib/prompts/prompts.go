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

// Package prompts holds the chat prompts for the entity recognition and
// linking tasks. The enhanced set uses a system/user split with a JSON
// schema constraint on the reply; the simple set is a single user
// message per call, kept for comparison runs against older models.
package prompts

import (
	"fmt"

	"github.com/antflydb/weaver/lib/chat"
)

// Entity markers used in NER-tagged intermediate text.
const (
	StartEntity = "[START_ENT]"
	EndEntity   = "[END_ENT]"
)

// Markers returns the entity markers in stripping order.
func Markers() []string {
	return []string{StartEntity, EndEntity}
}

const combinedSystem = `You are an expert at Named Entity Recognition and Entity Linking.
Your task is to:
1. Identify named entities in text (people, organizations, locations, events, etc.)
2. Link each entity to its Wikipedia article URL

Return a JSON object with a "tags" key containing an array of entities.
Each entity should have:
- "text": The exact text of the entity as it appears in the input
- "uri": The Wikipedia URL for the entity (e.g., "https://en.wikipedia.org/wiki/Entity_Name")

Focus on entities that can be linked to Wikipedia. Skip generic terms or concepts without clear Wikipedia pages.`

const combinedUser = `Identify and link all named entities in this text to Wikipedia:

"%s"

For each entity, determine the most likely Wikipedia article based on the full context of the sentence.
For ambiguous names (like "John" or "David"), use context clues to identify the correct person/entity.`

// Combined builds the single-call prompt that recognizes and links
// entities in one pass.
func Combined(text string) []chat.Message {
	return []chat.Message{
		{Role: chat.RoleSystem, Content: combinedSystem},
		{Role: chat.RoleUser, Content: fmt.Sprintf(combinedUser, text)},
	}
}

const nerSystem = `You are an expert Named Entity Recognition system.
Tag named entities using [START_ENT] and [END_ENT] markers.
Focus on: people, organizations, locations, events, works of art, products.
Do NOT tag common nouns, adjectives, or generic terms.
Return ONLY the tagged text, no explanations.`

const nerUser = `Tag all named entities in this text:

%s

Example:
Input: "Einstein worked at Princeton University."
Output: "[START_ENT]Einstein[END_ENT] worked at [START_ENT]Princeton University[END_ENT]."

Now tag the entities:`

// NER builds the recognition prompt of the two-stage pipeline.
func NER(text string) []chat.Message {
	return []chat.Message{
		{Role: chat.RoleSystem, Content: nerSystem},
		{Role: chat.RoleUser, Content: fmt.Sprintf(nerUser, text)},
	}
}

const linkingSystem = `You are an expert Entity Linking system.
For each entity marked with [START_ENT] and [END_ENT] tags, find the correct Wikipedia URL.
Consider the full context of the sentence to disambiguate entities.
Return a JSON object with a "tags" key containing linked entities.`

const linkingUser = `Link each tagged entity to its Wikipedia article:

"%s"

Return JSON with:
{"tags": [{"text": "entity_text", "uri": "https://en.wikipedia.org/wiki/..."}]}`

// Linking builds the linking prompt for NER-tagged text.
func Linking(nerfulText string) []chat.Message {
	return []chat.Message{
		{Role: chat.RoleSystem, Content: linkingSystem},
		{Role: chat.RoleUser, Content: fmt.Sprintf(linkingUser, nerfulText)},
	}
}

const simpleNER = `
For the given sentence:
'%s'
Generate text with named entities surrounded by [START_ENT] and [END_ENT] tags.
Tag ONLY entities likely to represent people, companies, brands, organizations, news outlets etc.
Exclude common words from tags: e.g. 'The white house ...' -> 'The [START_ENT]white house[END_ENT] ...' not '[START_ENT]The white house[END_ENT] ...'
Return ONLY the same text with the proper tags. e.g 'The white house ...' -> 'The [START_ENT]white house[END_ENT] ...' not 'Here is the tagged text: [START_ENT]The white house[END_ENT] ...'
Examples:
- 'Alice has a dog' -> '[START_ENT]Alice[END_ENT] has a [START_ENT]dog[END_ENT]'
- 'Angelina, her father Jon, and her partner Brad never played together in the same movie.' -> '[START_ENT]Angelina[END_ENT], her father [START_ENT]Jon[END_ENT], and her partner [START_ENT]Brad[END_ENT] never played together in the same movie.'
`

// SimpleNER builds the legacy single-message recognition prompt.
func SimpleNER(text string) []chat.Message {
	return []chat.Message{
		{Role: chat.RoleUser, Content: fmt.Sprintf(simpleNER, text)},
	}
}

const simpleLinking = `
Keeping in mind the entire context of the sentence, for each entity tagged with [START_ENT] and [END_ENT] tags in this sentence:
'%s'
Generate a tag json object of the following structure:
{text:<tagged_text_AS_IS>, uri:<wikipedia url linking tagged text to the most probable entity given the sentence context>}
Return a json object with a list of these tags as the 'tags' key.
Examples:
- 'Angelina, her father Jon, and her partner Brad never played together in the same movie.' -> {tags: [{text: "Angelina", uri:"https://en.wikipedia.org/wiki/Angelina_Jolie"}, {text: "Jon", uri: "https://en.wikipedia.org/wiki/Jon_Voight"}, {text: "Brad", uri: "https://en.wikipedia.org/wiki/Brad_Pitt"}]}
`

// SimpleLinking builds the legacy single-message linking prompt.
func SimpleLinking(nerfulText string) []chat.Message {
	return []chat.Message{
		{Role: chat.RoleUser, Content: fmt.Sprintf(simpleLinking, nerfulText)},
	}
}
