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

// Package dataset loads entity-linking corpora from JSON files. A corpus
// file is an array of documents, each with a "corpus" text and gold
// "tags" carrying span offsets and entity URIs.
package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/antflydb/weaver/lib/linking"
)

// Document is one annotated text from a corpus file.
type Document struct {
	// ID is "<file stem>_<index in file>". Indices of skipped items are
	// not reused, so IDs stay stable when malformed rows are removed.
	ID          string
	Corpus      string
	GroundTruth []linking.Mention
	SourceFile  string
}

// Dataset is an ordered collection of documents under one name.
type Dataset struct {
	Name      string
	Documents []Document
}

// Texts returns the corpus texts in document order.
func (d *Dataset) Texts() []string {
	texts := make([]string, len(d.Documents))
	for i, doc := range d.Documents {
		texts[i] = doc.Corpus
	}
	return texts
}

type rawTag struct {
	Text       *string `json:"text"`
	URI        *string `json:"uri"`
	BeginIndex *int    `json:"beginIndex"`
	EndIndex   *int    `json:"endIndex"`
}

type rawDocument struct {
	Corpus *string  `json:"corpus"`
	Tags   []rawTag `json:"tags"`
}

// Load reads a dataset from a JSON file, or from every *.json file in a
// directory, in name order. Documents without a corpus field are
// skipped; gold tags missing any of text, uri, beginIndex, or endIndex
// are dropped from the document.
func Load(path string) (*Dataset, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("dataset path %s: %w", path, err)
	}

	ds := &Dataset{Name: stem(path)}
	if !info.IsDir() {
		if err := loadFile(ds, path); err != nil {
			return nil, err
		}
		return ds, nil
	}

	files, err := filepath.Glob(filepath.Join(path, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("listing datasets in %s: %w", path, err)
	}
	for _, file := range files {
		if err := loadFile(ds, file); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// LoadAll reads every *.json file in dir as its own dataset, ordered by
// file name.
func LoadAll(dir string) ([]*Dataset, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("listing datasets in %s: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no dataset files in %s", dir)
	}

	datasets := make([]*Dataset, 0, len(files))
	for _, file := range files {
		ds := &Dataset{Name: stem(file)}
		if err := loadFile(ds, file); err != nil {
			return nil, err
		}
		datasets = append(datasets, ds)
	}
	return datasets, nil
}

func loadFile(ds *Dataset, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading dataset %s: %w", path, err)
	}

	var items []rawDocument
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("parsing dataset %s: %w", path, err)
	}

	base := filepath.Base(path)
	fileStem := stem(path)
	for idx, item := range items {
		if item.Corpus == nil {
			continue
		}

		var gold []linking.Mention
		for _, tag := range item.Tags {
			if tag.Text == nil || tag.URI == nil || tag.BeginIndex == nil || tag.EndIndex == nil {
				continue
			}
			gold = append(gold, linking.Mention{
				Text:       *tag.Text,
				URI:        *tag.URI,
				BeginIndex: *tag.BeginIndex,
				EndIndex:   *tag.EndIndex,
			})
		}

		ds.Documents = append(ds.Documents, Document{
			ID:          fmt.Sprintf("%s_%d", fileStem, idx),
			Corpus:      *item.Corpus,
			GroundTruth: gold,
			SourceFile:  base,
		})
	}
	return nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
