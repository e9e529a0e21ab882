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

// Command weaver runs entity recognition and linking benchmarks against Ollama.
//
// Weaver sends dataset documents through an Ollama chat model, anchors the
// predicted entities back to the source text, and scores the anchored
// predictions against the gold annotations.
//
// Usage:
//
//	weaver run --dataset ace2004     # Run one dataset
//	weaver run --all                 # Run every dataset in the jsons dir
//	weaver evaluate results/*.json   # Re-score saved results files
//	weaver pull <model>              # Download a model through Ollama
//	weaver list                      # List models available on the server
package main

import (
	"io"
	"runtime"

	json "github.com/antflydb/antfly-go/libaf/json"
	"github.com/antflydb/weaver/cmd/cmd"
	"github.com/bytedance/sonic"
)

func init() {
	// Configure the JSON wrapper to use bytedance/sonic for performance.
	// ConfigStd keeps encoding/json semantics (sorted keys, HTML escaping).
	json.SetConfig(json.Config{
		Marshal:         sonic.ConfigStd.Marshal,
		Unmarshal:       sonic.ConfigStd.Unmarshal,
		MarshalString:   sonic.ConfigStd.MarshalToString,
		UnmarshalString: sonic.ConfigStd.UnmarshalFromString,
		NewEncoder: func(w io.Writer) json.Encoder {
			return sonic.ConfigStd.NewEncoder(w)
		},
		NewDecoder: func(r io.Reader) json.Decoder {
			return sonic.ConfigStd.NewDecoder(r)
		},
	})
}

// https://goreleaser.com/cookbooks/using-main.version/
//
// By default, GoReleaser will set the following 3 ldflags:
//
// main.version: Current Git tag (the v prefix is stripped) or the name of the snapshot, if you're using the --snapshot flag
var version = "dev"

// main.commit: Current git commit SHA
// commit = "none"
// main.date: Date in the RFC3339 format
// date = "unknown"

func main() {
	runtime.SetMutexProfileFraction(1) // Enable mutex profiling
	runtime.SetBlockProfileRate(1)     // Sample every blocking event
	cmd.Version = version
	cmd.Execute()
}
