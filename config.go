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

package weaver

import (
	"time"

	"github.com/antflydb/weaver/lib/ollama"
)

// DefaultModel is the Ollama model used when none is configured.
const DefaultModel = "gemma3:4b"

// Config configures a batch entity linking run.
type Config struct {
	OllamaURL   string // Base URL of the Ollama server
	Model       string // Ollama model name, e.g. "gemma3:4b"
	Dataset     string // Single dataset name; empty means all datasets in DatasetsDir
	DatasetsDir string // Directory of dataset JSON files
	ResultsDir  string // Directory where results files are written

	Mode     Mode     // Combined or separate prompting
	Simple   bool     // Use the single-prompt executor (no retries, strict anchoring)
	Fallback Fallback // Global re-anchoring for out-of-order candidates

	MaxRetries int           // Attempts per model request (0 = default)
	RetryDelay time.Duration // Base delay between attempts (0 = default)
	Workers    int           // Concurrent model requests (0 = default)
	Limit      int           // Max documents per dataset (0 = all)

	CacheEnabled bool          // Cache identical chat requests in memory
	ChatTimeout  time.Duration // Per-request timeout for chat calls (0 = default)

	RunLog string // Append one JSON line of metrics per dataset when set
}

// DefaultConfig returns a Config with the standard defaults applied.
func DefaultConfig() Config {
	return Config{
		OllamaURL:   ollama.DefaultBaseURL,
		Model:       DefaultModel,
		DatasetsDir: "data/jsons",
		ResultsDir:  "results",
		Mode:        ModeCombined,
		Fallback:    FallbackAuto,
		MaxRetries:  DefaultMaxRetries,
		RetryDelay:  DefaultRetryDelay,
		Workers:     DefaultWorkers,
		ChatTimeout: ollama.DefaultChatTimeout,
	}
}
