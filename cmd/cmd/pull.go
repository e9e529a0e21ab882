// Copyright 2025 Antfly, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package cmd

import (
	"fmt"

	"github.com/antflydb/weaver/lib/cli"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var pullCmd = &cobra.Command{
	Use:   "pull <model-name> [model-name...]",
	Short: "Pull model(s) through the Ollama server",
	Long: `Download one or more models through the configured Ollama server.

Models the server already has are skipped.

Examples:
  # Pull the default benchmark model
  weaver pull gemma3:4b

  # Pull several models in one go
  weaver pull gemma3:4b qwen3:8b

  # Pull onto a remote Ollama server
  weaver pull --ollama-url http://gpu-box:11434 qwen3:8b`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPull,
}

func init() {
	rootCmd.AddCommand(pullCmd)
}

func runPull(cmd *cobra.Command, args []string) error {
	opts := cli.PullOptions{OllamaURL: viper.GetString("ollama.url")}

	for _, modelName := range args {
		fmt.Printf("\n=== Pulling %s ===\n", modelName)
		if err := cli.PullModel(modelName, opts); err != nil {
			return fmt.Errorf("failed to pull %s: %w", modelName, err)
		}
	}

	return nil
}
