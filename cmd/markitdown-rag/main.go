// Copyright 2026 Conductor OSS
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

// Command markitdown-rag converts documents into Markdown prepared for retrieval-augmented generation.
package main

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nicholasgasior/markitdown-rag/internal/ai"
	"github.com/nicholasgasior/markitdown-rag/internal/config"
	"github.com/nicholasgasior/markitdown-rag/internal/logging"
	"github.com/nicholasgasior/markitdown-rag/internal/pipeline"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app carries what every command resolves before it runs.
type app struct {
	v       *viper.Viper
	cfgFile string
	envFile string
	cfg     config.Config
	logger  zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), logger: zerolog.Nop()}

	root := &cobra.Command{
		Use:          config.Name,
		Short:        "Convert documents to Markdown prepared for RAG",
		Long:         "Convert PDF, Office, image and text documents to Markdown with optional image extraction, AI summaries and header-based chunks.",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default ./markitdown-rag.yaml, then ~/.config/markitdown-rag/)")
	pf.StringVar(&a.envFile, "env-file", ".env", "dotenv file with API keys")
	pf.String("log-level", "", "log level: trace, debug, info, warn, error or disabled")
	pf.String("log-format", "", "log format: console or json")

	root.AddCommand(
		newConvertCmd(a),
		newWatchCmd(a),
		newScanCmd(a),
		newCatCmd(a),
		newFormatsCmd(),
		newModelsCmd(a),
		newConfigCmd(a),
	)
	return root
}

// flagNames lists the flags whose name differs from their config key.
var flagNames = map[string]string{
	"include_subfolders":  "recursive",
	"chunk_enabled":       "chunk",
	"requests_per_second": "rps",
}

func flagName(key string) string {
	if name, ok := flagNames[key]; ok {
		return name
	}
	return strings.ReplaceAll(key, "_", "-")
}

// init loads the dotenv file and config, binding the running command's flags over both.
func (a *app) init(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(a.envFile); err != nil {
		return err
	}

	config.SetDefaults(a.v)
	for _, key := range a.v.AllKeys() {
		if f := cmd.Flags().Lookup(flagName(key)); f != nil {
			if err := a.v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("bind --%s: %w", f.Name, err)
			}
		}
	}

	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: cmd.ErrOrStderr()})
	a.logger.Debug().Str("config", a.v.ConfigFileUsed()).Msg("configuration loaded")
	return nil
}

// sharedAI hands every file of a run the same client per provider, key and model, so request pacing
// covers the whole run.
type sharedAI struct {
	rps    float64
	logger zerolog.Logger

	mu      sync.Mutex
	clients map[string]*ai.Client
}

func newSharedAI(rps float64, logger zerolog.Logger) *sharedAI {
	return &sharedAI{rps: rps, logger: logger, clients: make(map[string]*ai.Client)}
}

func (s *sharedAI) client(o pipeline.Options) (pipeline.AIClient, error) {
	key := strings.Join([]string{strings.ToLower(o.Provider), o.APIKey, o.Model}, "\x00")

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.clients[key]; ok {
		return c, nil
	}
	c, err := ai.New(ai.Config{
		Provider:          o.Provider,
		APIKey:            o.APIKey,
		Model:             o.Model,
		RequestsPerSecond: s.rps,
		Logger:            s.logger,
	})
	if err != nil {
		return nil, err
	}
	s.clients[key] = c
	return c, nil
}

// newPipeline builds the per-file converter for the loaded configuration.
func (a *app) newPipeline() *pipeline.Pipeline {
	shared := newSharedAI(a.cfg.RequestsPerSecond, a.logger)
	return pipeline.New(pipeline.WithLogger(a.logger), pipeline.WithAIFactory(shared.client))
}
