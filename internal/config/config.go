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

// Package config loads CLI settings from a YAML file, MDRAG_* environment variables and an optional .env
// file, and resolves them into pipeline options.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/nicholasgasior/markitdown-rag/internal/ai"
	"github.com/nicholasgasior/markitdown-rag/internal/chunker"
	"github.com/nicholasgasior/markitdown-rag/internal/formats"
	"github.com/nicholasgasior/markitdown-rag/internal/pipeline"
	"github.com/nicholasgasior/markitdown-rag/internal/scanner"
)

const (
	// Name is the config file base name, searched as Name.yaml.
	Name = "markitdown-rag"
	// EnvPrefix prefixes every environment override, e.g. MDRAG_PROVIDER.
	EnvPrefix = "MDRAG"
)

// Provider key variables read when the config holds no key.
const (
	OpenAIKeyEnv = "OPENAI_API_KEY"
	GeminiKeyEnv = "GEMINI_API_KEY"
)

// Config mirrors the persisted settings of the converter.
type Config struct {
	IncludeSubfolders bool     `mapstructure:"include_subfolders" yaml:"include_subfolders"`
	MaxDepth          int      `mapstructure:"max_depth" yaml:"max_depth"`
	OutputDir         string   `mapstructure:"output_dir" yaml:"output_dir"`
	Overwrite         bool     `mapstructure:"overwrite" yaml:"overwrite"`
	Formats           []string `mapstructure:"formats" yaml:"formats"`

	ChunkEnabled   bool   `mapstructure:"chunk_enabled" yaml:"chunk_enabled"`
	ChunkLevel     int    `mapstructure:"chunk_level" yaml:"chunk_level"`
	ExcelClean     bool   `mapstructure:"excel_clean" yaml:"excel_clean"`
	ExtractImages  bool   `mapstructure:"extract_images" yaml:"extract_images"`
	DescribeImages bool   `mapstructure:"describe_images" yaml:"describe_images"`
	ImagePrompt    string `mapstructure:"image_prompt" yaml:"image_prompt"`
	Summarize      bool   `mapstructure:"summarize" yaml:"summarize"`
	SummaryWords   int    `mapstructure:"summary_words" yaml:"summary_words"`

	Provider  string `mapstructure:"provider" yaml:"provider"`
	Model     string `mapstructure:"model" yaml:"model"`
	OpenAIKey string `mapstructure:"openai_key" yaml:"openai_key"`
	GeminiKey string `mapstructure:"gemini_key" yaml:"gemini_key"`
	// RequestsPerSecond paces AI requests; zero means unlimited.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// Defaults returns the settings used when nothing is configured.
func Defaults() Config {
	return Config{
		MaxDepth:     scanner.Unlimited,
		Formats:      formats.Categories(),
		ChunkLevel:   chunker.DefaultLevel,
		SummaryWords: ai.DefaultSummaryWords,
		Provider:     string(ai.OpenAI),
		LogLevel:     "info",
		LogFormat:    "console",
	}
}

// SetDefaults registers every key with its default so environment overrides apply to all of them.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("include_subfolders", d.IncludeSubfolders)
	v.SetDefault("max_depth", d.MaxDepth)
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("overwrite", d.Overwrite)
	v.SetDefault("formats", d.Formats)
	v.SetDefault("chunk_enabled", d.ChunkEnabled)
	v.SetDefault("chunk_level", d.ChunkLevel)
	v.SetDefault("excel_clean", d.ExcelClean)
	v.SetDefault("extract_images", d.ExtractImages)
	v.SetDefault("describe_images", d.DescribeImages)
	v.SetDefault("image_prompt", d.ImagePrompt)
	v.SetDefault("summarize", d.Summarize)
	v.SetDefault("summary_words", d.SummaryWords)
	v.SetDefault("provider", d.Provider)
	v.SetDefault("model", d.Model)
	v.SetDefault("openai_key", d.OpenAIKey)
	v.SetDefault("gemini_key", d.GeminiKey)
	v.SetDefault("requests_per_second", d.RequestsPerSecond)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
}

// Setup points v at the config file: file when given, otherwise markitdown-rag.yaml in the working
// directory or ~/.config/markitdown-rag.
func Setup(v *viper.Viper, file string) {
	SetDefaults(v)
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(Name)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", Name))
		}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// Load reads the config through v after Setup. A missing file in the search path is not an error; a
// missing explicit file is.
func Load(v *viper.Viper, file string) (Config, error) {
	Setup(v, file)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=value pairs from the given files without overriding variables already set.
// Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// APIKey returns the key for the configured provider, falling back to OPENAI_API_KEY or GEMINI_API_KEY.
func (c Config) APIKey() string {
	switch strings.ToLower(c.Provider) {
	case string(ai.Gemini):
		return firstNonEmpty(c.GeminiKey, os.Getenv(GeminiKeyEnv))
	case string(ai.OpenAI):
		return firstNonEmpty(c.OpenAIKey, os.Getenv(OpenAIKeyEnv))
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// EnrichmentOptions resolves the settings into the options record a batch runs with.
func (c Config) EnrichmentOptions() pipeline.Options {
	return pipeline.Options{
		ExtractImages:  c.ExtractImages,
		DescribeImages: c.DescribeImages,
		ChunkEnabled:   c.ChunkEnabled,
		ExcelClean:     c.ExcelClean,
		Summarize:      c.Summarize,
		Provider:       c.Provider,
		APIKey:         c.APIKey(),
		Model:          c.Model,
		ImagePrompt:    c.ImagePrompt,
		ChunkLevel:     c.ChunkLevel,
		SummaryWords:   c.SummaryWords,
	}
}

// AIConfig returns the client configuration for the configured provider.
func (c Config) AIConfig() ai.Config {
	return ai.Config{Provider: c.Provider, APIKey: c.APIKey(), Model: c.Model, RequestsPerSecond: c.RequestsPerSecond}
}

// Redacted returns a copy safe to print, with API keys masked.
func (c Config) Redacted() Config {
	c.OpenAIKey = mask(c.OpenAIKey)
	c.GeminiKey = mask(c.GeminiKey)
	return c
}

func mask(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

// YAML renders the config in file format.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// WriteDefault writes a config file holding the defaults to path. An existing file is never replaced.
func WriteDefault(path string) error {
	v := viper.New()
	SetDefaults(v)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := v.SafeWriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
