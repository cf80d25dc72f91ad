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

// Package ai summarizes text and describes images through an OpenAI-style or Gemini-style model backend.
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Provider selects the model backend.
type Provider string

const (
	OpenAI Provider = "openai"
	Gemini Provider = "gemini"
)

// Default models per provider.
const (
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultGeminiModel = "gemini-1.5-flash"
)

const (
	summaryMaxTokens = 200
	visionMaxTokens  = 300

	// DefaultSummaryWords bounds the summary length when the caller passes no limit.
	DefaultSummaryWords = 150

	defaultTimeout = 120 * time.Second
)

var (
	// ErrNoAPIKey is returned by every request when the client has no API key.
	ErrNoAPIKey = errors.New("ai: no API key configured")
	// ErrUnknownProvider is returned by New for a provider tag other than openai or gemini.
	ErrUnknownProvider = errors.New("ai: unknown provider")
	// ErrEmptyCompletion is returned when the backend answers without any text.
	ErrEmptyCompletion = errors.New("ai: empty completion")
)

// APIError is a non-success answer from a backend.
type APIError struct {
	Provider   Provider
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ai: %s returned status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// ParseProvider validates a provider tag, case-insensitively.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case OpenAI, Gemini:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
}

// DefaultModel returns the model used when none is configured.
func (p Provider) DefaultModel() string {
	if p == Gemini {
		return DefaultGeminiModel
	}
	return DefaultOpenAIModel
}

// Config configures a Client.
type Config struct {
	Provider string
	APIKey   string
	// Model defaults to the provider's default model.
	Model string
	// BaseURL overrides the provider endpoint, for compatible gateways and tests.
	BaseURL    string
	HTTPClient *http.Client
	// RequestsPerSecond paces requests from one client; zero means unlimited.
	RequestsPerSecond float64
	Logger            zerolog.Logger
}

// request is one completion: a text prompt with an optional inline image.
type request struct {
	prompt    string
	image     []byte
	mimeType  string
	maxTokens int
}

type backend interface {
	complete(ctx context.Context, req request) (string, error)
	models(ctx context.Context) ([]string, error)
}

// Client issues summarization, vision and model-listing requests against one provider.
type Client struct {
	provider Provider
	model    string
	backend  backend
	limiter  *rate.Limiter
	logger   zerolog.Logger
}

// New builds a client. An unknown provider fails immediately; a missing API key does not, but every
// request then returns ErrNoAPIKey.
func New(cfg Config) (*Client, error) {
	provider, err := ParseProvider(cfg.Provider)
	if err != nil {
		return nil, err
	}
	c := &Client{
		provider: provider,
		model:    cfg.Model,
		limiter:  rate.NewLimiter(rate.Inf, 1),
		logger:   cfg.Logger.With().Str("provider", string(provider)).Logger(),
	}
	if c.model == "" {
		c.model = provider.DefaultModel()
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	if cfg.APIKey == "" {
		return c, nil
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	switch provider {
	case OpenAI:
		c.backend = newOpenAIBackend(cfg.BaseURL, cfg.APIKey, c.model, httpClient)
	case Gemini:
		c.backend = newGeminiBackend(cfg.BaseURL, cfg.APIKey, c.model, httpClient)
	}
	return c, nil
}

// Provider returns the backend in use.
func (c *Client) Provider() Provider { return c.provider }

// Model returns the model requests are sent to.
func (c *Client) Model() string { return c.model }

func (c *Client) do(ctx context.Context, req request) (string, error) {
	if c.backend == nil {
		return "", ErrNoAPIKey
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	start := time.Now()
	text, err := c.backend.complete(ctx, req)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	c.logger.Debug().Str("model", c.model).Dur("elapsed", time.Since(start)).Int("chars", len(text)).Msg("completion received")
	return text, nil
}

// SummarizeText asks for a short summary and five tags of text, returned as a fenced YAML block with
// summary and tags keys. Long input is truncated first. maxWords bounds the summary; zero or less
// selects DefaultSummaryWords.
func (c *Client) SummarizeText(ctx context.Context, text string, maxWords int) (string, error) {
	if maxWords <= 0 {
		maxWords = DefaultSummaryWords
	}
	out, err := c.do(ctx, request{prompt: summaryPrompt(Truncate(text), maxWords), maxTokens: summaryMaxTokens})
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return out, nil
}

// DescribeImage sends one image with an instruction to the vision model and returns its answer.
func (c *Client) DescribeImage(ctx context.Context, data []byte, mimeType, prompt string) (string, error) {
	out, err := c.do(ctx, request{prompt: prompt, image: data, mimeType: mimeType, maxTokens: visionMaxTokens})
	if err != nil {
		return "", fmt.Errorf("describe image: %w", err)
	}
	return out, nil
}

// Models lists the chat-capable models of the provider, newest-looking identifiers first.
func (c *Client) Models(ctx context.Context) ([]string, error) {
	if c.backend == nil {
		return nil, ErrNoAPIKey
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	ids, err := c.backend.models(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	return ids, nil
}

// ListAvailableModels is Models for a one-off provider and key. Any failure, a missing key included,
// yields an empty list.
func ListAvailableModels(ctx context.Context, cfg Config) []string {
	c, err := New(cfg)
	if err != nil {
		cfg.Logger.Error().Err(err).Msg("list models")
		return []string{}
	}
	ids, err := c.Models(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoAPIKey) {
			c.logger.Error().Err(err).Msg("list models")
		}
		return []string{}
	}
	return ids
}
