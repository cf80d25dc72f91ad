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

// Package batch drives many files through the conversion pipeline, one at a time, with cooperative stop
// and progress reporting.
package batch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nicholasgasior/markitdown-rag/internal/formats"
	"github.com/nicholasgasior/markitdown-rag/internal/logging"
	"github.com/nicholasgasior/markitdown-rag/internal/pipeline"
	"github.com/nicholasgasior/markitdown-rag/internal/scanner"
)

// Converter converts a single file. *pipeline.Pipeline satisfies it.
type Converter interface {
	ConvertFile(ctx context.Context, source, outputDir string, overwrite bool, opts pipeline.Options) pipeline.Result
}

// ProgressFunc is called after each file with the number of files done, the batch size and the outcome.
type ProgressFunc func(completed, total int, res pipeline.Result)

// Orchestrator runs batches sequentially. The stop flag may be set from any goroutine.
type Orchestrator struct {
	conv Converter
	stop atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc // cancels the running batch's context

	logger zerolog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithConverter replaces the per-file converter.
func WithConverter(c Converter) Option {
	return func(o *Orchestrator) { o.conv = c }
}

// New creates an Orchestrator. Without WithConverter it uses a pipeline sharing its logger.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(o)
	}
	if o.conv == nil {
		o.conv = pipeline.New(pipeline.WithLogger(o.logger))
	}
	return o
}

// RequestStop asks the running batch to halt before its next file. The file in progress finishes, but
// its remaining images are not described.
func (o *Orchestrator) RequestStop() {
	o.stop.Store(true)
	o.mu.Lock()
	if o.cancel != nil {
		o.cancel()
	}
	o.mu.Unlock()
}

// ResetStop clears a previous stop request. Call it before starting a new batch.
func (o *Orchestrator) ResetStop() { o.stop.Store(false) }

// Stopped reports whether a stop was requested.
func (o *Orchestrator) Stopped() bool { return o.stop.Load() }

// ConvertMany converts files in order and returns one result per converted file, in the same order. A stop
// request or a cancelled ctx ends the batch before the next file; the results so far are returned.
func (o *Orchestrator) ConvertMany(ctx context.Context, files []string, outputDir string, overwrite bool,
	opts pipeline.Options, onProgress ProgressFunc,
) []pipeline.Result {
	runID := uuid.NewString()
	ctx, cancel := context.WithCancel(logging.ContextWithRunID(ctx, runID))
	o.mu.Lock()
	o.cancel = cancel
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.cancel = nil
		o.mu.Unlock()
		cancel()
	}()
	log := o.logger.With().Str("run_id", runID).Logger()

	start := time.Now()
	results := make([]pipeline.Result, 0, len(files))
	log.Info().Int("files", len(files)).Msg("batch started")

	for _, f := range files {
		if o.Stopped() || ctx.Err() != nil {
			log.Info().Int("done", len(results)).Int("files", len(files)).Msg("batch stopped")
			break
		}
		res := o.conv.ConvertFile(ctx, f, outputDir, overwrite, opts)
		results = append(results, res)
		if onProgress != nil {
			onProgress(len(results), len(files), res)
		}
	}

	s := Summarize(results)
	log.Info().
		Int("succeeded", s.Succeeded).
		Int("skipped", s.Skipped).
		Int("failed", s.Failed).
		Dur("elapsed", time.Since(start)).
		Msg("batch finished")
	return results
}

// FolderOptions configures ConvertFolder.
type FolderOptions struct {
	Recursive bool
	// MaxDepth follows scanner.Options.MaxDepth.
	MaxDepth int
	// Formats are category names from the formats registry; empty selects every category.
	Formats    []string
	OutputDir  string
	Overwrite  bool
	Enrichment pipeline.Options
	OnProgress ProgressFunc
}

// ConvertFolder clears any earlier stop request, scans root for the selected formats and converts what it
// finds. Only an unusable root is an error.
func (o *Orchestrator) ConvertFolder(ctx context.Context, root string, fo FolderOptions) ([]pipeline.Result, error) {
	o.ResetStop()

	var exts formats.Set
	if len(fo.Formats) > 0 {
		exts = formats.ExtensionsFor(fo.Formats...)
	}
	files, err := scanner.Scan(ctx, root, scanner.Options{
		Recursive:  fo.Recursive,
		MaxDepth:   fo.MaxDepth,
		Extensions: exts,
		Stop:       o.Stopped,
		Logger:     o.logger,
	})
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return []pipeline.Result{}, nil
	}
	return o.ConvertMany(ctx, files, fo.OutputDir, fo.Overwrite, fo.Enrichment, fo.OnProgress), nil
}

// Summary aggregates batch outcomes. Attempted counts every result, skipped ones included.
type Summary struct {
	Succeeded int
	Skipped   int
	Failed    int
	Attempted int
}

// Summarize counts results by outcome. Skipped files count as successes and as skipped.
func Summarize(results []pipeline.Result) Summary {
	s := Summary{Attempted: len(results)}
	for _, r := range results {
		switch {
		case !r.Success:
			s.Failed++
		case r.Skipped:
			s.Succeeded++
			s.Skipped++
		default:
			s.Succeeded++
		}
	}
	return s
}
