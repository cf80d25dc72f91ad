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

// Package pipeline converts one document into enriched Markdown: Excel preprocessing, extraction, images,
// normalization, summary frontmatter and RAG chunks.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	markitdown "github.com/nicholasgasior/markitdown-rag"
	"github.com/nicholasgasior/markitdown-rag/internal/ai"
	"github.com/nicholasgasior/markitdown-rag/internal/chunker"
	"github.com/nicholasgasior/markitdown-rag/internal/excelclean"
	"github.com/nicholasgasior/markitdown-rag/internal/formats"
	"github.com/nicholasgasior/markitdown-rag/internal/images"
	"github.com/nicholasgasior/markitdown-rag/internal/logging"
	"github.com/nicholasgasior/markitdown-rag/internal/textnorm"
)

// Options is the enrichment configuration for a batch. It is read-only while files are converted.
type Options struct {
	ExtractImages  bool
	DescribeImages bool
	ChunkEnabled   bool
	ExcelClean     bool
	Summarize      bool

	Provider string
	APIKey   string
	Model    string

	// ImagePrompt replaces the default image description instruction.
	ImagePrompt string
	// ChunkLevel is the deepest header level that starts a chunk; zero selects chunker.DefaultLevel.
	ChunkLevel int
	// SummaryWords bounds the summary length; zero selects the summarizer default.
	SummaryWords int
}

func (o Options) needsAI() bool {
	return o.APIKey != "" && (o.Summarize || (o.ExtractImages && o.DescribeImages))
}

// Result is the outcome of one file. Skipped results are successful.
type Result struct {
	SourcePath      string
	OutputPath      string
	Success         bool
	Skipped         bool
	ErrorMessage    string
	Err             error
	ImagesExtracted int
	ImagesDescribed int
	Chunks          int
	// Degraded lists the stages that failed without failing the file.
	Degraded []*StageError
}

func failed(source string, err error) Result {
	return Result{SourcePath: source, Err: err, ErrorMessage: err.Error()}
}

// Engine is the extraction engine. *markitdown.MarkItDown satisfies it.
type Engine interface {
	ConvertFile(path string) (*markitdown.DocumentConverterResult, error)
}

// AIClient summarizes text and describes images. *ai.Client satisfies it.
type AIClient interface {
	images.Describer
	SummarizeText(ctx context.Context, text string, maxWords int) (string, error)
}

// AIFactory builds the AI client for a batch's options.
type AIFactory func(Options) (AIClient, error)

// Pipeline runs the per-file sequence. It keeps no state between files.
type Pipeline struct {
	engine    Engine
	extractor *images.Extractor
	cleaner   *excelclean.Cleaner
	newAI     AIFactory
	now       func() time.Time
	logger    zerolog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger passed to every stage.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithEngine replaces the extraction engine.
func WithEngine(e Engine) Option {
	return func(p *Pipeline) { p.engine = e }
}

// WithAIFactory replaces how AI clients are built.
func WithAIFactory(f AIFactory) Option {
	return func(p *Pipeline) { p.newAI = f }
}

// WithClock sets the time source for the conversion timestamp.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a Pipeline backed by the built-in extraction engine.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{now: time.Now, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	if p.engine == nil {
		p.engine = markitdown.New()
	}
	if p.newAI == nil {
		p.newAI = p.defaultAI
	}
	p.extractor = images.NewExtractor(images.WithLogger(p.logger))
	p.cleaner = excelclean.New(excelclean.WithLogger(p.logger))
	return p
}

func (p *Pipeline) defaultAI(o Options) (AIClient, error) {
	return ai.New(ai.Config{Provider: o.Provider, APIKey: o.APIKey, Model: o.Model, Logger: p.logger})
}

// OutputPath returns where the Markdown for source is written: {outputDir or source dir}/{file name}.md.
func OutputPath(source, outputDir string) string {
	if outputDir == "" {
		outputDir = filepath.Dir(source)
	}
	return filepath.Join(outputDir, filepath.Base(source)+".md")
}

// ChunksPath returns the JSONL sibling of a Markdown output path.
func ChunksPath(outputPath string) string {
	return strings.TrimSuffix(outputPath, ".md") + ".jsonl"
}

// ConvertFile converts source into Markdown under outputDir, or beside the source when outputDir is
// empty. An existing output is left untouched unless overwrite is set. Every failure is reported in the
// Result; degraded stages are logged and omitted from the output.
func (p *Pipeline) ConvertFile(ctx context.Context, source, outputDir string, overwrite bool, opts Options) Result {
	log := logging.ForContext(ctx, p.logger).With().Str("source", source).Logger()

	if err := checkSource(source); err != nil {
		log.Error().Err(err).Msg("conversion failed")
		return failed(source, err)
	}

	outPath := OutputPath(source, outputDir)
	outDir := filepath.Dir(outPath)
	baseName := filepath.Base(source)
	if !overwrite {
		if _, err := os.Stat(outPath); err == nil {
			log.Info().Str("output", outPath).Msg("output exists, skipped")
			return Result{SourcePath: source, OutputPath: outPath, Success: true, Skipped: true}
		}
	}

	res := Result{SourcePath: source, OutputPath: outPath}
	degraded := func(stage Stage, err error) {
		serr := &StageError{Stage: stage, Err: err}
		res.Degraded = append(res.Degraded, serr)
		log.Warn().Str("stage", string(stage)).Err(err).Msg("stage degraded")
	}

	text, err := p.extract(source, opts, degraded)
	if err != nil {
		log.Error().Err(err).Msg("conversion failed")
		return failed(source, err)
	}

	var client AIClient
	if opts.needsAI() {
		if client, err = p.newAI(opts); err != nil {
			degraded(StageAI, err)
			client = nil
		}
	}

	// The image links name the folder on disk, so they are appended after normalization.
	text = textnorm.Normalize(text)

	if opts.ExtractImages {
		fragment, extracted, described, err := p.processImages(ctx, source, outDir, baseName, opts, client, log)
		if err != nil {
			degraded(StageImages, err)
		} else if opts.DescribeImages && client != nil && described < extracted {
			degraded(StageDescribe, fmt.Errorf("%d of %d images described", described, extracted))
		}
		text += fragment
		res.ImagesExtracted, res.ImagesDescribed = extracted, described
	}

	var summary *SummaryBlock
	if opts.Summarize && client != nil {
		// A stop request ends the batch after this file; the request itself is never aborted.
		answer, err := client.SummarizeText(context.WithoutCancel(ctx), text, opts.SummaryWords)
		if err != nil {
			degraded(StageSummarize, err)
		} else {
			block := ParseSummary(answer)
			summary = &block
		}
	}

	header, err := newFrontmatter(baseName, p.now(), summary).Render()
	if err != nil {
		return failed(source, fmt.Errorf("render frontmatter: %w", err))
	}

	// Chunks cover the body only; the frontmatter is not part of any chunk.
	var chunks []chunker.Chunk
	if opts.ChunkEnabled {
		chunks = chunker.Split(text, baseName, opts.ChunkLevel)
	}

	if err := writeOutput(outPath, header+text); err != nil {
		log.Error().Err(err).Msg("conversion failed")
		return failed(source, err)
	}

	if opts.ChunkEnabled {
		if err := writeChunks(ChunksPath(outPath), chunks); err != nil {
			degraded(StageChunk, err)
		} else {
			res.Chunks = len(chunks)
		}
	}

	res.Success = true
	log.Info().
		Str("output", outPath).
		Int("images_extracted", res.ImagesExtracted).
		Int("images_described", res.ImagesDescribed).
		Msg("converted")
	return res
}

func checkSource(source string) error {
	info, err := os.Stat(source)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s", ErrSourceNotFound, source)
	case err != nil:
		return fmt.Errorf("stat source: %w", err)
	case !info.Mode().IsRegular():
		return fmt.Errorf("%w: %s", ErrNotRegularFile, source)
	}
	return nil
}

// extract runs the engine, on a merge-filled copy of Excel workbooks when requested. The copy is removed
// however extraction ends.
func (p *Pipeline) extract(source string, opts Options, degraded func(Stage, error)) (string, error) {
	input := source
	if opts.ExcelClean && formats.CategoryOf(filepath.Ext(source)) == formats.Excel {
		cleaned, err := p.cleaner.Clean(source)
		switch {
		case err != nil:
			degraded(StageExcelClean, err)
		case cleaned != "":
			input = cleaned
			defer func() {
				if err := os.Remove(cleaned); err != nil && !errors.Is(err, fs.ErrNotExist) {
					p.logger.Warn().Err(err).Str("path", cleaned).Msg("failed to remove cleaned workbook")
				}
			}()
		}
	}

	res, err := p.engine.ConvertFile(input)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	return res.Markdown, nil
}

// processImages extracts the images of the original source, saves them, optionally describes them, and
// returns the Markdown fragment to append.
func (p *Pipeline) processImages(ctx context.Context, source, outDir, baseName string, opts Options, client AIClient,
	log zerolog.Logger,
) (string, int, int, error) {
	if !images.Supports(source) {
		return "", 0, 0, nil
	}
	imgs, err := p.extractor.Extract(source)
	if err != nil {
		return "", 0, 0, err
	}
	if len(imgs) == 0 {
		return "", 0, 0, nil
	}
	if _, err := images.Save(imgs, outDir, baseName, log); err != nil {
		return "", 0, 0, err
	}

	described := 0
	if opts.DescribeImages && client != nil {
		described = images.Describe(ctx, imgs, client, opts.ImagePrompt, log)
		for i := range imgs {
			imgs[i].Description = textnorm.Normalize(imgs[i].Description)
		}
	}
	return images.FormatMarkdown(imgs, baseName), len(imgs), described, nil
}

func writeOutput(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteOutput, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteOutput, err)
	}
	return nil
}

func writeChunks(path string, chunks []chunker.Chunk) error {
	var buf bytes.Buffer
	if err := chunker.WriteJSONL(&buf, chunks); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
