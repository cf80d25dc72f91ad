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

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nicholasgasior/markitdown-rag/internal/batch"
	"github.com/nicholasgasior/markitdown-rag/internal/chunker"
	"github.com/nicholasgasior/markitdown-rag/internal/config"
	"github.com/nicholasgasior/markitdown-rag/internal/formats"
	"github.com/nicholasgasior/markitdown-rag/internal/pipeline"
	"github.com/nicholasgasior/markitdown-rag/internal/scanner"
)

// errFailures makes the process exit non-zero once every outcome has been printed.
var errFailures = errors.New("some files failed to convert")

// addSelectionFlags registers the folder scan flags.
func addSelectionFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.BoolP("recursive", "r", false, "include subfolders")
	f.Int("max-depth", scanner.Unlimited, "deepest folder level to include when recursive (-1 for unlimited)")
	f.StringSlice("formats", formats.Categories(), "format categories to include")
}

// addEnrichmentFlags registers the output and enrichment flags shared by convert and watch.
func addEnrichmentFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("output-dir", "o", "", "write outputs here instead of beside each source")
	f.Bool("overwrite", false, "replace existing Markdown outputs")
	f.Bool("chunk", false, "write header-based chunks as JSONL")
	f.Int("chunk-level", chunker.DefaultLevel, "deepest header level that starts a chunk")
	f.Bool("excel-clean", false, "fill merged Excel cells before extraction")
	f.Bool("extract-images", false, "extract embedded images from PDF, Word and PowerPoint files")
	f.Bool("describe-images", false, "describe extracted images with the AI provider")
	f.String("image-prompt", "", "instruction used to describe images")
	f.Bool("summarize", false, "add an AI summary and tags to the frontmatter")
	f.Int("summary-words", 0, "summary length bound in words")
	f.String("provider", "", "AI provider: openai or gemini")
	f.String("model", "", "AI model (default depends on provider)")
	f.Float64("rps", 0, "AI requests per second, 0 for unlimited")
}

func newConvertCmd(a *app) *cobra.Command {
	var noProgress bool
	cmd := &cobra.Command{
		Use:   "convert <file|folder>...",
		Short: "Convert files and folders to Markdown",
		Example: `  markitdown-rag convert report.pdf
  markitdown-rag convert -r --formats pdf,excel --chunk docs/
  markitdown-rag convert --summarize --provider gemini slides.pptx`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConvert(cmd, args, !noProgress)
		},
	}
	addSelectionFlags(cmd)
	addEnrichmentFlags(cmd)
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "hide the progress bar")
	return cmd
}

// categories validates the configured format names.
func categories(names []string) ([]string, error) {
	out := make([]string, 0, len(names))
	for _, n := range names {
		c, ok := formats.Canonical(n)
		if !ok {
			return nil, fmt.Errorf("unknown format %q (known: %v)", n, formats.Categories())
		}
		out = append(out, c)
	}
	return out, nil
}

// collect expands the arguments: files are taken as given, folders are scanned.
func (a *app) collect(ctx context.Context, args []string, stop func() bool) ([]string, error) {
	cats, err := categories(a.cfg.Formats)
	if err != nil {
		return nil, err
	}
	exts := formats.ExtensionsFor(cats...)

	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		found, err := scanner.Scan(ctx, arg, scanner.Options{
			Recursive:  a.cfg.IncludeSubfolders,
			MaxDepth:   a.cfg.MaxDepth,
			Extensions: exts,
			Stop:       stop,
			Logger:     a.logger,
		})
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	return files, nil
}

func (a *app) runConvert(cmd *cobra.Command, args []string, progress bool) error {
	// A signal only raises the stop flag: the file in progress still gets its summary and descriptions.
	sig, stopSignals := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	orch := batch.New(batch.WithLogger(a.logger), batch.WithConverter(a.newPipeline()))
	go func() {
		<-sig.Done()
		orch.RequestStop()
	}()
	ctx := cmd.Context()

	files, err := a.collect(ctx, args, orch.Stopped)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(files) == 0 {
		fmt.Fprintln(out, "no matching files")
		return nil
	}

	bar := newProgressBar(cmd.ErrOrStderr(), len(files), progress)
	results := orch.ConvertMany(ctx, files, a.cfg.OutputDir, a.cfg.Overwrite, a.enrichment(), progressFunc(bar))
	for _, res := range results {
		printResult(out, res)
	}
	s := batch.Summarize(results)
	printSummary(out, s, len(results) < len(files))
	if s.Failed > 0 {
		return errFailures
	}
	return nil
}

// enrichment resolves the options of a run, warning about AI features that cannot run without a key.
func (a *app) enrichment() pipeline.Options {
	opts := a.cfg.EnrichmentOptions()
	if opts.APIKey == "" && (opts.Summarize || opts.DescribeImages) {
		a.logger.Warn().
			Str("provider", opts.Provider).
			Msgf("no API key configured (set %s or %s); AI features are skipped", config.OpenAIKeyEnv, config.GeminiKeyEnv)
	}
	return opts
}
