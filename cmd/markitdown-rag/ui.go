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
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/nicholasgasior/markitdown-rag/internal/batch"
	"github.com/nicholasgasior/markitdown-rag/internal/pipeline"
)

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	failColor = color.New(color.FgRed)
	dimColor  = color.New(color.Faint)
)

// newProgressBar draws batch progress on w. A nil bar is returned when progress is disabled.
func newProgressBar(w io.Writer, total int, enabled bool) *progressbar.ProgressBar {
	if !enabled || total == 0 {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("converting"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionShowCount(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
	)
}

// progressFunc advances bar once per finished file.
func progressFunc(bar *progressbar.ProgressBar) batch.ProgressFunc {
	if bar == nil {
		return nil
	}
	return func(completed, total int, res pipeline.Result) {
		bar.Describe(filepath.Base(res.SourcePath))
		_ = bar.Set(completed)
		if completed == total {
			_ = bar.Finish()
		}
	}
}

func newSpinner(w io.Writer, message string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	s.Writer = w
	return s
}

// printResult writes one line per file: converted, skipped, converted with warnings, or failed.
func printResult(w io.Writer, res pipeline.Result) {
	switch {
	case !res.Success:
		failColor.Fprintf(w, "✗ %s: %s\n", res.SourcePath, res.ErrorMessage)
	case res.Skipped:
		dimColor.Fprintf(w, "- %s (exists)\n", res.SourcePath)
	case len(res.Degraded) > 0:
		warnColor.Fprintf(w, "⚠ %s → %s\n", res.SourcePath, res.OutputPath)
		for _, d := range res.Degraded {
			warnColor.Fprintf(w, "    %s\n", d)
		}
	default:
		okColor.Fprintf(w, "✓ %s → %s%s\n", res.SourcePath, res.OutputPath, details(res))
	}
}

func details(res pipeline.Result) string {
	s := ""
	if res.ImagesExtracted > 0 {
		s += fmt.Sprintf(", %d images", res.ImagesExtracted)
		if res.ImagesDescribed > 0 {
			s += fmt.Sprintf(" (%d described)", res.ImagesDescribed)
		}
	}
	if res.Chunks > 0 {
		s += fmt.Sprintf(", %d chunks", res.Chunks)
	}
	if s == "" {
		return ""
	}
	return " (" + s[2:] + ")"
}

func printSummary(w io.Writer, s batch.Summary, stopped bool) {
	line := fmt.Sprintf("%d converted, %d skipped, %d failed", s.Succeeded-s.Skipped, s.Skipped, s.Failed)
	if stopped {
		line += " (stopped early)"
	}
	if s.Failed > 0 {
		failColor.Fprintln(w, line)
		return
	}
	okColor.Fprintln(w, line)
}
