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
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nicholasgasior/markitdown-rag/internal/batch"
	"github.com/nicholasgasior/markitdown-rag/internal/formats"
	"github.com/nicholasgasior/markitdown-rag/internal/logging"
	"github.com/nicholasgasior/markitdown-rag/internal/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	var initial bool
	cmd := &cobra.Command{
		Use:   "watch <folder>",
		Short: "Convert documents as they are added to or changed in a folder",
		Long: "Watch a folder and convert every new or modified document. Changed documents always replace " +
			"their previous output. Stop with Ctrl+C.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWatch(cmd, args[0], initial)
		},
	}
	addSelectionFlags(cmd)
	addEnrichmentFlags(cmd)
	cmd.Flags().BoolVar(&initial, "initial", false, "convert the documents already in the folder first")
	return cmd
}

func (a *app) runWatch(cmd *cobra.Command, root string, initial bool) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cats, err := categories(a.cfg.Formats)
	if err != nil {
		return err
	}
	opts := a.enrichment()
	conv := a.newPipeline()
	out := cmd.OutOrStdout()

	if initial {
		orch := batch.New(batch.WithLogger(a.logger), batch.WithConverter(conv))
		results, err := orch.ConvertFolder(ctx, root, batch.FolderOptions{
			Recursive:  a.cfg.IncludeSubfolders,
			MaxDepth:   a.cfg.MaxDepth,
			Formats:    cats,
			OutputDir:  a.cfg.OutputDir,
			Overwrite:  a.cfg.Overwrite,
			Enrichment: opts,
		})
		if err != nil {
			return err
		}
		for _, res := range results {
			printResult(out, res)
		}
	}

	w, err := watch.New(root, watch.Options{
		Recursive:  a.cfg.IncludeSubfolders,
		Extensions: formats.ExtensionsFor(cats...),
		Ignore:     insideDir(a.cfg.OutputDir),
		Logger:     a.logger,
	})
	if err != nil {
		return err
	}
	dimColor.Fprintf(out, "watching %s\n", root)

	return w.Run(ctx, func(ctx context.Context, path string) {
		ctx = logging.ContextWithRunID(ctx, uuid.NewString())
		printResult(out, conv.ConvertFile(ctx, path, a.cfg.OutputDir, true, opts))
	})
}

// insideDir returns a filter matching paths under dir, or nil when dir is empty.
func insideDir(dir string) func(string) bool {
	if dir == "" {
		return nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil
	}
	return func(path string) bool {
		p, err := filepath.Abs(path)
		if err != nil {
			return false
		}
		return p == abs || strings.HasPrefix(p, abs+string(filepath.Separator))
	}
}
