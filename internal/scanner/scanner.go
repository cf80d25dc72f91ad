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

// Package scanner finds convertible files under a folder.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"

	"github.com/nicholasgasior/markitdown-rag/internal/formats"
)

// Unlimited disables the depth limit.
const Unlimited = -1

// Options controls a scan.
type Options struct {
	// Recursive enables descending into subfolders.
	Recursive bool
	// MaxDepth bounds how deep files may sit: 1 keeps the root's direct entries, 2 adds their
	// children, and so on. Zero behaves like 1; Unlimited (or any negative value) removes the bound.
	MaxDepth int
	// Extensions filters files by extension; nil means every registered format.
	Extensions formats.Set
	// Stop is polled after every directory entry; when it returns true the scan ends early.
	Stop func() bool
	// Logger receives warnings for unreadable folders.
	Logger zerolog.Logger
}

// Scan returns the matching files under root, sorted by full path. Unreadable subfolders are skipped with a
// warning. Cancellation through ctx or Options.Stop is not an error: the files found so far are returned.
func Scan(ctx context.Context, root string, opts Options) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan %s: not a directory", root)
	}

	exts := opts.Extensions
	if exts == nil {
		exts = formats.AllExtensions()
	}
	maxDepth := opts.MaxDepth
	if !opts.Recursive {
		maxDepth = 1
	} else if maxDepth == 0 {
		maxDepth = 1
	}

	s := &scan{ctx: ctx, opts: opts, exts: exts, maxDepth: maxDepth}
	s.dir(root, 1)
	sort.Strings(s.files)
	return s.files, nil
}

type scan struct {
	ctx      context.Context
	opts     Options
	exts     formats.Set
	maxDepth int
	files    []string
	stopped  bool
}

func (s *scan) stop() bool {
	if s.stopped {
		return true
	}
	if s.ctx.Err() != nil || (s.opts.Stop != nil && s.opts.Stop()) {
		s.stopped = true
	}
	return s.stopped
}

// dir lists one folder whose entries sit at the given depth.
func (s *scan) dir(path string, depth int) {
	if s.stop() {
		return
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			s.opts.Logger.Warn().Str("dir", path).Err(err).Msg("permission denied, skipping folder")
		} else {
			s.opts.Logger.Warn().Str("dir", path).Err(err).Msg("cannot read folder, skipping")
		}
		return
	}

	for _, e := range entries {
		full := filepath.Join(path, e.Name())
		switch {
		case e.IsDir():
			if s.maxDepth < 0 || depth < s.maxDepth {
				s.dir(full, depth+1)
			}
		case e.Type().IsRegular() || e.Type()&fs.ModeSymlink != 0:
			if s.exts.Has(e.Name()) && isFile(full) {
				s.files = append(s.files, full)
			}
		}
		if s.stop() {
			return
		}
	}
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
