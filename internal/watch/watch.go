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

// Package watch converts documents as they appear in a folder. Filesystem events are debounced per path so a
// file that is still being written is handled once, after it settles.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/nicholasgasior/markitdown-rag/internal/excelclean"
	"github.com/nicholasgasior/markitdown-rag/internal/formats"
)

// DefaultDebounce is the quiet period used when Options.Debounce is zero.
const DefaultDebounce = 500 * time.Millisecond

// imagesSuffix marks the folders the pipeline writes extracted images into.
const imagesSuffix = "_images"

// Handler is called once per settled file. Calls are serialized.
type Handler func(ctx context.Context, path string)

// Options tunes a Watcher.
type Options struct {
	// Recursive also watches subfolders, including ones created later.
	Recursive bool
	// Extensions selects the files to report; nil means every registered format.
	Extensions formats.Set
	// Debounce is how long a path must stay quiet before it is reported.
	Debounce time.Duration
	// Ignore, when set, drops paths it returns true for.
	Ignore func(path string) bool
	Logger zerolog.Logger
}

// Watcher reports new and modified documents under a root folder.
type Watcher struct {
	root string
	opts Options
	fsw  *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// New starts watching root. The caller must call Run, which releases the watcher when it returns.
func New(root string, opts Options) (*Watcher, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch %s: not a directory", root)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Extensions == nil {
		opts.Extensions = formats.AllExtensions()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", root, err)
	}
	w := &Watcher{root: root, opts: opts, fsw: fsw, pending: make(map[string]*time.Timer)}
	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// addTree watches dir and, when recursive, every folder below it that is not skipped.
func (w *Watcher) addTree(dir string) error {
	if !w.opts.Recursive {
		return w.fsw.Add(dir)
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			w.opts.Logger.Warn().Err(err).Str("path", path).Msg("cannot watch folder")
			return fs.SkipDir
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && skipDir(d.Name()) {
			return fs.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasSuffix(name, imagesSuffix)
}

// Relevant reports whether path names a document the watcher should hand to its Handler.
func (w *Watcher) Relevant(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, excelclean.Prefix) {
		return false
	}
	if strings.HasSuffix(filepath.Base(filepath.Dir(path)), imagesSuffix) {
		return false
	}
	if !w.opts.Extensions.Has(path) {
		return false
	}
	return w.opts.Ignore == nil || !w.opts.Ignore(path)
}

// Run dispatches settled files to handle until ctx is done.
func (w *Watcher) Run(ctx context.Context, handle Handler) error {
	defer w.fsw.Close()
	defer w.cancelPending()

	ready := make(chan string)
	w.opts.Logger.Info().Str("root", w.root).Bool("recursive", w.opts.Recursive).Msg("watching")

	for {
		select {
		case <-ctx.Done():
			w.opts.Logger.Info().Str("root", w.root).Msg("watch stopped")
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.event(ctx, ev, ready)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.opts.Logger.Warn().Err(err).Msg("watch error")
		case path := <-ready:
			handle(ctx, path)
		}
	}
}

func (w *Watcher) event(ctx context.Context, ev fsnotify.Event, ready chan<- string) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}
	info, err := os.Stat(ev.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		if ev.Has(fsnotify.Create) && w.opts.Recursive && !skipDir(info.Name()) {
			if err := w.addTree(ev.Name); err != nil {
				w.opts.Logger.Warn().Err(err).Str("path", ev.Name).Msg("cannot watch new folder")
			}
		}
		return
	}
	if !w.Relevant(ev.Name) {
		return
	}
	w.schedule(ctx, ev.Name, ready)
}

// schedule (re)starts the quiet period of path.
func (w *Watcher) schedule(ctx context.Context, path string, ready chan<- string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok && t.Stop() {
		t.Reset(w.opts.Debounce)
		return
	}
	var t *time.Timer
	t = time.AfterFunc(w.opts.Debounce, func() {
		w.mu.Lock()
		if w.pending[path] == t {
			delete(w.pending, path)
		}
		w.mu.Unlock()
		select {
		case ready <- path:
		case <-ctx.Done():
		}
	})
	w.pending[path] = t
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}
