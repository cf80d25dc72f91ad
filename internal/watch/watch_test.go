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

package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicholasgasior/markitdown-rag/internal/formats"
)

type collector struct {
	mu    sync.Mutex
	paths []string
}

func (c *collector) handle(_ context.Context, path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths = append(c.paths, path)
}

func (c *collector) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.paths...)
}

func start(t *testing.T, root string, opts Options) *collector {
	t.Helper()
	w, err := New(root, opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c := &collector{}
	go func() {
		defer close(done)
		_ = w.Run(ctx, c.handle)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return c
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestWatcherDebouncesWrites(t *testing.T) {
	root := t.TempDir()
	c := start(t, root, Options{Debounce: 100 * time.Millisecond})

	doc := filepath.Join(root, "report.txt")
	for i := 0; i < 5; i++ {
		write(t, doc, "line")
		time.Sleep(10 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return len(c.snapshot()) == 1 }, 3*time.Second, 20*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, []string{doc}, c.snapshot())
}

func TestWatcherFiltersFiles(t *testing.T) {
	root := t.TempDir()
	c := start(t, root, Options{
		Debounce:   50 * time.Millisecond,
		Extensions: formats.ExtensionsFor(formats.Text),
		Ignore:     func(path string) bool { return filepath.Base(path) == "skip.txt" },
	})

	write(t, filepath.Join(root, "slides.pdf"), "%PDF")
	write(t, filepath.Join(root, "report.txt.md"), "# out")
	write(t, filepath.Join(root, "cleaned_book.csv"), "a,b")
	write(t, filepath.Join(root, ".hidden.txt"), "x")
	write(t, filepath.Join(root, "skip.txt"), "x")
	keep := filepath.Join(root, "keep.csv")
	write(t, keep, "a,b")

	require.Eventually(t, func() bool { return len(c.snapshot()) == 1 }, 3*time.Second, 20*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, []string{keep}, c.snapshot())
}

func TestWatcherRecursiveNewFolder(t *testing.T) {
	root := t.TempDir()
	c := start(t, root, Options{Recursive: true, Debounce: 50 * time.Millisecond})

	sub := filepath.Join(root, "incoming")
	require.NoError(t, os.Mkdir(sub, 0o755))
	// Give the watcher time to register the new folder.
	time.Sleep(200 * time.Millisecond)

	doc := filepath.Join(sub, "memo.txt")
	write(t, doc, "hello")

	require.Eventually(t, func() bool {
		got := c.snapshot()
		return len(got) == 1 && got[0] == doc
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatcherNonRecursiveIgnoresSubfolders(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "nested")
	require.NoError(t, os.Mkdir(sub, 0o755))
	c := start(t, root, Options{Debounce: 50 * time.Millisecond})

	write(t, filepath.Join(sub, "deep.txt"), "x")
	top := filepath.Join(root, "top.txt")
	write(t, top, "x")

	require.Eventually(t, func() bool { return len(c.snapshot()) == 1 }, 3*time.Second, 20*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, []string{top}, c.snapshot())
}

func TestRelevant(t *testing.T) {
	w := &Watcher{opts: Options{Extensions: formats.AllExtensions()}}

	assert.True(t, w.Relevant("/docs/a.pdf"))
	assert.True(t, w.Relevant("/docs/B.XLSX"))
	assert.False(t, w.Relevant("/docs/a.pdf.md"))
	assert.False(t, w.Relevant("/docs/a.pdf.jsonl"))
	assert.False(t, w.Relevant("/docs/cleaned_a.xlsx"))
	assert.False(t, w.Relevant("/docs/deck.pptx_images/image_1.png"))
	assert.False(t, w.Relevant("/docs/.~lock.a.docx"))
}

func TestNewRejectsBadRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), Options{})
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file.txt")
	write(t, file, "x")
	_, err = New(file, Options{})
	assert.Error(t, err)
}
