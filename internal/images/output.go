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

package images

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// DefaultPrompt asks a vision model for a short description suited to retrieval.
const DefaultPrompt = `Describe the content of this image in detail in 2-3 short sentences.
If it is a chart, describe the key figures.
If it is a diagram, describe its structure and components.
If the image contains text, transcribe that text.`

// DirName is the folder, relative to the Markdown file, that holds the images of a document.
func DirName(baseName string) string {
	return baseName + "_images"
}

func fileName(index int, f Format) string {
	return fmt.Sprintf("image_%03d.%s", index, f)
}

// Save writes each image as image_NNN.<format> under outputDir/<baseName>_images and returns the written
// paths. An image that cannot be written is logged and left out.
func Save(images []ExtractedImage, outputDir, baseName string, logger zerolog.Logger) ([]string, error) {
	if len(images) == 0 {
		return nil, nil
	}
	dir := filepath.Join(outputDir, DirName(baseName))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create images folder: %w", err)
	}
	paths := make([]string, 0, len(images))
	for i := range images {
		p := filepath.Join(dir, images[i].FileName())
		if err := os.WriteFile(p, images[i].Data, 0o644); err != nil {
			logger.Warn().Err(err).Str("path", p).Msg("failed to save image")
			continue
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// Describe asks d for a description of each image in index order, storing it on the image, and returns how
// many were described. A failed request leaves that image without a description. Cancelling ctx stops
// before the next image; the request already in flight is not cancelled. An empty prompt selects
// DefaultPrompt.
func Describe(ctx context.Context, images []ExtractedImage, d Describer, prompt string, logger zerolog.Logger) int {
	if prompt == "" {
		prompt = DefaultPrompt
	}
	call := context.WithoutCancel(ctx)
	described := 0
	for i := range images {
		if ctx.Err() != nil {
			break
		}
		img := &images[i]
		text, err := d.DescribeImage(call, img.Data, img.Format.MIMEType(), prompt)
		if err != nil {
			logger.Debug().Err(err).Int("image", img.Index).Msg("image description failed")
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			img.Description = text
			described++
		}
	}
	return described
}

// FormatMarkdown renders the "Images in document" section appended to a converted document. Paths are
// relative to the Markdown file. It returns "" for no images.
func FormatMarkdown(images []ExtractedImage, baseName string) string {
	if len(images) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\n---\n\n## Images in document\n")
	for _, img := range images {
		page := ""
		if img.SourcePage > 0 {
			page = fmt.Sprintf(" (Page %d)", img.SourcePage)
		}
		fmt.Fprintf(&b, "\n### Image %d%s\n\n", img.Index, page)
		fmt.Fprintf(&b, "![Image %d](./%s/%s)\n", img.Index, DirName(baseName), img.FileName())
		if img.Description != "" {
			fmt.Fprintf(&b, "\n> **Description:** %s\n", oneBlockquote(img.Description))
		}
		if img.OCRText != "" {
			fmt.Fprintf(&b, "\n> **Text in image:**\n> %s\n", oneBlockquote(img.OCRText))
		}
	}
	return b.String()
}

// oneBlockquote keeps multi-line text inside the surrounding blockquote.
func oneBlockquote(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\n", "\n> ")
}
