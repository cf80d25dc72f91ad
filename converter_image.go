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

package markitdown

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageConverter turns a raster image file into a short Markdown stub: a title, a reference to the
// file and its format and dimensions. Descriptions come from the enrichment pipeline.
type ImageConverter struct{}

// NewImageConverter creates a new ImageConverter.
func NewImageConverter() *ImageConverter {
	return &ImageConverter{}
}

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".webp": true, ".tif": true, ".tiff": true,
}

func (c *ImageConverter) Accepts(info StreamInfo) bool {
	if imageExtensions[info.Extension] {
		return true
	}
	return strings.HasPrefix(strings.ToLower(info.MIMEType), "image/")
}

func (c *ImageConverter) Convert(reader io.ReadSeeker, info StreamInfo) (*DocumentConverterResult, error) {
	cfg, format, err := image.DecodeConfig(reader)
	if err != nil {
		return nil, fmt.Errorf("decode image header: %w", err)
	}

	name := info.Filename
	if name == "" {
		name = "image" + info.Extension
	}
	title := strings.TrimSuffix(name, filepath.Ext(name))

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "![%s](./%s)\n\n", title, filepath.ToSlash(name))
	fmt.Fprintf(&b, "- Format: %s\n", format)
	fmt.Fprintf(&b, "- Dimensions: %dx%d\n", cfg.Width, cfg.Height)
	return &DocumentConverterResult{Markdown: b.String(), Title: title}, nil
}
