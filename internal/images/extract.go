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
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog"

	"github.com/nicholasgasior/markitdown-rag/internal/ooxml"
)

// Extractor pulls images out of documents.
type Extractor struct {
	logger zerolog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// NewExtractor creates an Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type extractFunc func(e *Extractor, path string) ([]ExtractedImage, error)

// extractors is keyed by lowercase extension. Legacy .doc and .ppt map to the OOXML readers, which
// reject them; the failure is reported like any other.
var extractors = map[string]extractFunc{
	".docx": (*Extractor).fromDocx,
	".doc":  (*Extractor).fromDocx,
	".pptx": (*Extractor).fromPptx,
	".ppt":  (*Extractor).fromPptx,
	".pdf":  (*Extractor).fromPDF,
}

// Supports reports whether images can be extracted from files with the extension of path.
func Supports(path string) bool {
	_, ok := extractors[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extract returns the recognized raster images of the document at path, numbered from 1 in encounter
// order. Unsupported file types yield no images. An image that cannot be read is logged and dropped; a
// document that cannot be read at all returns an error.
func (e *Extractor) Extract(path string) ([]ExtractedImage, error) {
	fn, ok := extractors[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, nil
	}
	imgs, err := fn(e, path)
	if err != nil {
		return nil, fmt.Errorf("extract images from %s: %w", filepath.Base(path), err)
	}
	return imgs, nil
}

// add appends data as the next image when its format is recognized.
func (e *Extractor) add(imgs []ExtractedImage, data []byte, declared string, page int) []ExtractedImage {
	f, ok := sniffFormat(data, declared)
	if !ok {
		e.logger.Debug().Str("declared", declared).Int("page", page).Msg("skipping image in unsupported format")
		return imgs
	}
	return append(imgs, ExtractedImage{
		Index:      len(imgs) + 1,
		Data:       data,
		Format:     f,
		SourcePage: page,
	})
}

// fromDocx walks the main document's image relationships in declaration order.
func (e *Extractor) fromDocx(file string) ([]ExtractedImage, error) {
	pkg, err := ooxml.OpenFile(file)
	if err != nil {
		return nil, err
	}
	const main = "word/document.xml"
	rels, err := pkg.Relationships(main)
	if err != nil {
		return nil, err
	}
	var imgs []ExtractedImage
	for _, rel := range rels {
		if rel.Type != ooxml.RelImage || rel.External() {
			continue
		}
		part := ooxml.ResolveTarget(main, rel.Target)
		data, err := pkg.ReadFile(part)
		if err != nil {
			e.logger.Debug().Err(err).Str("part", part).Msg("failed to read image")
			continue
		}
		imgs = e.add(imgs, data, path.Ext(part), 0)
	}
	return imgs, nil
}

// fromPptx collects the pictures of each slide in shape order, tagging them with the slide number.
func (e *Extractor) fromPptx(file string) ([]ExtractedImage, error) {
	pkg, err := ooxml.OpenFile(file)
	if err != nil {
		return nil, err
	}
	slides, err := pkg.Slides()
	if err != nil {
		return nil, err
	}
	var imgs []ExtractedImage
	for i, slide := range slides {
		rels, err := pkg.RelationshipMap(slide)
		if err != nil {
			e.logger.Debug().Err(err).Int("slide", i+1).Msg("failed to read slide relationships")
			continue
		}
		body, err := pkg.ReadFile(slide)
		if err != nil {
			e.logger.Debug().Err(err).Int("slide", i+1).Msg("failed to read slide")
			continue
		}
		for _, id := range pictureRefs(body) {
			rel, ok := rels[id]
			if !ok || rel.Type != ooxml.RelImage || rel.External() {
				continue
			}
			part := ooxml.ResolveTarget(slide, rel.Target)
			data, err := pkg.ReadFile(part)
			if err != nil {
				e.logger.Debug().Err(err).Str("part", part).Int("slide", i+1).Msg("failed to read image")
				continue
			}
			imgs = e.add(imgs, data, path.Ext(part), i+1)
		}
	}
	return imgs, nil
}

// pictureRefs returns the relationship IDs of the blips inside p:pic elements, in document order.
func pictureRefs(body []byte) []string {
	dec := xml.NewDecoder(bytes.NewReader(body))
	var ids []string
	inPic := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return ids
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "pic":
				inPic++
			case "blip":
				if inPic == 0 {
					continue
				}
				for _, a := range t.Attr {
					if a.Name.Local == "embed" && a.Value != "" {
						ids = append(ids, a.Value)
					}
				}
			}
		case xml.EndElement:
			if t.Name.Local == "pic" && inPic > 0 {
				inPic--
			}
		}
	}
}

// fromPDF pulls the image XObjects of every page. Images pdfcpu can only hand out in a container we do
// not recognize (TIFF, JPEG 2000) are skipped.
func (e *Extractor) fromPDF(path string) ([]ExtractedImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ctx, err := api.ReadValidateAndOptimize(f, model.NewDefaultConfiguration())
	if err != nil {
		return nil, err
	}

	var imgs []ExtractedImage
	for page := 1; page <= ctx.PageCount; page++ {
		found, err := pdfcpu.ExtractPageImages(ctx, page, false)
		if err != nil {
			e.logger.Debug().Err(err).Int("page", page).Msg("failed to extract page images")
			continue
		}
		objNrs := make([]int, 0, len(found))
		for nr := range found {
			objNrs = append(objNrs, nr)
		}
		sort.Ints(objNrs)
		for _, nr := range objNrs {
			img := found[nr]
			data, err := io.ReadAll(img)
			if err != nil {
				e.logger.Debug().Err(err).Int("page", page).Str("name", img.Name).Msg("failed to read image")
				continue
			}
			imgs = e.add(imgs, data, img.FileType, page)
		}
	}
	return imgs, nil
}
