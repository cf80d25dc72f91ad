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

// Package ooxml reads the zip container shared by .docx, .pptx and .xlsx files: parts and their relationships.
package ooxml

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
)

// Relationship types the converters and image extractor follow.
const (
	RelImage     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	RelHyperlink = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink"
	RelSlide     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide"
	RelNotes     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/notesSlide"
	RelStyles    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles"
)

// ErrPartNotFound is returned when a requested part does not exist in the package.
var ErrPartNotFound = errors.New("part not found")

// Relationship is one entry of a .rels part.
type Relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"`
}

// External reports whether the target lies outside the package (hyperlinks, linked images).
func (r Relationship) External() bool {
	return strings.EqualFold(r.TargetMode, "External")
}

type relationships struct {
	Items []Relationship `xml:"Relationship"`
}

// Package is an opened OOXML container.
type Package struct {
	zr    *zip.Reader
	files map[string]*zip.File
}

// Open reads an OOXML package from a seekable stream.
func Open(r io.ReaderAt, size int64) (*Package, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("open package: %w", err)
	}
	p := &Package{zr: zr, files: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		p.files[f.Name] = f
	}
	return p, nil
}

// OpenBytes opens a package held in memory.
func OpenBytes(data []byte) (*Package, error) {
	return Open(bytes.NewReader(data), int64(len(data)))
}

// OpenFile reads the whole file and opens it as a package.
func OpenFile(name string) (*Package, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return OpenBytes(data)
}

// Has reports whether the named part exists.
func (p *Package) Has(name string) bool {
	_, ok := p.files[name]
	return ok
}

// ReadFile returns the content of a part.
func (p *Package) ReadFile(name string) ([]byte, error) {
	f, ok := p.files[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPartNotFound, name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Names lists the parts whose name starts with prefix, in archive order.
func (p *Package) Names(prefix string) []string {
	var out []string
	for _, f := range p.zr.File {
		if strings.HasPrefix(f.Name, prefix) {
			out = append(out, f.Name)
		}
	}
	return out
}

// Relationships returns the relationships of a part in document order. A part without a .rels
// companion has no relationships.
func (p *Package) Relationships(part string) ([]Relationship, error) {
	data, err := p.ReadFile(RelsPathFor(part))
	if errors.Is(err, ErrPartNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rels relationships
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil, fmt.Errorf("decode relationships of %s: %w", part, err)
	}
	return rels.Items, nil
}

// RelationshipMap indexes the relationships of a part by ID.
func (p *Package) RelationshipMap(part string) (map[string]Relationship, error) {
	rels, err := p.Relationships(part)
	if err != nil {
		return nil, err
	}
	m := make(map[string]Relationship, len(rels))
	for _, r := range rels {
		m[r.ID] = r
	}
	return m, nil
}

// RelsPathFor returns the .rels path for a part.
func RelsPathFor(part string) string {
	dir, base := path.Split(part)
	return dir + "_rels/" + base + ".rels"
}

// ResolveTarget resolves a relationship target relative to the part that declares it.
func ResolveTarget(part, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Join(path.Dir(part), target)
}

const presentationPart = "ppt/presentation.xml"

// Slides returns the slide parts of a presentation in presentation order. Packages without a usable
// slide list fall back to the slide parts sorted by number.
func (p *Package) Slides() ([]string, error) {
	data, err := p.ReadFile(presentationPart)
	if err != nil {
		return nil, err
	}
	var pres struct {
		IDs []struct {
			Attrs []xml.Attr `xml:",any,attr"`
		} `xml:"sldIdLst>sldId"`
	}
	if err := xml.Unmarshal(data, &pres); err != nil {
		return nil, fmt.Errorf("decode presentation: %w", err)
	}
	rels, err := p.RelationshipMap(presentationPart)
	if err != nil {
		return nil, err
	}

	var slides []string
	for _, id := range pres.IDs {
		for _, a := range id.Attrs {
			if a.Name.Local != "id" || a.Name.Space == "" {
				continue
			}
			if rel, ok := rels[a.Value]; ok && rel.Type == RelSlide {
				slides = append(slides, ResolveTarget(presentationPart, rel.Target))
			}
		}
	}
	if len(slides) > 0 {
		return slides, nil
	}

	for _, name := range p.Names("ppt/slides/slide") {
		if strings.HasSuffix(name, ".xml") {
			slides = append(slides, name)
		}
	}
	sort.SliceStable(slides, func(i, j int) bool { return slideNumber(slides[i]) < slideNumber(slides[j]) })
	return slides, nil
}

func slideNumber(part string) int {
	n, _ := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(part, "ppt/slides/slide"), ".xml"))
	return n
}

// RelatedPart returns the first part related to part by the given relationship type, or "".
func (p *Package) RelatedPart(part, relType string) string {
	rels, err := p.Relationships(part)
	if err != nil {
		return ""
	}
	for _, r := range rels {
		if r.Type == relType && !r.External() {
			return ResolveTarget(part, r.Target)
		}
	}
	return ""
}
