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

// Package formats is the static registry of file categories the converter offers and their extensions.
package formats

import (
	"path/filepath"
	"sort"
	"strings"
)

// Category names.
const (
	PDF        = "PDF"
	Word       = "Word"
	PowerPoint = "PowerPoint"
	Excel      = "Excel"
	Images     = "Images"
	Text       = "Text"
)

var registry = []struct {
	name       string
	extensions []string
}{
	{PDF, []string{".pdf"}},
	{Word, []string{".docx", ".doc"}},
	{PowerPoint, []string{".pptx", ".ppt"}},
	{Excel, []string{".xlsx", ".xls"}},
	{Images, []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp", ".tiff"}},
	{Text, []string{".csv", ".json", ".xml", ".txt"}},
}

// Set is a set of lowercase extensions with their leading dot.
type Set map[string]struct{}

// Has reports whether the extension of path (or a bare extension) is in the set.
func (s Set) Has(pathOrExt string) bool {
	ext := pathOrExt
	if !strings.HasPrefix(ext, ".") || strings.ContainsAny(ext[1:], "./\\") {
		ext = filepath.Ext(pathOrExt)
	}
	_, ok := s[strings.ToLower(ext)]
	return ok
}

// Sorted returns the extensions in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for ext := range s {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Categories returns the category names in display order.
func Categories() []string {
	out := make([]string, len(registry))
	for i, c := range registry {
		out[i] = c.name
	}
	return out
}

// Canonical returns the registered spelling of a category name matched case-insensitively.
func Canonical(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, c := range registry {
		if strings.EqualFold(c.name, name) {
			return c.name, true
		}
	}
	return "", false
}

// Extensions returns the ordered extensions of one category, or nil for an unknown name.
func Extensions(category string) []string {
	for _, c := range registry {
		if c.name == category {
			return append([]string(nil), c.extensions...)
		}
	}
	return nil
}

// ExtensionsFor unions the extensions of the named categories. Unknown names are ignored.
func ExtensionsFor(categories ...string) Set {
	set := Set{}
	for _, name := range categories {
		for _, ext := range Extensions(name) {
			set[ext] = struct{}{}
		}
	}
	return set
}

// AllExtensions returns every registered extension.
func AllExtensions() Set {
	return ExtensionsFor(Categories()...)
}

// CategoryOf returns the category an extension belongs to, or "".
func CategoryOf(ext string) string {
	ext = strings.ToLower(ext)
	for _, c := range registry {
		for _, e := range c.extensions {
			if e == ext {
				return c.name
			}
		}
	}
	return ""
}
