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

// Package excelclean unmerges merged cell ranges in a workbook and fills every cell of the former range
// with the top-left value, so that each row of a table carries its full context after extraction.
package excelclean

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// Prefix is prepended to the source file name to name the cleaned copy.
const Prefix = "cleaned_"

// Cleaner forward-fills merged ranges.
type Cleaner struct {
	logger zerolog.Logger
}

// Option configures a Cleaner.
type Option func(*Cleaner)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Cleaner) { c.logger = l }
}

// New creates a Cleaner.
func New(opts ...Option) *Cleaner {
	c := &Cleaner{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Supported reports whether path is a workbook format the cleaner can rewrite.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return true
	}
	return false
}

// Clean rewrites the workbook at path with every merged range filled. It returns the path of the cleaned
// copy, written beside the source as "cleaned_<name>", or "" when the workbook has no merged ranges, its
// format cannot be rewritten, or a file of that name already exists. An existing file is never
// overwritten. The caller owns the returned file and must remove it.
func (c *Cleaner) Clean(path string) (string, error) {
	if !Supported(path) {
		return "", nil
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	filled := 0
	for _, sheet := range f.GetSheetList() {
		n, err := fillSheet(f, sheet)
		if err != nil {
			return "", fmt.Errorf("sheet %q: %w", sheet, err)
		}
		filled += n
	}
	if filled == 0 {
		return "", nil
	}

	out := filepath.Join(filepath.Dir(path), Prefix+filepath.Base(path))
	dst, err := os.OpenFile(out, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		c.logger.Warn().Str("source", path).Str("cleaned", out).Msg("cleaned copy name taken, using source as is")
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("create cleaned workbook: %w", err)
	}
	if err := f.Write(dst); err != nil {
		dst.Close()
		os.Remove(out)
		return "", fmt.Errorf("save cleaned workbook: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(out)
		return "", fmt.Errorf("save cleaned workbook: %w", err)
	}
	c.logger.Info().Str("source", path).Str("cleaned", out).Int("ranges", filled).Msg("merged cells filled")
	return out, nil
}

// fillSheet unmerges every range of one sheet and returns how many ranges it filled.
func fillSheet(f *excelize.File, sheet string) (int, error) {
	merged, err := f.GetMergeCells(sheet)
	if err != nil {
		return 0, err
	}
	for _, mc := range merged {
		start, end := mc.GetStartAxis(), mc.GetEndAxis()
		fill, err := topLeft(f, sheet, start)
		if err != nil {
			return 0, err
		}
		style, err := f.GetCellStyle(sheet, start)
		if err != nil {
			return 0, err
		}
		if err := f.UnmergeCell(sheet, start, end); err != nil {
			return 0, fmt.Errorf("unmerge %s:%s: %w", start, end, err)
		}

		c1, r1, err := excelize.CellNameToCoordinates(start)
		if err != nil {
			return 0, err
		}
		c2, r2, err := excelize.CellNameToCoordinates(end)
		if err != nil {
			return 0, err
		}
		for row := r1; row <= r2; row++ {
			for col := c1; col <= c2; col++ {
				cell, err := excelize.CoordinatesToCellName(col, row)
				if err != nil {
					return 0, err
				}
				if err := fill(cell); err != nil {
					return 0, err
				}
				if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
					return 0, err
				}
			}
		}
	}
	return len(merged), nil
}

// topLeft reads the anchor cell and returns a setter that writes the same value with the same type.
func topLeft(f *excelize.File, sheet, cell string) (func(string) error, error) {
	raw, err := f.GetCellValue(sheet, cell, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}
	typ, err := f.GetCellType(sheet, cell)
	if err != nil {
		return nil, err
	}
	switch typ {
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return func(c string) error { return f.SetCellValue(sheet, c, v) }, nil
		}
	case excelize.CellTypeBool:
		v := raw == "1" || strings.EqualFold(raw, "true")
		return func(c string) error { return f.SetCellBool(sheet, c, v) }, nil
	}
	if raw == "" {
		return func(c string) error { return f.SetCellValue(sheet, c, nil) }, nil
	}
	return func(c string) error { return f.SetCellStr(sheet, c, raw) }, nil
}
