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
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XlsxConverter renders every worksheet of an XLSX workbook as a Markdown table under a "## <sheet>" heading.
type XlsxConverter struct{}

// NewXlsxConverter creates a new XlsxConverter.
func NewXlsxConverter() *XlsxConverter {
	return &XlsxConverter{}
}

func (c *XlsxConverter) Accepts(info StreamInfo) bool {
	switch info.Extension {
	case ".xlsx", ".xlsm":
		return true
	}
	mime := strings.ToLower(info.MIMEType)
	return strings.HasPrefix(mime, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
}

func (c *XlsxConverter) Convert(reader io.ReadSeeker, info StreamInfo) (*DocumentConverterResult, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("open XLSX: %w", err)
	}
	defer f.Close()

	var sheets []sheetTable
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		sheets = append(sheets, sheetTable{name: name, rows: rows})
	}
	return &DocumentConverterResult{Markdown: renderSheets(sheets)}, nil
}

type sheetTable struct {
	name string
	rows [][]string
}

// renderSheets writes one section per non-empty sheet.
func renderSheets(sheets []sheetTable) string {
	var md strings.Builder
	for _, s := range sheets {
		table := renderMarkdownTable(s.rows)
		if table == "" {
			continue
		}
		fmt.Fprintf(&md, "## %s\n\n%s\n", s.name, table)
	}
	return md.String()
}
