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
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/japanese"
)

// writeZip stores an OOXML-style package with the given parts under dir.
func writeZip(t *testing.T, dir, name string, parts map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for part, content := range parts {
		w, err := zw.Create(part)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const (
	wNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" ` +
		`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
		`xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing" ` +
		`xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"`
	pNS = `xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" ` +
		`xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" ` +
		`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"`
	relsNS = `xmlns="http://schemas.openxmlformats.org/package/2006/relationships"`
)

func docxFixture(t *testing.T, dir string) string {
	t.Helper()
	return writeZip(t, dir, "report.docx", map[string]string{
		"word/document.xml": `<?xml version="1.0" encoding="UTF-8"?>
<w:document ` + wNS + `><w:body>
<w:p><w:pPr><w:pStyle w:val="Title"/></w:pPr><w:r><w:t>Quarterly Report</w:t></w:r></w:p>
<w:p><w:pPr><w:pStyle w:val="Heading2"/></w:pPr><w:r><w:t>Background</w:t></w:r></w:p>
<w:p><w:r><w:t xml:space="preserve">Revenue grew </w:t></w:r><w:r><w:rPr><w:b/></w:rPr><w:t>strongly</w:t></w:r><w:r><w:t>.</w:t></w:r></w:p>
<w:p><w:hyperlink r:id="rId2"><w:r><w:t>details</w:t></w:r></w:hyperlink></w:p>
<w:p><w:pPr><w:numPr><w:ilvl w:val="0"/><w:numId w:val="1"/></w:numPr></w:pPr><w:r><w:t>first point</w:t></w:r></w:p>
<w:p><w:pPr><w:numPr><w:ilvl w:val="0"/><w:numId w:val="1"/></w:numPr></w:pPr><w:r><w:t>second point</w:t></w:r></w:p>
<w:tbl>
<w:tr><w:tc><w:p><w:r><w:t>Name</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Score</w:t></w:r></w:p></w:tc></w:tr>
<w:tr><w:tc><w:p><w:r><w:t>Alice</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>42</w:t></w:r></w:p></w:tc></w:tr>
</w:tbl>
<w:p><w:r><w:drawing><wp:inline><wp:docPr id="1" name="Picture 1" descr="sales chart"/><a:graphic><a:graphicData><a:blip r:embed="rId3"/></a:graphicData></a:graphic></wp:inline></w:drawing></w:r></w:p>
</w:body></w:document>`,
		"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8"?>
<Relationships ` + relsNS + `>
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink" Target="https://example.com/q3" TargetMode="External"/>
<Relationship Id="rId3" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="media/image1.png"/>
</Relationships>`,
		"word/styles.xml": `<?xml version="1.0" encoding="UTF-8"?>
<w:styles ` + wNS + `>
<w:style w:type="paragraph" w:styleId="Title"><w:name w:val="Title"/></w:style>
<w:style w:type="paragraph" w:styleId="Heading2"><w:name w:val="heading 2"/></w:style>
</w:styles>`,
		"word/numbering.xml": `<?xml version="1.0" encoding="UTF-8"?>
<w:numbering ` + wNS + `>
<w:abstractNum w:abstractNumId="0"><w:lvl w:ilvl="0"><w:numFmt w:val="bullet"/></w:lvl></w:abstractNum>
<w:num w:numId="1"><w:abstractNumId w:val="0"/></w:num>
</w:numbering>`,
		"word/media/image1.png": "png",
	})
}

func pptxFixture(t *testing.T, dir string) string {
	t.Helper()
	slide := func(title, body string) string {
		return `<?xml version="1.0" encoding="UTF-8"?>
<p:sld ` + pNS + `><p:cSld><p:spTree>
<p:sp><p:nvSpPr><p:cNvPr id="2" name="Title 1"/><p:cNvSpPr/><p:nvPr><p:ph type="title"/></p:nvPr></p:nvSpPr>
<p:txBody><a:p><a:r><a:t>` + title + `</a:t></a:r></a:p></p:txBody></p:sp>
<p:sp><p:nvSpPr><p:cNvPr id="3" name="Body"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr>
<p:txBody><a:p><a:r><a:t>` + body + `</a:t></a:r></a:p></p:txBody></p:sp>
</p:spTree></p:cSld></p:sld>`
	}
	return writeZip(t, dir, "deck.pptx", map[string]string{
		"ppt/presentation.xml": `<?xml version="1.0" encoding="UTF-8"?>
<p:presentation ` + pNS + `><p:sldIdLst><p:sldId id="256" r:id="rId7"/><p:sldId id="257" r:id="rId6"/></p:sldIdLst></p:presentation>`,
		"ppt/_rels/presentation.xml.rels": `<?xml version="1.0" encoding="UTF-8"?>
<Relationships ` + relsNS + `>
<Relationship Id="rId6" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide1.xml"/>
<Relationship Id="rId7" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide2.xml"/>
</Relationships>`,
		"ppt/slides/slide1.xml": slide("Second Title", "closing words"),
		"ppt/slides/slide2.xml": `<?xml version="1.0" encoding="UTF-8"?>
<p:sld ` + pNS + `><p:cSld><p:spTree>
<p:sp><p:nvSpPr><p:cNvPr id="2" name="Title 1"/><p:cNvSpPr/><p:nvPr><p:ph type="ctrTitle"/></p:nvPr></p:nvSpPr>
<p:txBody><a:p><a:r><a:t>Opening Title</a:t></a:r></a:p></p:txBody></p:sp>
<p:pic><p:nvPicPr><p:cNvPr id="4" name="Picture 3" descr="team photo"/><p:cNvPicPr/><p:nvPr/></p:nvPicPr></p:pic>
<p:graphicFrame><p:nvGraphicFramePr><p:cNvPr id="5" name="Table 1"/></p:nvGraphicFramePr><a:graphic><a:graphicData><a:tbl>
<a:tr><a:tc><a:txBody><a:p><a:r><a:t>City</a:t></a:r></a:p></a:txBody></a:tc><a:tc><a:txBody><a:p><a:r><a:t>Sales</a:t></a:r></a:p></a:txBody></a:tc></a:tr>
<a:tr><a:tc><a:txBody><a:p><a:r><a:t>Tokyo</a:t></a:r></a:p></a:txBody></a:tc><a:tc><a:txBody><a:p><a:r><a:t>100</a:t></a:r></a:p></a:txBody></a:tc></a:tr>
</a:tbl></a:graphicData></a:graphic></p:graphicFrame>
</p:spTree></p:cSld></p:sld>`,
		"ppt/slides/_rels/slide2.xml.rels": `<?xml version="1.0" encoding="UTF-8"?>
<Relationships ` + relsNS + `>
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/notesSlide" Target="../notesSlides/notesSlide1.xml"/>
</Relationships>`,
		"ppt/notesSlides/notesSlide1.xml": `<?xml version="1.0" encoding="UTF-8"?>
<p:notes ` + pNS + `><p:cSld><p:spTree>
<p:sp><p:nvSpPr><p:cNvPr id="2" name="Notes"/><p:cNvSpPr/><p:nvPr><p:ph type="body"/></p:nvPr></p:nvSpPr>
<p:txBody><a:p><a:r><a:t>remember the demo</a:t></a:r></a:p></p:txBody></p:sp>
<p:sp><p:nvSpPr><p:cNvPr id="3" name="Number"/><p:cNvSpPr/><p:nvPr><p:ph type="sldNum"/></p:nvPr></p:nvSpPr>
<p:txBody><a:p><a:r><a:t>1</a:t></a:r></a:p></p:txBody></p:sp>
</p:spTree></p:cSld></p:notes>`,
	})
}

func xlsxFixture(t *testing.T, dir string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", "Budget"); err != nil {
		t.Fatal(err)
	}
	for cell, v := range map[string]any{"A1": "Item", "B1": "Cost", "A2": "Paper|A4", "B2": 12.5} {
		if err := f.SetCellValue("Budget", cell, v); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := f.NewSheet("Empty"); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "budget.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConvertFile(t *testing.T) {
	dir := t.TempDir()
	m := New()

	sjis, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte("名前,よみ,住所\n佐藤太郎,さとう,東京\n三木英子,みき,大阪\n"))
	if err != nil {
		t.Fatal(err)
	}
	var pngBuf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	if err := png.Encode(&pngBuf, img); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name           string
		path           string
		mustInclude    []string
		mustNotInclude []string
	}{
		{
			name: "docx",
			path: docxFixture(t, dir),
			mustInclude: []string{
				"# Quarterly Report",
				"## Background",
				"Revenue grew **strongly**.",
				"[details](https://example.com/q3)",
				"first point",
				"second point",
				"Alice",
				"![sales chart](image1.png)",
			},
			mustNotInclude: []string{"<w:", "<table>"},
		},
		{
			name: "pptx",
			path: pptxFixture(t, dir),
			mustInclude: []string{
				"<!-- Slide number: 1 -->\n# Opening Title",
				"<!-- Slide number: 2 -->\n# Second Title",
				"![team photo](Picture3.jpg)",
				"| City | Sales |",
				"| Tokyo | 100 |",
				"### Notes:\nremember the demo",
				"closing words",
			},
		},
		{
			name:           "xlsx",
			path:           xlsxFixture(t, dir),
			mustInclude:    []string{"## Budget", "| Item | Cost |", `| Paper\|A4 | 12.5 |`},
			mustNotInclude: []string{"## Empty"},
		},
		{
			name:        "shift_jis csv",
			path:        writeFile(t, dir, "people.csv", sjis),
			mustInclude: []string{"| 名前 | よみ | 住所 |", "佐藤太郎", "三木英子"},
		},
		{
			name: "html",
			path: writeFile(t, dir, "page.html", []byte(`<html><head><title>Blog</title><script>var x = 1;</script></head>
<body><h1>Hello</h1><p>Large language models are <em>powerful</em>.</p></body></html>`)),
			mustInclude:    []string{"# Hello", "Large language models are *powerful*."},
			mustNotInclude: []string{"var x"},
		},
		{
			name: "rss feed",
			path: writeFile(t, dir, "feed.xml", []byte(`<?xml version="1.0"?>
<rss version="2.0"><channel><title>Company Blog</title><description>News</description>
<item><title>Launch Day</title><description>&lt;p&gt;We &lt;b&gt;shipped&lt;/b&gt;&lt;/p&gt;</description></item>
</channel></rss>`)),
			mustInclude:    []string{"# Company Blog", "## Launch Day", "We **shipped**"},
			mustNotInclude: []string{"<rss"},
		},
		{
			name:        "plain xml falls back to text",
			path:        writeFile(t, dir, "data.xml", []byte(`<?xml version="1.0"?><config><key>value</key></config>`)),
			mustInclude: []string{"<key>value</key>"},
		},
		{
			name:        "json",
			path:        writeFile(t, dir, "data.json", []byte(`{"id": "5b64c88c"}`)),
			mustInclude: []string{`"id": "5b64c88c"`},
		},
		{
			name:        "png",
			path:        writeFile(t, dir, "diagram.png", pngBuf.Bytes()),
			mustInclude: []string{"# diagram", "![diagram](./diagram.png)", "- Format: png", "- Dimensions: 4x3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := m.ConvertFile(tt.path)
			if err != nil {
				t.Fatalf("ConvertFile(%s) error: %v", filepath.Base(tt.path), err)
			}
			md := result.Markdown
			for _, s := range tt.mustInclude {
				if !strings.Contains(md, s) {
					t.Errorf("expected output to contain %q\nGot:\n%s", s, truncate(md, 2000))
				}
			}
			for _, s := range tt.mustNotInclude {
				if strings.Contains(md, s) {
					t.Errorf("expected output NOT to contain %q\nGot:\n%s", s, truncate(md, 2000))
				}
			}
		})
	}
}

func TestConvertFileSlideOrder(t *testing.T) {
	result, err := New().ConvertFile(pptxFixture(t, t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	first := strings.Index(result.Markdown, "Opening Title")
	second := strings.Index(result.Markdown, "Second Title")
	if first < 0 || second < 0 || first > second {
		t.Errorf("slides out of presentation order:\n%s", result.Markdown)
	}
	if result.Title != "Opening Title" {
		t.Errorf("Title = %q, want %q", result.Title, "Opening Title")
	}
}

func TestConvertFileErrors(t *testing.T) {
	dir := t.TempDir()
	m := New()

	t.Run("missing file", func(t *testing.T) {
		_, err := m.ConvertFile(filepath.Join(dir, "absent.docx"))
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected ErrNotExist, got %v", err)
		}
	})

	t.Run("legacy word is unsupported", func(t *testing.T) {
		path := writeFile(t, dir, "old.doc", []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1, 0, 0, 0, 0})
		_, err := m.ConvertFile(path)
		if !IsUnsupportedFormat(err) {
			t.Errorf("expected UnsupportedFormatError, got %v", err)
		}
	})

	t.Run("corrupt docx", func(t *testing.T) {
		path := writeFile(t, dir, "broken.docx", []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x80, 0x81})
		_, err := m.ConvertFile(path)
		var convErr *ConversionError
		if !errors.As(err, &convErr) {
			t.Fatalf("expected ConversionError, got %v", err)
		}
		if convErr.Attempts[0].Converter != "docx" {
			t.Errorf("first attempt = %q, want docx", convErr.Attempts[0].Converter)
		}
		if convErr.Filename != "broken.docx" || !strings.Contains(err.Error(), "broken.docx") {
			t.Errorf("error does not name the file: %v", err)
		}
		if IsUnsupportedFormat(err) {
			t.Error("a failed conversion is not an unsupported format")
		}
	})
}

func TestErrorMessages(t *testing.T) {
	cause := errors.New("bad header")
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"unsupported with all fields", &UnsupportedFormatError{Filename: "a.doc", Extension: ".doc", MIMEType: "application/msword"},
			"unsupported format a.doc (extension .doc, application/msword)"},
		{"unsupported mime only", &UnsupportedFormatError{MIMEType: "application/octet-stream"},
			"unsupported format (application/octet-stream)"},
		{"no attempts", &ConversionError{Filename: "x.pdf"}, "conversion failed for x.pdf"},
		{"one attempt", &ConversionError{Attempts: []FailedConversionAttempt{{Converter: "pdf", Err: cause}}},
			"conversion failed: pdf: bad header"},
		{"two attempts", &ConversionError{Filename: "x.html", Attempts: []FailedConversionAttempt{
			{Converter: "html", Err: cause}, {Converter: "plaintext", Err: io.ErrUnexpectedEOF},
		}}, "conversion failed for x.html (2 converters): html: bad header; plaintext: unexpected EOF"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}

	wrapped := fmt.Errorf("convert: %w", &ConversionError{Attempts: []FailedConversionAttempt{
		{Converter: "html", Err: cause}, {Converter: "plaintext", Err: io.ErrUnexpectedEOF},
	}})
	if !errors.Is(wrapped, cause) || !errors.Is(wrapped, io.ErrUnexpectedEOF) {
		t.Error("every attempt's error should be reachable through errors.Is")
	}
	if !errors.Is(fmt.Errorf("x: %w", &UnsupportedFormatError{}), ErrUnsupportedFormat) {
		t.Error("UnsupportedFormatError should match ErrUnsupportedFormat")
	}
}

func TestConvertReader(t *testing.T) {
	encoded, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte("名前,年齢\n髙橋淳,40\n"))
	if err != nil {
		t.Fatal(err)
	}

	result, err := New().ConvertReader(bytes.NewReader(encoded), StreamInfo{
		Extension: ".csv",
		MIMEType:  "text/csv",
		Charset:   "cp932",
	})
	if err != nil {
		t.Fatalf("ConvertReader error: %v", err)
	}
	for _, expected := range []string{"名前", "年齢", "髙橋淳"} {
		if !strings.Contains(result.Markdown, expected) {
			t.Errorf("expected output to contain %q", expected)
		}
	}
}

func TestConvertStream(t *testing.T) {
	result, err := New().ConvertStream(strings.NewReader("col1,col2\nx,y\n"), StreamInfo{Extension: "CSV"})
	if err != nil {
		t.Fatalf("ConvertStream error: %v", err)
	}
	if !strings.Contains(result.Markdown, "| col1 | col2 |") {
		t.Errorf("expected a table, got %q", result.Markdown)
	}

	if _, err := New().ConvertStream(bytes.NewReader([]byte{0x00, 0x01, 0x02}), StreamInfo{Extension: ".bin"}); !IsUnsupportedFormat(err) {
		t.Errorf("expected unsupported format, got %v", err)
	}
}

type stubConverter struct{ out string }

func (s stubConverter) Accepts(info StreamInfo) bool { return info.Extension == ".stub" }

func (s stubConverter) Convert(r io.ReadSeeker, info StreamInfo) (*DocumentConverterResult, error) {
	return &DocumentConverterResult{Markdown: s.out}, nil
}

func TestWithConverter(t *testing.T) {
	m := New(WithConverter("stub", stubConverter{out: "stubbed  \r\n"}, PrioritySpecific))
	result, err := m.ConvertReader(strings.NewReader(""), StreamInfo{Extension: ".stub"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Markdown != "stubbed" {
		t.Errorf("Markdown = %q, want %q", result.Markdown, "stubbed")
	}
}

func TestNormalization(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trailing whitespace", "hello   \nworld   \n", "hello\nworld"},
		{"multiple newlines", "hello\n\n\n\n\nworld", "hello\n\nworld"},
		{"crlf", "hello\r\nworld\r\n", "hello\nworld"},
		{"lone cr", "hello\rworld", "hello\nworld"},
		{"control characters", "hello\x00world\x01test", "helloworldtest"},
		{"tabs kept", "a\tb", "a\tb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeOutput(tt.input)
			if got != tt.want {
				t.Errorf("normalizeOutput(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestConverterAccepts(t *testing.T) {
	tests := []struct {
		name      string
		converter DocumentConverter
		info      StreamInfo
		want      bool
	}{
		{"pdf by ext", NewPdfConverter(), StreamInfo{Extension: ".pdf"}, true},
		{"pdf by mime", NewPdfConverter(), StreamInfo{MIMEType: "application/pdf"}, true},
		{"pdf wrong ext", NewPdfConverter(), StreamInfo{Extension: ".txt"}, false},
		{"csv by ext", NewCsvConverter(), StreamInfo{Extension: ".csv"}, true},
		{"csv by mime", NewCsvConverter(), StreamInfo{MIMEType: "text/csv"}, true},
		{"html by ext", NewHTMLConverter(nil), StreamInfo{Extension: ".html"}, true},
		{"html by mime", NewHTMLConverter(nil), StreamInfo{MIMEType: "text/html"}, true},
		{"plaintext txt", NewPlainTextConverter(), StreamInfo{Extension: ".txt"}, true},
		{"plaintext json", NewPlainTextConverter(), StreamInfo{Extension: ".json"}, true},
		{"plaintext xml", NewPlainTextConverter(), StreamInfo{Extension: ".xml"}, true},
		{"plaintext pdf", NewPlainTextConverter(), StreamInfo{Extension: ".pdf", MIMEType: "application/pdf"}, false},
		{"feed rss", NewFeedConverter(), StreamInfo{Extension: ".rss"}, true},
		{"feed xml", NewFeedConverter(), StreamInfo{Extension: ".xml"}, true},
		{"docx by ext", NewDocxConverter(nil), StreamInfo{Extension: ".docx"}, true},
		{"doc is not docx", NewDocxConverter(nil), StreamInfo{Extension: ".doc"}, false},
		{"pptx by ext", NewPptxConverter(), StreamInfo{Extension: ".pptx"}, true},
		{"ppt is not pptx", NewPptxConverter(), StreamInfo{Extension: ".ppt"}, false},
		{"xlsx by ext", NewXlsxConverter(), StreamInfo{Extension: ".xlsx"}, true},
		{"xls by ext", NewXlsConverter(), StreamInfo{Extension: ".xls"}, true},
		{"image webp", NewImageConverter(), StreamInfo{Extension: ".webp"}, true},
		{"image by mime", NewImageConverter(), StreamInfo{MIMEType: "image/tiff"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.converter.Accepts(tt.info)
			if got != tt.want {
				t.Errorf("Accepts() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRenderMarkdownTable(t *testing.T) {
	got := renderMarkdownTable([][]string{{"a", "b"}, {"1"}, {"x|y", "line\nbreak"}, {"", ""}})
	want := "| a | b |\n| --- | --- |\n| 1 |  |\n| x\\|y | line<br>break |\n"
	if got != want {
		t.Errorf("renderMarkdownTable() = %q, want %q", got, want)
	}
	if renderMarkdownTable(nil) != "" {
		t.Error("empty input should render nothing")
	}
}

func truncate(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
