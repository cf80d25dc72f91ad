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
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLConverter handles HTML files and serves as the rendering back end of the DOCX converter.
type HTMLConverter struct {
	markitdown *MarkItDown
}

// NewHTMLConverter creates a new HTMLConverter.
func NewHTMLConverter(m *MarkItDown) *HTMLConverter {
	return &HTMLConverter{markitdown: m}
}

func (c *HTMLConverter) Accepts(info StreamInfo) bool {
	switch info.Extension {
	case ".html", ".htm", ".xhtml":
		return true
	}
	mime := strings.ToLower(info.MIMEType)
	return strings.HasPrefix(mime, "text/html") || strings.HasPrefix(mime, "application/xhtml")
}

func (c *HTMLConverter) Convert(reader io.ReadSeeker, info StreamInfo) (*DocumentConverterResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return c.ConvertString(decodeText(data, info))
}

// ConvertString converts an HTML document or fragment to Markdown.
func (c *HTMLConverter) ConvertString(doc string) (*DocumentConverterResult, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}
	title := findTitle(root)
	stripNodes(root, atom.Script, atom.Style, atom.Noscript)

	var buf strings.Builder
	if err := html.Render(&buf, root); err != nil {
		return nil, fmt.Errorf("render HTML: %w", err)
	}
	md, err := convertHTMLToMarkdown(buf.String())
	if err != nil {
		return nil, fmt.Errorf("convert HTML to markdown: %w", err)
	}
	if c.markitdown == nil || !c.markitdown.keepDataURIs {
		md = reDataURI.ReplaceAllString(md, "${1}...")
	}
	return &DocumentConverterResult{Markdown: md, Title: title}, nil
}

var reDataURI = regexp.MustCompile(`(data:[a-zA-Z0-9/+.-]+;base64,)[A-Za-z0-9+/=]{64,}`)

func convertHTMLToMarkdown(doc string) (string, error) {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(commonmark.WithHeadingStyle("atx")),
			table.NewTablePlugin(),
		),
	)
	return conv.ConvertString(doc)
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.Title {
		if n.FirstChild != nil {
			return strings.TrimSpace(n.FirstChild.Data)
		}
		return ""
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		if t := findTitle(ch); t != "" {
			return t
		}
	}
	return ""
}

// stripNodes removes every element of the given kinds, including their content.
func stripNodes(n *html.Node, kinds ...atom.Atom) {
	for ch := n.FirstChild; ch != nil; {
		next := ch.NextSibling
		drop := false
		if ch.Type == html.ElementNode {
			for _, k := range kinds {
				if ch.DataAtom == k {
					drop = true
					break
				}
			}
		}
		if drop {
			n.RemoveChild(ch)
		} else {
			stripNodes(ch, kinds...)
		}
		ch = next
	}
}
