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

	"github.com/mmcdole/gofeed"
)

// FeedConverter renders RSS and Atom feeds. Plain .xml files are offered to it first; anything
// gofeed rejects falls through to the plain-text converter.
type FeedConverter struct{}

// NewFeedConverter creates a new FeedConverter.
func NewFeedConverter() *FeedConverter {
	return &FeedConverter{}
}

func (c *FeedConverter) Accepts(info StreamInfo) bool {
	switch info.Extension {
	case ".rss", ".atom", ".xml":
		return true
	}
	mime := strings.ToLower(info.MIMEType)
	return strings.HasPrefix(mime, "application/rss") ||
		strings.HasPrefix(mime, "application/atom") ||
		strings.HasPrefix(mime, "text/xml") ||
		strings.HasPrefix(mime, "application/xml")
}

func (c *FeedConverter) Convert(reader io.ReadSeeker, info StreamInfo) (*DocumentConverterResult, error) {
	feed, err := gofeed.NewParser().Parse(reader)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	var b strings.Builder
	if feed.Title != "" {
		fmt.Fprintf(&b, "# %s\n\n", feed.Title)
	}
	if feed.Description != "" {
		b.WriteString(htmlFragment(feed.Description) + "\n\n")
	}

	for _, item := range feed.Items {
		if item.Title != "" {
			fmt.Fprintf(&b, "## %s\n\n", item.Title)
		}
		switch {
		case item.Published != "":
			fmt.Fprintf(&b, "Published: %s\n\n", item.Published)
		case item.Updated != "":
			fmt.Fprintf(&b, "Updated: %s\n\n", item.Updated)
		}
		if item.Link != "" {
			fmt.Fprintf(&b, "<%s>\n\n", item.Link)
		}
		body := item.Content
		if body == "" {
			body = item.Description
		}
		if body != "" {
			b.WriteString(htmlFragment(body) + "\n\n")
		}
	}

	return &DocumentConverterResult{Markdown: b.String(), Title: feed.Title}, nil
}

// htmlFragment converts embedded HTML to Markdown and leaves anything else alone.
func htmlFragment(s string) string {
	if !strings.Contains(s, "<") || !strings.Contains(s, ">") {
		return s
	}
	md, err := convertHTMLToMarkdown(s)
	if err != nil {
		return s
	}
	return md
}
