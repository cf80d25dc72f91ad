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

package pipeline

import (
	"bytes"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Frontmatter is the YAML block written at the top of every Markdown file.
type Frontmatter struct {
	Source      string   `yaml:"source"`
	ConvertedAt string   `yaml:"converted_at"`
	Summary     string   `yaml:"summary,omitempty"`
	Tags        []string `yaml:"tags,omitempty"`
}

// SummaryBlock is what the summarizer is asked to answer with.
type SummaryBlock struct {
	Summary string   `yaml:"summary"`
	Tags    []string `yaml:"tags"`
}

var fencedYAML = regexp.MustCompile("(?s)```(?:ya?ml)?[ \\t]*\\n(.*?)```")

// ParseSummary reads the summarizer's answer. The fenced block is preferred; an unfenced answer is parsed
// as YAML as-is, and anything that is not a YAML mapping becomes the summary text.
func ParseSummary(answer string) SummaryBlock {
	body := strings.TrimSpace(answer)
	if m := fencedYAML.FindStringSubmatch(body); m != nil {
		body = strings.TrimSpace(m[1])
	}
	var block SummaryBlock
	if err := yaml.Unmarshal([]byte(body), &block); err != nil || block.Summary == "" {
		return SummaryBlock{Summary: strings.TrimSpace(answer)}
	}
	block.Summary = strings.TrimSpace(block.Summary)
	return block
}

func newFrontmatter(source string, at time.Time, summary *SummaryBlock) Frontmatter {
	fm := Frontmatter{Source: source, ConvertedAt: at.Format(time.RFC3339)}
	if summary != nil {
		fm.Summary = summary.Summary
		fm.Tags = summary.Tags
	}
	return fm
}

// Render returns the block delimited by --- lines, followed by a blank line.
func (fm Frontmatter) Render() (string, error) {
	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(fm); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	buf.WriteString("---\n\n")
	return buf.String(), nil
}

// SplitFrontmatter separates a leading frontmatter block from the Markdown body. Text without one is
// returned whole as the body.
func SplitFrontmatter(doc string) (Frontmatter, string, bool) {
	if !strings.HasPrefix(doc, "---\n") {
		return Frontmatter{}, doc, false
	}
	end := strings.Index(doc[4:], "\n---\n")
	if end < 0 {
		return Frontmatter{}, doc, false
	}
	var fm Frontmatter
	if err := yaml.Unmarshal([]byte(doc[4:4+end+1]), &fm); err != nil {
		return Frontmatter{}, doc, false
	}
	return fm, strings.TrimLeft(doc[4+end+5:], "\n"), true
}
