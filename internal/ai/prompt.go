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

package ai

import (
	"fmt"
	"strings"
)

const (
	truncateThreshold = 10000
	truncateHead      = 8000
	truncateTail      = 2000
	truncateMarker    = "\n...\n"
)

// Truncate bounds text sent for summarization: input longer than 10000 characters keeps its first 8000
// and last 2000 characters joined by an ellipsis line.
func Truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= truncateThreshold {
		return text
	}
	return string(runes[:truncateHead]) + truncateMarker + string(runes[len(runes)-truncateTail:])
}

func summaryPrompt(text string, maxWords int) string {
	var b strings.Builder
	b.WriteString("Analyze the following text and provide:\n")
	fmt.Fprintf(&b, "1. A concise summary (max 3 sentences, at most %d words).\n", maxWords)
	b.WriteString("2. 5 key tags/keywords.\n\n")
	b.WriteString("Format output as YAML Block:\n")
	b.WriteString("```yaml\nsummary: \"...\"\ntags: [tag1, tag2]\n```\n\n")
	b.WriteString("Text:\n")
	b.WriteString(text)
	return b.String()
}
