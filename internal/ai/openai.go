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
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

const openAIBaseURL = "https://api.openai.com/v1"

var openAIChatPrefixes = []string{"gpt-4", "gpt-3.5", "o1"}

type openAIBackend struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

func newOpenAIBackend(baseURL, apiKey, model string, client *http.Client) *openAIBackend {
	if baseURL == "" {
		baseURL = openAIBaseURL
	}
	return &openAIBackend{client: client, baseURL: strings.TrimSuffix(baseURL, "/"), apiKey: apiKey, model: model}
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

// chatMessage content is a plain string for text prompts and a part list for vision prompts.
type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (b *openAIBackend) complete(ctx context.Context, req request) (string, error) {
	msg := chatMessage{Role: "user", Content: req.prompt}
	if req.image != nil {
		msg.Content = []chatPart{
			{Type: "text", Text: req.prompt},
			{Type: "image_url", ImageURL: &imageURL{
				URL:    "data:" + req.mimeType + ";base64," + base64.StdEncoding.EncodeToString(req.image),
				Detail: "low",
			}},
		}
	}
	body, err := json.Marshal(chatRequest{Model: b.model, Messages: []chatMessage{msg}, MaxTokens: req.maxTokens})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var resp chatResponse
	if err := b.call(ctx, http.MethodPost, "/chat/completions", body, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

func (b *openAIBackend) models(ctx context.Context) ([]string, error) {
	var resp struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := b.call(ctx, http.MethodGet, "/models", nil, &resp); err != nil {
		return nil, err
	}
	ids := []string{}
	for _, m := range resp.Data {
		if isOpenAIChatModel(m.ID) {
			ids = append(ids, m.ID)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}

func isOpenAIChatModel(id string) bool {
	if strings.Contains(id, "audio") || strings.Contains(id, "realtime") {
		return false
	}
	for _, p := range openAIChatPrefixes {
		if strings.HasPrefix(id, p) {
			return true
		}
	}
	return false
}

func (b *openAIBackend) call(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &APIError{Provider: OpenAI, StatusCode: resp.StatusCode, Message: openAIErrorMessage(data)}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func openAIErrorMessage(body []byte) string {
	var resp chatResponse
	if json.Unmarshal(body, &resp) == nil && resp.Error != nil && resp.Error.Message != "" {
		return resp.Error.Message
	}
	return strings.TrimSpace(string(body))
}
