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
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"sort"
	"strings"

	"google.golang.org/api/googleapi"
)

const (
	geminiBaseURL        = "https://generativelanguage.googleapis.com"
	geminiGenerateMethod = "generateContent"
)

type geminiBackend struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

func newGeminiBackend(baseURL, apiKey, model string, client *http.Client) *geminiBackend {
	if baseURL == "" {
		baseURL = geminiBaseURL
	}
	return &geminiBackend{client: client, baseURL: strings.TrimSuffix(baseURL, "/"), apiKey: apiKey, model: model}
}

type geminiPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *geminiBlob `json:"inlineData,omitempty"`
}

type geminiBlob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type generateRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		MaxOutputTokens int `json:"maxOutputTokens,omitempty"`
	} `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content *geminiContent `json:"content"`
	} `json:"candidates"`
}

type listModelsResponse struct {
	Models []struct {
		Name                       string   `json:"name"`
		SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
	} `json:"models"`
	NextPageToken string `json:"nextPageToken"`
}

func modelResource(model string) string {
	if strings.HasPrefix(model, "models/") {
		return model
	}
	return "models/" + model
}

func (b *geminiBackend) complete(ctx context.Context, req request) (string, error) {
	parts := []geminiPart{{Text: req.prompt}}
	if req.image != nil {
		parts = append(parts, geminiPart{InlineData: &geminiBlob{
			MimeType: req.mimeType,
			Data:     base64.StdEncoding.EncodeToString(req.image),
		}})
	}
	gr := generateRequest{Contents: []geminiContent{{Role: "user", Parts: parts}}}
	gr.GenerationConfig.MaxOutputTokens = req.maxTokens
	body, err := json.Marshal(gr)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var resp generateResponse
	endpoint := "/v1beta/" + modelResource(b.model) + ":" + geminiGenerateMethod
	if err := b.call(ctx, http.MethodPost, endpoint, body, &resp); err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyCompletion
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}

func (b *geminiBackend) models(ctx context.Context) ([]string, error) {
	ids := []string{}
	token := ""
	for {
		endpoint := "/v1beta/models"
		if token != "" {
			endpoint += "?" + url.Values{"pageToken": {token}}.Encode()
		}
		var page listModelsResponse
		if err := b.call(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}
		for _, m := range page.Models {
			if slices.Contains(m.SupportedGenerationMethods, geminiGenerateMethod) {
				ids = append(ids, strings.TrimPrefix(m.Name, "models/"))
			}
		}
		if page.NextPageToken == "" || page.NextPageToken == token {
			break
		}
		token = page.NextPageToken
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}

// call sends the API key as a header so it never appears in request URLs or logs.
func (b *geminiBackend) call(ctx context.Context, method, endpoint string, body []byte, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("x-goog-api-key", b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if err := googleapi.CheckResponse(resp); err != nil {
		return geminiError(err)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func geminiError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		msg := gerr.Message
		if msg == "" {
			msg = strings.TrimSpace(gerr.Body)
		}
		return &APIError{Provider: Gemini, StatusCode: gerr.Code, Message: msg}
	}
	return err
}
