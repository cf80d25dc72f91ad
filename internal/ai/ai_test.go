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
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProvider(t *testing.T) {
	p, err := ParseProvider(" OpenAI ")
	require.NoError(t, err)
	assert.Equal(t, OpenAI, p)

	p, err = ParseProvider("gemini")
	require.NoError(t, err)
	assert.Equal(t, Gemini, p)

	_, err = ParseProvider("claude")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestNewDefaults(t *testing.T) {
	c, err := New(Config{Provider: "openai"})
	require.NoError(t, err)
	assert.Equal(t, DefaultOpenAIModel, c.Model())

	c, err = New(Config{Provider: "gemini", Model: "gemini-2.0-pro"})
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.0-pro", c.Model())
	assert.Equal(t, Gemini, c.Provider())

	_, err = New(Config{Provider: "custom", APIKey: "k"})
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestNoAPIKey(t *testing.T) {
	c, err := New(Config{Provider: "openai"})
	require.NoError(t, err)

	_, err = c.SummarizeText(context.Background(), "text", 0)
	assert.ErrorIs(t, err, ErrNoAPIKey)
	_, err = c.DescribeImage(context.Background(), []byte{1}, "image/png", "describe")
	assert.ErrorIs(t, err, ErrNoAPIKey)
	assert.Empty(t, ListAvailableModels(context.Background(), Config{Provider: "openai"}))
}

func TestTruncate(t *testing.T) {
	short := strings.Repeat("x", truncateThreshold)
	assert.Equal(t, short, Truncate(short))

	long := strings.Repeat("a", 8000) + strings.Repeat("m", 2000) + strings.Repeat("z", 2000)
	got := Truncate(long)
	assert.Len(t, got, 10005)
	assert.Equal(t, strings.Repeat("a", 8000)+"\n...\n"+strings.Repeat("z", 2000), got)

	// Counted in characters, not bytes.
	jp := strings.Repeat("日", 12000)
	assert.Equal(t, 10005, utf8.RuneCountInString(Truncate(jp)))
}

type openAIServer struct {
	*httptest.Server
	lastBody  chatRequestCapture
	lastAuth  string
	requests  atomic.Int32
	reply     string
	status    int
	modelList []string
}

type chatRequestCapture struct {
	Model     string            `json:"model"`
	MaxTokens int               `json:"max_tokens"`
	Messages  []json.RawMessage `json:"messages"`
}

func newOpenAIServer(t *testing.T) *openAIServer {
	s := &openAIServer{reply: "ok", status: http.StatusOK}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		s.lastAuth = r.Header.Get("Authorization")
		if s.status != http.StatusOK {
			w.WriteHeader(s.status)
			_, _ = io.WriteString(w, `{"error":{"message":"quota exceeded"}}`)
			return
		}
		switch r.URL.Path {
		case "/chat/completions":
			body, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(body, &s.lastBody))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"choices": []any{map[string]any{"message": map[string]any{"content": "  " + s.reply + "\n"}}},
			})
		case "/models":
			data := make([]any, len(s.modelList))
			for i, id := range s.modelList {
				data[i] = map[string]any{"id": id}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *openAIServer) client(t *testing.T) *Client {
	c, err := New(Config{Provider: "openai", APIKey: "sk-test", BaseURL: s.URL, HTTPClient: s.Client()})
	require.NoError(t, err)
	return c
}

func TestOpenAISummarizeTruncatesPayload(t *testing.T) {
	srv := newOpenAIServer(t)
	srv.reply = "```yaml\nsummary: \"short\"\ntags: [a, b]\n```"

	long := strings.Repeat("a", 8000) + strings.Repeat("Q", 2000) + strings.Repeat("z", 2000)
	out, err := srv.client(t).SummarizeText(context.Background(), long, 0)
	require.NoError(t, err)
	assert.Equal(t, srv.reply, out)

	assert.Equal(t, "Bearer sk-test", srv.lastAuth)
	assert.Equal(t, DefaultOpenAIModel, srv.lastBody.Model)
	assert.Equal(t, summaryMaxTokens, srv.lastBody.MaxTokens)
	require.Len(t, srv.lastBody.Messages, 1)

	var msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	require.NoError(t, json.Unmarshal(srv.lastBody.Messages[0], &msg))
	assert.Equal(t, "user", msg.Role)
	payload := Truncate(long)
	assert.Len(t, payload, 10005)
	assert.True(t, strings.HasSuffix(msg.Content, "Text:\n"+payload))
	assert.NotContains(t, msg.Content, "Q", "the middle of the input is never sent")
	assert.Contains(t, msg.Content, "summary:")
	assert.Contains(t, msg.Content, "tags:")
}

func TestOpenAIDescribeImage(t *testing.T) {
	srv := newOpenAIServer(t)
	srv.reply = "A bar chart."

	out, err := srv.client(t).DescribeImage(context.Background(), []byte("PNGDATA"), "image/png", "What is this?")
	require.NoError(t, err)
	assert.Equal(t, "A bar chart.", out)
	assert.Equal(t, visionMaxTokens, srv.lastBody.MaxTokens)

	var msg struct {
		Content []chatPart `json:"content"`
	}
	require.NoError(t, json.Unmarshal(srv.lastBody.Messages[0], &msg))
	require.Len(t, msg.Content, 2)
	assert.Equal(t, "What is this?", msg.Content[0].Text)
	require.NotNil(t, msg.Content[1].ImageURL)
	assert.Equal(t, "data:image/png;base64,UE5HREFUQQ==", msg.Content[1].ImageURL.URL)
	assert.Equal(t, "low", msg.Content[1].ImageURL.Detail)
}

func TestOpenAIErrors(t *testing.T) {
	srv := newOpenAIServer(t)
	srv.status = http.StatusTooManyRequests

	_, err := srv.client(t).SummarizeText(context.Background(), "text", 50)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "quota exceeded", apiErr.Message)

	srv.status = http.StatusOK
	srv.reply = ""
	_, err = srv.client(t).SummarizeText(context.Background(), "text", 50)
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestOpenAIModels(t *testing.T) {
	srv := newOpenAIServer(t)
	srv.modelList = []string{"gpt-4o", "whisper-1", "gpt-4o-audio-preview", "o1-mini", "gpt-3.5-turbo", "gpt-4o-realtime", "dall-e-3", "gpt-4o-mini"}

	ids, err := srv.client(t).Models(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"o1-mini", "gpt-4o-mini", "gpt-4o", "gpt-3.5-turbo"}, ids)

	got := ListAvailableModels(context.Background(), Config{Provider: "openai", APIKey: "k", BaseURL: srv.URL, HTTPClient: srv.Client()})
	assert.Equal(t, ids, got)

	srv.status = http.StatusUnauthorized
	got = ListAvailableModels(context.Background(), Config{Provider: "openai", APIKey: "k", BaseURL: srv.URL, HTTPClient: srv.Client()})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRateLimiterHonoursContext(t *testing.T) {
	srv := newOpenAIServer(t)
	c, err := New(Config{Provider: "openai", APIKey: "k", BaseURL: srv.URL, HTTPClient: srv.Client(), RequestsPerSecond: 0.001})
	require.NoError(t, err)

	_, err = c.SummarizeText(context.Background(), "first", 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.SummarizeText(ctx, "second", 0)
	assert.Error(t, err)
	assert.Equal(t, int32(1), srv.requests.Load())
}

func newGeminiServer(t *testing.T, handler http.HandlerFunc) *Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(Config{Provider: "gemini", APIKey: "g-key", BaseURL: srv.URL, HTTPClient: srv.Client()})
	require.NoError(t, err)
	return c
}

func TestGeminiDescribeImage(t *testing.T) {
	var got struct {
		Contents []struct {
			Role  string `json:"role"`
			Parts []struct {
				Text       string `json:"text"`
				InlineData *struct {
					MimeType string `json:"mimeType"`
					Data     string `json:"data"`
				} `json:"inlineData"`
			} `json:"parts"`
		} `json:"contents"`
		GenerationConfig struct {
			MaxOutputTokens int `json:"maxOutputTokens"`
		} `json:"generationConfig"`
	}
	var key, path, method, query string
	c := newGeminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		key = r.Header.Get("x-goog-api-key")
		path = r.URL.Path
		method = r.Method
		query = r.URL.RawQuery
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"Two "},{"text":"cats."}]}}]}`)
	})

	out, err := c.DescribeImage(context.Background(), []byte("GIF89a"), "image/gif", "Describe")
	require.NoError(t, err)
	assert.Equal(t, "Two cats.", out)
	assert.Equal(t, "g-key", key)
	assert.Equal(t, "/v1beta/models/"+DefaultGeminiModel+":generateContent", path)
	assert.Equal(t, http.MethodPost, method)
	assert.Empty(t, query)

	require.Len(t, got.Contents, 1)
	parts := got.Contents[0].Parts
	require.Len(t, parts, 2)
	assert.Equal(t, "Describe", parts[0].Text)
	require.NotNil(t, parts[1].InlineData)
	assert.Equal(t, "image/gif", parts[1].InlineData.MimeType)
	assert.Equal(t, "R0lGODlh", parts[1].InlineData.Data)
	assert.Equal(t, visionMaxTokens, got.GenerationConfig.MaxOutputTokens)
}

func TestGeminiErrors(t *testing.T) {
	c := newGeminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`)
	})
	_, err := c.SummarizeText(context.Background(), "text", 0)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, Gemini, apiErr.Provider)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "API key not valid")

	empty := newGeminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"candidates":[]}`)
	})
	_, err = empty.SummarizeText(context.Background(), "text", 0)
	assert.ErrorIs(t, err, ErrEmptyCompletion)

	gateway := newGeminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "upstream unavailable\n")
	})
	_, err = gateway.SummarizeText(context.Background(), "text", 0)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream unavailable", apiErr.Message)
}

func TestGeminiModelResource(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`)
	}))
	t.Cleanup(srv.Close)
	c, err := New(Config{Provider: "gemini", Model: "models/gemini-2.0-pro", APIKey: "g", BaseURL: srv.URL + "/", HTTPClient: srv.Client()})
	require.NoError(t, err)

	_, err = c.SummarizeText(context.Background(), "text", 0)
	require.NoError(t, err)
	assert.Equal(t, "/v1beta/models/gemini-2.0-pro:generateContent", path)
}

func TestGeminiModels(t *testing.T) {
	var pages []string
	c := newGeminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "g-key", r.Header.Get("x-goog-api-key"))
		pages = append(pages, r.URL.Query().Get("pageToken"))
		if r.URL.Query().Get("pageToken") == "" {
			_, _ = io.WriteString(w, `{"models":[
				{"name":"models/gemini-1.5-flash","supportedGenerationMethods":["generateContent","countTokens"]},
				{"name":"models/text-embedding-004","supportedGenerationMethods":["embedContent"]}
			],"nextPageToken":"p2"}`)
			return
		}
		_, _ = io.WriteString(w, `{"models":[{"name":"models/gemini-2.0-flash","supportedGenerationMethods":["generateContent"]}]}`)
	})

	ids, err := c.Models(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"gemini-2.0-flash", "gemini-1.5-flash"}, ids)
	assert.Equal(t, []string{"", "p2"}, pages)
}
