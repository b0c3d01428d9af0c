// Package openai streams chat completions from OpenAI-compatible APIs.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/folio/pkg/llm"
	"github.com/papercomputeco/folio/pkg/sse"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
)

// Config holds configuration for the OpenAI client.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string

	// HTTPClient overrides the default client. Streaming responses are
	// long-lived, so it should not set a short overall Timeout.
	HTTPClient *http.Client
}

// Client implements llm.Streamer.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// New creates an OpenAI client. It returns llm.ErrMissingCredentials when
// no API key is configured.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai api key is not set", llm.ErrMissingCredentials)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Transport: &http.Transport{ResponseHeaderTimeout: 60 * time.Second}}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: cfg.HTTPClient,
	}, nil
}

func (c *Client) Name() string {
	return "openai"
}

// Stream implements llm.Streamer.
func (c *Client) Stream(ctx context.Context, req *llm.ChatRequest) iter.Seq2[*llm.StreamChunk, error] {
	return func(yield func(*llm.StreamChunk, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		resp, err := c.send(ctx, req)
		if err != nil {
			yield(nil, err)
			return
		}
		defer resp.Body.Close()

		r := sse.NewReader(resp.Body)
		for {
			ev, err := r.Next()
			if err != nil {
				yield(nil, fmt.Errorf("reading openai stream: %w", err))
				return
			}
			if ev == nil || ev.IsDone() {
				return
			}

			chunk, err := ParseStreamChunk([]byte(ev.Data))
			if err != nil {
				yield(nil, err)
				return
			}
			if chunk == nil {
				continue
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

func (c *Client) send(ctx context.Context, req *llm.ChatRequest) (*http.Response, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	body := openaiRequest{
		Model:         model,
		MaxTokens:     req.MaxTokens,
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		Stop:          req.Stop,
		Stream:        true,
		StreamOptions: &streamOptions{IncludeUsage: true},
	}
	if req.System != "" {
		body.Messages = append(body.Messages, openaiMessage{Role: llm.RoleSystem, Content: req.System})
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, openaiMessage{Role: m.Role, Content: m.GetText()})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling openai request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating openai request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending openai request: %w", err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := string(raw)
		var apiErr openaiError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		return nil, &llm.StatusError{Provider: "openai", StatusCode: resp.StatusCode, Body: msg}
	}
	return resp, nil
}

// ParseStreamChunk converts one "data:" payload into a chunk. It returns
// (nil, nil) for events without content, such as the initial role delta.
func ParseStreamChunk(payload []byte) (*llm.StreamChunk, error) {
	var chunk openaiChunk
	if err := json.Unmarshal(payload, &chunk); err != nil {
		return nil, fmt.Errorf("decoding openai chunk: %w", err)
	}

	out := &llm.StreamChunk{
		Model: chunk.Model,
		Message: llm.Message{
			Role: llm.RoleAssistant,
		},
	}
	if chunk.Created > 0 {
		out.CreatedAt = time.Unix(chunk.Created, 0)
	}
	if chunk.Usage != nil {
		out.Usage = &llm.Usage{
			PromptTokens:     chunk.Usage.PromptTokens,
			CompletionTokens: chunk.Usage.CompletionTokens,
			TotalTokens:      chunk.Usage.TotalTokens,
		}
	}

	if len(chunk.Choices) > 0 {
		choice := chunk.Choices[0]
		if choice.Delta.Content != "" {
			out.Message.Content = []llm.ContentBlock{{Type: "text", Text: choice.Delta.Content}}
		}
		if choice.FinishReason != nil {
			out.Done = true
			out.StopReason = *choice.FinishReason
		}
	}

	if len(out.Message.Content) == 0 && !out.Done && out.Usage == nil {
		return nil, nil
	}
	return out, nil
}

var _ llm.Streamer = (*Client)(nil)
