// Package anthropic streams completions from Anthropic's Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
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
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-3-5-haiku-latest"
	APIVersion       = "2023-06-01"
	defaultMaxTokens = 1024
)

// Config holds configuration for the Anthropic client.
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
}

// Client implements llm.Streamer.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// New creates an Anthropic client. It returns llm.ErrMissingCredentials when
// no API key is configured.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: anthropic api key is not set", llm.ErrMissingCredentials)
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
	return "anthropic"
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

		var model string
		r := sse.NewReader(resp.Body)
		for {
			ev, err := r.Next()
			if err != nil {
				yield(nil, fmt.Errorf("reading anthropic stream: %w", err))
				return
			}
			if ev == nil {
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
			if chunk.Model != "" {
				model = chunk.Model
			} else {
				chunk.Model = model
			}
			if !yield(chunk, nil) {
				return
			}
			if chunk.StopReason == "message_stop" {
				return
			}
		}
	}
}

func (c *Client) send(ctx context.Context, req *llm.ChatRequest) (*http.Response, error) {
	body := anthropicRequest{
		Model:       req.Model,
		System:      req.System,
		MaxTokens:   defaultMaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.Stop,
		Stream:      true,
	}
	if body.Model == "" {
		body.Model = c.model
	}
	if req.MaxTokens != nil {
		body.MaxTokens = *req.MaxTokens
	}
	for _, m := range req.Messages {
		if m.Role == llm.RoleSystem {
			// Anthropic only takes a top-level system prompt.
			body.System = strings.TrimSpace(body.System + "\n\n" + m.GetText())
			continue
		}
		body.Messages = append(body.Messages, anthropicMessage{Role: m.Role, Content: m.GetText()})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling anthropic request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating anthropic request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", APIVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending anthropic request: %w", err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := string(raw)
		var ev anthropicEvent
		if json.Unmarshal(raw, &ev) == nil && ev.Error != nil {
			msg = ev.Error.Message
		}
		return nil, &llm.StatusError{Provider: "anthropic", StatusCode: resp.StatusCode, Body: msg}
	}
	return resp, nil
}

// ParseStreamChunk converts one streaming event payload into a chunk. Ping
// and block start/stop events yield (nil, nil). An "error" event is returned
// as an error. The final "message_stop" event yields a Done chunk with
// StopReason "message_stop" unless a stop reason was already reported.
func ParseStreamChunk(payload []byte) (*llm.StreamChunk, error) {
	var ev anthropicEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("decoding anthropic event: %w", err)
	}

	switch ev.Type {
	case "message_start":
		if ev.Message == nil {
			return nil, nil
		}
		chunk := &llm.StreamChunk{Model: ev.Message.Model, Message: llm.Message{Role: llm.RoleAssistant}}
		if ev.Message.Usage != nil {
			chunk.Usage = &llm.Usage{PromptTokens: ev.Message.Usage.InputTokens}
		}
		return chunk, nil

	case "content_block_delta":
		if ev.Delta == nil || ev.Delta.Text == "" {
			return nil, nil
		}
		return &llm.StreamChunk{
			Message: llm.NewTextMessage(llm.RoleAssistant, ev.Delta.Text),
		}, nil

	case "message_delta":
		chunk := &llm.StreamChunk{Message: llm.Message{Role: llm.RoleAssistant}, Done: true}
		if ev.Delta != nil {
			chunk.StopReason = ev.Delta.StopReason
		}
		if ev.Usage != nil {
			chunk.Usage = &llm.Usage{CompletionTokens: ev.Usage.OutputTokens}
		}
		return chunk, nil

	case "message_stop":
		return &llm.StreamChunk{Message: llm.Message{Role: llm.RoleAssistant}, Done: true, StopReason: "message_stop"}, nil

	case "error":
		msg := "unknown error"
		if ev.Error != nil {
			msg = ev.Error.Type + ": " + ev.Error.Message
		}
		return nil, errors.New("anthropic stream error: " + msg)
	}

	return nil, nil
}

var _ llm.Streamer = (*Client)(nil)
