package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"

	"github.com/papercomputeco/folio/pkg/llm"
)

const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.2"
)

// Config holds configuration for the Ollama client.
type Config struct {
	BaseURL    string
	Model      string
	KeepAlive  string
	HTTPClient *http.Client
}

// Client implements llm.Streamer. Ollama needs no credentials.
type Client struct {
	baseURL    string
	model      string
	keepAlive  string
	httpClient *http.Client
}

// New creates an Ollama client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		keepAlive:  cfg.KeepAlive,
		httpClient: cfg.HTTPClient,
	}
}

func (c *Client) Name() string {
	return "ollama"
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

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}

			chunk, err := ParseStreamChunk(line)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(chunk, nil) || chunk.Done {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(nil, fmt.Errorf("reading ollama stream: %w", err))
		}
	}
}

func (c *Client) send(ctx context.Context, req *llm.ChatRequest) (*http.Response, error) {
	body := ollamaRequest{
		Model:     req.Model,
		Stream:    true,
		KeepAlive: c.keepAlive,
	}
	if body.Model == "" {
		body.Model = c.model
	}
	if req.Temperature != nil || req.TopP != nil || req.MaxTokens != nil || len(req.Stop) > 0 {
		body.Options = &ollamaOptions{
			Temperature: req.Temperature,
			TopP:        req.TopP,
			NumPredict:  req.MaxTokens,
			Stop:        req.Stop,
		}
	}
	if req.System != "" {
		body.Messages = append(body.Messages, ollamaMessage{Role: llm.RoleSystem, Content: req.System})
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, ollamaMessage{Role: m.Role, Content: m.GetText()})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling ollama request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating ollama request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending ollama request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &llm.StatusError{Provider: "ollama", StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, nil
}

// ParseStreamChunk converts one NDJSON line into a chunk.
func ParseStreamChunk(payload []byte) (*llm.StreamChunk, error) {
	var resp ollamaResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("decoding ollama chunk: %w", err)
	}
	if resp.Error != "" {
		return nil, errors.New("ollama stream error: " + resp.Error)
	}

	chunk := &llm.StreamChunk{
		Model:     resp.Model,
		CreatedAt: resp.CreatedAt,
		Message:   llm.Message{Role: llm.RoleAssistant},
		Done:      resp.Done,
	}
	if resp.Message.Content != "" {
		chunk.Message.Content = []llm.ContentBlock{{Type: "text", Text: resp.Message.Content}}
	}
	if resp.Done {
		chunk.StopReason = resp.DoneReason
		if chunk.StopReason == "" {
			chunk.StopReason = "stop"
		}
		chunk.Usage = &llm.Usage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
			TotalDurationNs:  resp.TotalDuration,
		}
	}
	return chunk, nil
}

var _ llm.Streamer = (*Client)(nil)
