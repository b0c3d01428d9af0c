// Package gemini streams completions from the Gemini API via genai.
package gemini

import (
	"context"
	"fmt"
	"iter"

	"google.golang.org/genai"

	"github.com/papercomputeco/folio/pkg/llm"
)

const DefaultModel = "gemini-2.0-flash"

// Config holds configuration for the Gemini client.
type Config struct {
	APIKey string
	Model  string

	// BaseURL overrides the API endpoint. Used by tests.
	BaseURL string
}

// Client implements llm.Streamer.
type Client struct {
	client *genai.Client
	model  string
}

// New creates a Gemini client. It returns llm.ErrMissingCredentials when no
// API key is configured.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini api key is not set", llm.ErrMissingCredentials)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &Client{client: client, model: cfg.Model}, nil
}

func (c *Client) Name() string {
	return "gemini"
}

// Stream implements llm.Streamer.
func (c *Client) Stream(ctx context.Context, req *llm.ChatRequest) iter.Seq2[*llm.StreamChunk, error] {
	model := req.Model
	if model == "" {
		model = c.model
	}
	contents, config := toGenai(req)

	return func(yield func(*llm.StreamChunk, error) bool) {
		for resp, err := range c.client.Models.GenerateContentStream(ctx, model, contents, config) {
			if err != nil {
				yield(nil, fmt.Errorf("gemini stream: %w", err))
				return
			}
			if !yield(fromGenai(model, resp), nil) {
				return
			}
		}
	}
}

// toGenai maps a chat request onto genai contents. Gemini calls the
// assistant role "model".
func toGenai(req *llm.ChatRequest) ([]*genai.Content, *genai.GenerateContentConfig) {
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := genai.Role(genai.RoleUser)
		if m.Role == llm.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.GetText(), role))
	}

	config := &genai.GenerateContentConfig{StopSequences: req.Stop}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	if req.TopP != nil {
		config.TopP = genai.Ptr(float32(*req.TopP))
	}
	if req.MaxTokens != nil {
		config.MaxOutputTokens = int32(*req.MaxTokens)
	}
	return contents, config
}

func fromGenai(model string, resp *genai.GenerateContentResponse) *llm.StreamChunk {
	chunk := &llm.StreamChunk{
		Model:   model,
		Message: llm.Message{Role: llm.RoleAssistant},
	}
	if resp.ModelVersion != "" {
		chunk.Model = resp.ModelVersion
	}
	if text := resp.Text(); text != "" {
		chunk.Message.Content = []llm.ContentBlock{{Type: "text", Text: text}}
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != "" {
		chunk.Done = true
		chunk.StopReason = string(resp.Candidates[0].FinishReason)
	}
	if u := resp.UsageMetadata; u != nil {
		chunk.Usage = &llm.Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return chunk
}

var _ llm.Streamer = (*Client)(nil)
