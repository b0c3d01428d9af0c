package testutils

import (
	"context"
	"iter"
	"sync"

	"github.com/papercomputeco/folio/pkg/llm"
)

// MockStreamer is a test llm.Streamer that replays canned tokens.
type MockStreamer struct {
	mu sync.Mutex

	// Tokens are yielded in order, one chunk each.
	Tokens []string

	// Err is yielded after ErrAfter tokens when set.
	Err      error
	ErrAfter int

	requests []*llm.ChatRequest
}

func NewMockStreamer(tokens ...string) *MockStreamer {
	return &MockStreamer{Tokens: tokens}
}

func (m *MockStreamer) Name() string {
	return "mock"
}

func (m *MockStreamer) Stream(_ context.Context, req *llm.ChatRequest) iter.Seq2[*llm.StreamChunk, error] {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	return func(yield func(*llm.StreamChunk, error) bool) {
		for i, tok := range m.Tokens {
			if m.Err != nil && i == m.ErrAfter {
				yield(nil, m.Err)
				return
			}
			if !yield(&llm.StreamChunk{Model: "mock", Message: llm.NewTextMessage(llm.RoleAssistant, tok)}, nil) {
				return
			}
		}
		if m.Err != nil && m.ErrAfter >= len(m.Tokens) {
			yield(nil, m.Err)
			return
		}
		yield(&llm.StreamChunk{Model: "mock", Message: llm.Message{Role: llm.RoleAssistant}, Done: true, StopReason: "stop"}, nil)
	}
}

// Requests returns every request passed to Stream.
func (m *MockStreamer) Requests() []*llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*llm.ChatRequest(nil), m.requests...)
}

var _ llm.Streamer = (*MockStreamer)(nil)
