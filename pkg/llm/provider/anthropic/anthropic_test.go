package anthropic_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/folio/pkg/llm"
	"github.com/papercomputeco/folio/pkg/llm/provider/anthropic"
)

func event(w http.ResponseWriter, typ, data string) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", typ, data)
}

var _ = Describe("Client", func() {
	It("fails fast without an API key", func() {
		_, err := anthropic.New(anthropic.Config{})
		Expect(err).To(MatchError(llm.ErrMissingCredentials))
	})

	It("streams text deltas and lifts system messages", func() {
		var got map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/v1/messages"))
			Expect(r.Header.Get("x-api-key")).To(Equal("key"))
			Expect(r.Header.Get("anthropic-version")).To(Equal(anthropic.APIVersion))
			Expect(json.NewDecoder(r.Body).Decode(&got)).To(Succeed())

			event(w, "message_start", `{"type":"message_start","message":{"model":"claude-test","usage":{"input_tokens":12}}}`)
			event(w, "content_block_start", `{"type":"content_block_start","index":0}`)
			event(w, "ping", `{"type":"ping"}`)
			event(w, "content_block_delta", `{"type":"content_block_delta","delta":{"type":"text_delta","text":"Hi "}}`)
			event(w, "content_block_delta", `{"type":"content_block_delta","delta":{"type":"text_delta","text":"there"}}`)
			event(w, "message_delta", `{"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":2}}`)
			event(w, "message_stop", `{"type":"message_stop"}`)
		}))
		defer server.Close()

		c, err := anthropic.New(anthropic.Config{BaseURL: server.URL, APIKey: "key"})
		Expect(err).NotTo(HaveOccurred())

		var text string
		var last *llm.StreamChunk
		for chunk, err := range c.Stream(context.Background(), &llm.ChatRequest{
			System: "persona",
			Messages: []llm.Message{
				llm.NewTextMessage(llm.RoleSystem, "extra"),
				llm.NewTextMessage(llm.RoleUser, "hello"),
			},
		}) {
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.Model).To(Equal("claude-test"))
			text += chunk.Message.GetText()
			last = chunk
		}

		Expect(text).To(Equal("Hi there"))
		Expect(last.Done).To(BeTrue())
		Expect(got).To(HaveKeyWithValue("system", "persona\n\nextra"))
		Expect(got).To(HaveKeyWithValue("max_tokens", BeNumerically("==", 1024)))
		Expect(got["messages"]).To(Equal([]any{map[string]any{"role": "user", "content": "hello"}}))
	})

	It("turns error events into stream errors", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			event(w, "content_block_delta", `{"type":"content_block_delta","delta":{"type":"text_delta","text":"par"}}`)
			event(w, "error", `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`)
		}))
		defer server.Close()

		c, _ := anthropic.New(anthropic.Config{BaseURL: server.URL, APIKey: "key"})

		var text string
		var streamErr error
		for chunk, err := range c.Stream(context.Background(), &llm.ChatRequest{}) {
			if err != nil {
				streamErr = err
				break
			}
			text += chunk.Message.GetText()
		}
		Expect(text).To(Equal("par"))
		Expect(streamErr).To(MatchError(ContainSubstring("overloaded_error: Overloaded")))
	})

	It("maps HTTP errors to StatusError", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"max_tokens: too large"}}`))
		}))
		defer server.Close()

		c, _ := anthropic.New(anthropic.Config{BaseURL: server.URL, APIKey: "key"})
		for _, err := range c.Stream(context.Background(), &llm.ChatRequest{}) {
			var statusErr *llm.StatusError
			Expect(err).To(BeAssignableToTypeOf(statusErr))
			Expect(err.Error()).To(ContainSubstring("status 400: max_tokens: too large"))
		}
	})
})
