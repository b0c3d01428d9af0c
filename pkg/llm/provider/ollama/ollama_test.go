package ollama_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/folio/pkg/llm"
	"github.com/papercomputeco/folio/pkg/llm/provider/ollama"
)

var _ = Describe("Client", func() {
	It("streams NDJSON lines until done", func() {
		var got map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/api/chat"))
			Expect(json.NewDecoder(r.Body).Decode(&got)).To(Succeed())

			fmt.Fprintln(w, `{"model":"llama3.2","message":{"role":"assistant","content":"Go "},"done":false}`)
			fmt.Fprintln(w, `{"model":"llama3.2","message":{"role":"assistant","content":"rocks"},"done":false}`)
			fmt.Fprintln(w, `{"model":"llama3.2","message":{"role":"assistant","content":""},"done":true,"done_reason":"stop","prompt_eval_count":4,"eval_count":2}`)
			fmt.Fprintln(w, `{"model":"llama3.2","message":{"role":"assistant","content":"ignored"},"done":false}`)
		}))
		defer server.Close()

		c := ollama.New(ollama.Config{BaseURL: server.URL})
		maxTokens := 64

		var text string
		var last *llm.StreamChunk
		for chunk, err := range c.Stream(context.Background(), &llm.ChatRequest{
			System:    "sys",
			Messages:  []llm.Message{llm.NewTextMessage(llm.RoleUser, "q")},
			MaxTokens: &maxTokens,
		}) {
			Expect(err).NotTo(HaveOccurred())
			text += chunk.Message.GetText()
			last = chunk
		}

		Expect(text).To(Equal("Go rocks"))
		Expect(last.Done).To(BeTrue())
		Expect(last.Usage.TotalTokens).To(Equal(6))
		Expect(got).To(HaveKeyWithValue("model", ollama.DefaultModel))
		Expect(got).To(HaveKeyWithValue("options", HaveKeyWithValue("num_predict", BeNumerically("==", 64))))
		Expect(got["messages"]).To(HaveLen(2))
	})

	It("reports in-stream errors", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintln(w, `{"error":"model runner has unexpectedly stopped"}`)
		}))
		defer server.Close()

		for _, err := range ollama.New(ollama.Config{BaseURL: server.URL}).Stream(context.Background(), &llm.ChatRequest{}) {
			Expect(err).To(MatchError(ContainSubstring("unexpectedly stopped")))
		}
	})

	It("reports missing models as StatusError", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"model \"nope\" not found"}`, http.StatusNotFound)
		}))
		defer server.Close()

		for _, err := range ollama.New(ollama.Config{BaseURL: server.URL, Model: "nope"}).Stream(context.Background(), &llm.ChatRequest{}) {
			var statusErr *llm.StatusError
			Expect(err).To(BeAssignableToTypeOf(statusErr))
			Expect(err.(*llm.StatusError).StatusCode).To(Equal(http.StatusNotFound))
		}
	})
})
