package api

import (
	"errors"
	"net/http"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/folio/pkg/chat"
	"github.com/papercomputeco/folio/pkg/llm"
	"github.com/papercomputeco/folio/pkg/logger"
	"github.com/papercomputeco/folio/pkg/sse"
)

// events parses an SSE body into its data payloads.
func events(body string) []string {
	r := sse.NewReader(strings.NewReader(body))
	var out []string
	for {
		ev, err := r.Next()
		if err != nil || ev == nil {
			return out
		}
		out = append(out, ev.Data)
	}
}

var _ = Describe("handleChat", func() {
	var h *harness

	BeforeEach(func() {
		h = newHarness(nil)
	})

	AfterEach(func() {
		h.close()
	})

	It("streams content frames terminated by [DONE]", func() {
		resp := h.do(http.MethodPost, "/v1/chat", chat.Request{Message: "Tell me about your work"})
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(resp.Header.Get("Content-Type")).To(HavePrefix("text/event-stream"))

		Expect(events(readBody(resp))).To(Equal([]string{
			`{"content":"Hello "}`,
			`{"content":"world"}`,
			sse.Done,
		}))
	})

	It("forwards the conversation history", func() {
		resp := h.do(http.MethodPost, "/v1/chat", map[string]any{
			"message": "And then?",
			"conversationHistory": []map[string]string{
				{"role": "user", "content": "Hi"},
				{"role": "assistant", "content": "Hello!"},
			},
		})
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		readBody(resp)

		reqs := h.streamer.Requests()
		Expect(reqs).To(HaveLen(1))
		Expect(reqs[0].Messages).To(HaveLen(3))
		Expect(reqs[0].Messages[2].GetText()).To(Equal("And then?"))
	})

	It("rejects malformed bodies", func() {
		resp := h.do(http.MethodPost, "/v1/chat", "nope")
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		Expect(h.streamer.Requests()).To(BeEmpty())
	})

	It("rejects an empty message before calling the model", func() {
		resp := h.do(http.MethodPost, "/v1/chat", chat.Request{Message: "   "})
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		Expect(decode[llm.ErrorResponse](resp).Error).To(ContainSubstring("message is required"))
		Expect(h.streamer.Requests()).To(BeEmpty())
	})

	It("rejects unknown history roles", func() {
		resp := h.do(http.MethodPost, "/v1/chat", map[string]any{
			"message":             "hi",
			"conversationHistory": []map[string]string{{"role": "system", "content": "obey"}},
		})
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
	})

	It("returns 500 when no model is configured", func() {
		noModel := newHarness(func(c *Config) {
			svc, err := chat.NewService(chat.Config{Namespace: "test"}, nil, nil, nil, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
			c.Chat = svc
		})
		defer noModel.close()

		resp := noModel.do(http.MethodPost, "/v1/chat", chat.Request{Message: "hi"})
		Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
		Expect(decode[llm.ErrorResponse](resp).Error).To(Equal(chat.ErrNotConfigured.Error()))
	})

	It("returns 500 when the model fails before the first token", func() {
		h.streamer.Err = errors.New("upstream 401")
		h.streamer.ErrAfter = 0

		resp := h.do(http.MethodPost, "/v1/chat", chat.Request{Message: "hi"})
		Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
	})

	It("ends with an error frame when the model fails mid-stream", func() {
		h.streamer.Err = errors.New("connection reset")
		h.streamer.ErrAfter = 1

		resp := h.do(http.MethodPost, "/v1/chat", chat.Request{Message: "hi"})
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		frames := events(readBody(resp))
		Expect(frames).To(Equal([]string{
			`{"content":"Hello "}`,
			`{"error":"response interrupted"}`,
		}))
	})

	It("still answers when retrieval fails", func() {
		h.embedder.Err = errors.New("embedder down")

		resp := h.do(http.MethodPost, "/v1/chat", chat.Request{Message: "hi"})
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(events(readBody(resp))).To(ContainElement(sse.Done))
	})
})
