package chatcmder_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	chatcmder "github.com/papercomputeco/folio/cmd/folio/chat"
	"github.com/papercomputeco/folio/pkg/chat"
	"github.com/papercomputeco/folio/pkg/prompt"
)

var _ = Describe("NewChatCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := chatcmder.NewChatCmd()
		Expect(cmd.Use).To(Equal("chat"))
	})

	It("has --api-target flag with default value", func() {
		cmd := chatcmder.NewChatCmd()
		flag := cmd.Flags().Lookup("api-target")
		Expect(flag).NotTo(BeNil())
		Expect(flag.Shorthand).To(Equal("a"))
		Expect(flag.DefValue).To(Equal("http://localhost:8081"))
	})

	It("has --message and --resume flags", func() {
		cmd := chatcmder.NewChatCmd()
		Expect(cmd.Flags().Lookup("message").Shorthand).To(Equal("m"))
		Expect(cmd.Flags().Lookup("resume")).NotTo(BeNil())
	})
})

var _ = Describe("Stream", func() {
	var (
		server   *httptest.Server
		received chat.Request
		respond  func(w http.ResponseWriter)
	)

	BeforeEach(func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/v1/chat"))
			Expect(r.Method).To(Equal(http.MethodPost))
			Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())
			respond(w)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	sseBody := func(frames ...string) func(http.ResponseWriter) {
		return func(w http.ResponseWriter) {
			w.Header().Set("Content-Type", "text/event-stream")
			for _, f := range frames {
				fmt.Fprintf(w, "data: %s\n\n", f)
			}
		}
	}

	It("prints content as it arrives and returns the answer", func() {
		respond = sseBody(`{"content":"Hello "}`, `{"content":"world"}`, "[DONE]")

		var out strings.Builder
		answer, err := chatcmder.Stream(context.Background(), server.Client(), server.URL,
			chat.Request{Message: "hi"}, &out)
		Expect(err).NotTo(HaveOccurred())
		Expect(answer).To(Equal("Hello world"))
		Expect(out.String()).To(Equal("Hello world"))
		Expect(received.Message).To(Equal("hi"))
	})

	It("sends the conversation history", func() {
		respond = sseBody("[DONE]")

		req := chat.Request{
			Message:             "and?",
			ConversationHistory: []prompt.Turn{{Role: "user", Content: "hi"}},
		}
		_, err := chatcmder.Stream(context.Background(), server.Client(), server.URL, req, &strings.Builder{})
		Expect(err).NotTo(HaveOccurred())
		Expect(received.ConversationHistory).To(HaveLen(1))
		Expect(received.ConversationHistory[0].Content).To(Equal("hi"))
	})

	It("fails on an error frame and keeps the partial answer", func() {
		respond = sseBody(`{"content":"Hel"}`, `{"error":"response interrupted"}`)

		answer, err := chatcmder.Stream(context.Background(), server.Client(), server.URL,
			chat.Request{Message: "hi"}, &strings.Builder{})
		Expect(err).To(MatchError(chatcmder.ErrStreamInterrupted))
		Expect(answer).To(Equal("Hel"))
	})

	It("fails when the stream ends without [DONE]", func() {
		respond = sseBody(`{"content":"Hel"}`)

		_, err := chatcmder.Stream(context.Background(), server.Client(), server.URL,
			chat.Request{Message: "hi"}, &strings.Builder{})
		Expect(err).To(MatchError(chatcmder.ErrStreamInterrupted))
	})

	It("reports the server's error message", func() {
		respond = func(w http.ResponseWriter) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"message is required"}`))
		}

		_, err := chatcmder.Stream(context.Background(), server.Client(), server.URL,
			chat.Request{Message: ""}, &strings.Builder{})
		Expect(err).To(MatchError(ContainSubstring("status 400: message is required")))
	})
})
