package sse_test

import (
	"bytes"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/folio/pkg/sse"
)

var _ = Describe("Writer", func() {
	var (
		buf *bytes.Buffer
		w   *sse.Writer
	)

	BeforeEach(func() {
		buf = &bytes.Buffer{}
		w = sse.NewWriter(buf)
	})

	It("writes content frames followed by the terminator", func() {
		Expect(w.WriteContent("Hel")).To(Succeed())
		Expect(w.WriteContent("lo\n")).To(Succeed())
		Expect(w.WriteDone()).To(Succeed())

		Expect(buf.String()).To(Equal(
			"data: {\"content\":\"Hel\"}\n\n" +
				"data: {\"content\":\"lo\\n\"}\n\n" +
				"data: [DONE]\n\n",
		))
	})

	It("flushes every frame", func() {
		Expect(w.WriteContent("a")).To(Succeed())
		Expect(buf.Len()).To(BeNumerically(">", 0))
	})

	It("writes error frames", func() {
		Expect(w.WriteError("upstream closed")).To(Succeed())
		Expect(buf.String()).To(Equal("data: {\"error\":\"upstream closed\"}\n\n"))
	})

	It("round-trips through the reader", func() {
		Expect(w.WriteContent("data: [DONE]")).To(Succeed())
		Expect(w.WriteDone()).To(Succeed())

		r := sse.NewReader(strings.NewReader(buf.String()))
		ev, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.IsDone()).To(BeFalse())
		Expect(ev.Data).To(Equal(`{"content":"data: [DONE]"}`))

		ev, err = r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.IsDone()).To(BeTrue())
	})
})
