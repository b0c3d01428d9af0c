package api

import (
	"errors"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/folio/api/search"
	"github.com/papercomputeco/folio/pkg/memory"
	"github.com/papercomputeco/folio/pkg/vector"
)

var errIndexDown = errors.New("index down")

var _ = Describe("handleSearchEndpoint", func() {
	var h *harness

	BeforeEach(func() {
		h = newHarness(nil)
	})

	AfterEach(func() {
		h.close()
	})

	It("returns 503 when search is not configured", func() {
		noSearch := newHarness(func(c *Config) { c.Searcher = nil })
		defer noSearch.close()

		resp := noSearch.do(http.MethodGet, "/v1/search?query=go", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))
	})

	It("requires a query", func() {
		resp := h.do(http.MethodGet, "/v1/search", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
	})

	It("rejects a bad top_k", func() {
		resp := h.do(http.MethodGet, "/v1/search?query=go&top_k=zero", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
	})

	It("returns matching projects", func() {
		h.index.SetResults([]vector.QueryResult{{
			Document: vector.Document{
				ID: memory.PointID("p1"),
				Payload: map[string]string{
					memory.KeyProjectID: "p1",
					memory.KeySlug:      "alpha",
					memory.KeyText:      "Title: Alpha",
				},
			},
			Score: 0.7,
		}})

		resp := h.do(http.MethodGet, "/v1/search?query=alpha&top_k=3", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		out := decode[search.SearchOutput](resp)
		Expect(out.Count).To(Equal(1))
		Expect(out.Results[0].Slug).To(Equal("alpha"))
		Expect(h.index.LastTopK).To(Equal(3))
		Expect(h.index.LastNamespace).To(Equal("test"))
	})

	It("returns 500 when the index fails", func() {
		h.index.QueryErr = errIndexDown
		resp := h.do(http.MethodGet, "/v1/search?query=alpha", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
	})
})
