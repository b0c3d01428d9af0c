package mcp

import (
	"context"
	"encoding/json"
	"errors"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/folio/api/search"
	"github.com/papercomputeco/folio/pkg/logger"
	"github.com/papercomputeco/folio/pkg/memory"
	"github.com/papercomputeco/folio/pkg/project"
	"github.com/papercomputeco/folio/pkg/storage"
	testutils "github.com/papercomputeco/folio/pkg/utils/test"
	"github.com/papercomputeco/folio/pkg/vector"
)

type fakeProjects map[string]*project.Project

func (f fakeProjects) GetPublicBySlug(_ context.Context, slug string) (*project.Project, error) {
	p, ok := f[slug]
	if !ok {
		return nil, storage.NotFoundError{Key: slug}
	}
	return p, nil
}

func textOf(res *gomcp.CallToolResult) string {
	Expect(res.Content).To(HaveLen(1))
	tc, ok := res.Content[0].(*gomcp.TextContent)
	Expect(ok).To(BeTrue())
	return tc.Text
}

var _ = Describe("tools", func() {
	var (
		ctx          context.Context
		vectorDriver *testutils.MockVectorDriver
		embedder     *testutils.MockEmbedder
		server       *Server
	)

	BeforeEach(func() {
		ctx = context.Background()
		vectorDriver = testutils.NewMockVectorDriver()
		embedder = testutils.NewMockEmbedder()

		searcher, err := search.NewSearcher(embedder, vectorDriver, "portfolio", logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		server, err = NewServer(Config{
			Searcher: searcher,
			Projects: fakeProjects{
				"folio": {ID: "p1", Slug: "folio", Title: "Folio", Summary: "Portfolio backend"},
			},
			Logger: logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("search_projects", func() {
		It("returns structured results and their JSON text", func() {
			vectorDriver.SetResults([]vector.QueryResult{{
				Document: vector.Document{
					ID: memory.PointID("p1"),
					Payload: map[string]string{
						memory.KeyProjectID: "p1",
						memory.KeySlug:      "folio",
						memory.KeyText:      "Title: Folio",
					},
				},
				Score: 0.8,
			}})

			res, out, err := server.handleSearch(ctx, nil, SearchInput{Query: "portfolio"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeFalse())
			Expect(out.Count).To(Equal(1))
			Expect(out.Results[0].Slug).To(Equal("folio"))

			var decoded search.SearchOutput
			Expect(json.Unmarshal([]byte(textOf(res)), &decoded)).To(Succeed())
			Expect(decoded.Results[0].ProjectID).To(Equal("p1"))
			Expect(vectorDriver.LastNamespace).To(Equal("portfolio"))
		})

		It("reports a missing query as a tool error", func() {
			res, _, err := server.handleSearch(ctx, nil, SearchInput{})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
		})

		It("reports search failures as a tool error", func() {
			embedder.Err = errors.New("model down")
			res, _, err := server.handleSearch(ctx, nil, SearchInput{Query: "x"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
			Expect(textOf(res)).To(ContainSubstring("model down"))
		})
	})

	Describe("get_project", func() {
		It("returns the formatted project", func() {
			res, out, err := server.handleGetProject(ctx, nil, GetProjectInput{Slug: "folio"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeFalse())
			Expect(out.ID).To(Equal("p1"))
			Expect(out.Text).To(ContainSubstring("Portfolio backend"))
		})

		It("reports unknown slugs as a tool error", func() {
			res, _, err := server.handleGetProject(ctx, nil, GetProjectInput{Slug: "nope"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
			Expect(textOf(res)).To(ContainSubstring("nope"))
		})
	})
})
