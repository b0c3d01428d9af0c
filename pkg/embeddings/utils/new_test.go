package embeddingutils_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/folio/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/folio/pkg/embeddings/utils"
)

var _ = Describe("NewEmbedder", func() {
	It("rejects unknown providers up front", func() {
		_, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{ProviderType: "word2vec"})
		Expect(err).To(MatchError(ContainSubstring("unsupported embedding provider: word2vec")))
	})

	It("builds a working local embedder", func() {
		e, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{ProviderType: "local", Dimensions: 32})
		Expect(err).NotTo(HaveOccurred())

		v, err := e.Embed(context.Background(), "go services")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(HaveLen(32))
	})

	It("defers credential errors to the first embed call", func() {
		e, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{ProviderType: "openai"})
		Expect(err).NotTo(HaveOccurred())

		_, err = e.Embed(context.Background(), "hello")
		Expect(err).To(MatchError(embeddings.ErrInit))
	})
})
