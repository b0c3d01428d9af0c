package local_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/folio/pkg/embeddings/local"
	"github.com/papercomputeco/folio/pkg/vector"
)

var _ = Describe("Embedder", func() {
	var (
		ctx context.Context
		e   *local.Embedder
	)

	BeforeEach(func() {
		ctx = context.Background()
		e = local.NewEmbedder(local.EmbedderConfig{Dimensions: 64})
	})

	embed := func(text string) []float32 {
		v, err := e.Embed(ctx, text)
		Expect(err).NotTo(HaveOccurred())
		return v
	}

	It("produces vectors of the configured size", func() {
		Expect(embed("kubernetes operator")).To(HaveLen(64))
		Expect(local.NewEmbedder(local.EmbedderConfig{}).Embed(ctx, "x")).To(HaveLen(local.DefaultDimensions))
	})

	It("is deterministic", func() {
		Expect(embed("Realtime chat in Go")).To(Equal(embed("Realtime chat in Go")))
	})

	It("ignores case and stopwords", func() {
		Expect(embed("The Mobile App")).To(Equal(embed("mobile app")))
	})

	It("embeds text without tokens to the zero vector", func() {
		for _, x := range embed("  -- !! ") {
			Expect(x).To(BeZero())
		}
	})

	It("ranks texts sharing vocabulary above unrelated ones", func() {
		q := vector.Normalize(embed("flutter mobile app"))
		near := vector.Normalize(embed("a mobile app written in flutter for android"))
		far := vector.Normalize(embed("postgres replication tooling"))

		Expect(vector.CosineSimilarity(q, near)).To(BeNumerically(">", vector.CosineSimilarity(q, far)))
	})
})
