// Package vectortest holds the behavioural suite every vector.Driver must pass.
package vectortest

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/folio/pkg/vector"
)

// Dimensions is the embedding size used by the suite.
const Dimensions = 4

// Point ids are UUID-shaped so drivers with strict id formats can run the suite.
const (
	IDNorth = "00000000-0000-0000-0000-000000000001"
	IDEast  = "00000000-0000-0000-0000-000000000002"
	IDSouth = "00000000-0000-0000-0000-000000000003"
	IDOther = "00000000-0000-0000-0000-000000000004"
)

// Doc builds a document in namespace ns.
func Doc(id, ns, text string, emb ...float32) vector.Document {
	return vector.Document{
		ID:        id,
		Embedding: emb,
		Payload: map[string]string{
			vector.NamespaceKey: ns,
			vector.OwnerKey:     "owner-" + id,
			"text":              text,
		},
	}
}

// DescribeDriver registers the shared driver specs. newDriver must return a
// driver with an empty collection of Dimensions dimensions.
func DescribeDriver(newDriver func() vector.Driver) {
	var (
		driver vector.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = newDriver()
		Expect(driver.EnsureCollection(ctx)).To(Succeed())
	})

	AfterEach(func() {
		if driver != nil {
			Expect(driver.Close()).To(Succeed())
		}
	})

	Describe("EnsureCollection", func() {
		It("is idempotent", func() {
			Expect(driver.EnsureCollection(ctx)).To(Succeed())
			Expect(driver.EnsureCollection(ctx)).To(Succeed())
		})
	})

	Describe("Upsert and Get", func() {
		It("does nothing when given no documents", func() {
			Expect(driver.Upsert(ctx, nil)).To(Succeed())
		})

		It("stores embedding and payload", func() {
			Expect(driver.Upsert(ctx, []vector.Document{Doc(IDNorth, "portfolio", "north", 1, 0, 0, 0)})).To(Succeed())

			docs, err := driver.Get(ctx, []string{IDNorth})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].ID).To(Equal(IDNorth))
			Expect(docs[0].Payload).To(HaveKeyWithValue("text", "north"))
			Expect(docs[0].Namespace()).To(Equal("portfolio"))
			Expect(docs[0].Embedding).To(HaveLen(Dimensions))
		})

		It("replaces the payload on a second upsert", func() {
			Expect(driver.Upsert(ctx, []vector.Document{Doc(IDNorth, "portfolio", "first", 1, 0, 0, 0)})).To(Succeed())

			second := vector.Document{
				ID:        IDNorth,
				Embedding: []float32{0, 1, 0, 0},
				Payload:   map[string]string{vector.NamespaceKey: "portfolio", "text": "second"},
			}
			Expect(driver.Upsert(ctx, []vector.Document{second})).To(Succeed())

			docs, err := driver.Get(ctx, []string{IDNorth})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].Payload).To(HaveKeyWithValue("text", "second"))
			Expect(docs[0].Payload).NotTo(HaveKey(vector.OwnerKey))

			results, err := driver.Query(ctx, []float32{0, 1, 0, 0}, 10, "portfolio")
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].Score).To(BeNumerically("~", 1, 1e-4))
		})

		It("skips unknown ids", func() {
			docs, err := driver.Get(ctx, []string{IDOther})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(BeEmpty())
		})

		It("rejects embeddings of the wrong size", func() {
			err := driver.Upsert(ctx, []vector.Document{Doc(IDNorth, "portfolio", "bad", 1, 0)})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Query", func() {
		BeforeEach(func() {
			Expect(driver.Upsert(ctx, []vector.Document{
				Doc(IDNorth, "portfolio", "north", 1, 0, 0, 0),
				Doc(IDEast, "portfolio", "east", 0.7, 0.7, 0, 0),
				Doc(IDSouth, "portfolio", "south", 0, 1, 0, 0),
				Doc(IDOther, "elsewhere", "other", 1, 0, 0, 0),
			})).To(Succeed())
		})

		It("returns the closest documents first", func() {
			results, err := driver.Query(ctx, []float32{1, 0.1, 0, 0}, 3, "portfolio")
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(3))
			Expect(results[0].ID).To(Equal(IDNorth))
			Expect(results[1].ID).To(Equal(IDEast))
			Expect(results[2].ID).To(Equal(IDSouth))
			Expect(results[0].Payload).To(HaveKeyWithValue("text", "north"))

			for i := 1; i < len(results); i++ {
				Expect(results[i-1].Score).To(BeNumerically(">=", results[i].Score))
			}
		})

		It("respects the topK limit", func() {
			results, err := driver.Query(ctx, []float32{1, 0, 0, 0}, 2, "portfolio")
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
		})

		It("never returns documents from another namespace", func() {
			results, err := driver.Query(ctx, []float32{1, 0, 0, 0}, 10, "portfolio")
			Expect(err).NotTo(HaveOccurred())
			for _, r := range results {
				Expect(r.ID).NotTo(Equal(IDOther))
				Expect(r.Namespace()).To(Equal("portfolio"))
			}

			results, err = driver.Query(ctx, []float32{1, 0, 0, 0}, 10, "elsewhere")
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].ID).To(Equal(IDOther))
		})

		It("returns nothing for an unknown namespace", func() {
			results, err := driver.Query(ctx, []float32{1, 0, 0, 0}, 10, "nobody")
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(BeEmpty())
		})

		It("rejects an empty namespace instead of searching everything", func() {
			results, err := driver.Query(ctx, []float32{1, 0, 0, 0}, 10, "")
			Expect(err).To(MatchError(vector.ErrNamespace))
			Expect(results).To(BeEmpty())
		})

		It("is stable for the same index state", func() {
			first, err := driver.Query(ctx, []float32{0.5, 0.5, 0, 0}, 3, "portfolio")
			Expect(err).NotTo(HaveOccurred())
			second, err := driver.Query(ctx, []float32{0.5, 0.5, 0, 0}, 3, "portfolio")
			Expect(err).NotTo(HaveOccurred())

			ids := func(rs []vector.QueryResult) []string {
				out := make([]string, len(rs))
				for i, r := range rs {
					out[i] = r.ID
				}
				return out
			}
			Expect(ids(second)).To(Equal(ids(first)))
		})
	})

	Describe("Delete", func() {
		It("removes documents from Get and Query", func() {
			Expect(driver.Upsert(ctx, []vector.Document{
				Doc(IDNorth, "portfolio", "north", 1, 0, 0, 0),
				Doc(IDSouth, "portfolio", "south", 0, 1, 0, 0),
			})).To(Succeed())

			Expect(driver.Delete(ctx, []string{IDNorth})).To(Succeed())

			docs, err := driver.Get(ctx, []string{IDNorth, IDSouth})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].ID).To(Equal(IDSouth))

			results, err := driver.Query(ctx, []float32{1, 0, 0, 0}, 10, "portfolio")
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].ID).To(Equal(IDSouth))
		})

		It("treats unknown ids as success", func() {
			Expect(driver.Delete(ctx, []string{IDOther})).To(Succeed())
			Expect(driver.Delete(ctx, nil)).To(Succeed())
		})
	})
}
