package sqlitevec_test

import (
	"context"
	"log/slog"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/folio/pkg/logger"
	"github.com/papercomputeco/folio/pkg/vector"
	"github.com/papercomputeco/folio/pkg/vector/sqlitevec"
	"github.com/papercomputeco/folio/pkg/vector/vectortest"
)

var _ = Describe("SQLiteVecDriver", func() {
	var log *slog.Logger

	BeforeEach(func() {
		log = logger.Nop()
	})

	Describe("NewSQLiteVecDriver", func() {
		It("should return an error when DBPath is empty", func() {
			_, err := sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{DBPath: ""}, log)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("database path is required"))
		})

		It("should error when dimension not specified", func() {
			_, err := sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{DBPath: ":memory:"}, log)
			Expect(err).To(HaveOccurred())
		})

		It("should reject a collection name that isn't an identifier", func() {
			_, err := sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{
				DBPath:     ":memory:",
				Dimensions: 4,
				Collection: "memories; DROP TABLE x",
			}, log)
			Expect(err).To(MatchError(ContainSubstring("invalid collection name")))
		})

		It("should keep documents across reopen", func() {
			dbPath := filepath.Join(GinkgoT().TempDir(), "vec.db")
			ctx := context.Background()

			d, err := sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{DBPath: dbPath, Dimensions: 4}, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Upsert(ctx, []vector.Document{
				vectortest.Doc(vectortest.IDNorth, "portfolio", "north", 1, 0, 0, 0),
			})).To(Succeed())
			Expect(d.Close()).To(Succeed())

			d, err = sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{DBPath: dbPath, Dimensions: 4}, log)
			Expect(err).NotTo(HaveOccurred())
			defer d.Close()

			results, err := d.Query(ctx, []float32{1, 0, 0, 0}, 5, "portfolio")
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].Payload).To(HaveKeyWithValue("text", "north"))
		})
	})

	Describe("Interface compliance", func() {
		It("should implement vector.Driver interface", func() {
			var _ vector.Driver = (*sqlitevec.SQLiteVecDriver)(nil)
		})
	})

	Describe("Driver behaviour", func() {
		vectortest.DescribeDriver(func() vector.Driver {
			d, err := sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{
				DBPath:     ":memory:",
				Dimensions: vectortest.Dimensions,
			}, log)
			Expect(err).NotTo(HaveOccurred())
			return d
		})
	})
})
