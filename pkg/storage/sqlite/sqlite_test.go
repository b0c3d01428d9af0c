package sqlite_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/folio/pkg/storage"
	"github.com/papercomputeco/folio/pkg/storage/sqlite"
	"github.com/papercomputeco/folio/pkg/storage/storagetest"
)

var _ = Describe("SQLiteDriver", func() {
	storagetest.DescribeDriver(func() storage.Driver {
		driver, err := sqlite.NewSQLiteDriver(":memory:")
		Expect(err).NotTo(HaveOccurred())
		return driver
	})

	Describe("NewSQLiteDriver", func() {
		It("creates a driver with file database", func() {
			tmpDir := GinkgoT().TempDir()
			dbPath := filepath.Join(tmpDir, "test.db")

			s, err := sqlite.NewSQLiteDriver(dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer s.Close()

			_, err = os.Stat(dbPath)
			Expect(err).NotTo(HaveOccurred())
		})

		It("persists projects across reopen", func() {
			dbPath := filepath.Join(GinkgoT().TempDir(), "test.db")
			ctx := context.Background()

			s, err := sqlite.NewSQLiteDriver(dbPath)
			Expect(err).NotTo(HaveOccurred())
			p := storagetest.NewProject("Durable")
			Expect(s.CreateProject(ctx, p)).To(Succeed())
			Expect(s.Close()).To(Succeed())

			s, err = sqlite.NewSQLiteDriver(dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer s.Close()

			got, err := s.GetProjectBySlug(ctx, "durable")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(p.ID))
		})
	})
})
