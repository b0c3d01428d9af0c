package seed_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/folio/pkg/logger"
	"github.com/papercomputeco/folio/pkg/outbox"
	"github.com/papercomputeco/folio/pkg/portfolio"
	"github.com/papercomputeco/folio/pkg/project"
	"github.com/papercomputeco/folio/pkg/seed"
	"github.com/papercomputeco/folio/pkg/storage/inmemory"
	testutils "github.com/papercomputeco/folio/pkg/utils/test"
)

type countingOutbox struct{ tasks []outbox.Task }

func (o *countingOutbox) Enqueue(_ context.Context, t outbox.Task) (bool, error) {
	o.tasks = append(o.tasks, t)
	return true, nil
}

const single = `
title: Tide Tables
summary: Predicts tides for small harbours.
tech_stack: [Go, SQLite]
`

const list = `
- title: Lighthouse
  summary: Beams status pages.
- title: Harbour Master
  summary: Schedules berths.
  visibility: private
`

const wrapped = `
projects:
  - title: Buoy
    slug: buoy-tracker
    summary: Tracks buoys.
`

var _ = Describe("Parse", func() {
	It("reads a single project", func() {
		projects, err := seed.Parse([]byte(single))
		Expect(err).NotTo(HaveOccurred())
		Expect(projects).To(HaveLen(1))
		Expect(projects[0].Title).To(Equal("Tide Tables"))
		Expect(projects[0].TechStack).To(Equal([]string{"Go", "SQLite"}))
	})

	It("reads a list of projects", func() {
		projects, err := seed.Parse([]byte(list))
		Expect(err).NotTo(HaveOccurred())
		Expect(projects).To(HaveLen(2))
		Expect(projects[1].Visibility).To(Equal(project.VisibilityPrivate))
	})

	It("reads a projects key", func() {
		projects, err := seed.Parse([]byte(wrapped))
		Expect(err).NotTo(HaveOccurred())
		Expect(projects).To(HaveLen(1))
		Expect(projects[0].Slug).To(Equal("buoy-tracker"))
	})

	It("accepts an empty document", func() {
		projects, err := seed.Parse(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(projects).To(BeEmpty())
	})

	It("rejects a scalar document", func() {
		_, err := seed.Parse([]byte("just words"))
		Expect(err).To(MatchError(ContainSubstring("a scalar")))
	})
})

var _ = Describe("Files and Load", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		Expect(os.MkdirAll(filepath.Join(dir, "work", "2024"), 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(dir, "tides.yaml"), []byte(single), 0o600)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(dir, "work", "2024", "more.yaml"), []byte(list), 0o600)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore"), 0o600)).To(Succeed())
	})

	It("expands ** patterns", func() {
		files, err := seed.Files([]string{filepath.Join(dir, "**", "*.yaml")})
		Expect(err).NotTo(HaveOccurred())
		Expect(files).To(ConsistOf(
			filepath.Join(dir, "tides.yaml"),
			filepath.Join(dir, "work", "2024", "more.yaml"),
		))
	})

	It("de-duplicates overlapping patterns", func() {
		files, err := seed.Files([]string{
			filepath.Join(dir, "*.yaml"),
			filepath.Join(dir, "tides.yaml"),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(files).To(HaveLen(1))
	})

	It("fails when nothing matches", func() {
		_, err := seed.Files([]string{filepath.Join(dir, "*.json")})
		Expect(err).To(MatchError(seed.ErrNoFiles))
	})

	It("loads every project with its file", func() {
		entries, err := seed.Load([]string{filepath.Join(dir, "**", "*.yaml")})
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(3))
		Expect(entries[0].File).To(Equal(filepath.Join(dir, "tides.yaml")))
	})
})

var _ = Describe("Apply", func() {
	var (
		ctx context.Context
		svc *portfolio.Service
		box *countingOutbox
	)

	BeforeEach(func() {
		ctx = context.Background()
		box = &countingOutbox{}
		var err error
		svc, err = portfolio.NewService(portfolio.Config{
			Store:     inmemory.NewDriver(),
			Outbox:    box,
			Publisher: testutils.NewMockPublisher(),
			Logger:    logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	entries := func(doc string) []seed.Entry {
		projects, err := seed.Parse([]byte(doc))
		Expect(err).NotTo(HaveOccurred())
		var out []seed.Entry
		for _, p := range projects {
			out = append(out, seed.Entry{File: "seed.yaml", Project: p})
		}
		return out
	}

	It("creates new projects in file order", func() {
		res, err := seed.Apply(ctx, svc, entries(list))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Created).To(Equal(2))

		projects, err := svc.List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(projects[0].Slug).To(Equal("lighthouse"))
		Expect(projects[1].Slug).To(Equal("harbour-master"))
	})

	It("leaves unchanged projects alone on a second run", func() {
		_, err := seed.Apply(ctx, svc, entries(list))
		Expect(err).NotTo(HaveOccurred())
		queued := len(box.tasks)

		res, err := seed.Apply(ctx, svc, entries(list))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Unchanged).To(Equal(2))
		Expect(res.Created).To(BeZero())
		Expect(box.tasks).To(HaveLen(queued))
	})

	It("updates projects whose content changed", func() {
		_, err := seed.Apply(ctx, svc, entries(single))
		Expect(err).NotTo(HaveOccurred())
		before, err := svc.List(ctx)
		Expect(err).NotTo(HaveOccurred())

		changed := entries(single)
		changed[0].Project.Summary = "Now with currents."
		res, err := seed.Apply(ctx, svc, changed)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Updated).To(Equal(1))

		after, err := svc.List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(after).To(HaveLen(1))
		Expect(after[0].ID).To(Equal(before[0].ID))
		Expect(after[0].Summary).To(Equal("Now with currents."))
	})

	It("collects invalid projects without stopping", func() {
		docs := append(entries(single), seed.Entry{File: "bad.yaml", Project: &project.Project{Slug: "no-title"}})
		res, err := seed.Apply(ctx, svc, docs)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Created).To(Equal(1))
		Expect(res.Errors).To(HaveKey("bad.yaml: no-title"))
		Expect(res.Summary()).To(Equal("1 created, 0 updated, 0 unchanged, 1 failed"))
	})
})
