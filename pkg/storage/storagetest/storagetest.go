// Package storagetest holds the behavioural suite every storage.Driver must pass.
package storagetest

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/folio/pkg/project"
	"github.com/papercomputeco/folio/pkg/storage"
)

// NewProject returns a valid public project with the given title.
func NewProject(title string) *project.Project {
	now := time.Now().UTC().Truncate(time.Millisecond)
	p := &project.Project{
		ID:        project.NewID(),
		Title:     title,
		Summary:   "summary of " + title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	p.Normalize()
	return p
}

// DescribeDriver registers the shared driver specs. newDriver is called
// before every spec and the returned driver is closed after it.
func DescribeDriver(newDriver func() storage.Driver) {
	var (
		driver storage.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = newDriver()
	})

	AfterEach(func() {
		if driver != nil {
			Expect(driver.Close()).To(Succeed())
		}
	})

	Describe("CreateProject and GetProject", func() {
		It("round-trips every field", func() {
			order := 2
			published := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
			p := NewProject("Alpha")
			p.Content = "# Alpha\n\nLong form."
			p.Role = "Lead"
			p.Problem = "slow builds"
			p.Solution = "caching"
			p.KeyTakeaway = "measure first"
			p.Architecture = "two services"
			p.Features = []string{"search", "chat"}
			p.TechStack = []string{"Go", "SQLite"}
			p.Tags = []string{"backend"}
			p.Images = []project.Image{{URL: "https://example.com/a.png", Alt: "screenshot", Caption: "home", Order: &order}}
			p.Links = []project.Link{{Type: project.LinkGitHub, URL: "https://github.com/example/alpha", Label: "source"}}
			p.Metrics = &project.Metrics{Duration: "3 months", TeamSize: 4, Impact: "2x faster"}
			p.Status = "shipped"
			p.SchemaType = "SoftwareApplication"
			p.PublishedAt = &published

			Expect(driver.CreateProject(ctx, p)).To(Succeed())

			got, err := driver.GetProject(ctx, p.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Title).To(Equal("Alpha"))
			Expect(got.Slug).To(Equal("alpha"))
			Expect(got.Content).To(Equal(p.Content))
			Expect(got.KeyTakeaway).To(Equal("measure first"))
			Expect(got.Features).To(Equal([]string{"search", "chat"}))
			Expect(got.TechStack).To(Equal([]string{"Go", "SQLite"}))
			Expect(got.Images).To(HaveLen(1))
			Expect(*got.Images[0].Order).To(Equal(2))
			Expect(got.Links).To(Equal(p.Links))
			Expect(got.Metrics).To(Equal(p.Metrics))
			Expect(got.Visibility).To(Equal(project.VisibilityPublic))
			Expect(got.CreatedAt.Equal(p.CreatedAt)).To(BeTrue())
			Expect(got.PublishedAt).NotTo(BeNil())
			Expect(got.PublishedAt.Equal(published)).To(BeTrue())
		})

		It("leaves optional fields empty", func() {
			p := NewProject("Bare")
			Expect(driver.CreateProject(ctx, p)).To(Succeed())

			got, err := driver.GetProject(ctx, p.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Content).To(BeEmpty())
			Expect(got.Features).To(BeEmpty())
			Expect(got.Metrics).To(BeNil())
			Expect(got.PublishedAt).To(BeNil())
		})

		It("rejects a duplicate slug", func() {
			Expect(driver.CreateProject(ctx, NewProject("Alpha"))).To(Succeed())

			err := driver.CreateProject(ctx, NewProject("Alpha"))
			Expect(err).To(MatchError(storage.ErrSlugConflict))
		})

		It("returns NotFoundError for an unknown id", func() {
			_, err := driver.GetProject(ctx, "missing")
			Expect(storage.IsNotFound(err)).To(BeTrue())
		})

		It("returns copies the caller cannot mutate", func() {
			p := NewProject("Alpha")
			p.Tags = []string{"one"}
			Expect(driver.CreateProject(ctx, p)).To(Succeed())

			got, err := driver.GetProject(ctx, p.ID)
			Expect(err).NotTo(HaveOccurred())
			got.Tags[0] = "changed"

			again, err := driver.GetProject(ctx, p.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(again.Tags).To(Equal([]string{"one"}))
		})
	})

	Describe("GetProjectBySlug", func() {
		It("finds the project owning the slug", func() {
			p := NewProject("Beta Launch")
			Expect(driver.CreateProject(ctx, p)).To(Succeed())

			got, err := driver.GetProjectBySlug(ctx, "beta-launch")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(p.ID))
		})

		It("returns NotFoundError for an unknown slug", func() {
			_, err := driver.GetProjectBySlug(ctx, "nope")
			Expect(storage.IsNotFound(err)).To(BeTrue())
		})
	})

	Describe("UpdateProject", func() {
		It("overwrites fields and frees the old slug", func() {
			p := NewProject("Alpha")
			Expect(driver.CreateProject(ctx, p)).To(Succeed())

			p.Title = "Alpha Two"
			p.Slug = "alpha-two"
			p.Visibility = project.VisibilityPrivate
			Expect(driver.UpdateProject(ctx, p)).To(Succeed())

			got, err := driver.GetProject(ctx, p.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Title).To(Equal("Alpha Two"))
			Expect(got.Visibility).To(Equal(project.VisibilityPrivate))

			_, err = driver.GetProjectBySlug(ctx, "alpha")
			Expect(storage.IsNotFound(err)).To(BeTrue())

			Expect(driver.CreateProject(ctx, NewProject("Alpha"))).To(Succeed())
		})

		It("rejects a slug owned by another project", func() {
			a := NewProject("Alpha")
			b := NewProject("Beta")
			Expect(driver.CreateProject(ctx, a)).To(Succeed())
			Expect(driver.CreateProject(ctx, b)).To(Succeed())

			b.Slug = "alpha"
			Expect(driver.UpdateProject(ctx, b)).To(MatchError(storage.ErrSlugConflict))
		})

		It("returns NotFoundError for an unknown project", func() {
			err := driver.UpdateProject(ctx, NewProject("Ghost"))
			Expect(storage.IsNotFound(err)).To(BeTrue())
		})
	})

	Describe("DeleteProject", func() {
		It("removes the project and its mappings", func() {
			p := NewProject("Alpha")
			Expect(driver.CreateProject(ctx, p)).To(Succeed())
			Expect(driver.UpsertMapping(ctx, &project.Mapping{
				ProjectID:  p.ID,
				Service:    "vector-index",
				ExternalID: "ext-1",
				SyncedAt:   time.Now().UTC(),
			})).To(Succeed())

			Expect(driver.DeleteProject(ctx, p.ID)).To(Succeed())

			_, err := driver.GetProject(ctx, p.ID)
			Expect(storage.IsNotFound(err)).To(BeTrue())
			_, err = driver.GetMapping(ctx, p.ID, "vector-index")
			Expect(storage.IsNotFound(err)).To(BeTrue())
		})

		It("returns NotFoundError for an unknown project", func() {
			Expect(storage.IsNotFound(driver.DeleteProject(ctx, "missing"))).To(BeTrue())
		})
	})

	Describe("ListProjects and ReorderProjects", func() {
		It("orders by position then creation time", func() {
			base := time.Now().UTC().Truncate(time.Millisecond)
			a := NewProject("A")
			a.Position, a.CreatedAt = 1, base.Add(2*time.Second)
			b := NewProject("B")
			b.Position, b.CreatedAt = 0, base.Add(3*time.Second)
			c := NewProject("C")
			c.Position, c.CreatedAt = 1, base.Add(time.Second)
			for _, p := range []*project.Project{a, b, c} {
				Expect(driver.CreateProject(ctx, p)).To(Succeed())
			}

			list, err := driver.ListProjects(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(titles(list)).To(Equal([]string{"B", "C", "A"}))
		})

		It("assigns positions by list index", func() {
			a, b, c := NewProject("A"), NewProject("B"), NewProject("C")
			for i, p := range []*project.Project{a, b, c} {
				p.Position = i
				Expect(driver.CreateProject(ctx, p)).To(Succeed())
			}

			Expect(driver.ReorderProjects(ctx, []string{c.ID, a.ID, b.ID})).To(Succeed())

			list, err := driver.ListProjects(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(titles(list)).To(Equal([]string{"C", "A", "B"}))
			Expect(list[0].Position).To(Equal(0))
			Expect(list[2].Position).To(Equal(2))
		})

		It("fails without changes when an id is unknown", func() {
			a, b := NewProject("A"), NewProject("B")
			a.Position, b.Position = 0, 1
			Expect(driver.CreateProject(ctx, a)).To(Succeed())
			Expect(driver.CreateProject(ctx, b)).To(Succeed())

			err := driver.ReorderProjects(ctx, []string{b.ID, "missing", a.ID})
			Expect(storage.IsNotFound(err)).To(BeTrue())

			list, err := driver.ListProjects(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(titles(list)).To(Equal([]string{"A", "B"}))
		})
	})

	Describe("NextPosition", func() {
		It("is zero for an empty store", func() {
			Expect(driver.NextPosition(ctx)).To(Equal(0))
		})

		It("is one past the highest position", func() {
			p := NewProject("A")
			p.Position = 7
			Expect(driver.CreateProject(ctx, p)).To(Succeed())
			Expect(driver.NextPosition(ctx)).To(Equal(8))
		})
	})

	Describe("Mappings", func() {
		It("keeps one mapping per project and service", func() {
			p := NewProject("Alpha")
			Expect(driver.CreateProject(ctx, p)).To(Succeed())

			first := time.Now().UTC().Truncate(time.Second)
			Expect(driver.UpsertMapping(ctx, &project.Mapping{
				ProjectID: p.ID, Service: "vector-index", ExternalID: "one", SyncedAt: first,
			})).To(Succeed())
			Expect(driver.UpsertMapping(ctx, &project.Mapping{
				ProjectID: p.ID, Service: "vector-index", ExternalID: "two", SyncedAt: first.Add(time.Minute),
			})).To(Succeed())

			m, err := driver.GetMapping(ctx, p.ID, "vector-index")
			Expect(err).NotTo(HaveOccurred())
			Expect(m.ExternalID).To(Equal("two"))
			Expect(m.SyncedAt.Equal(first.Add(time.Minute))).To(BeTrue())
		})

		It("treats deleting a missing mapping as success", func() {
			Expect(driver.DeleteMapping(ctx, "missing", "vector-index")).To(Succeed())
		})

		It("returns NotFoundError for an unknown mapping", func() {
			_, err := driver.GetMapping(ctx, "missing", "vector-index")
			Expect(storage.IsNotFound(err)).To(BeTrue())
		})
	})
}

func titles(list []*project.Project) []string {
	out := make([]string, len(list))
	for i, p := range list {
		out[i] = p.Title
	}
	return out
}
