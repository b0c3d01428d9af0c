package projectscmder_test

import (
	"context"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	projectscmder "github.com/papercomputeco/folio/cmd/folio/projects"
	"github.com/papercomputeco/folio/pkg/project"
	"github.com/papercomputeco/folio/pkg/storage"
)

type fakeProjects []*project.Project

func (f fakeProjects) Get(_ context.Context, id string) (*project.Project, error) {
	for _, p := range f {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, storage.NotFoundError{Key: id}
}

func (f fakeProjects) List(context.Context) ([]*project.Project, error) {
	return f, nil
}

type brokenProjects struct{ fakeProjects }

func (brokenProjects) Get(context.Context, string) (*project.Project, error) {
	return nil, errors.New("database is locked")
}

var _ = Describe("NewProjectsCmd", func() {
	It("has list and show subcommands", func() {
		cmd := projectscmder.NewProjectsCmd()
		var names []string
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements("list", "show"))
	})

	It("requires an argument for show", func() {
		cmd := projectscmder.NewProjectsCmd()
		cmd.SetArgs([]string{"show"})
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		Expect(cmd.Execute()).To(HaveOccurred())
	})
})

var _ = Describe("Lookup", func() {
	projects := fakeProjects{
		{ID: "01HX", Slug: "tide-tables", Title: "Tide Tables"},
		{ID: "01HY", Slug: "lighthouse", Title: "Lighthouse"},
	}

	It("finds a project by id", func() {
		p, err := projectscmder.Lookup(context.Background(), projects, "01HY")
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Slug).To(Equal("lighthouse"))
	})

	It("falls back to the slug", func() {
		p, err := projectscmder.Lookup(context.Background(), projects, "tide-tables")
		Expect(err).NotTo(HaveOccurred())
		Expect(p.ID).To(Equal("01HX"))
	})

	It("reports unknown keys as not found", func() {
		_, err := projectscmder.Lookup(context.Background(), projects, "nope")
		Expect(storage.IsNotFound(err)).To(BeTrue())
	})

	It("does not hide store failures", func() {
		_, err := projectscmder.Lookup(context.Background(), brokenProjects{projects}, "01HX")
		Expect(err).To(MatchError("database is locked"))
	})
})

var _ = Describe("PrintList", func() {
	It("prints one line per project", func() {
		var out strings.Builder
		projectscmder.PrintList(&out, []*project.Project{
			{Slug: "tide-tables", Summary: "Tides", Visibility: project.VisibilityPublic},
			{Slug: "lighthouse", Summary: "Beams", Visibility: project.VisibilityPrivate, Position: 1},
		})
		Expect(out.String()).To(ContainSubstring("tide-tables"))
		Expect(out.String()).To(ContainSubstring("lighthouse"))
		Expect(out.String()).To(ContainSubstring("2 projects"))
	})

	It("hints at seeding when empty", func() {
		var out strings.Builder
		projectscmder.PrintList(&out, nil)
		Expect(out.String()).To(ContainSubstring("folio seed"))
	})
})

var _ = Describe("PrintProject", func() {
	It("prints the header and the indexed text", func() {
		var out strings.Builder
		Expect(projectscmder.PrintProject(&out, &project.Project{
			ID:         "01HX",
			Slug:       "tide-tables",
			Title:      "Tide Tables",
			Summary:    "Predicts tides",
			Visibility: project.VisibilityPublic,
		})).To(Succeed())
		Expect(out.String()).To(ContainSubstring("01HX"))
		Expect(out.String()).To(ContainSubstring("Tide Tables"))
		Expect(out.String()).To(ContainSubstring("Predicts"))
	})
})
