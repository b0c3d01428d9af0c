package project_test

import (
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/folio/pkg/project"
)

func validProject() *project.Project {
	return &project.Project{
		Title:   "Tide Tables",
		Summary: "Offline tide predictions for sailors.",
		Links: []project.Link{
			{Type: project.LinkGitHub, URL: "https://github.com/example/tides"},
		},
	}
}

var _ = Describe("Project", func() {
	Describe("Slugify", func() {
		DescribeTable("derives URL-safe slugs",
			func(in, want string) {
				Expect(project.Slugify(in)).To(Equal(want))
			},
			Entry("simple title", "Tide Tables", "tide-tables"),
			Entry("punctuation collapses", "Hello,  World!!", "hello-world"),
			Entry("accents fold", "Café Crème", "cafe-creme"),
			Entry("leading and trailing junk", "  --Go!--  ", "go"),
			Entry("digits survive", "Top 10 Apps", "top-10-apps"),
			Entry("nothing usable", "!!!", ""),
		)

		It("caps the slug length", func() {
			slug := project.Slugify(strings.Repeat("abc ", 100))
			Expect(len(slug)).To(BeNumerically("<=", 120))
			Expect(slug).NotTo(HaveSuffix("-"))
		})
	})

	Describe("Normalize", func() {
		It("fills slug and visibility", func() {
			p := validProject()
			p.Normalize()
			Expect(p.Slug).To(Equal("tide-tables"))
			Expect(p.Visibility).To(Equal(project.VisibilityPublic))
		})

		It("keeps an explicit slug", func() {
			p := validProject()
			p.Slug = "tides"
			p.Normalize()
			Expect(p.Slug).To(Equal("tides"))
		})

		It("drops blank list entries and empty metrics", func() {
			p := validProject()
			p.Tags = []string{" go ", "", "  "}
			p.Features = []string{""}
			p.Metrics = &project.Metrics{}
			p.Normalize()
			Expect(p.Tags).To(Equal([]string{"go"}))
			Expect(p.Features).To(BeNil())
			Expect(p.Metrics).To(BeNil())
		})
	})

	Describe("Validate", func() {
		It("accepts a valid project", func() {
			p := validProject()
			p.Normalize()
			Expect(p.Validate()).To(Succeed())
		})

		DescribeTable("rejects invalid fields",
			func(mutate func(p *project.Project), field string) {
				p := validProject()
				p.Normalize()
				mutate(p)

				err := p.Validate()
				Expect(err).To(HaveOccurred())

				var verr project.ValidationError
				Expect(err).To(BeAssignableToTypeOf(verr))
				Expect(err.(project.ValidationError).Field).To(Equal(field))
			},
			Entry("missing title", func(p *project.Project) { p.Title = "" }, "title"),
			Entry("bad slug", func(p *project.Project) { p.Slug = "Not A Slug" }, "slug"),
			Entry("double hyphen slug", func(p *project.Project) { p.Slug = "a--b" }, "slug"),
			Entry("missing summary", func(p *project.Project) { p.Summary = "" }, "summary"),
			Entry("unknown visibility", func(p *project.Project) { p.Visibility = "secret" }, "visibility"),
			Entry("unknown link type", func(p *project.Project) { p.Links[0].Type = "myspace" }, "links[0].type"),
			Entry("relative link", func(p *project.Project) { p.Links[0].URL = "/tides" }, "links[0].url"),
			Entry("image without alt", func(p *project.Project) {
				p.Images = []project.Image{{URL: "https://cdn.example.dev/a.png"}}
			}, "images[0].alt"),
			Entry("negative team size", func(p *project.Project) { p.Metrics = &project.Metrics{TeamSize: -1} }, "metrics.teamSize"),
		)
	})

	Describe("SortByPosition", func() {
		It("orders by position then creation time", func() {
			t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			a := &project.Project{ID: "a", Position: 2, CreatedAt: t0}
			b := &project.Project{ID: "b", Position: 0, CreatedAt: t0.Add(time.Hour)}
			c := &project.Project{ID: "c", Position: 0, CreatedAt: t0}
			d := &project.Project{ID: "d", Position: 7, CreatedAt: t0}

			list := []*project.Project{a, b, c, d}
			project.SortByPosition(list)
			Expect([]string{list[0].ID, list[1].ID, list[2].ID, list[3].ID}).To(Equal([]string{"c", "b", "a", "d"}))
		})
	})

	Describe("NewID", func() {
		It("returns distinct ULIDs", func() {
			a, b := project.NewID(), project.NewID()
			Expect(a).To(HaveLen(26))
			Expect(a).NotTo(Equal(b))
		})
	})

	Describe("visibility helpers", func() {
		It("only lists public projects", func() {
			Expect((&project.Project{Visibility: project.VisibilityPublic}).Listed()).To(BeTrue())
			Expect((&project.Project{Visibility: project.VisibilityUnlisted}).Listed()).To(BeFalse())
			Expect((&project.Project{Visibility: project.VisibilityPrivate}).IsPrivate()).To(BeTrue())
		})
	})
})
