package eventstream_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/folio/pkg/eventstream"
	"github.com/papercomputeco/folio/pkg/project"
)

var _ = Describe("Event", func() {
	src := eventstream.EventSource{Namespace: "portfolio", Service: "folio"}

	It("marshals ProjectEvent with expected top-level keys", func() {
		p := &project.Project{
			ID:         "01HX",
			Title:      "Folio",
			Slug:       "folio",
			Summary:    "Portfolio backend",
			Visibility: project.VisibilityPublic,
			CreatedAt:  time.Unix(1735689600, 0).UTC(),
		}

		payload, err := json.Marshal(eventstream.NewProjectCreated(src, p))
		Expect(err).NotTo(HaveOccurred())

		var decoded map[string]any
		Expect(json.Unmarshal(payload, &decoded)).To(Succeed())
		Expect(decoded).To(HaveKeyWithValue("schema_version", BeNumerically("==", eventstream.SchemaVersionV1)))
		Expect(decoded).To(HaveKeyWithValue("event_type", eventstream.EventTypeProjectCreated))
		Expect(decoded).To(HaveKey("event_id"))
		Expect(decoded).To(HaveKey("emitted_at"))
		Expect(decoded).To(HaveKeyWithValue("project_id", "01HX"))
		Expect(decoded).To(HaveKey("project"))
		Expect(decoded).NotTo(HaveKey("order"))

		source, ok := decoded["source"].(map[string]any)
		Expect(ok).To(BeTrue())
		Expect(source).To(HaveKeyWithValue("namespace", "portfolio"))
	})

	It("copies the project so later edits do not leak into the event", func() {
		p := &project.Project{ID: "p1", Title: "Before", Tags: []string{"go"}}
		e := eventstream.NewProjectUpdated(src, p)

		p.Title = "After"
		p.Tags[0] = "rust"

		Expect(e.Project.Title).To(Equal("Before"))
		Expect(e.Project.Tags).To(Equal([]string{"go"}))
	})

	It("gives every event a fresh id", func() {
		a := eventstream.NewProjectDeleted(src, "p1")
		b := eventstream.NewProjectDeleted(src, "p1")
		Expect(a.EventID).NotTo(Equal(b.EventID))
		Expect(a.Project).To(BeNil())
	})

	It("keys project events by project id and reorders by event type", func() {
		Expect(eventstream.NewProjectDeleted(src, "p1").Key()).To(Equal("p1"))

		e := eventstream.NewProjectsReordered(src, []string{"b", "a"})
		Expect(e.Key()).To(Equal(eventstream.EventTypeProjectReordered))
		Expect(e.Order).To(Equal([]string{"b", "a"}))
	})
})
