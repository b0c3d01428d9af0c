package api

import (
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/folio/pkg/llm"
	"github.com/papercomputeco/folio/pkg/project"
)

var _ = Describe("Server", func() {
	var h *harness

	BeforeEach(func() {
		h = newHarness(nil)
	})

	AfterEach(func() {
		h.close()
	})

	create := func(title string, vis project.Visibility) *project.Project {
		resp := h.do(http.MethodPost, "/v1/admin/projects", map[string]any{
			"title":      title,
			"summary":    "About " + title,
			"visibility": vis,
		}, asAdmin)
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))
		p := decode[project.Project](resp)
		return &p
	}

	It("requires a project service", func() {
		_, err := NewServer(Config{}, nil)
		Expect(err).To(HaveOccurred())
	})

	It("answers ping", func() {
		resp := h.do(http.MethodGet, "/ping", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(readBody(resp)).To(Equal(`"pong"`))
	})

	Describe("public projects", func() {
		var pub, unlisted, private *project.Project

		BeforeEach(func() {
			pub = create("Public One", project.VisibilityPublic)
			unlisted = create("Hidden Gem", project.VisibilityUnlisted)
			private = create("Secret", project.VisibilityPrivate)
		})

		It("lists only public projects", func() {
			resp := h.do(http.MethodGet, "/v1/projects", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			body := decode[ProjectListResponse](resp)
			Expect(body.Count).To(Equal(1))
			Expect(body.Projects[0].ID).To(Equal(pub.ID))
		})

		It("serves unlisted projects by slug", func() {
			resp := h.do(http.MethodGet, "/v1/projects/"+unlisted.Slug, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(decode[project.Project](resp).ID).To(Equal(unlisted.ID))
		})

		It("never serves private projects", func() {
			resp := h.do(http.MethodGet, "/v1/projects/"+private.Slug, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("returns 404 for unknown slugs", func() {
			resp := h.do(http.MethodGet, "/v1/projects/nope", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			Expect(decode[llm.ErrorResponse](resp).Error).To(ContainSubstring("nope"))
		})
	})

	Describe("admin auth", func() {
		It("rejects requests without credentials", func() {
			resp := h.do(http.MethodGet, "/v1/admin/projects", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})

		It("rejects a wrong bearer token", func() {
			resp := h.do(http.MethodGet, "/v1/admin/projects", nil, func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer wrong")
			})
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})

		It("accepts the password as a bearer token", func() {
			resp := h.do(http.MethodGet, "/v1/admin/projects", nil, asAdmin)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})

		It("rejects a wrong password at login", func() {
			resp := h.do(http.MethodPost, "/v1/admin/login", LoginRequest{Password: "nope"})
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})

		It("issues a session cookie that grants admin access", func() {
			resp := h.do(http.MethodPost, "/v1/admin/login", LoginRequest{Password: testPassword})
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

			var session *http.Cookie
			for _, c := range resp.Cookies() {
				if c.Name == SessionCookie {
					session = c
				}
			}
			Expect(session).NotTo(BeNil())
			Expect(session.HttpOnly).To(BeTrue())

			resp = h.do(http.MethodGet, "/v1/admin/projects", nil, withCookie(session))
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})

		It("rejects a forged session cookie", func() {
			forged := &http.Cookie{Name: SessionCookie, Value: "99999999999"}
			resp := h.do(http.MethodGet, "/v1/admin/projects", nil, withCookie(forged))
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})

		It("disables the admin API without a password", func() {
			noAdmin := newHarness(func(c *Config) { c.AdminPassword = "" })
			defer noAdmin.close()

			resp := noAdmin.do(http.MethodGet, "/v1/admin/projects", nil, asAdmin)
			Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))

			resp = noAdmin.do(http.MethodPost, "/v1/admin/login", LoginRequest{Password: ""})
			Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))
		})
	})

	Describe("admin projects", func() {
		It("creates a project with a generated slug", func() {
			p := create("My Great App", "")
			Expect(p.Slug).To(Equal("my-great-app"))
			Expect(p.Visibility).To(Equal(project.VisibilityPublic))
		})

		It("rejects invalid projects", func() {
			resp := h.do(http.MethodPost, "/v1/admin/projects", map[string]any{"summary": "no title"}, asAdmin)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(decode[llm.ErrorResponse](resp).Error).To(ContainSubstring("title"))
		})

		It("rejects malformed bodies", func() {
			resp := h.do(http.MethodPost, "/v1/admin/projects", "not an object", asAdmin)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("reports slug conflicts", func() {
			create("Twin", project.VisibilityPublic)
			resp := h.do(http.MethodPost, "/v1/admin/projects", map[string]any{
				"title":   "Twin",
				"summary": "again",
			}, asAdmin)
			Expect(resp.StatusCode).To(Equal(http.StatusConflict))
		})

		It("shows private projects to admins", func() {
			p := create("Secret", project.VisibilityPrivate)
			resp := h.do(http.MethodGet, "/v1/admin/projects/"+p.ID, nil, asAdmin)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(decode[project.Project](resp).Visibility).To(Equal(project.VisibilityPrivate))
		})

		It("updates a project", func() {
			p := create("Before", project.VisibilityPublic)
			resp := h.do(http.MethodPut, "/v1/admin/projects/"+p.ID, map[string]any{
				"title":   "After",
				"summary": "Updated",
			}, asAdmin)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			updated := decode[project.Project](resp)
			Expect(updated.ID).To(Equal(p.ID))
			Expect(updated.Slug).To(Equal("after"))
		})

		It("returns 404 when updating an unknown project", func() {
			resp := h.do(http.MethodPut, "/v1/admin/projects/missing", map[string]any{
				"title":   "X",
				"summary": "Y",
			}, asAdmin)
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("deletes a project", func() {
			p := create("Doomed", project.VisibilityPublic)
			resp := h.do(http.MethodDelete, "/v1/admin/projects/"+p.ID, nil, asAdmin)
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

			resp = h.do(http.MethodGet, "/v1/admin/projects/"+p.ID, nil, asAdmin)
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))

			resp = h.do(http.MethodDelete, "/v1/admin/projects/"+p.ID, nil, asAdmin)
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("reorders projects", func() {
			a := create("A", project.VisibilityPublic)
			b := create("B", project.VisibilityPublic)

			resp := h.do(http.MethodPost, "/v1/admin/projects/reorder", ReorderRequest{IDs: []string{b.ID, a.ID}}, asAdmin)
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

			list := decode[ProjectListResponse](h.do(http.MethodGet, "/v1/projects", nil))
			Expect(list.Projects[0].ID).To(Equal(b.ID))
			Expect(list.Projects[1].ID).To(Equal(a.ID))
		})

		It("rejects a reorder naming unknown projects", func() {
			resp := h.do(http.MethodPost, "/v1/admin/projects/reorder", ReorderRequest{IDs: []string{"ghost"}}, asAdmin)
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("sync status", func() {
		It("reports a synced project", func() {
			p := create("Indexed", project.VisibilityPublic)
			h.pool.Wait()

			resp := h.do(http.MethodGet, "/v1/admin/projects/"+p.ID+"/sync", nil, asAdmin)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			status := decode[SyncStatusResponse](resp)
			Expect(status.Synced).To(BeTrue())
			Expect(status.Mapping).NotTo(BeNil())
			Expect(status.Pending).To(BeNil())
		})

		It("reports a failed sync as pending", func() {
			h.index.UpsertErr = errIndexDown
			p := create("Unindexed", project.VisibilityPublic)
			h.pool.Wait()

			status := decode[SyncStatusResponse](h.do(http.MethodGet, "/v1/admin/projects/"+p.ID+"/sync", nil, asAdmin))
			Expect(status.Synced).To(BeFalse())
			Expect(status.Mapping).To(BeNil())
			Expect(status.Pending).NotTo(BeNil())
			Expect(status.Pending.Attempts).To(Equal(1))
			Expect(status.Pending.LastError).To(ContainSubstring("index down"))
		})

		It("returns 404 for unknown projects", func() {
			resp := h.do(http.MethodGet, "/v1/admin/projects/missing/sync", nil, asAdmin)
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("queues a resync", func() {
			p := create("Again", project.VisibilityPublic)
			resp := h.do(http.MethodPost, "/v1/admin/projects/"+p.ID+"/sync", nil, asAdmin)
			Expect(resp.StatusCode).To(Equal(http.StatusAccepted))
			Expect(decode[map[string]bool](resp)).To(HaveKeyWithValue("queued", true))
		})
	})
})
