// Package project defines the portfolio Project entity, its nested value
// types, and the integration mapping that links a project to external
// services such as the vector index.
package project

import (
	"crypto/rand"
	"slices"
	"time"

	"github.com/oklog/ulid/v2"
)

// Visibility controls where a project may be shown.
type Visibility string

const (
	// VisibilityPublic projects are listed on the site and indexed for chat.
	VisibilityPublic Visibility = "public"

	// VisibilityUnlisted projects are reachable by slug and indexed for chat,
	// but not listed.
	VisibilityUnlisted Visibility = "unlisted"

	// VisibilityPrivate projects never leave the admin API and are never indexed.
	VisibilityPrivate Visibility = "private"
)

// Valid reports whether v is a known visibility.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityUnlisted, VisibilityPrivate:
		return true
	}
	return false
}

// LinkType classifies a project link.
type LinkType string

const (
	LinkWeb       LinkType = "web"
	LinkGitHub    LinkType = "github"
	LinkPlayStore LinkType = "playstore"
	LinkAppStore  LinkType = "appstore"
	LinkOther     LinkType = "other"
)

// Valid reports whether t is a known link type.
func (t LinkType) Valid() bool {
	switch t {
	case LinkWeb, LinkGitHub, LinkPlayStore, LinkAppStore, LinkOther:
		return true
	}
	return false
}

// Image is a screenshot or illustration attached to a project.
type Image struct {
	URL     string `json:"url" yaml:"url"`
	Alt     string `json:"alt" yaml:"alt"`
	Caption string `json:"caption,omitempty" yaml:"caption,omitempty"`
	Order   *int   `json:"order,omitempty" yaml:"order,omitempty"`
}

// Link is a typed external link.
type Link struct {
	Type  LinkType `json:"type" yaml:"type"`
	URL   string   `json:"url" yaml:"url"`
	Label string   `json:"label,omitempty" yaml:"label,omitempty"`
}

// Metrics are optional headline numbers for a project.
type Metrics struct {
	Duration string `json:"duration,omitempty" yaml:"duration,omitempty"`
	TeamSize int    `json:"teamSize,omitempty" yaml:"team_size,omitempty"`
	Impact   string `json:"impact,omitempty" yaml:"impact,omitempty"`
}

// IsZero reports whether no metric is set.
func (m *Metrics) IsZero() bool {
	return m == nil || (m.Duration == "" && m.TeamSize == 0 && m.Impact == "")
}

// Project is a single portfolio entry.
type Project struct {
	ID      string `json:"id" yaml:"id,omitempty"`
	Title   string `json:"title" yaml:"title"`
	Slug    string `json:"slug" yaml:"slug,omitempty"`
	Summary string `json:"summary" yaml:"summary"`

	// Content is long-form markdown or HTML.
	Content string `json:"content,omitempty" yaml:"content,omitempty"`

	Role         string   `json:"role,omitempty" yaml:"role,omitempty"`
	Problem      string   `json:"problem,omitempty" yaml:"problem,omitempty"`
	Solution     string   `json:"solution,omitempty" yaml:"solution,omitempty"`
	KeyTakeaway  string   `json:"keyTakeaway,omitempty" yaml:"key_takeaway,omitempty"`
	Architecture string   `json:"architecture,omitempty" yaml:"architecture,omitempty"`
	Features     []string `json:"features,omitempty" yaml:"features,omitempty"`
	TechStack    []string `json:"techStack,omitempty" yaml:"tech_stack,omitempty"`
	Tags         []string `json:"tags,omitempty" yaml:"tags,omitempty"`

	Images  []Image  `json:"images,omitempty" yaml:"images,omitempty"`
	Links   []Link   `json:"links,omitempty" yaml:"links,omitempty"`
	Metrics *Metrics `json:"metrics,omitempty" yaml:"metrics,omitempty"`

	Visibility Visibility `json:"visibility" yaml:"visibility,omitempty"`

	// Position only carries relative order. Gaps are allowed and ties are
	// broken by CreatedAt.
	Position   int    `json:"position" yaml:"-"`
	Status     string `json:"status,omitempty" yaml:"status,omitempty"`
	SchemaType string `json:"schemaType,omitempty" yaml:"schema_type,omitempty"`

	CreatedAt   time.Time  `json:"createdAt" yaml:"-"`
	UpdatedAt   time.Time  `json:"updatedAt" yaml:"-"`
	PublishedAt *time.Time `json:"publishedAt,omitempty" yaml:"published_at,omitempty"`
}

// IsPrivate reports whether the project must be kept out of the vector index
// and public API.
func (p *Project) IsPrivate() bool {
	return p.Visibility == VisibilityPrivate
}

// Listed reports whether the project appears in the public project list.
func (p *Project) Listed() bool {
	return p.Visibility == VisibilityPublic
}

// NewID returns a new lexically sortable project id.
func NewID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// Clone returns a deep copy of p.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	c := *p
	c.Features = slices.Clone(p.Features)
	c.TechStack = slices.Clone(p.TechStack)
	c.Tags = slices.Clone(p.Tags)
	c.Links = slices.Clone(p.Links)
	if p.Images != nil {
		c.Images = make([]Image, len(p.Images))
		for i, img := range p.Images {
			c.Images[i] = img
			if img.Order != nil {
				o := *img.Order
				c.Images[i].Order = &o
			}
		}
	}
	if p.Metrics != nil {
		m := *p.Metrics
		c.Metrics = &m
	}
	if p.PublishedAt != nil {
		t := *p.PublishedAt
		c.PublishedAt = &t
	}
	return &c
}
