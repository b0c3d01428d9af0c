// Package memory turns portfolio projects into the text records that are
// embedded and stored in the vector index.
//
// A memory is a derived projection of a project. The project in the content
// store is always the source of truth: a memory may be stale or missing, and
// its absence never blocks reading the project itself.
package memory

import (
	"fmt"
	"time"

	"github.com/papercomputeco/folio/pkg/project"
	"github.com/papercomputeco/folio/pkg/vector"
)

// Payload keys stored alongside each vector.
const (
	KeyText       = "text"
	KeyProjectID  = vector.OwnerKey
	KeySlug       = "slug"
	KeyVisibility = "visibility"
	KeyNamespace  = vector.NamespaceKey
	KeyTimestamp  = "timestamp"
)

// Record is one memory: the formatted text of a project plus the metadata
// needed to scope and trace it.
type Record struct {
	// PointID is the vector index identifier derived from ProjectID.
	PointID string `json:"pointId"`

	ProjectID  string             `json:"projectId"`
	Slug       string             `json:"slug"`
	Visibility project.Visibility `json:"visibility"`

	// Namespace scopes the record to one deployment.
	Namespace string `json:"namespace"`

	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRecord builds the memory for p within namespace.
func NewRecord(p *project.Project, namespace string, now time.Time) Record {
	return Record{
		PointID:    PointID(p.ID),
		ProjectID:  p.ID,
		Slug:       p.Slug,
		Visibility: p.Visibility,
		Namespace:  namespace,
		Text:       Format(p),
		Timestamp:  now.UTC(),
	}
}

// Payload returns the record's vector payload.
func (r Record) Payload() map[string]string {
	return map[string]string{
		KeyText:       r.Text,
		KeyProjectID:  r.ProjectID,
		KeySlug:       r.Slug,
		KeyVisibility: string(r.Visibility),
		KeyNamespace:  r.Namespace,
		KeyTimestamp:  r.Timestamp.Format(time.RFC3339),
	}
}

// FromPayload rebuilds a record from a stored payload.
func FromPayload(pointID string, payload map[string]string) (Record, error) {
	r := Record{
		PointID:    pointID,
		ProjectID:  payload[KeyProjectID],
		Slug:       payload[KeySlug],
		Visibility: project.Visibility(payload[KeyVisibility]),
		Namespace:  payload[KeyNamespace],
		Text:       payload[KeyText],
	}
	if ts := payload[KeyTimestamp]; ts != "" {
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return r, fmt.Errorf("parsing timestamp for point %s: %w", pointID, err)
		}
		r.Timestamp = t
	}
	return r, nil
}
