// Package eventstream publishes project change events so other systems can
// follow the portfolio without polling the API.
package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/folio/pkg/project"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	EventTypeProjectCreated   = "folio.project.created"
	EventTypeProjectUpdated   = "folio.project.updated"
	EventTypeProjectDeleted   = "folio.project.deleted"
	EventTypeProjectReordered = "folio.project.reordered"
)

// ProjectEvent is a transport-neutral event payload for a content change.
type ProjectEvent struct {
	SchemaVersion int         `json:"schema_version"`
	EventType     string      `json:"event_type"`
	EventID       string      `json:"event_id"`
	EmittedAt     time.Time   `json:"emitted_at"`
	Source        EventSource `json:"source"`

	// ProjectID is empty for reorder events.
	ProjectID string `json:"project_id,omitempty"`

	// Project is the stored state after a create or update.
	Project *project.Project `json:"project,omitempty"`

	// Order lists project ids in their new display order.
	Order []string `json:"order,omitempty"`
}

// EventSource identifies the deployment that emitted the event.
type EventSource struct {
	Namespace string `json:"namespace"`
	Service   string `json:"service"`
}

// Key returns the partition key: the project id, or the event type for
// events that span projects.
func (e *ProjectEvent) Key() string {
	if e.ProjectID != "" {
		return e.ProjectID
	}
	return e.EventType
}

func newEvent(eventType string, src EventSource) *ProjectEvent {
	return &ProjectEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     eventType,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        src,
	}
}

// NewProjectCreated builds the event for a newly stored project.
func NewProjectCreated(src EventSource, p *project.Project) *ProjectEvent {
	e := newEvent(EventTypeProjectCreated, src)
	e.ProjectID = p.ID
	e.Project = p.Clone()
	return e
}

// NewProjectUpdated builds the event for an updated project.
func NewProjectUpdated(src EventSource, p *project.Project) *ProjectEvent {
	e := newEvent(EventTypeProjectUpdated, src)
	e.ProjectID = p.ID
	e.Project = p.Clone()
	return e
}

// NewProjectDeleted builds the event for a removed project.
func NewProjectDeleted(src EventSource, projectID string) *ProjectEvent {
	e := newEvent(EventTypeProjectDeleted, src)
	e.ProjectID = projectID
	return e
}

// NewProjectsReordered builds the event for a reorder.
func NewProjectsReordered(src EventSource, ids []string) *ProjectEvent {
	e := newEvent(EventTypeProjectReordered, src)
	e.Order = append([]string(nil), ids...)
	return e
}
