package project

import "time"

// Mapping records that a project has been mirrored into an external service.
// There is at most one Mapping per (ProjectID, Service).
type Mapping struct {
	ProjectID  string    `json:"projectId"`
	Service    string    `json:"service"`
	ExternalID string    `json:"externalId"`
	SyncedAt   time.Time `json:"syncedAt"`
	LastError  string    `json:"lastError,omitempty"`
}
