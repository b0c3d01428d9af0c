package eventstream

import "context"

// Publisher publishes project events to an event stream backend.
type Publisher interface {
	PublishProject(ctx context.Context, event *ProjectEvent) error
	Close() error
}
