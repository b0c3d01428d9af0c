// Package outbox decouples content mutations from their side effects.
//
// A mutation records a Task in a Journal and hands it to a Pool of workers.
// The journal keeps at most one task per project: a newer task replaces an
// older one, since every task means "bring this project's mirrors in line
// with the content store". A task leaves the journal only when its handler
// succeeds. Failed tasks stay with their attempt count and last error until
// they are replayed, at startup or on demand.
package outbox

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// Op is the mutation that produced a task.
type Op string

const (
	OpUpsert Op = "upsert"
	OpDelete Op = "delete"
)

// Task asks for one project to be synced.
type Task struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	Op        Op        `json:"op"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"lastError,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewTask creates a task with a fresh id.
func NewTask(projectID string, op Op) Task {
	now := time.Now().UTC()
	return Task{
		ID:        ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		ProjectID: projectID,
		Op:        op,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Failed reports whether the task has been attempted without success.
func (t Task) Failed() bool {
	return t.Attempts > 0
}

// Journal durably records pending tasks, keyed by project id.
type Journal interface {
	// Put records t, replacing any task for the same project.
	Put(ctx context.Context, t Task) error

	// Resolve settles a processed task. If t is still the journal's task for
	// its project, a nil syncErr removes it and a non-nil syncErr stores it
	// with one more attempt and the error message. A task that has since
	// been replaced is left alone.
	Resolve(ctx context.Context, t Task, syncErr error) error

	// List returns every pending task, oldest first.
	List(ctx context.Context) ([]Task, error)

	// Close releases the journal.
	Close() error
}

// Handler performs the side effects of a task.
type Handler interface {
	HandleTask(ctx context.Context, t Task) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, t Task) error

func (f HandlerFunc) HandleTask(ctx context.Context, t Task) error {
	return f(ctx, t)
}

// Settle applies the Resolve rules to t, which must still be the stored task
// for its project. It returns the task to store, or false when the entry
// should be deleted. Journal implementations share it.
func Settle(t Task, syncErr error, now time.Time) (Task, bool) {
	if syncErr == nil {
		return Task{}, false
	}
	t.Attempts++
	t.LastError = syncErr.Error()
	t.UpdatedAt = now.UTC()
	return t, true
}
