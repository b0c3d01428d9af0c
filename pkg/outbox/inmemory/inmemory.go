// Package inmemory provides a map-backed outbox.Journal for tests and
// deployments that accept losing pending tasks on restart.
package inmemory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/papercomputeco/folio/pkg/outbox"
)

// Journal implements outbox.Journal in memory.
type Journal struct {
	mu    sync.Mutex
	tasks map[string]outbox.Task
}

// NewJournal creates an empty journal.
func NewJournal() *Journal {
	return &Journal{tasks: make(map[string]outbox.Task)}
}

func (j *Journal) Put(_ context.Context, t outbox.Task) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.tasks[t.ProjectID] = t
	return nil
}

func (j *Journal) Resolve(_ context.Context, t outbox.Task, syncErr error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	stored, ok := j.tasks[t.ProjectID]
	if !ok || stored.ID != t.ID {
		return nil
	}
	if next, keep := outbox.Settle(stored, syncErr, time.Now()); keep {
		j.tasks[t.ProjectID] = next
	} else {
		delete(j.tasks, t.ProjectID)
	}
	return nil
}

func (j *Journal) List(_ context.Context) ([]outbox.Task, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make([]outbox.Task, 0, len(j.tasks))
	for _, t := range j.tasks {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b outbox.Task) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (j *Journal) Close() error {
	return nil
}

var _ outbox.Journal = (*Journal)(nil)
