// Package bolt provides a durable outbox.Journal on a bbolt file.
package bolt

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"go.etcd.io/bbolt"

	"github.com/papercomputeco/folio/pkg/outbox"
)

var bucketTasks = []byte("sync_tasks")

// Journal implements outbox.Journal with bbolt. Tasks are stored as JSON
// under their project id.
type Journal struct {
	db *bbolt.DB
}

// NewJournal opens or creates the journal file at path.
func NewJournal(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating journal directory: %w", err)
		}
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketTasks); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketTasks, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Journal{db: db}, nil
}

func (j *Journal) Put(_ context.Context, t outbox.Task) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshaling task: %w", err)
	}
	return j.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketTasks).Put([]byte(t.ProjectID), data)
	})
}

func (j *Journal) Resolve(_ context.Context, t outbox.Task, syncErr error) error {
	return j.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketTasks)
		key := []byte(t.ProjectID)

		data := b.Get(key)
		if data == nil {
			return nil
		}
		var stored outbox.Task
		if err := json.Unmarshal(data, &stored); err != nil {
			return fmt.Errorf("decoding task for project %s: %w", t.ProjectID, err)
		}
		if stored.ID != t.ID {
			return nil
		}

		next, keep := outbox.Settle(stored, syncErr, time.Now())
		if !keep {
			return b.Delete(key)
		}
		out, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("marshaling task: %w", err)
		}
		return b.Put(key, out)
	})
}

func (j *Journal) List(_ context.Context) ([]outbox.Task, error) {
	var tasks []outbox.Task
	err := j.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketTasks).ForEach(func(k, v []byte) error {
			var t outbox.Task
			if err := json.Unmarshal(v, &t); err != nil {
				return fmt.Errorf("decoding task for project %s: %w", k, err)
			}
			tasks = append(tasks, t)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(tasks, func(a, b outbox.Task) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return tasks, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

var _ outbox.Journal = (*Journal)(nil)
