package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/folio/pkg/vector"
)

// MockVectorDriver is a test vector driver that records calls and returns
// canned query results.
type MockVectorDriver struct {
	mu sync.Mutex

	documents map[string]vector.Document
	results   []vector.QueryResult

	// EnsureErr, UpsertErr, QueryErr and DeleteErr are returned by the
	// matching call when set
	EnsureErr error
	UpsertErr error
	QueryErr  error
	DeleteErr error

	// LastNamespace and LastTopK record the most recent Query arguments
	LastNamespace string
	LastTopK      int

	Deleted     []string
	EnsureCalls int
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{
		documents: make(map[string]vector.Document),
	}
}

// SetResults sets what Query returns.
func (m *MockVectorDriver) SetResults(results []vector.QueryResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = results
}

func (m *MockVectorDriver) EnsureCollection(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EnsureCalls++
	return m.EnsureErr
}

func (m *MockVectorDriver) Upsert(_ context.Context, docs []vector.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	for _, d := range docs {
		m.documents[d.ID] = d
	}
	return nil
}

func (m *MockVectorDriver) Query(_ context.Context, _ []float32, topK int, namespace string) ([]vector.QueryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastNamespace = namespace
	m.LastTopK = topK
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	if len(m.results) < topK {
		return m.results, nil
	}
	return m.results[:topK], nil
}

func (m *MockVectorDriver) Get(_ context.Context, ids []string) ([]vector.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []vector.Document
	for _, id := range ids {
		if d, ok := m.documents[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

// Document returns the stored document with id.
func (m *MockVectorDriver) Document(id string) (vector.Document, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.documents[id]
	return d, ok
}

func (m *MockVectorDriver) Delete(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	for _, id := range ids {
		delete(m.documents, id)
	}
	m.Deleted = append(m.Deleted, ids...)
	return nil
}

func (m *MockVectorDriver) Close() error {
	return nil
}

var _ vector.Driver = (*MockVectorDriver)(nil)
