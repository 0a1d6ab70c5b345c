package transcript

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStorer is an in-memory Storer, primarily for tests.
type MemoryStorer struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryStorer creates an empty in-memory store.
func NewMemoryStorer() *MemoryStorer {
	return &MemoryStorer{
		records: make(map[string]*Record),
	}
}

// Put stores a record, skipping duplicates by ID.
func (m *MemoryStorer) Put(_ context.Context, rec *Record) (bool, error) {
	if rec == nil {
		return false, fmt.Errorf("cannot store nil record")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[rec.ID]; ok {
		return false, nil
	}

	m.records[rec.ID] = rec
	return true, nil
}

// Get retrieves a record by ID.
func (m *MemoryStorer) Get(_ context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound{ID: id}
	}

	return rec, nil
}

// List returns all records, newest first.
func (m *MemoryStorer) List(_ context.Context) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]*Record, 0, len(m.records))
	for _, rec := range m.records {
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	return records, nil
}

// Recent returns up to n records, newest first.
func (m *MemoryStorer) Recent(ctx context.Context, n int) ([]*Record, error) {
	records, err := m.List(ctx)
	if err != nil {
		return nil, err
	}

	if len(records) > n {
		records = records[:n]
	}

	return records, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStorer) Close() error {
	return nil
}
