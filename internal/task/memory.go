package task

import (
	"context"
	"sort"
	"sync"
)

// Compile-time check that MemoryRepository implements Repository.
var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository is an in-memory implementation of Repository.
// Records live for the lifetime of the process.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryRepository creates a new in-memory task repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		records: make(map[string]*Record),
	}
}

// Save stores a clone of rec to avoid external mutations.
func (r *MemoryRepository) Save(_ context.Context, rec *Record) error {
	c := rec.Clone()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[c.ID] = c
	return nil
}

// FindByID retrieves a record by its ID.
// Returns a clone to prevent external mutations.
func (r *MemoryRepository) FindByID(_ context.Context, id string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return rec.Clone(), nil
}

// List returns clones of all records ordered by creation time.
func (r *MemoryRepository) List(_ context.Context) ([]*Record, error) {
	r.mu.RLock()
	result := make([]*Record, 0, len(r.records))
	for _, rec := range r.records {
		result = append(result, rec.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// Delete removes a record from storage.
func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; !ok {
		return ErrTaskNotFound
	}
	delete(r.records, id)
	return nil
}
