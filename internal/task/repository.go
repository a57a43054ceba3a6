package task

import (
	"context"
	"errors"
)

// ErrTaskNotFound is returned when a record cannot be found by ID.
var ErrTaskNotFound = errors.New("task not found")

// Repository defines the interface for task record storage.
type Repository interface {
	// Save stores a record, replacing any record with the same ID.
	Save(ctx context.Context, rec *Record) error

	// FindByID retrieves a record by its handle.
	// Returns ErrTaskNotFound if the record does not exist.
	FindByID(ctx context.Context, id string) (*Record, error)

	// List returns all records, oldest first.
	List(ctx context.Context) ([]*Record, error)

	// Delete removes a record.
	// Returns ErrTaskNotFound if the record does not exist.
	Delete(ctx context.Context, id string) error
}
