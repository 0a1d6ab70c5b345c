package transcript

import "context"

// Storer defines the interface for persisting and retrieving transcript
// records. De-duplication happens automatically via content-addressing:
// identical exchanges produce identical IDs and are stored once.
type Storer interface {
	// Put stores a record. If the record already exists (by ID), this is a
	// no-op and Put reports false.
	Put(ctx context.Context, rec *Record) (bool, error)

	// Get retrieves a record by its ID. Returns ErrNotFound if the record
	// doesn't exist.
	Get(ctx context.Context, id string) (*Record, error)

	// List returns all records in the store, newest first.
	List(ctx context.Context) ([]*Record, error)

	// Recent returns up to n records, newest first.
	Recent(ctx context.Context, n int) ([]*Record, error)

	// Close closes the store and releases any resources.
	Close() error
}

// ErrNotFound is returned when a record doesn't exist in the store.
type ErrNotFound struct {
	ID string
}

func (e ErrNotFound) Error() string {
	if e.ID == "" {
		return "record not found"
	}

	return "record not found: " + e.ID
}
