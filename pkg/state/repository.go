package state

import "context"

// Repository loads and saves ledger documents.
type Repository interface {
	// Load retrieves the last saved document.
	// Returns an empty document and nil error if none exists.
	// Returns an error only for actual read or decode failures.
	Load(ctx context.Context) (Document, error)

	// Save persists the document atomically.
	Save(ctx context.Context, doc Document) error
}
