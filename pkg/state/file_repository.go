package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileRepository implements Repository using a JSON file.
type FileRepository struct {
	dir  string
	name string
}

// NewFileRepository creates a FileRepository for dir/name.
func NewFileRepository(dir, name string) *FileRepository {
	return &FileRepository{dir: dir, name: name}
}

// Load reads the document from disk.
// Returns an empty document and nil error if no file exists.
func (r *FileRepository) Load(ctx context.Context) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}

	data, err := os.ReadFile(r.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return Document{Format: FormatVersion}, nil
		}
		return Document{}, err
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("decode %s: %w", r.Path(), err)
	}
	if doc.Format > FormatVersion {
		return Document{}, fmt.Errorf("%s: format %d is newer than supported %d", r.Path(), doc.Format, FormatVersion)
	}

	return doc, nil
}

// Save persists the document atomically.
// Uses atomic write (write to temp file, then rename) to prevent corruption.
func (r *FileRepository) Save(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Ensure directory exists
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return err
	}

	doc.Format = FormatVersion

	path := r.Path()
	tmp := path + ".tmp"

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	// Write to temp file
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}

	// Atomic rename
	return os.Rename(tmp, path)
}

// Path returns the full path to the document file.
func (r *FileRepository) Path() string {
	return filepath.Join(r.dir, r.name)
}
