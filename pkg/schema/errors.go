package schema

import (
	"errors"
	"fmt"
)

// Installation errors. All of them abort an orchestrator run.
var (
	// ErrNotFound is returned when no resource matches an artifact.
	ErrNotFound = errors.New("schema: resource not found")

	// ErrMalformed is returned when a script or manifest cannot be parsed.
	ErrMalformed = errors.New("schema: malformed resource")

	// ErrSchemaConflict is returned when an artifact was applied before with a
	// different checksum. It needs operator resolution.
	ErrSchemaConflict = errors.New("schema: conflict with applied artifact")

	// ErrSchemaApplication is returned when a statement fails.
	ErrSchemaApplication = errors.New("schema: statement failed")

	// ErrPersistence is returned when the ledger cannot be read or written.
	ErrPersistence = errors.New("schema: ledger persistence failed")

	// ErrNoApplier is returned when an artifact targets a store kind without
	// a configured applier.
	ErrNoApplier = errors.New("schema: no applier for store")
)

// ConflictError reports a checksum mismatch for an applied artifact.
type ConflictError struct {
	Name     string
	Checksum string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%v: %s (checksum %s differs from the applied one)", ErrSchemaConflict, e.Name, short(e.Checksum))
}

func (e *ConflictError) Unwrap() error {
	return ErrSchemaConflict
}

// ApplicationError reports the statement that failed. Index is 1-based.
type ApplicationError struct {
	Name      string
	Index     int
	Statement string
	Err       error
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("%v: %s statement %d: %v", ErrSchemaApplication, e.Name, e.Index, e.Err)
}

func (e *ApplicationError) Unwrap() []error {
	return []error{ErrSchemaApplication, e.Err}
}

func persistenceError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

func short(checksum string) string {
	if len(checksum) > 12 {
		return checksum[:12]
	}
	return checksum
}
