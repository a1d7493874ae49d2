package sqlite

import (
	"context"
	"database/sql"
)

// Executor submits schema statements to a database one at a time.
type Executor struct {
	db *sql.DB
}

// NewExecutor creates an executor for db.
func NewExecutor(db *sql.DB) *Executor {
	return &Executor{db: db}
}

// Execute runs a single statement outside any transaction.
func (e *Executor) Execute(ctx context.Context, statement string) error {
	_, err := e.db.ExecContext(ctx, statement)
	return err
}
