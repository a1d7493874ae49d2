package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bft-labs/keystone/pkg/schema"
)

// TableName is the ledger table created in every managed database.
const TableName = "keystone_schema_ledger"

const ledgerDDL = `
CREATE TABLE IF NOT EXISTS keystone_schema_ledger (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	name         TEXT    NOT NULL,
	store        TEXT    NOT NULL,
	version      INTEGER NOT NULL,
	checksum     TEXT    NOT NULL,
	outcome      TEXT    NOT NULL CHECK (outcome IN ('success', 'failure')),
	failed_index INTEGER NOT NULL DEFAULT 0,
	reason       TEXT    NOT NULL DEFAULT '',
	applied_at   TEXT    NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS keystone_schema_ledger_success
	ON keystone_schema_ledger (name) WHERE outcome = 'success';
`

// Ledger implements schema.Ledger in a table of the managed database.
type Ledger struct {
	db *sql.DB
}

// NewLedger creates the ledger table if needed.
func NewLedger(ctx context.Context, db *sql.DB) (*Ledger, error) {
	if _, err := db.ExecContext(ctx, ledgerDDL); err != nil {
		return nil, fmt.Errorf("%w: create ledger table: %w", schema.ErrPersistence, err)
	}
	return &Ledger{db: db}, nil
}

func (l *Ledger) IsApplied(ctx context.Context, name, checksum string) (schema.LedgerStatus, error) {
	var recorded string
	err := l.db.QueryRowContext(ctx,
		`SELECT checksum FROM keystone_schema_ledger WHERE name = ? AND outcome = 'success'`,
		name,
	).Scan(&recorded)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return schema.Absent, nil
	case err != nil:
		return schema.Absent, fmt.Errorf("%w: query ledger: %w", schema.ErrPersistence, err)
	case recorded == checksum:
		return schema.AppliedMatching, nil
	default:
		return schema.AppliedConflicting, nil
	}
}

func (l *Ledger) RecordApplied(ctx context.Context, rec schema.Record) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", schema.ErrPersistence, err)
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := queryRecords(ctx, tx,
		`SELECT name, store, version, checksum, outcome, failed_index, reason, applied_at
		 FROM keystone_schema_ledger WHERE name = ? AND outcome = 'success'`, rec.Name)
	if err != nil {
		return err
	}

	insert, err := schema.Append(existing, rec)
	if err != nil || !insert {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO keystone_schema_ledger
		 (name, store, version, checksum, outcome, failed_index, reason, applied_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Name,
		string(rec.Store),
		rec.Version,
		rec.Checksum,
		string(rec.Outcome),
		rec.FailedIndex,
		rec.Reason,
		rec.AppliedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("%w: insert record: %w", schema.ErrPersistence, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", schema.ErrPersistence, err)
	}
	return nil
}

func (l *Ledger) LatestVersion(ctx context.Context, store schema.StoreKind) (int, bool, error) {
	var latest sql.NullInt64
	err := l.db.QueryRowContext(ctx,
		`SELECT MAX(version) FROM keystone_schema_ledger WHERE store = ? AND outcome = 'success'`,
		string(store),
	).Scan(&latest)
	if err != nil {
		return 0, false, fmt.Errorf("%w: query latest version: %w", schema.ErrPersistence, err)
	}
	if !latest.Valid {
		return 0, false, nil
	}
	return int(latest.Int64), true, nil
}

func (l *Ledger) Records(ctx context.Context) ([]schema.Record, error) {
	return queryRecords(ctx, l.db,
		`SELECT name, store, version, checksum, outcome, failed_index, reason, applied_at
		 FROM keystone_schema_ledger ORDER BY id`)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryRecords(ctx context.Context, q querier, query string, args ...any) ([]schema.Record, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query ledger: %w", schema.ErrPersistence, err)
	}
	defer rows.Close()

	var out []schema.Record
	for rows.Next() {
		var (
			rec                schema.Record
			store, outcome, at string
		)
		if err := rows.Scan(&rec.Name, &store, &rec.Version, &rec.Checksum, &outcome, &rec.FailedIndex, &rec.Reason, &at); err != nil {
			return nil, fmt.Errorf("%w: scan ledger row: %w", schema.ErrPersistence, err)
		}
		rec.Store = schema.StoreKind(store)
		rec.Outcome = schema.Outcome(outcome)
		rec.AppliedAt, err = time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("%w: ledger row %s: bad applied_at %q", schema.ErrPersistence, rec.Name, at)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read ledger rows: %w", schema.ErrPersistence, err)
	}
	return out, nil
}
