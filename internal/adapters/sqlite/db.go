// Package sqlite runs schema artifacts against SQLite databases and keeps
// the schema ledger in a table of the same database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/mattn/go-sqlite3"

	"github.com/bft-labs/keystone/pkg/log"
)

// DefaultConnectTimeout bounds how long Open keeps retrying the first ping.
const DefaultConnectTimeout = 10 * time.Second

// Options configures Open.
type Options struct {
	// ConnectTimeout bounds the connection check retries.
	ConnectTimeout time.Duration

	// Logger receives connection retry messages.
	Logger log.Logger
}

// Open opens the database at path, creating its directory when needed, and
// checks the connection with exponential backoff.
func Open(ctx context.Context, path string, opts Options) (*sql.DB, error) {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	logger := log.OrNoop(opts.Logger)

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite3: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxInterval = 2 * time.Second
	policy.MaxElapsedTime = opts.ConnectTimeout

	attempt := 0
	ping := func() error {
		attempt++
		err := db.PingContext(ctx)
		if err != nil {
			logger.Warn("database not reachable, retrying",
				log.String("path", path),
				log.Int("attempt", attempt),
				log.Err(err),
			)
		}
		return err
	}
	if err := backoff.Retry(ping, backoff.WithContext(policy, ctx)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect %s: %w", path, err)
	}

	logger.Debug("database connected", log.String("path", path))
	return db, nil
}
