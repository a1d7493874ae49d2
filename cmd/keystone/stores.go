package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bft-labs/keystone/internal/adapters/fs"
	"github.com/bft-labs/keystone/internal/adapters/sqlite"
	"github.com/bft-labs/keystone/internal/cliconfig"
	"github.com/bft-labs/keystone/pkg/keystone"
	"github.com/bft-labs/keystone/pkg/log"
	"github.com/bft-labs/keystone/pkg/schema"
	"github.com/bft-labs/keystone/resources"
)

// openStores opens one database per store kind and picks the ledger
// backend. The returned close function releases every database.
func openStores(ctx context.Context, cfg cliconfig.Config, logger log.Logger) ([]keystone.Store, func() error, error) {
	paths := map[schema.StoreKind]string{
		schema.StoreTimeseries: cfg.TimeseriesDB,
		schema.StoreRelational: cfg.RelationalDB,
	}

	var (
		stores []keystone.Store
		dbs    []*sql.DB
	)
	closeAll := func() error {
		var errs []error
		for _, db := range dbs {
			errs = append(errs, db.Close())
		}
		return errors.Join(errs...)
	}

	for _, kind := range schema.StoreKinds {
		db, err := sqlite.Open(ctx, paths[kind], sqlite.Options{
			ConnectTimeout: cfg.ConnectTimeout,
			Logger:         log.With(logger, log.Stringer("store", kind)),
		})
		if err != nil {
			_ = closeAll()
			return nil, nil, fmt.Errorf("open %s store: %w", kind, err)
		}
		dbs = append(dbs, db)

		ledger, err := openLedger(ctx, cfg, kind, db)
		if err != nil {
			_ = closeAll()
			return nil, nil, err
		}

		stores = append(stores, keystone.Store{
			Kind:     kind,
			Executor: sqlite.NewExecutor(db),
			Ledger:   ledger,
		})
	}

	return stores, closeAll, nil
}

func openLedger(ctx context.Context, cfg cliconfig.Config, kind schema.StoreKind, db *sql.DB) (schema.Ledger, error) {
	if cfg.Ledger == cliconfig.LedgerFile {
		return fs.NewLedger(cfg.LedgerDir, kind), nil
	}
	ledger, err := sqlite.NewLedger(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("open %s ledger: %w", kind, err)
	}
	return ledger, nil
}

// resourceLoader reads resources from ResourcesDir, or from the resources
// built into the binary when it is unset.
func resourceLoader(cfg cliconfig.Config) schema.ResourceLoader {
	if cfg.ResourcesDir != "" {
		return schema.DirLoader{Root: cfg.ResourcesDir}
	}
	return schema.FSLoader{FS: resources.FS}
}
