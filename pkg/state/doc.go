// Package state persists schema ledger documents on disk.
//
// A ledger document is the full record history of one store, stored as a
// single JSON file. Every save replaces the file atomically (write to a
// temporary file, then rename), so a crash leaves either the previous or the
// new document, never a torn one.
//
// # Usage
//
//	repo := state.NewFileRepository("/var/lib/keystone", "ledger-timeseries.json")
//
//	doc, err := repo.Load(ctx)
//	if err != nil {
//	    return err
//	}
//	if _, err := doc.Append(rec); err != nil {
//	    return err
//	}
//	if err := repo.Save(ctx, doc); err != nil {
//	    return err
//	}
//
// # Compatibility
//
// Documents use snake_case field names and carry a format number. Loading a
// document with a newer format fails instead of silently dropping fields.
//
// # Version
//
// Current version: 2.0.0
// Minimum compatible version: 2.0.0
//
// See version.go for version constants that can be used programmatically.
package state
