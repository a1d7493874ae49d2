package state

import (
	"time"

	"github.com/bft-labs/keystone/pkg/schema"
)

// FormatVersion is the document format written by this package.
const FormatVersion = 1

// Document is the persisted ledger of one store.
type Document struct {
	// Format is the document format number.
	Format int `json:"format"`

	// Store is the store kind the records belong to.
	Store schema.StoreKind `json:"store"`

	// Records is the append-only application history.
	Records []schema.Record `json:"records"`

	// UpdatedAt is when the document was last saved.
	UpdatedAt time.Time `json:"updated_at"`
}

// IsEmpty returns true if nothing was ever recorded.
func (d Document) IsEmpty() bool {
	return len(d.Records) == 0
}

// Append adds rec following the ledger rules. It reports whether the
// document changed and needs saving.
func (d *Document) Append(rec schema.Record) (bool, error) {
	changed, err := schema.Append(d.Records, rec)
	if err != nil || !changed {
		return false, err
	}
	d.Records = append(d.Records, rec)
	return true, nil
}
