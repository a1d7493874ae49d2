package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/keystone/pkg/schema"
)

func TestFileRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "nested")
	repo := NewFileRepository(dir, "ledger-timeseries.json")

	doc, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.True(t, doc.IsEmpty())

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	changed, err := doc.Append(schema.Record{
		Name: "ts-keyspace", Store: schema.StoreTimeseries, Version: 1,
		Checksum: "abc", Outcome: schema.OutcomeSuccess, AppliedAt: at,
	})
	require.NoError(t, err)
	require.True(t, changed)
	doc.Store = schema.StoreTimeseries
	require.NoError(t, repo.Save(ctx, doc))

	_, err = os.Stat(repo.Path() + ".tmp")
	assert.True(t, os.IsNotExist(err))

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, FormatVersion, loaded.Format)
	assert.Equal(t, schema.StoreTimeseries, loaded.Store)
	require.Len(t, loaded.Records, 1)
	assert.Equal(t, at, loaded.Records[0].AppliedAt)
}

func TestFileRepository_RejectsNewerFormat(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "l.json"), []byte(`{"format": 99}`), 0o600))

	_, err := NewFileRepository(dir, "l.json").Load(context.Background())
	assert.Error(t, err)
}

func TestFileRepository_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "l.json"), []byte(`{"records": [`), 0o600))

	_, err := NewFileRepository(dir, "l.json").Load(context.Background())
	assert.Error(t, err)
}

func TestDocumentAppend(t *testing.T) {
	var doc Document
	rec := schema.Record{Name: "x", Checksum: "a", Outcome: schema.OutcomeSuccess}

	changed, err := doc.Append(rec)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = doc.Append(rec)
	require.NoError(t, err)
	assert.False(t, changed)

	rec.Checksum = "b"
	_, err = doc.Append(rec)
	assert.ErrorIs(t, err, schema.ErrSchemaConflict)
	assert.Len(t, doc.Records, 1)
}
