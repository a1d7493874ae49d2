package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/keystone/internal/adapters/fs"
	"github.com/bft-labs/keystone/pkg/schema"
)

func TestExitCode(t *testing.T) {
	appErr := &schema.ApplicationError{Name: "a", Index: 1, Statement: "x", Err: errors.New("syntax")}
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"conflict", &schema.ConflictError{Name: "a", Checksum: "abc"}, 2},
		{"wrapped conflict", fmt.Errorf("artifact a: %w", &schema.ConflictError{Name: "a"}), 2},
		{"application", appErr, 3},
		{"persistence", fmt.Errorf("%w: read ledger", schema.ErrPersistence), 4},
		{"persistence after failure", errors.Join(fmt.Errorf("%w: record failure", schema.ErrPersistence), appErr), 4},
		{"not found", schema.ErrNotFound, 1},
		{"malformed", schema.ErrMalformed, 1},
		{"other", errors.New("bad flag"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

// runCLI runs keystone with an isolated config file and data directory.
func runCLI(t *testing.T, dataDir string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	base := []string{
		"--config", filepath.Join(dataDir, "absent.toml"),
		"--data-dir", dataDir,
		"--log-level", "error",
	}
	code := run(append(args, base...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeResources(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestInstall_BuiltinResources(t *testing.T) {
	dir := t.TempDir()

	code, out, errOut := runCLI(t, dir, "install")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "install: 5 applied, 0 skipped, 0 failed")

	code, out, errOut = runCLI(t, dir, "install")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "install: 0 applied, 5 skipped, 0 failed")

	code, out, errOut = runCLI(t, dir, "plan")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "install: up to date")

	code, out, errOut = runCLI(t, dir, "upgrade")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "upgrade: 0 applied, 0 skipped, 0 failed")
}

func TestInstall_UnreachableTraceCollector(t *testing.T) {
	dir := t.TempDir()

	code, out, errOut := runCLI(t, dir, "install",
		"--trace-endpoint", "127.0.0.1:1",
		"--trace-insecure",
		"--shutdown-timeout", "200ms",
	)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "install: 5 applied, 0 skipped, 0 failed")
}

func TestInstall_FileLedger(t *testing.T) {
	dir := t.TempDir()

	code, _, errOut := runCLI(t, dir, "install", "--ledger", "file")
	require.Equal(t, 0, code, errOut)

	for _, kind := range schema.StoreKinds {
		assert.FileExists(t, filepath.Join(dir, fs.FileName(kind)))
	}
}

func TestRoot_ProfileFromEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("KEYSTONE_PROFILE", "install")

	code, out, errOut := runCLI(t, dir)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "install: 5 applied")
}

func TestInstall_ConflictExitCode(t *testing.T) {
	dir := t.TempDir()
	res := filepath.Join(dir, "resources")
	writeResources(t, res, map[string]string{
		"manifest.yaml": "artifacts:\n  - {name: events, store: relational, version: 1, file: events.sql}\n",
		"events.sql":    "CREATE TABLE events (id TEXT);\n",
	})

	code, _, errOut := runCLI(t, dir, "install", "--resources-dir", res)
	require.Equal(t, 0, code, errOut)

	writeResources(t, res, map[string]string{
		"events.sql": "CREATE TABLE events (id TEXT, at TEXT);\n",
	})

	code, _, _ = runCLI(t, dir, "install", "--resources-dir", res)
	assert.Equal(t, 2, code)

	code, out, _ := runCLI(t, dir, "plan", "--resources-dir", res)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "conflicting")
}

func TestInstall_StatementFailureExitCode(t *testing.T) {
	dir := t.TempDir()
	res := filepath.Join(dir, "resources")
	writeResources(t, res, map[string]string{
		"manifest.yaml": "artifacts:\n  - {name: broken, store: timeseries, version: 1, file: broken.sql}\n",
		"broken.sql":    "CREATE TABLE ok (id TEXT);\nCREATE TABLE nope (;\n",
	})

	code, out, _ := runCLI(t, dir, "install", "--resources-dir", res)
	assert.Equal(t, 3, code)
	assert.Contains(t, out, "statement 2")
}

func TestInstall_LedgerUnreadableExitCode(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, fs.FileName(schema.StoreTimeseries)), []byte("{"), 0o644))

	code, _, _ := runCLI(t, dir, "install", "--ledger", "file")
	assert.Equal(t, 4, code)
}

func TestInvalidConfigExitCode(t *testing.T) {
	dir := t.TempDir()

	code, _, _ := runCLI(t, dir, "install", "--ledger", "nowhere")
	assert.Equal(t, 1, code)

	code, _, _ = runCLI(t, dir, "install", "--manifest", "missing.yaml")
	assert.Equal(t, 1, code)
}
