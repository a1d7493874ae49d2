package schema

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	orch    *Orchestrator
	tsExec  *fakeExecutor
	relExec *fakeExecutor
	tsLed   *MemoryLedger
	relLed  *MemoryLedger
}

func newHarness(t *testing.T, manifest string, files fstest.MapFS) *harness {
	t.Helper()
	m, err := ParseManifest([]byte(manifest))
	require.NoError(t, err)

	h := &harness{
		tsExec:  &fakeExecutor{failOn: map[string]error{}},
		relExec: &fakeExecutor{failOn: map[string]error{}},
		tsLed:   NewMemoryLedger(),
		relLed:  NewMemoryLedger(),
	}
	h.orch = NewOrchestrator(m, NewSource(FSLoader{FS: files}), []*Applier{
		NewApplier(StoreTimeseries, h.tsExec, h.tsLed),
		NewApplier(StoreRelational, h.relExec, h.relLed),
	})
	return h
}

const twoArtifacts = `
artifacts:
  - name: b
    store: timeseries
    version: 2
    file: b.cql
    depends_on: [a]
  - name: a
    store: timeseries
    version: 1
    file: a.cql
`

func twoFiles() fstest.MapFS {
	return fstest.MapFS{
		"a.cql": &fstest.MapFile{Data: []byte("CREATE KEYSPACE IF NOT EXISTS iot;")},
		"b.cql": &fstest.MapFile{Data: []byte("CREATE TABLE IF NOT EXISTS iot.b (id int);\nCREATE INDEX IF NOT EXISTS ON iot.b (id);")},
	}
}

func TestRun_InstallDependencyOrder(t *testing.T) {
	ctx := testContext(t)
	h := newHarness(t, twoArtifacts, twoFiles())

	report, err := h.orch.Run(ctx, ProfileInstall)
	require.NoError(t, err)

	require.Len(t, report.Results, 2)
	assert.Equal(t, "a", report.Results[0].Artifact)
	assert.Equal(t, "b", report.Results[1].Artifact)
	assert.Equal(t, 2, report.Count(Applied))

	assert.Equal(t, []string{
		"CREATE KEYSPACE IF NOT EXISTS iot",
		"CREATE TABLE IF NOT EXISTS iot.b (id int)",
		"CREATE INDEX IF NOT EXISTS ON iot.b (id)",
	}, h.tsExec.Executed())

	records, err := h.tsLed.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, rec := range records {
		assert.Equal(t, OutcomeSuccess, rec.Outcome)
	}

	report, err = h.orch.Run(ctx, ProfileInstall)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Count(Skipped))
	assert.Len(t, h.tsExec.Executed(), 3)
}

func TestRun_AbortsOnFirstFailure(t *testing.T) {
	ctx := testContext(t)
	h := newHarness(t, twoArtifacts, twoFiles())
	h.tsExec.failOn["CREATE KEYSPACE IF NOT EXISTS iot"] = errors.New("no quorum")

	report, err := h.orch.Run(ctx, ProfileInstall)
	assert.ErrorIs(t, err, ErrSchemaApplication)
	require.Len(t, report.Results, 1)
	assert.Equal(t, Failed, report.Results[0].Outcome)
	assert.Len(t, h.tsExec.Executed(), 1)
}

func TestRun_MissingScriptAborts(t *testing.T) {
	files := twoFiles()
	delete(files, "b.cql")
	h := newHarness(t, twoArtifacts, files)

	report, err := h.orch.Run(testContext(t), ProfileInstall)
	assert.ErrorIs(t, err, ErrNotFound)
	require.Len(t, report.Results, 1)
	assert.Equal(t, Applied, report.Results[0].Outcome)
}

func TestRun_UpgradeSelectsNewerPerStore(t *testing.T) {
	ctx := testContext(t)
	const manifest = `
artifacts:
  - {name: ts1, store: timeseries, version: 1, file: ts1.cql}
  - {name: ts2, store: timeseries, version: 2, file: ts2.cql, depends_on: [ts1]}
  - {name: rel1, store: relational, version: 1, file: rel1.sql}
`
	files := fstest.MapFS{
		"ts1.cql":  &fstest.MapFile{Data: []byte("TS1;")},
		"ts2.cql":  &fstest.MapFile{Data: []byte("TS2;")},
		"rel1.sql": &fstest.MapFile{Data: []byte("REL1;")},
	}
	h := newHarness(t, manifest, files)

	require.NoError(t, h.tsLed.RecordApplied(ctx, Record{
		Name: "ts1", Store: StoreTimeseries, Version: 1, Checksum: Checksum([]string{"TS1"}), Outcome: OutcomeSuccess,
	}))

	plan, err := h.orch.Plan(ctx, ProfileUpgrade)
	require.NoError(t, err)
	require.Len(t, plan, 2)
	assert.Equal(t, "ts2", plan[0].Artifact)
	assert.Equal(t, Absent, plan[0].Status)
	assert.Equal(t, "rel1", plan[1].Artifact)
	assert.False(t, Ready(plan))
	assert.Empty(t, h.tsExec.Executed())

	report, err := h.orch.Run(ctx, ProfileUpgrade)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Count(Applied))
	assert.Equal(t, []string{"TS2"}, h.tsExec.Executed())
	assert.Equal(t, []string{"REL1"}, h.relExec.Executed())

	plan, err = h.orch.Plan(ctx, ProfileInstall)
	require.NoError(t, err)
	assert.True(t, Ready(plan))

	plan, err = h.orch.Plan(ctx, ProfileUpgrade)
	require.NoError(t, err)
	assert.Empty(t, plan)
}

func TestPlan_ReportsConflict(t *testing.T) {
	ctx := testContext(t)
	h := newHarness(t, twoArtifacts, twoFiles())
	require.NoError(t, h.tsLed.RecordApplied(ctx, Record{
		Name: "a", Store: StoreTimeseries, Version: 1, Checksum: "stale", Outcome: OutcomeSuccess,
	}))

	plan, err := h.orch.Plan(ctx, ProfileInstall)
	require.NoError(t, err)
	require.Len(t, plan, 2)
	assert.Equal(t, AppliedConflicting, plan[0].Status)

	_, err = h.orch.Run(ctx, ProfileInstall)
	assert.ErrorIs(t, err, ErrSchemaConflict)
	assert.Empty(t, h.tsExec.Executed())
}

func TestRun_RefusesRuntimeAndMissingApplier(t *testing.T) {
	ctx := testContext(t)
	h := newHarness(t, twoArtifacts, twoFiles())

	_, err := h.orch.Run(ctx, ProfileRuntime)
	assert.Error(t, err)

	m, err := ParseManifest([]byte(twoArtifacts))
	require.NoError(t, err)
	orch := NewOrchestrator(m, NewSource(FSLoader{FS: twoFiles()}), []*Applier{
		NewApplier(StoreRelational, &fakeExecutor{}, NewMemoryLedger()),
	})
	_, err = orch.Run(ctx, ProfileInstall)
	assert.ErrorIs(t, err, ErrNoApplier)
}

func TestParseProfile(t *testing.T) {
	for _, p := range []Profile{ProfileInstall, ProfileUpgrade, ProfileRuntime} {
		got, err := ParseProfile(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	_, err := ParseProfile("migrate")
	assert.Error(t, err)
}
