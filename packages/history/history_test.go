package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/srcguard/packages/core/runner"
	"github.com/abdul-hamid-achik/srcguard/packages/guard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open("sqlite://" + filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleResults() []*runner.RunResult {
	return []*runner.RunResult{
		{
			File: "guards/app.guard.yaml",
			Results: []*runner.CaseResult{
				{Name: "guarded", File: "app/index.tsx", Kind: "contains", Line: 3, Verdict: guard.Pass, Duration: time.Millisecond},
				{Name: "unguarded", File: "app/old.tsx", Kind: "contains", Line: 6, Verdict: guard.Fail, Message: "guard removed"},
			},
			Passed: 1,
			Failed: 1,
		},
		{
			File: "guards/config.guard.yaml",
			Results: []*runner.CaseResult{
				{Name: "missing", File: "app.json", Kind: "jsonPath", Line: 2, Verdict: guard.Error, Message: "open app.json: no such file or directory"},
				{Name: "later", File: "x", Kind: "contains", Verdict: guard.Skip, Skipped: true},
			},
			Errored: 1,
			Skipped: 1,
		},
	}
}

func TestParseDSN(t *testing.T) {
	tests := []struct {
		dsn     string
		want    string
		wantErr bool
	}{
		{dsn: "sqlite://data/history.db", want: "data/history.db"},
		{dsn: "sqlite:./history.db", want: "./history.db"},
		{dsn: "  history.db ", want: "history.db"},
		{dsn: "postgres://localhost/db", wantErr: true},
		{dsn: "sqlite:", wantErr: true},
		{dsn: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			got, err := parseDSN(tt.dsn)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpen_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "history.db")
	store, err := Open("sqlite:" + path)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, path, store.Path())
	assert.FileExists(t, path)
}

func TestMigrate_Idempotent(t *testing.T) {
	store := openStore(t)
	require.NoError(t, store.Migrate(context.Background()))
	require.NoError(t, store.Migrate(context.Background()))
}

func TestNewRun(t *testing.T) {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	run := NewRun(started, 2*time.Second, 4, sampleResults()...)

	assert.Equal(t, 2, run.Suites)
	assert.Equal(t, 1, run.Passed)
	assert.Equal(t, 1, run.Failed)
	assert.Equal(t, 1, run.Errored)
	assert.Equal(t, 1, run.Skipped)
	assert.Equal(t, 4, run.ExitCode)
	require.Len(t, run.Cases, 4)
	assert.Equal(t, "guards/config.guard.yaml", run.Cases[2].Suite)
	assert.Equal(t, "error", run.Cases[2].Verdict)
	assert.Equal(t, "skip", run.Cases[3].Verdict)
}

func TestRecordRun_RoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	started := time.Date(2026, 3, 1, 10, 0, 0, 123456789, time.UTC)
	run := NewRun(started, 1500*time.Millisecond, 4, sampleResults()...)

	id, err := store.RecordRun(ctx, run)
	require.NoError(t, err)
	assert.Len(t, id, 36)
	assert.Equal(t, id, run.ID)

	got, err := store.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.True(t, started.Equal(got.StartedAt))
	assert.Equal(t, 1500*time.Millisecond, got.Duration)
	assert.Equal(t, 4, got.ExitCode)
	require.Len(t, got.Cases, 4)
	assert.Equal(t, run.Cases, got.Cases)
}

func TestListRuns_NewestFirst(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		id, err := store.RecordRun(ctx, NewRun(base.Add(time.Duration(i)*time.Minute), time.Second, 0))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	runs, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[0], runs[2].ID)
	assert.Empty(t, runs[0].Cases)

	runs, err = store.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestGetRun_Prefix(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	id, err := store.RecordRun(ctx, NewRun(time.Now(), time.Second, 0, sampleResults()...))
	require.NoError(t, err)

	got, err := store.GetRun(ctx, id[:8])
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)

	_, err = store.GetRun(ctx, "zzzz")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = store.GetRun(ctx, "")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestGetRun_Ambiguous(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	for _, id := range []string{"abc10000", "abc20000"} {
		_, err := store.db.Exec(`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, 0, 0, 0, 0, 0, 0, 0)`,
			id, time.Now().UTC().Format(timeLayout))
		require.NoError(t, err)
	}

	_, err := store.GetRun(ctx, "abc")
	assert.True(t, errors.Is(err, ErrAmbiguous))

	got, err := store.GetRun(ctx, "abc1")
	require.NoError(t, err)
	assert.Equal(t, "abc10000", got.ID)

	// LIKE wildcards in the prefix are literal
	_, err = store.GetRun(ctx, "%")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = store.GetRun(ctx, "abc_0000")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRunCases_UnknownRun(t *testing.T) {
	store := openStore(t)
	cases, err := store.RunCases(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, cases)
}
