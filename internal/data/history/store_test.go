package history

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mangle/internal/core/errors"
	"mangle/internal/engine/mapping"
	"mangle/internal/engine/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleRun(id string, ts time.Time) Run {
	return Run{
		ID:        id,
		Timestamp: ts,
		Seed:      ^uint64(0),
		Input:     "in.json",
		Output:    "out.json",
		Duration:  1500 * time.Millisecond,
		Classes:   2,
		Renamed:   3,
		Relocated: 1,
		Entries: []mapping.Entry{
			{Kind: model.KindClass, Owner: "app/A", Name: "app/A", NewName: "app/x"},
			{Kind: model.KindField, Owner: "app/A", Name: "count", Desc: "I", NewName: "a"},
			{Kind: model.KindMethod, Owner: "app/A", Name: "run", Desc: "()V", NewName: "b", NewOwner: "app/B"},
		},
	}
}

func TestStore_SaveAndLoadRun(t *testing.T) {
	store := openStore(t)
	ts := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	run := sampleRun("run-1", ts)

	require.NoError(t, store.SaveRun(run))

	got, err := store.LoadRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, run, got)
}

func TestStore_LoadRunNotFound(t *testing.T) {
	store := openStore(t)

	_, err := store.LoadRun("missing")
	assert.True(t, errors.IsCode(err, errors.CodeNotFound), "got %v", err)

	_, err = store.LatestRun()
	assert.True(t, errors.IsCode(err, errors.CodeNotFound), "got %v", err)
}

func TestStore_ListRunsNewestFirst(t *testing.T) {
	store := openStore(t)
	base := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "newest", "middle"} {
		offsets := []time.Duration{0, 2 * time.Hour, time.Hour}
		run := sampleRun(id, base.Add(offsets[i]))
		require.NoError(t, store.SaveRun(run))
	}

	runs, err := store.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{"newest", "middle", "old"}, []string{runs[0].ID, runs[1].ID, runs[2].ID})
	assert.Empty(t, runs[0].Entries)

	limited, err := store.ListRuns(1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	latest, err := store.LatestRun()
	require.NoError(t, err)
	assert.Equal(t, "newest", latest.ID)
	assert.Len(t, latest.Entries, 3)
}

func TestStore_DuplicateRunIsRejected(t *testing.T) {
	store := openStore(t)
	run := sampleRun("run-1", time.Now())
	require.NoError(t, store.SaveRun(run))

	err := store.SaveRun(run)
	require.Error(t, err)

	got, err := store.LoadRun("run-1")
	require.NoError(t, err)
	assert.Len(t, got.Entries, 3, "failed save must not leave partial rows")
}

func TestStore_FindSymbol(t *testing.T) {
	store := openStore(t)
	base := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveRun(sampleRun("first", base)))
	require.NoError(t, store.SaveRun(sampleRun("second", base.Add(time.Minute))))

	rows, err := store.FindSymbol("app/A", "run")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "second", rows[0].RunID)
	assert.Equal(t, "b", rows[0].NewName)
	assert.Equal(t, "app/B", rows[0].NewOwner)

	classes, err := store.FindSymbol("app/A", "")
	require.NoError(t, err)
	require.Len(t, classes, 2)
	assert.Equal(t, model.KindClass, classes[0].Kind)
}

func TestStore_SaveRunRequiresID(t *testing.T) {
	store := openStore(t)
	assert.Error(t, store.SaveRun(Run{}))
}

func TestStore_OpenRejectsDirectoryPath(t *testing.T) {
	_, err := Open(t.TempDir(), 0)
	if err == nil {
		t.Fatal("expected open error for directory path")
	}
	if !strings.Contains(err.Error(), "is a directory") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStore_OpenCorruptDBPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	if err := os.WriteFile(path, []byte("this is not sqlite"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Open(path, 0)
	if err == nil {
		t.Fatal("expected sqlite open error")
	}
	lower := strings.ToLower(err.Error())
	if !strings.Contains(lower, "not a database") && !strings.Contains(lower, "schema") {
		t.Fatalf("expected schema/open error, got: %v", err)
	}
}

func TestEnsureSchema_DetectsNewerVersionDrift(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, err := store.db.Exec(`INSERT OR REPLACE INTO schema_migrations(version) VALUES (?)`, SchemaVersion+1); err != nil {
		t.Fatal(err)
	}

	db, err := sql.Open(driverName, "file:"+path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	err = EnsureSchema(db)
	if err == nil {
		t.Fatal("expected drift error")
	}
	if !strings.Contains(err.Error(), "newer than supported") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	store := openStore(t)
	require.NoError(t, EnsureSchema(store.db))

	var count int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&count))
	assert.Equal(t, len(schemaSteps), count)
	assert.Equal(t, SchemaVersion, len(schemaSteps))
}
