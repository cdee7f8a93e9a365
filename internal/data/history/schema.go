package history

import (
	"database/sql"
	"fmt"

	"mangle/internal/core/errors"
)

const ledgerDDL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  applied_at_utc TEXT NOT NULL DEFAULT (CURRENT_TIMESTAMP)
);`

// schemaSteps[i] upgrades the database from version i to version i+1.
var schemaSteps = []string{
	`
CREATE TABLE runs (
  id TEXT PRIMARY KEY,
  ts_utc TEXT NOT NULL,
  seed TEXT NOT NULL,
  input_path TEXT NOT NULL DEFAULT '',
  output_path TEXT NOT NULL DEFAULT '',
  duration_ms INTEGER NOT NULL DEFAULT 0,
  class_count INTEGER NOT NULL DEFAULT 0,
  renamed_count INTEGER NOT NULL DEFAULT 0,
  relocated_count INTEGER NOT NULL DEFAULT 0,
  shuffled_count INTEGER NOT NULL DEFAULT 0,
  reference_count INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX idx_runs_ts ON runs(ts_utc);

CREATE TABLE mappings (
  run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
  position INTEGER NOT NULL,
  kind INTEGER NOT NULL,
  owner TEXT NOT NULL,
  name TEXT NOT NULL,
  descriptor TEXT NOT NULL DEFAULT '',
  new_name TEXT NOT NULL,
  new_owner TEXT NOT NULL DEFAULT '',
  PRIMARY KEY (run_id, position)
);
CREATE INDEX idx_mappings_symbol ON mappings(owner, name, descriptor);
`,
}

// EnsureSchema brings db up to SchemaVersion. A database written by a newer
// release is rejected rather than downgraded.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(ledgerDDL); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "create migration ledger")
	}
	current, err := schemaVersion(db)
	if err != nil {
		return err
	}
	if current > SchemaVersion {
		return errors.Newf(errors.CodeConfig, "history schema version %d is newer than supported version %d", current, SchemaVersion)
	}
	for v := current; v < len(schemaSteps); v++ {
		if err := upgrade(db, v+1, schemaSteps[v]); err != nil {
			return err
		}
	}
	return nil
}

func schemaVersion(db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&v); err != nil {
		return 0, errors.Wrap(err, errors.CodeInternal, "read schema version")
	}
	return v, nil
}

// upgrade runs one step and records it in the same transaction.
func upgrade(db *sql.DB, version int, ddl string) (err error) {
	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "begin schema upgrade")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.Exec(ddl); err != nil {
		return errors.Wrap(err, errors.CodeInternal, fmt.Sprintf("apply schema version %d", version))
	}
	if _, err = tx.Exec(`INSERT INTO schema_migrations(version) VALUES (?)`, version); err != nil {
		return errors.Wrap(err, errors.CodeInternal, fmt.Sprintf("record schema version %d", version))
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, errors.CodeInternal, fmt.Sprintf("commit schema version %d", version))
	}
	return nil
}
