package storage

// initializeSchema creates all tables. Statements are idempotent so the
// schema can be re-applied on every open.
func (db *DB) initializeSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS retrievals (
			id          TEXT PRIMARY KEY,
			org_id      TEXT NOT NULL,
			directory   TEXT NOT NULL,
			status      TEXT NOT NULL,
			error       TEXT,
			duration_ms INTEGER NOT NULL,
			created_at  TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_retrievals_org
			ON retrievals(org_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS cache_entries (
			org_id       TEXT PRIMARY KEY,
			directory    TEXT NOT NULL,
			retrieved_at TEXT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
