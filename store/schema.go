package store

// Schema version for migration management
const SchemaVersion = 1

// RecordsTableSQL creates the records table holding every cached entity.
// One row per (entity_type, local_key); upserts replace in place so no
// duplicates can exist for a local key.
const RecordsTableSQL = `
CREATE TABLE IF NOT EXISTS records (
    entity_type TEXT NOT NULL,
    local_key TEXT NOT NULL,
    canonical_id TEXT,
    owner_key TEXT,
    payload TEXT NOT NULL,
    sync_state TEXT NOT NULL CHECK(sync_state IN ('pending', 'synced', 'deleted')),
    mutated_at INTEGER NOT NULL,

    PRIMARY KEY(entity_type, local_key)
);
`

// SchemaVersionTableSQL creates the schema version table for migration tracking
const SchemaVersionTableSQL = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at INTEGER NOT NULL
);
`

// AllTableSchemas returns all table creation statements in order
func AllTableSchemas() []string {
	return []string{
		SchemaVersionTableSQL,
		RecordsTableSQL,
	}
}

// AllIndexes returns the indexes for the queries the engine runs every cycle.
// The unique canonical_id index is what makes pull upserts collision-safe.
func AllIndexes() []string {
	return []string{
		`CREATE INDEX IF NOT EXISTS idx_records_sync_state ON records(entity_type, sync_state)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_records_canonical_id ON records(entity_type, canonical_id) WHERE canonical_id IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_records_owner_key ON records(entity_type, owner_key)`,
		`CREATE INDEX IF NOT EXISTS idx_records_mutated_at ON records(mutated_at)`,
	}
}

// PragmaStatements returns pragma statements to execute on database connection
func PragmaStatements() []string {
	return []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
}
