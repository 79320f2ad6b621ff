package store

// schemaVersionV1 is the exports table keyed by job id or alias.
const schemaVersionV1 = 1

// currentSchemaVersion is the target schema version for this build.
const currentSchemaVersion = schemaVersionV1

var schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);

CREATE TABLE IF NOT EXISTS exports (
	key        TEXT PRIMARY KEY,
	job_id     TEXT NOT NULL,
	payload    BLOB NOT NULL,
	result     BLOB NOT NULL,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_exports_job ON exports(job_id);
`
