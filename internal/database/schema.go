package database

// schema contains all table definitions. Each statement is idempotent (CREATE IF NOT EXISTS).
const schema = `
CREATE TABLE IF NOT EXISTS profiles (
    name       TEXT    PRIMARY KEY,
    kind       TEXT    NOT NULL,
    config     BLOB    NOT NULL,
    digest     TEXT    NOT NULL,
    updated_at INTEGER NOT NULL DEFAULT (strftime('%s','now')),
    routes_all_traffic INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_profiles_kind
    ON profiles (kind);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value BLOB NOT NULL
);
`

// addedColumns lists columns introduced after a table first shipped. CREATE
// TABLE IF NOT EXISTS leaves older tables alone, so migrate adds these.
var addedColumns = []struct {
	table      string
	column     string
	definition string
}{
	{table: "profiles", column: "routes_all_traffic", definition: "INTEGER NOT NULL DEFAULT 0"},
}
