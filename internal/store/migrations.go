package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS accounts (
	name TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS label_state (
	account     TEXT NOT NULL,
	label       TEXT NOT NULL,
	uidvalidity INTEGER NOT NULL DEFAULT 0,
	last_uid    INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (account, label)
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS poll_cycles (
	id          TEXT PRIMARY KEY,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME NOT NULL,
	advanced    INTEGER NOT NULL DEFAULT 0,
	errors      INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_poll_cycles_started ON poll_cycles(started_at);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
