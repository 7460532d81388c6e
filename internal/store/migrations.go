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

CREATE TABLE IF NOT EXISTS todos (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	completed   INTEGER NOT NULL DEFAULT 0,
	priority    TEXT NOT NULL DEFAULT 'medium',
	category_id TEXT,
	tags        TEXT NOT NULL DEFAULT '[]',
	due_date    TEXT,
	reminder    TEXT,
	screenshot  TEXT,
	attachments TEXT NOT NULL DEFAULT '[]',
	sort_order  INTEGER NOT NULL DEFAULT 0,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL,
	deleted_at  TEXT
);

CREATE TABLE IF NOT EXISTS categories (
	id    TEXT PRIMARY KEY,
	name  TEXT NOT NULL,
	color TEXT NOT NULL DEFAULT '',
	icon  TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_todos_sort_order ON todos(sort_order);
CREATE INDEX IF NOT EXISTS idx_todos_deleted_at ON todos(deleted_at);

INSERT OR IGNORE INTO categories (id, name, color, icon) VALUES
	('1', 'Work',  '#6366F1', 'folder'),
	('2', 'Life',  '#10B981', 'folder'),
	('3', 'Study', '#F59E0B', 'folder');

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS blobs (
	digest     TEXT PRIMARY KEY,
	data       BLOB NOT NULL,
	size       INTEGER NOT NULL,
	created_at TEXT NOT NULL
);

INSERT INTO schema_version (version) VALUES (2);
`,
	},	{
		version: 3,
		sql: `
ALTER TABLE categories ADD COLUMN updated_at TEXT NOT NULL DEFAULT '';

INSERT INTO schema_version (version) VALUES (3);
`,
	},
}
