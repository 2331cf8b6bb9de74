package storage

// CatalogSchema is the SQL schema for the catalog database.
const CatalogSchema = `
CREATE TABLE IF NOT EXISTS entities (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    kind        TEXT NOT NULL DEFAULT '',
    created_at  TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at  TEXT NOT NULL DEFAULT (datetime('now')),
    deleted_at  TEXT NULL
);

CREATE TABLE IF NOT EXISTS relation_types (
    id          TEXT PRIMARY KEY,
    description TEXT NOT NULL UNIQUE,
    created_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS staged_facts (
    id          TEXT PRIMARY KEY,
    properties  TEXT NOT NULL,
    created_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE VIRTUAL TABLE IF NOT EXISTS entities_fts USING fts5(
    name,
    kind,
    content='entities',
    content_rowid='rowid'
);

-- Names are unique among live entities only, so a deleted name can be reused
CREATE UNIQUE INDEX IF NOT EXISTS idx_entities_name ON entities(name) WHERE deleted_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_entities_kind ON entities(kind) WHERE deleted_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_staged_facts_created ON staged_facts(created_at);
`

// CatalogTriggers keeps entities_fts in sync with entities.
const CatalogTriggers = `
CREATE TRIGGER IF NOT EXISTS entities_ai AFTER INSERT ON entities BEGIN
    INSERT INTO entities_fts(rowid, name, kind) VALUES (new.rowid, new.name, new.kind);
END;
CREATE TRIGGER IF NOT EXISTS entities_ad AFTER DELETE ON entities BEGIN
    INSERT INTO entities_fts(entities_fts, rowid, name, kind) VALUES('delete', old.rowid, old.name, old.kind);
END;
CREATE TRIGGER IF NOT EXISTS entities_au AFTER UPDATE ON entities BEGIN
    INSERT INTO entities_fts(entities_fts, rowid, name, kind) VALUES('delete', old.rowid, old.name, old.kind);
    INSERT INTO entities_fts(rowid, name, kind) VALUES (new.rowid, new.name, new.kind);
END;
`

const dsnPragmas = "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=cache_size(-64000)"
