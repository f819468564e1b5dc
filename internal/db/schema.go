package db

import (
	"database/sql"
	"fmt"
)

// schema stores every collection in one table of JSON documents. seq keeps
// insertion order, which is the natural order listings return.
const schema = `
CREATE TABLE IF NOT EXISTS documents (
    seq        INTEGER PRIMARY KEY,
    collection TEXT NOT NULL,
    id         TEXT NOT NULL,
    body       TEXT NOT NULL CHECK (json_valid(body))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_documents_collection_id
    ON documents(collection, id);

CREATE INDEX IF NOT EXISTS idx_documents_collection_email
    ON documents(collection, json_extract(body, '$.email'));
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
