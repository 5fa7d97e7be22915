package sqliteutil

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// OpenDB opens (or creates) the sqlite database at path and applies schema,
// schema statements must be idempotent (CREATE ... IF NOT EXISTS).
func OpenDB(schema, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite only supports a single writer, and every :memory: connection is
	// its own database
	db.SetMaxOpenConns(1)

	_, err = db.Exec(schema)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}
