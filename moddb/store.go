package moddb

import (
	"fmt"

	"moddb-curator/jsonfile"
)

// Load reads the database at path. A missing file yields an empty database;
// a malformed one is an error, and the caller must decide whether to start
// fresh.
func Load(path string) (*Database, bool, error) {
	db := New()
	found, err := jsonfile.Read(path, db)
	if err != nil {
		return nil, found, fmt.Errorf("load mod database: %w", err)
	}
	db.normalize()
	return db, found, nil
}

// Save rewrites the whole database file.
func Save(path string, db *Database) error {
	if err := jsonfile.Write(path, db, 4); err != nil {
		return fmt.Errorf("save mod database: %w", err)
	}
	return nil
}
