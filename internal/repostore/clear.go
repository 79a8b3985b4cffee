package repostore

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/repowatch/repowatch/schema"
)

// Clear removes all durable cache data for the specified backend.
// For SQLite, it deletes the database file.
// For SQL backends (MySQL/PostgreSQL), it drops the tables.
// For NoneBackend, it does nothing.
func Clear(backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	switch backend {
	case schema.SQLiteBackend:
		if dbFilePath == "" {
			return fmt.Errorf("dbFilePath cannot be empty for SQLite backend")
		}
		// Remove the file; ignore if it doesn't exist
		if err := os.Remove(dbFilePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove SQLite database file %s: %w", dbFilePath, err)
		}
		return nil

	case schema.MySQLBackend:
		return dropTables("mysql", connStr)

	case schema.PostgreSQLBackend:
		return dropTables("pgx", connStr)

	case schema.NoneBackend:
		return nil

	default:
		return fmt.Errorf("unsupported store backend for clearing: %s", backend)
	}
}

// dropTables connects to the SQL database and drops the store tables if they exist.
func dropTables(driverName, connStr string) error {
	db, err := sql.Open(driverName, connStr)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	for _, table := range []string{entriesTable, mappingsTable} {
		if _, err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	return nil
}
