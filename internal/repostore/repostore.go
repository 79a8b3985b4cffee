// Package repostore is the durable row store for repository mappings and
// their scan cache entries.
package repostore

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/repowatch/repowatch/internal/contract"
	"github.com/repowatch/repowatch/schema"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver
)

// Table names for the durable store.
const (
	mappingsTable = "repo_mappings"
	entriesTable  = "repo_cache_entries"
)

// currentSchemaVersion is the version of the cache entry payload encoding.
// Entries written with an older version are treated as absent on read.
const currentSchemaVersion = 1

// SQLStore implements the Store interface using various database backends.
type SQLStore struct {
	db         *sql.DB
	backend    schema.DatabaseBackend
	driverName string
	connStr    string
}

var _ contract.Store = &SQLStore{} // Compile-time check

// NewStore initializes and returns a new durable store for the backend.
// For NoneBackend the store is a no-op that never finds entries.
func NewStore(backend schema.DatabaseBackend, connStr string) (*SQLStore, error) {
	var db *sql.DB
	var err error
	var driverName string

	switch backend {
	case schema.SQLiteBackend:
		driverName = "sqlite"
		dbPath := connStr
		if dbPath == "" {
			dbPath = contract.GetStoreDBFilePath()
		}
		db, err = sql.Open(driverName, dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store at %q: %w. Ensure the directory is writable", dbPath, err)
		}
		// Limit SQLite to a single open connection to avoid "database is locked" errors
		db.SetMaxOpenConns(1)

	case schema.MySQLBackend:
		// connStr should be:
		// user:password@tcp(host:port)/dbname
		driverName = "mysql"
		db, err = sql.Open(driverName, connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MySQL store: %w. Check connection format: user:password@tcp(host:port)/dbname", err)
		}

	case schema.PostgreSQLBackend:
		// connStr should be:
		// host=localhost port=5432 user=postgres password=... dbname=...
		driverName = "pgx"
		db, err = sql.Open(driverName, connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL store: %w. Check connection format: host=localhost port=5432 user=postgres dbname=mydb", err)
		}

	case schema.NoneBackend:
		return &SQLStore{backend: backend}, nil

	default:
		return nil, fmt.Errorf("unsupported store backend: %s. Must be sqlite, mysql, postgresql, or none", backend)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s database. Check that the server is running and connection parameters are valid: %w", backend, err)
	}

	// Create the table schemas
	for _, query := range createTableQueries(backend) {
		if _, err := db.Exec(query); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to create store tables: %w", err)
		}
	}

	return &SQLStore{
		db:         db,
		backend:    backend,
		driverName: driverName,
		connStr:    connStr,
	}, nil
}

// createTableQueries returns the CREATE TABLE statements for the backend.
// The payload column holds the JSON-encoded cache entry body; the remaining
// columns are denormalized for staleness and health queries.
func createTableQueries(backend schema.DatabaseBackend) []string {
	return []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id VARCHAR(255) PRIMARY KEY,
				local_path TEXT NOT NULL,
				project_id VARCHAR(255) NOT NULL,
				user_id VARCHAR(255) NOT NULL,
				created_at BIGINT NOT NULL
			);
		`, mappingsTable),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				mapping_id VARCHAR(255) PRIMARY KEY,
				project_id VARCHAR(255) NOT NULL,
				local_path TEXT NOT NULL,
				payload TEXT NOT NULL,
				schema_version INTEGER NOT NULL,
				is_valid INTEGER NOT NULL,
				scan_error TEXT NOT NULL,
				last_updated_at BIGINT
			);
		`, entriesTable),
	}
}

// rebind converts '?' placeholders to the backend's parameter syntax.
func (s *SQLStore) rebind(query string) string {
	if s.backend != schema.PostgreSQLBackend {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// disabled reports whether the store is a no-op (NoneBackend).
func (s *SQLStore) disabled() bool {
	return s.backend == schema.NoneBackend || s.db == nil
}

// Close closes the underlying DB connection.
func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
