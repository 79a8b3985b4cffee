package schema

import "time"

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for the durable store.
	DatabaseBackend string
)

// All output modes supported.
const (
	TextOut OutputMode = "text" // default
	CSVOut  OutputMode = "csv"
	JSONOut OutputMode = "json"
)

// All store backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	TextOut: {},
	CSVOut:  {},
	JSONOut: {},
}

// ValidStoreBackends lists all valid store backends.
var ValidStoreBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// Engine defaults.
const (
	// DefaultMaxCommits caps how deep a single scan reads history.
	DefaultMaxCommits = 1000

	// DefaultScanConcurrency is how many repository scans the batch
	// coordinator runs at once.
	DefaultScanConcurrency = 3

	// DefaultSkipWindow is how recent a durable entry must be for the
	// coordinator to skip rescanning it when force refresh is off.
	DefaultSkipWindow = 6 * time.Hour

	// DefaultFreshWindow is how recent a durable entry must be for the
	// cache manager to reuse it without dispatching a rescan.
	DefaultFreshWindow = time.Hour

	// RecentActivityWindow is the lookback used for "recent" commit counts.
	RecentActivityWindow = 30 * 24 * time.Hour

	// DefaultStaleThresholdHours is the age past which a durable entry is
	// eligible for a background rescan.
	DefaultStaleThresholdHours = 24

	// DefaultMaxRepositoriesPerBatch bounds how many stale repositories one
	// scheduler tick rescans; the remainder waits for the next tick.
	DefaultMaxRepositoriesPerBatch = 5

	// DefaultRefreshIntervalMinutes is the scheduler tick interval.
	DefaultRefreshIntervalMinutes = 60
)
