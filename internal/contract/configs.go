package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/repowatch/repowatch/schema"
)

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// ProcessProfilingConfig handles the profiling flag and sets up profiling configuration.
func ProcessProfilingConfig(profile *ProfileConfig, profilePrefix string) error {
	if profilePrefix != "" {
		profile.Enabled = true
		profile.Prefix = profilePrefix
	}
	return nil
}

// Config holds the validated runtime configuration for the engine.
type Config struct {
	// Scanning
	MaxCommits      int  // History depth cap per repository scan
	IncludeBranches bool // Collect branch records during scans
	IncludeRemotes  bool // Collect remote names and URLs during scans
	IncludeStats    bool // Collect per-commit line stats during scans
	Concurrency     int  // Scans in flight at once in a batch
	ForceRefresh    bool // Ignore the skip window and always rescan

	// Staleness scheduling
	StaleThreshold    time.Duration // Entry age past which a background rescan is due
	MaxPerBatch       int           // Stale repositories rescanned per scheduler tick
	RefreshInterval   time.Duration // Scheduler tick interval
	EnableAutoRefresh bool          // Drive per-project auto-refresh timers

	// Durable store
	StoreBackend   schema.DatabaseBackend
	StoreDBConnect string // Please use env var as this is plaintext

	// Output
	Output     schema.OutputMode
	OutputFile string
	UseColors  bool
	Width      int // Terminal width override (0 = auto-detect)
}

// ScanOptions returns the per-repository scan options from the config.
func (c *Config) ScanOptions() schema.ScanOptions {
	return schema.ScanOptions{
		MaxCommits:      c.MaxCommits,
		IncludeBranches: c.IncludeBranches,
		IncludeRemotes:  c.IncludeRemotes,
		IncludeStats:    c.IncludeStats,
	}
}

// BatchOptions returns the coordinator options from the config.
func (c *Config) BatchOptions() schema.BatchOptions {
	return schema.BatchOptions{
		Concurrency:  c.Concurrency,
		ForceRefresh: c.ForceRefresh,
		Scan:         c.ScanOptions(),
	}
}

// ConfigRawInput holds the raw, unvalidated configuration from all sources
// (file, env, flags). Viper unmarshals into this struct.
type ConfigRawInput struct {
	MaxCommits          int    `mapstructure:"max-commits"`
	IncludeBranches     bool   `mapstructure:"include-branches"`
	IncludeRemotes      bool   `mapstructure:"include-remotes"`
	IncludeStats        bool   `mapstructure:"include-stats"`
	Concurrency         int    `mapstructure:"concurrency"`
	ForceRefresh        bool   `mapstructure:"force-refresh"`
	StaleThresholdHours int    `mapstructure:"stale-threshold-hours"`
	MaxPerBatch         int    `mapstructure:"max-batch"`
	RefreshIntervalMins int    `mapstructure:"refresh-interval-minutes"`
	EnableAutoRefresh   bool   `mapstructure:"auto-refresh"`
	StoreBackend        string `mapstructure:"store-backend"`
	StoreDBConnect      string `mapstructure:"store-db-connect"`
	Output              string `mapstructure:"output"`
	OutputFile          string `mapstructure:"output-file"`
	Color               string `mapstructure:"color"`
	Width               int    `mapstructure:"width"`
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and populates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	// --- 1. Scan options ---
	if input.MaxCommits <= 0 {
		return fmt.Errorf("max-commits must be greater than 0 (received %d)", input.MaxCommits)
	}
	cfg.MaxCommits = input.MaxCommits
	cfg.IncludeBranches = input.IncludeBranches
	cfg.IncludeRemotes = input.IncludeRemotes
	cfg.IncludeStats = input.IncludeStats
	cfg.ForceRefresh = input.ForceRefresh

	if input.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be greater than 0 (received %d)", input.Concurrency)
	}
	cfg.Concurrency = input.Concurrency

	// --- 2. Staleness scheduling ---
	if input.StaleThresholdHours <= 0 {
		return fmt.Errorf("stale-threshold-hours must be greater than 0 (received %d)", input.StaleThresholdHours)
	}
	cfg.StaleThreshold = time.Duration(input.StaleThresholdHours) * time.Hour

	if input.MaxPerBatch <= 0 {
		return fmt.Errorf("max-batch must be greater than 0 (received %d)", input.MaxPerBatch)
	}
	cfg.MaxPerBatch = input.MaxPerBatch

	if input.RefreshIntervalMins <= 0 {
		return fmt.Errorf("refresh-interval-minutes must be greater than 0 (received %d)", input.RefreshIntervalMins)
	}
	cfg.RefreshInterval = time.Duration(input.RefreshIntervalMins) * time.Minute
	cfg.EnableAutoRefresh = input.EnableAutoRefresh

	// --- 3. Store backend ---
	backend := schema.DatabaseBackend(strings.ToLower(input.StoreBackend))
	if _, ok := schema.ValidStoreBackends[backend]; !ok {
		return fmt.Errorf("invalid store backend '%s'. must be sqlite, mysql, postgresql, or none", input.StoreBackend)
	}
	if err := ValidateDatabaseConnectionString(backend, input.StoreDBConnect); err != nil {
		return err
	}
	cfg.StoreBackend = backend
	cfg.StoreDBConnect = input.StoreDBConnect

	// --- 4. Output ---
	output := schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json", input.Output)
	}
	cfg.Output = output
	cfg.OutputFile = input.OutputFile
	cfg.UseColors = strings.EqualFold(input.Color, "yes") || strings.EqualFold(input.Color, "true")
	if input.Width < 0 {
		return fmt.Errorf("width cannot be negative (received %d)", input.Width)
	}
	cfg.Width = input.Width

	return nil
}

// ValidateDatabaseConnectionString performs basic validation on the
// connection string for network database backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("mysql backend requires a connection string: user:password@tcp(host:port)/dbname")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("postgresql backend requires a connection string: host=localhost port=5432 user=... dbname=...")
		}
	}
	return nil
}

// GetStoreDBFilePath returns the path to the SQLite DB file used when no
// connection string is configured.
func GetStoreDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".repowatch.db"
	}
	return filepath.Join(homeDir, ".repowatch.db")
}
