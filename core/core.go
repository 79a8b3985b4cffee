// Package core has the repository scanning, batching, staleness and
// in-memory snapshot logic behind the refresh engine.
package core

import (
	"time"

	"github.com/repowatch/repowatch/internal/contract"
)

// timeNow is swapped out by tests that need a fixed clock.
var timeNow = time.Now

// Engine bundles the refresh engine's components, constructed once at
// process start and passed by reference to callers.
type Engine struct {
	Store       contract.Store
	Scanner     *Scanner
	Coordinator *Coordinator
	Scheduler   *Scheduler
	Manager     *Manager
}

// NewEngine wires the engine components against one store and one Git client.
func NewEngine(store contract.Store, client contract.GitClient, cfg *contract.Config) *Engine {
	scanner := NewScanner(client)
	coordinator := NewCoordinator(scanner, store)
	scheduler := NewScheduler(store, coordinator, SchedulerOptions{
		StaleThreshold: cfg.StaleThreshold,
		MaxPerBatch:    cfg.MaxPerBatch,
		Interval:       cfg.RefreshInterval,
		Scan:           cfg.ScanOptions(),
	})
	manager := NewManager(store, client, coordinator, cfg.ScanOptions())
	return &Engine{
		Store:       store,
		Scanner:     scanner,
		Coordinator: coordinator,
		Scheduler:   scheduler,
		Manager:     manager,
	}
}
