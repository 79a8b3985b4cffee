package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/repowatch/repowatch/internal/contract"
	"github.com/repowatch/repowatch/schema"
)

// SchedulerOptions configures the staleness refresh scheduler.
type SchedulerOptions struct {
	StaleThreshold time.Duration      // Entry age past which a rescan is due; <= 0 uses the default
	MaxPerBatch    int                // Stale repositories rescanned per tick; <= 0 uses the default
	Interval       time.Duration      // Tick interval; <= 0 uses the default
	WarmupDelay    time.Duration      // Delay before the first run; <= 0 uses a short default
	Scan           schema.ScanOptions // Per-repository scan options for rescans
}

func (o *SchedulerOptions) applyDefaults() {
	if o.StaleThreshold <= 0 {
		o.StaleThreshold = schema.DefaultStaleThresholdHours * time.Hour
	}
	if o.MaxPerBatch <= 0 {
		o.MaxPerBatch = schema.DefaultMaxRepositoriesPerBatch
	}
	if o.Interval <= 0 {
		o.Interval = schema.DefaultRefreshIntervalMinutes * time.Minute
	}
	if o.WarmupDelay <= 0 {
		o.WarmupDelay = 10 * time.Second
	}
}

// Scheduler periodically queries the durable store for stale cache entries
// and feeds them, oldest first and in size-limited batches, to the
// coordinator. Entries beyond the per-tick limit wait for the next tick,
// which bounds external-process load.
type Scheduler struct {
	store       contract.Store
	coordinator *Coordinator
	opts        SchedulerOptions

	isRefreshing atomic.Bool

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	stats   schema.RefreshStats
}

// NewScheduler returns a stopped scheduler. Call Start to arm its timer.
func NewScheduler(store contract.Store, coordinator *Coordinator, opts SchedulerOptions) *Scheduler {
	opts.applyDefaults()
	return &Scheduler{store: store, coordinator: coordinator, opts: opts}
}

// Start arms the repeating timer. An initial run fires once after a short
// warm-up delay. Starting an already-running scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.stats.NextRefreshTime = timeNow().Add(s.opts.WarmupDelay)

	go s.loop(s.stop)
}

// Stop clears the timer. A refresh cycle already in flight runs to
// completion; only future ticks are prevented.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stop)
}

// IsRunning reports whether the timer is armed.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Stats returns a copy of the scheduler's observability state.
func (s *Scheduler) Stats() schema.RefreshStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Scheduler) loop(stop chan struct{}) {
	warmup := time.NewTimer(s.opts.WarmupDelay)
	defer warmup.Stop()

	select {
	case <-warmup.C:
		s.RunOnce(context.Background())
	case <-stop:
		return
	}

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.RunOnce(context.Background())
		case <-stop:
			return
		}
	}
}

// RunOnce executes one refresh cycle. If a previous cycle is still in
// progress the call is skipped entirely; ticks never overlap.
func (s *Scheduler) RunOnce(ctx context.Context) {
	if !s.isRefreshing.CompareAndSwap(false, true) {
		return
	}
	defer s.isRefreshing.Store(false)

	refs, err := s.store.ListOlderThan(ctx, s.opts.StaleThreshold)
	if err != nil {
		contract.LogWarn("querying stale entries", err)
		// The cycle still ran; advance the clock so the next tick is not
		// reported as overdue.
		now := timeNow()
		s.mu.Lock()
		s.stats.LastRefreshTime = now
		s.stats.NextRefreshTime = now.Add(s.opts.Interval)
		s.mu.Unlock()
		return
	}

	stale := len(refs)
	if len(refs) > s.opts.MaxPerBatch {
		// The remainder is deferred to the next tick.
		refs = refs[:s.opts.MaxPerBatch]
	}

	mappings := make([]schema.RepositoryMapping, 0, len(refs))
	for _, ref := range refs {
		mappings = append(mappings, schema.RepositoryMapping{
			ID:        ref.MappingID,
			LocalPath: ref.LocalPath,
			ProjectID: ref.ProjectID,
		})
	}

	var result schema.BatchResult
	if len(mappings) > 0 {
		result = s.coordinator.ScanAll(ctx, mappings, schema.BatchOptions{
			ForceRefresh: true, // Already past the staleness threshold
			Scan:         s.opts.Scan,
		})
	}

	total := stale
	if all, err := s.store.ListMappings(ctx); err == nil {
		total = len(all)
	}

	now := timeNow()
	s.mu.Lock()
	s.stats = schema.RefreshStats{
		TotalRepositories:     total,
		StaleRepositories:     stale,
		RefreshedRepositories: result.Successful,
		FailedRepositories:    result.Failed,
		LastRefreshTime:       now,
		NextRefreshTime:       now.Add(s.opts.Interval),
	}
	s.mu.Unlock()

	if result.Failed > 0 {
		contract.LogWarn(fmt.Sprintf("stale refresh completed with %d failures", result.Failed), nil)
	}
}
