package sync

import (
	"context"
	gosync "sync"
	"time"

	"github.com/TheMichaelB/notesync/internal/connectivity"
	"github.com/TheMichaelB/notesync/internal/events"
)

// MinSyncInterval is the floor for periodic sync. Requests below it are
// clamped, not rejected.
const MinSyncInterval = 15 * time.Minute

// periodicSyncKey identifies the recurring sync job; scheduling it
// again replaces the previous schedule.
const periodicSyncKey = "periodic_sync"

// Scheduler runs background work, optionally on a recurring interval
// gated on connectivity.
type Scheduler interface {
	// RunOnce executes work once in the background.
	RunOnce(work func(ctx context.Context))

	// RunPeriodic executes work every interval. Scheduling an existing
	// key replaces its previous schedule. When requiresConnectivity is
	// set, ticks that fire while unreachable are skipped.
	RunPeriodic(key string, interval time.Duration, requiresConnectivity bool, work func(ctx context.Context))

	// Cancel stops a periodic job. Unknown keys are ignored.
	Cancel(key string)
}

// TickerScheduler is a goroutine-per-job Scheduler. Jobs stop when the
// scheduler's root context ends or when cancelled by key.
type TickerScheduler struct {
	ctx      context.Context
	observer *connectivity.Observer
	logger   *events.Logger

	mu   gosync.Mutex
	jobs map[string]context.CancelFunc
}

// NewTickerScheduler creates a scheduler rooted at ctx.
func NewTickerScheduler(ctx context.Context, observer *connectivity.Observer, logger *events.Logger) *TickerScheduler {
	return &TickerScheduler{
		ctx:      ctx,
		observer: observer,
		logger:   logger.WithField("component", "scheduler"),
		jobs:     make(map[string]context.CancelFunc),
	}
}

func (s *TickerScheduler) RunOnce(work func(ctx context.Context)) {
	go work(s.ctx)
}

func (s *TickerScheduler) RunPeriodic(key string, interval time.Duration, requiresConnectivity bool, work func(ctx context.Context)) {
	jobCtx, cancel := context.WithCancel(s.ctx)

	s.mu.Lock()
	if prev, ok := s.jobs[key]; ok {
		prev()
	}
	s.jobs[key] = cancel
	s.mu.Unlock()

	s.logger.WithFields(map[string]interface{}{
		"key":      key,
		"interval": interval.String(),
	}).Info("Periodic job scheduled")

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-jobCtx.Done():
				return
			case <-ticker.C:
				if requiresConnectivity && !s.observer.Reachable(jobCtx) {
					s.logger.WithField("key", key).Debug("Skipping tick, network unreachable")
					continue
				}
				work(jobCtx)
			}
		}
	}()
}

func (s *TickerScheduler) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cancel, ok := s.jobs[key]; ok {
		cancel()
		delete(s.jobs, key)
		s.logger.WithField("key", key).Info("Periodic job cancelled")
	}
}

// SyncScheduler schedules recurring sync passes on an Engine, enforcing
// the minimum interval.
type SyncScheduler struct {
	sched  Scheduler
	engine *Engine
	logger *events.Logger
}

// NewSyncScheduler creates a sync scheduler.
func NewSyncScheduler(sched Scheduler, engine *Engine, logger *events.Logger) *SyncScheduler {
	return &SyncScheduler{
		sched:  sched,
		engine: engine,
		logger: logger.WithField("component", "sync_scheduler"),
	}
}

// SchedulePeriodic arranges a sync pass every interval. Intervals below
// MinSyncInterval are clamped to it. Scheduling again replaces the
// previous interval. The effective interval is returned.
func (s *SyncScheduler) SchedulePeriodic(interval time.Duration) time.Duration {
	if interval < MinSyncInterval {
		s.logger.WithFields(map[string]interface{}{
			"requested": interval.String(),
			"minimum":   MinSyncInterval.String(),
		}).Warn("Sync interval below minimum, clamping")
		interval = MinSyncInterval
	}

	s.sched.RunPeriodic(periodicSyncKey, interval, true, func(ctx context.Context) {
		s.engine.RequestSync(ctx)
	})
	return interval
}

// CancelPeriodic stops the recurring sync.
func (s *SyncScheduler) CancelPeriodic() {
	s.sched.Cancel(periodicSyncKey)
}
