package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/TheMichaelB/notesync/internal/events"
)

// Observer turns a Monitor into an edge-transition stream with a cached
// last-known value. If the monitor cannot be observed, the observer
// reports unreachable and keeps retrying registration; dependents treat
// that as ordinary offline, not a fatal error.
type Observer struct {
	monitor Monitor
	logger  *events.Logger

	// How long to wait before retrying a failed Observe registration.
	retryDelay time.Duration

	mu   sync.Mutex
	last bool
	subs []chan bool
}

// NewObserver creates an observer over a monitor.
func NewObserver(monitor Monitor, logger *events.Logger) *Observer {
	return &Observer{
		monitor:    monitor,
		logger:     logger.WithField("component", "connectivity_observer"),
		retryDelay: 10 * time.Second,
	}
}

// Start begins observing until ctx ends. Safe to run in a goroutine.
func (o *Observer) Start(ctx context.Context) {
	for {
		ch, err := o.monitor.Observe(ctx)
		if err != nil {
			o.logger.WithError(err).Warn("Connectivity registration failed, assuming offline")
			o.publish(false)

			select {
			case <-ctx.Done():
				return
			case <-time.After(o.retryDelay):
				continue
			}
		}

		for reachable := range ch {
			o.publish(reachable)
		}

		if ctx.Err() != nil {
			return
		}
	}
}

// Reachable performs a one-shot reachability query.
func (o *Observer) Reachable(ctx context.Context) bool {
	return o.monitor.IsReachable(ctx)
}

// LastKnown returns the most recent observed value.
func (o *Observer) LastKnown() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}

// Subscribe returns a channel that receives edge transitions only. The
// channel is conflated: a slow consumer sees the latest value, not the
// full history.
func (o *Observer) Subscribe() <-chan bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	ch := make(chan bool, 1)
	o.subs = append(o.subs, ch)
	return ch
}

// publish records a sample and fans out edges to subscribers.
func (o *Observer) publish(reachable bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if reachable == o.last {
		return
	}
	o.last = reachable

	for _, ch := range o.subs {
		// Conflate: drop the stale value if the consumer is behind.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- reachable:
		default:
		}
	}
}
