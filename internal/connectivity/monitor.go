// Package connectivity reports network reachability to the sync engine
// as both a one-shot query and a stream of edge transitions.
package connectivity

import (
	"context"
	"net/http"
	"time"

	"github.com/TheMichaelB/notesync/internal/events"
)

// Monitor reports current network reachability.
type Monitor interface {
	// IsReachable performs a one-shot reachability check.
	IsReachable(ctx context.Context) bool

	// Observe emits a reachability sample per probe until ctx ends.
	// Consumers are expected to deduplicate edges.
	Observe(ctx context.Context) (<-chan bool, error)
}

// HTTPMonitor checks reachability by probing an HTTP endpoint.
type HTTPMonitor struct {
	probeURL string
	client   *http.Client
	interval time.Duration
	logger   *events.Logger
}

// NewHTTPMonitor creates a probe-based monitor.
func NewHTTPMonitor(probeURL string, interval, timeout time.Duration, logger *events.Logger) *HTTPMonitor {
	return &HTTPMonitor{
		probeURL: probeURL,
		client:   &http.Client{Timeout: timeout},
		interval: interval,
		logger:   logger.WithField("component", "connectivity"),
	}
}

// IsReachable probes the endpoint once.
func (m *HTTPMonitor) IsReachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, m.probeURL, nil)
	if err != nil {
		return false
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()

	return resp.StatusCode < 500
}

// Observe probes on an interval and emits every sample.
func (m *HTTPMonitor) Observe(ctx context.Context) (<-chan bool, error) {
	ch := make(chan bool, 1)

	go func() {
		defer close(ch)

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			select {
			case ch <- m.IsReachable(ctx):
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}
