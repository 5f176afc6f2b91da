// Package testutil provides shared fixtures and fakes for tests.
package testutil

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/TheMichaelB/notesync/internal/events"
	"github.com/TheMichaelB/notesync/internal/models"
)

// NewTestLogger creates a debug logger writing to a discardable buffer.
func NewTestLogger() *events.Logger {
	return events.NewTestLogger(&bytes.Buffer{})
}

// TestNote builds a minimal valid note.
func TestNote(id string) *models.Note {
	return &models.Note{
		ID:         id,
		Title:      "Note " + id,
		Content:    "content of " + id,
		ModifiedAt: time.Now().UnixMilli(),
		SyncStatus: models.SyncPending,
	}
}

// TestNoteWithAudio builds a note that carries an audio payload.
func TestNoteWithAudio(id string) *models.Note {
	note := TestNote(id)
	note.HasAudio = true
	return note
}

// FakeMonitor is a controllable connectivity monitor.
type FakeMonitor struct {
	mu        sync.Mutex
	reachable bool
	observers []chan bool

	// ObserveErr makes Observe fail when set.
	ObserveErr error
}

// NewFakeMonitor creates a monitor with the given initial state.
func NewFakeMonitor(reachable bool) *FakeMonitor {
	return &FakeMonitor{reachable: reachable}
}

func (m *FakeMonitor) IsReachable(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reachable
}

func (m *FakeMonitor) Observe(ctx context.Context) (<-chan bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ObserveErr != nil {
		return nil, m.ObserveErr
	}

	ch := make(chan bool, 8)
	ch <- m.reachable
	m.observers = append(m.observers, ch)
	return ch, nil
}

// SetReachable flips the state and notifies observers.
func (m *FakeMonitor) SetReachable(reachable bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reachable = reachable
	for _, ch := range m.observers {
		select {
		case ch <- reachable:
		default:
		}
	}
}

// FakePrefs is an in-memory prefs store.
type FakePrefs struct {
	mu       sync.Mutex
	enabled  bool
	lastSync time.Time

	// SetErr makes every write fail when set.
	SetErr error
}

// NewFakePrefs creates prefs with sync enabled.
func NewFakePrefs() *FakePrefs {
	return &FakePrefs{enabled: true}
}

func (p *FakePrefs) SyncEnabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

func (p *FakePrefs) SetSyncEnabled(enabled bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.SetErr != nil {
		return p.SetErr
	}
	p.enabled = enabled
	return nil
}

func (p *FakePrefs) LastSyncTime() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSync
}

func (p *FakePrefs) SetLastSyncTime(t time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.SetErr != nil {
		return p.SetErr
	}
	p.lastSync = t
	return nil
}
