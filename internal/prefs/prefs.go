// Package prefs persists the small set of durable engine settings: the
// sync-enabled flag and the last successful sync timestamp.
package prefs

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/TheMichaelB/notesync/internal/events"
)

const (
	keySyncEnabled  = "sync_enabled"
	keyLastSyncTime = "last_sync_time"
	keySyncInterval = "sync_interval"
)

// Store reads and writes engine preferences through a settings file.
type Store struct {
	mu     sync.Mutex
	v      *viper.Viper
	path   string
	logger *events.Logger
}

// NewStore opens the settings file, creating defaults if absent.
func NewStore(path string, logger *events.Logger) (*Store, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetDefault(keySyncEnabled, true)
	v.SetDefault(keyLastSyncTime, "")
	v.SetDefault(keySyncInterval, "")

	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read prefs %s: %w", path, err)
			}
		}
	}

	return &Store{
		v:      v,
		path:   path,
		logger: logger.WithField("component", "prefs"),
	}, nil
}

// SyncEnabled reports whether the user has sync turned on.
func (s *Store) SyncEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v.GetBool(keySyncEnabled)
}

// SetSyncEnabled persists the sync-enabled flag.
func (s *Store) SetSyncEnabled(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.v.Set(keySyncEnabled, enabled)
	return s.write()
}

// LastSyncTime returns the last successful sync time, zero if none.
func (s *Store) LastSyncTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw := s.v.GetString(keyLastSyncTime)
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		s.logger.WithError(err).Warn("Corrupt last_sync_time, ignoring")
		return time.Time{}
	}
	return t
}

// SetLastSyncTime persists the last successful sync time.
func (s *Store) SetLastSyncTime(t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.v.Set(keyLastSyncTime, t.UTC().Format(time.RFC3339Nano))
	return s.write()
}

// SyncInterval returns the user-chosen periodic sync interval, zero if
// none has been scheduled.
func (s *Store) SyncInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw := s.v.GetString(keySyncInterval)
	if raw == "" {
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		s.logger.WithError(err).Warn("Corrupt sync_interval, ignoring")
		return 0
	}
	return d
}

// SetSyncInterval persists the periodic sync interval. Zero clears the
// schedule.
func (s *Store) SetSyncInterval(d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d <= 0 {
		s.v.Set(keySyncInterval, "")
	} else {
		s.v.Set(keySyncInterval, d.String())
	}
	return s.write()
}

func (s *Store) write() error {
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write prefs %s: %w", s.path, err)
	}
	return nil
}
