package sync

import (
	"context"
	"errors"
	gosync "sync"

	"github.com/TheMichaelB/notesync/internal/connectivity"
	"github.com/TheMichaelB/notesync/internal/creds"
	"github.com/TheMichaelB/notesync/internal/events"
	"github.com/TheMichaelB/notesync/internal/transport"
)

// Service runs the engine's background machinery: the connectivity
// observer, the reconnect catch-up loop and the optional change feed.
// The feed is an accelerator only; losing it degrades to periodic and
// manual sync.
type Service struct {
	engine   *Engine
	observer *connectivity.Observer
	feed     *transport.ChangeFeed
	user     creds.CurrentUser
	logger   *events.Logger

	wg gosync.WaitGroup
}

// NewService creates a service. feed may be nil when no change feed is
// configured.
func NewService(engine *Engine, observer *connectivity.Observer, feed *transport.ChangeFeed, user creds.CurrentUser, logger *events.Logger) *Service {
	return &Service{
		engine:   engine,
		observer: observer,
		feed:     feed,
		user:     user,
		logger:   logger.WithField("component", "sync_service"),
	}
}

// Engine returns the wrapped engine.
func (s *Service) Engine() *Engine {
	return s.engine
}

// Start launches the background loops. They stop when ctx ends.
func (s *Service) Start(ctx context.Context) {
	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.observer.Start(ctx)
	}()
	go func() {
		defer s.wg.Done()
		s.engine.Run(ctx)
	}()

	if s.feed != nil {
		s.wg.Add(2)
		go func() {
			defer s.wg.Done()
			s.feed.Run(ctx)
		}()
		go func() {
			defer s.wg.Done()
			s.consumeFeed(ctx)
		}()
	}
}

// Wait blocks until every background loop has returned.
func (s *Service) Wait() {
	s.wg.Wait()
}

// consumeFeed applies remote change notifications as they arrive.
func (s *Service) consumeFeed(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-s.feed.Changes():
			if !ok {
				return
			}
			s.handleEvent(ctx, event)
		}
	}
}

func (s *Service) handleEvent(ctx context.Context, event transport.ChangeEvent) {
	if event.UserID != s.user.ID() || event.NoteID == "" {
		return
	}

	log := s.logger.WithFields(map[string]interface{}{
		"note_id": event.NoteID,
		"op":      event.Op,
	})

	switch event.Op {
	case "delete":
		if err := s.engine.ApplyRemoteDelete(ctx, event.NoteID); err != nil {
			log.WithError(err).Warn("Failed to apply remote delete")
		}
	case "set":
		if err := s.engine.DownloadNote(ctx, event.NoteID); err != nil &&
			!errors.Is(err, context.Canceled) {
			log.WithError(err).Warn("Failed to apply remote change")
		}
	default:
		log.Debug("Ignoring unknown change feed op")
	}
}
