package transport

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/TheMichaelB/notesync/internal/events"
)

// ChangeEvent is a remote notification that a note changed for a user.
type ChangeEvent struct {
	UserID string `json:"user_id"`
	NoteID string `json:"note_id"`
	Op     string `json:"op"` // "set" or "delete"
}

// ChangeFeed subscribes to the remote change websocket. It is an
// optional accelerator: the engine falls back to periodic sync when the
// feed is unavailable, so connection failures are logged, never fatal.
type ChangeFeed struct {
	url    string
	token  string
	logger *events.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool

	changes chan ChangeEvent
	done    chan struct{}

	pingInterval  time.Duration
	pongTimeout   time.Duration
	reconnectWait time.Duration
}

// NewChangeFeed creates a change feed client.
func NewChangeFeed(feedURL, token string, logger *events.Logger) *ChangeFeed {
	if strings.HasPrefix(feedURL, "http") {
		feedURL = "ws" + feedURL[4:]
	}

	return &ChangeFeed{
		url:           feedURL,
		token:         token,
		logger:        logger.WithField("component", "change_feed"),
		changes:       make(chan ChangeEvent, 100),
		done:          make(chan struct{}),
		pingInterval:  30 * time.Second,
		pongTimeout:   10 * time.Second,
		reconnectWait: 15 * time.Second,
	}
}

// Changes returns the event channel. It closes when the feed is closed.
func (f *ChangeFeed) Changes() <-chan ChangeEvent {
	return f.changes
}

// Run connects and reads events until ctx ends or Close is called,
// reconnecting after connection loss.
func (f *ChangeFeed) Run(ctx context.Context) {
	defer close(f.changes)

	for {
		if err := f.connect(ctx); err != nil {
			f.logger.WithError(err).Warn("Change feed connect failed")
		} else {
			f.readLoop(ctx)
		}

		select {
		case <-ctx.Done():
			return
		case <-f.done:
			return
		case <-time.After(f.reconnectWait):
		}
	}
}

// Close shuts the feed down.
func (f *ChangeFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true
	close(f.done)

	if f.conn != nil {
		_ = f.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		err := f.conn.Close()
		f.conn = nil
		return err
	}
	return nil
}

func (f *ChangeFeed) connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return fmt.Errorf("feed closed")
	}

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+f.token)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, f.url, headers)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("change feed connect failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("change feed connect failed: %w", err)
	}

	f.conn = conn
	f.logger.WithField("url", f.url).Info("Change feed connected")

	go f.pingLoop(conn)
	return nil
}

func (f *ChangeFeed) readLoop(ctx context.Context) {
	f.mu.Lock()
	conn := f.conn
	f.mu.Unlock()

	if conn == nil {
		return
	}

	defer func() {
		f.mu.Lock()
		if f.conn == conn {
			f.conn.Close()
			f.conn = nil
		}
		f.mu.Unlock()
	}()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(f.pongTimeout + f.pingInterval))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(f.pongTimeout + f.pingInterval))
			return nil
		})

		var event ChangeEvent
		if err := conn.ReadJSON(&event); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure) {
				f.logger.WithError(err).Warn("Change feed read error")
			}
			return
		}

		select {
		case f.changes <- event:
		case <-ctx.Done():
			return
		case <-f.done:
			return
		}
	}
}

func (f *ChangeFeed) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(f.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-f.done:
			return
		}
	}
}
