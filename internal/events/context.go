package events

import (
	"context"
	"os"
)

type contextKey int

const (
	loggerKey contextKey = iota
	userIDKey
	noteIDKey
)

var defaultLogger = New(InfoLevel, "text", os.Stdout)

// SetDefault sets the logger returned when a context carries none.
func SetDefault(logger *Logger) {
	defaultLogger = logger
}

// FromContext extracts the logger from a context.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey).(*Logger); ok {
		return l
	}
	return defaultLogger
}

// WithLogger attaches a logger to a context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// WithUserID attaches a user id to the context and its logger.
func WithUserID(ctx context.Context, id string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, id)
	return WithLogger(ctx, FromContext(ctx).WithField("user_id", id))
}

// WithNoteID attaches a note id to the context and its logger.
func WithNoteID(ctx context.Context, id string) context.Context {
	ctx = context.WithValue(ctx, noteIDKey, id)
	return WithLogger(ctx, FromContext(ctx).WithField("note_id", id))
}

// UserID retrieves the user id from a context.
func UserID(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}

// NoteID retrieves the note id from a context.
func NoteID(ctx context.Context) string {
	if id, ok := ctx.Value(noteIDKey).(string); ok {
		return id
	}
	return ""
}
