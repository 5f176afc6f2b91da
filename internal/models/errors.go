package models

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
)

// ErrorType classifies a sync failure for retry policy and display.
type ErrorType string

const (
	ErrorNetwork          ErrorType = "NETWORK"
	ErrorStorageFull      ErrorType = "STORAGE_FULL"
	ErrorAuthentication   ErrorType = "AUTHENTICATION"
	ErrorPermissionDenied ErrorType = "PERMISSION_DENIED"
	ErrorRateLimit        ErrorType = "RATE_LIMIT"
	ErrorConflict         ErrorType = "CONFLICT"
	ErrorUnknown          ErrorType = "UNKNOWN"
)

// Sentinel errors
var (
	ErrSyncInProgress   = errors.New("sync already in progress")
	ErrSyncDisabled     = errors.New("sync is disabled")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrStorageFull      = errors.New("storage quota exceeded")
	ErrOffline          = errors.New("network unreachable")
	ErrRemoteNewer      = errors.New("remote version is newer")
	ErrNoteNotFound     = errors.New("note not found")
	ErrBlobNotFound     = errors.New("blob not found")
	ErrEmptyNoteID      = errors.New("note id is empty")
	ErrChecksumMismatch = errors.New("blob checksum mismatch")
)

// SyncError records one failure observed during a sync session. Errors
// accumulate until the caller clears them explicitly.
type SyncError struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	NoteID    string    `json:"note_id,omitempty"`
	Type      ErrorType `json:"type"`
}

// NewSyncError builds a SyncError from an underlying error, classifying
// it when no explicit type is known.
func NewSyncError(noteID string, err error) SyncError {
	return SyncError{
		ID:        uuid.NewString(),
		Message:   err.Error(),
		Timestamp: time.Now(),
		NoteID:    noteID,
		Type:      Classify(err),
	}
}

func (e SyncError) String() string {
	if e.NoteID != "" {
		return fmt.Sprintf("[%s] note %s: %s", e.Type, e.NoteID, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// APIError represents a failure response from the remote API.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// TransferError marks a failure of one part of a note transfer. The
// Part field distinguishes the text record from its blobs.
type TransferError struct {
	NoteID string
	Part   string // "text", "audio" or "summary"
	Err    error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer %s for note %s: %v", e.Part, e.NoteID, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// Classify maps an error to its ErrorType.
func Classify(err error) ErrorType {
	switch {
	case err == nil:
		return ErrorUnknown
	case errors.Is(err, ErrRemoteNewer):
		return ErrorConflict
	case errors.Is(err, ErrStorageFull):
		return ErrorStorageFull
	case errors.Is(err, ErrNotAuthenticated):
		return ErrorAuthentication
	case errors.Is(err, ErrOffline):
		return ErrorNetwork
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 401:
			return ErrorAuthentication
		case 403:
			return ErrorPermissionDenied
		case 409:
			return ErrorConflict
		case 429:
			return ErrorRateLimit
		case 507:
			return ErrorStorageFull
		default:
			if apiErr.StatusCode >= 500 {
				return ErrorNetwork
			}
			return ErrorUnknown
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrorNetwork
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorNetwork
	}

	return ErrorUnknown
}
