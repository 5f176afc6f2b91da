// Package remote defines the capability interfaces for the remote note
// and blob stores, and the concrete backends that implement them. The
// backend kind is resolved once when the client is built; the engine
// never branches on it.
package remote

import (
	"context"
	"fmt"

	"github.com/TheMichaelB/notesync/internal/config"
	"github.com/TheMichaelB/notesync/internal/events"
	"github.com/TheMichaelB/notesync/internal/models"
	"github.com/TheMichaelB/notesync/internal/transport"
)

// RemoteStore is the per-user remote document store for note records.
type RemoteStore interface {
	// GetNote fetches a note record. Returns models.ErrNoteNotFound
	// when the remote holds no version.
	GetNote(ctx context.Context, userID, id string) (*models.Note, error)

	// SetNote writes a note record.
	SetNote(ctx context.Context, userID string, note *models.Note) error

	// DeleteNote removes a note record. Deleting an absent note is not
	// an error.
	DeleteNote(ctx context.Context, userID, id string) error

	// ListNotes returns all note records for a user.
	ListNotes(ctx context.Context, userID string) ([]*models.Note, error)
}

// BlobStore holds audio and summary payloads keyed by note id.
type BlobStore interface {
	// Upload stores a payload and returns its location.
	Upload(ctx context.Context, key string, data []byte) (string, error)

	// Download retrieves a payload. Returns models.ErrBlobNotFound
	// when the key is absent.
	Download(ctx context.Context, key string) ([]byte, error)

	// Delete removes a payload. Deleting an absent key is not an
	// error.
	Delete(ctx context.Context, key string) error
}

// New resolves the configured backends.
func New(ctx context.Context, cfg *config.RemoteConfig, client *transport.Client, logger *events.Logger) (RemoteStore, BlobStore, error) {
	var notes RemoteStore
	switch cfg.Backend {
	case config.BackendREST:
		notes = NewRESTStore(client, logger)
	case config.BackendDynamoDB:
		store, err := NewDynamoStore(ctx, cfg.DynamoTable, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("dynamodb backend: %w", err)
		}
		notes = store
	default:
		return nil, nil, fmt.Errorf("unknown remote backend: %s", cfg.Backend)
	}

	var blobs BlobStore
	switch cfg.BlobBackend {
	case config.BlobBackendREST:
		blobs = NewRESTBlobStore(client, logger)
	case config.BlobBackendS3:
		store, err := NewS3BlobStore(ctx, cfg.S3Bucket, cfg.S3Prefix, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("s3 blob backend: %w", err)
		}
		blobs = store
	default:
		return nil, nil, fmt.Errorf("unknown blob backend: %s", cfg.BlobBackend)
	}

	return notes, blobs, nil
}
