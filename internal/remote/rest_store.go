package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/TheMichaelB/notesync/internal/events"
	"github.com/TheMichaelB/notesync/internal/models"
	"github.com/TheMichaelB/notesync/internal/transport"
)

// RESTStore implements RemoteStore against the notesync REST API.
type RESTStore struct {
	client *transport.Client
	logger *events.Logger
}

// NewRESTStore creates a REST-backed remote store.
func NewRESTStore(client *transport.Client, logger *events.Logger) *RESTStore {
	return &RESTStore{
		client: client,
		logger: logger.WithField("component", "rest_store"),
	}
}

func notePath(userID, id string) string {
	return fmt.Sprintf("/api/v1/users/%s/notes/%s",
		url.PathEscape(userID), url.PathEscape(id))
}

// GetNote fetches a note record.
func (s *RESTStore) GetNote(ctx context.Context, userID, id string) (*models.Note, error) {
	var note models.Note
	err := s.client.DoJSON(ctx, http.MethodGet, notePath(userID, id), nil, &note)
	if err != nil {
		if errors.Is(err, models.ErrNoteNotFound) {
			return nil, models.ErrNoteNotFound
		}
		return nil, fmt.Errorf("get note %s: %w", id, err)
	}
	return &note, nil
}

// SetNote writes a note record.
func (s *RESTStore) SetNote(ctx context.Context, userID string, note *models.Note) error {
	err := s.client.DoJSON(ctx, http.MethodPut, notePath(userID, note.ID), note, nil)
	if err != nil {
		return fmt.Errorf("set note %s: %w", note.ID, err)
	}
	return nil
}

// DeleteNote removes a note record.
func (s *RESTStore) DeleteNote(ctx context.Context, userID, id string) error {
	err := s.client.DoJSON(ctx, http.MethodDelete, notePath(userID, id), nil, nil)
	if err != nil && !errors.Is(err, models.ErrNoteNotFound) {
		return fmt.Errorf("delete note %s: %w", id, err)
	}
	return nil
}

// ListNotes returns all note records for a user.
func (s *RESTStore) ListNotes(ctx context.Context, userID string) ([]*models.Note, error) {
	var notes []*models.Note
	path := fmt.Sprintf("/api/v1/users/%s/notes", url.PathEscape(userID))
	if err := s.client.DoJSON(ctx, http.MethodGet, path, nil, &notes); err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}

// RESTBlobStore implements BlobStore against the notesync REST API.
type RESTBlobStore struct {
	client *transport.Client
	logger *events.Logger
}

// NewRESTBlobStore creates a REST-backed blob store.
func NewRESTBlobStore(client *transport.Client, logger *events.Logger) *RESTBlobStore {
	return &RESTBlobStore{
		client: client,
		logger: logger.WithField("component", "rest_blob_store"),
	}
}

func blobPath(key string) string {
	return "/api/v1/blobs/" + url.PathEscape(key)
}

// Upload stores a payload.
func (s *RESTBlobStore) Upload(ctx context.Context, key string, data []byte) (string, error) {
	if err := s.client.UploadBlob(ctx, blobPath(key), data); err != nil {
		return "", fmt.Errorf("upload blob %s: %w", key, err)
	}
	return blobPath(key), nil
}

// Download retrieves a payload.
func (s *RESTBlobStore) Download(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.DownloadBlob(ctx, blobPath(key))
	if err != nil {
		if errors.Is(err, models.ErrNoteNotFound) {
			return nil, models.ErrBlobNotFound
		}
		return nil, fmt.Errorf("download blob %s: %w", key, err)
	}
	return data, nil
}

// Delete removes a payload.
func (s *RESTBlobStore) Delete(ctx context.Context, key string) error {
	err := s.client.DoJSON(ctx, http.MethodDelete, blobPath(key), nil, nil)
	if err != nil && !errors.Is(err, models.ErrNoteNotFound) {
		return fmt.Errorf("delete blob %s: %w", key, err)
	}
	return nil
}
