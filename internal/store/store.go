// Package store persists notes and folders locally. The sync engine
// borrows notes from here during a pass and writes back only sync
// status and remote-confirmed data.
package store

import (
	"context"

	"github.com/TheMichaelB/notesync/internal/models"
)

// LocalStore manages local note persistence.
type LocalStore interface {
	// Get retrieves a note by id. Returns models.ErrNoteNotFound if
	// the note does not exist.
	Get(ctx context.Context, id string) (*models.Note, error)

	// Put inserts or replaces a note.
	Put(ctx context.Context, note *models.Note) error

	// GetUnsyncedNotes returns notes not yet confirmed remote. Notes
	// parked in conflict are excluded until resolved.
	GetUnsyncedNotes(ctx context.Context) ([]*models.Note, error)

	// UpdateSyncStatus sets the sync status for a note.
	UpdateSyncStatus(ctx context.Context, id string, status models.SyncStatus) error

	// Delete removes a note record.
	Delete(ctx context.Context, id string) error

	// PutFolder inserts or replaces a folder.
	PutFolder(ctx context.Context, folder *models.Folder) error

	// ListFolders returns all folders.
	ListFolders(ctx context.Context) ([]*models.Folder, error)

	// Close releases resources.
	Close() error
}
