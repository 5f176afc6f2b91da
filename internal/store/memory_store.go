package store

import (
	"context"
	"sort"
	"sync"

	"github.com/TheMichaelB/notesync/internal/models"
)

// MemoryStore provides an in-memory LocalStore for testing.
type MemoryStore struct {
	mu      sync.RWMutex
	notes   map[string]*models.Note
	folders map[string]*models.Folder

	// Error injection
	GetError    error
	PutError    error
	UpdateError error

	// Call tracking
	StatusUpdates []StatusUpdate
}

// StatusUpdate records one UpdateSyncStatus call.
type StatusUpdate struct {
	NoteID string
	Status models.SyncStatus
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		notes:   make(map[string]*models.Note),
		folders: make(map[string]*models.Folder),
	}
}

// Get retrieves a note by id.
func (s *MemoryStore) Get(ctx context.Context, id string) (*models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.GetError != nil {
		return nil, s.GetError
	}

	note, ok := s.notes[id]
	if !ok {
		return nil, models.ErrNoteNotFound
	}
	return note.Clone(), nil
}

// Put inserts or replaces a note.
func (s *MemoryStore) Put(ctx context.Context, note *models.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.PutError != nil {
		return s.PutError
	}

	s.notes[note.ID] = note.Clone()
	return nil
}

// GetUnsyncedNotes returns notes not confirmed remote, excluding
// conflicted ones, ordered by modification time.
func (s *MemoryStore) GetUnsyncedNotes(ctx context.Context) ([]*models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.GetError != nil {
		return nil, s.GetError
	}

	var notes []*models.Note
	for _, note := range s.notes {
		if note.SyncStatus == models.SyncSynced || note.SyncStatus == models.SyncConflict {
			continue
		}
		notes = append(notes, note.Clone())
	}

	sort.Slice(notes, func(i, j int) bool {
		return notes[i].ModifiedAt < notes[j].ModifiedAt
	})
	return notes, nil
}

// UpdateSyncStatus sets the sync status for a note.
func (s *MemoryStore) UpdateSyncStatus(ctx context.Context, id string, status models.SyncStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.UpdateError != nil {
		return s.UpdateError
	}

	note, ok := s.notes[id]
	if !ok {
		return models.ErrNoteNotFound
	}
	note.SyncStatus = status
	s.StatusUpdates = append(s.StatusUpdates, StatusUpdate{NoteID: id, Status: status})
	return nil
}

// Delete removes a note record.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.notes, id)
	return nil
}

// PutFolder inserts or replaces a folder.
func (s *MemoryStore) PutFolder(ctx context.Context, folder *models.Folder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := *folder
	s.folders[folder.ID] = &f
	return nil
}

// ListFolders returns all folders.
func (s *MemoryStore) ListFolders(ctx context.Context) ([]*models.Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var folders []*models.Folder
	for _, f := range s.folders {
		clone := *f
		folders = append(folders, &clone)
	}
	sort.Slice(folders, func(i, j int) bool { return folders[i].Name < folders[j].Name })
	return folders, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

// Status returns the stored sync status of a note, empty if absent.
func (s *MemoryStore) Status(id string) models.SyncStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if note, ok := s.notes[id]; ok {
		return note.SyncStatus
	}
	return ""
}
