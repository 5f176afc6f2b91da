package remote

import (
	"context"
	"sync"

	"github.com/TheMichaelB/notesync/internal/models"
)

// MockRemoteStore provides an in-memory RemoteStore for testing with
// error injection and call tracking.
type MockRemoteStore struct {
	mu    sync.Mutex
	notes map[string]map[string]*models.Note // userID -> noteID -> note

	// Error injection
	GetError    error
	SetError    error
	DeleteError error
	ListError   error

	// Per-note error injection; takes precedence for matching ids.
	SetErrors map[string]error

	// Call tracking
	GetCalls    []string
	SetCalls    []string
	DeleteCalls []string
}

// NewMockRemoteStore creates an empty mock remote store.
func NewMockRemoteStore() *MockRemoteStore {
	return &MockRemoteStore{
		notes:     make(map[string]map[string]*models.Note),
		SetErrors: make(map[string]error),
	}
}

// Seed places a note in the mock store directly.
func (m *MockRemoteStore) Seed(userID string, note *models.Note) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.notes[userID] == nil {
		m.notes[userID] = make(map[string]*models.Note)
	}
	m.notes[userID][note.ID] = note.Clone()
}

// Stored returns the stored note, nil if absent.
func (m *MockRemoteStore) Stored(userID, id string) *models.Note {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user := m.notes[userID]; user != nil {
		if note, ok := user[id]; ok {
			return note.Clone()
		}
	}
	return nil
}

// CallCount returns the total number of remote calls made.
func (m *MockRemoteStore) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.GetCalls) + len(m.SetCalls) + len(m.DeleteCalls)
}

func (m *MockRemoteStore) GetNote(ctx context.Context, userID, id string) (*models.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetCalls = append(m.GetCalls, id)

	if m.GetError != nil {
		return nil, m.GetError
	}

	if user := m.notes[userID]; user != nil {
		if note, ok := user[id]; ok {
			return note.Clone(), nil
		}
	}
	return nil, models.ErrNoteNotFound
}

func (m *MockRemoteStore) SetNote(ctx context.Context, userID string, note *models.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SetCalls = append(m.SetCalls, note.ID)

	if err, ok := m.SetErrors[note.ID]; ok {
		return err
	}
	if m.SetError != nil {
		return m.SetError
	}

	if m.notes[userID] == nil {
		m.notes[userID] = make(map[string]*models.Note)
	}
	m.notes[userID][note.ID] = note.Clone()
	return nil
}

func (m *MockRemoteStore) DeleteNote(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DeleteCalls = append(m.DeleteCalls, id)

	if m.DeleteError != nil {
		return m.DeleteError
	}

	if user := m.notes[userID]; user != nil {
		delete(user, id)
	}
	return nil
}

func (m *MockRemoteStore) ListNotes(ctx context.Context, userID string) ([]*models.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListError != nil {
		return nil, m.ListError
	}

	var notes []*models.Note
	for _, note := range m.notes[userID] {
		notes = append(notes, note.Clone())
	}
	return notes, nil
}

// MockBlobStore provides an in-memory BlobStore for testing.
type MockBlobStore struct {
	mu   sync.Mutex
	data map[string][]byte

	// Error injection
	UploadError   error
	DownloadError error
	DeleteError   error

	// Per-key error injection.
	UploadErrors map[string]error

	// Call tracking
	UploadCalls   []string
	DownloadCalls []string
	DeleteCalls   []string
}

// NewMockBlobStore creates an empty mock blob store.
func NewMockBlobStore() *MockBlobStore {
	return &MockBlobStore{
		data:         make(map[string][]byte),
		UploadErrors: make(map[string]error),
	}
}

// Seed places a payload in the mock store directly.
func (m *MockBlobStore) Seed(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), data...)
}

// Stored returns a stored payload, nil if absent.
func (m *MockBlobStore) Stored(key string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	if data, ok := m.data[key]; ok {
		return append([]byte(nil), data...)
	}
	return nil
}

// CallCount returns the total number of blob calls made.
func (m *MockBlobStore) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.UploadCalls) + len(m.DownloadCalls) + len(m.DeleteCalls)
}

func (m *MockBlobStore) Upload(ctx context.Context, key string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UploadCalls = append(m.UploadCalls, key)

	if err, ok := m.UploadErrors[key]; ok {
		return "", err
	}
	if m.UploadError != nil {
		return "", m.UploadError
	}

	m.data[key] = append([]byte(nil), data...)
	return "mock://" + key, nil
}

func (m *MockBlobStore) Download(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DownloadCalls = append(m.DownloadCalls, key)

	if m.DownloadError != nil {
		return nil, m.DownloadError
	}

	data, ok := m.data[key]
	if !ok {
		return nil, models.ErrBlobNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *MockBlobStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DeleteCalls = append(m.DeleteCalls, key)

	if m.DeleteError != nil {
		return m.DeleteError
	}

	delete(m.data, key)
	return nil
}
