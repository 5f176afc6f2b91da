package remote_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/notesync/internal/config"
	"github.com/TheMichaelB/notesync/internal/models"
	"github.com/TheMichaelB/notesync/internal/remote"
	"github.com/TheMichaelB/notesync/internal/transport"
	"github.com/TheMichaelB/notesync/test/testutil"
)

// noteServer is a minimal in-memory implementation of the note API.
type noteServer struct {
	mu    sync.Mutex
	notes map[string][]byte
	blobs map[string][]byte
}

func newNoteServer() *noteServer {
	return &noteServer{
		notes: make(map[string][]byte),
		blobs: make(map[string][]byte),
	}
}

func (s *noteServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	store := s.notes
	if strings.HasPrefix(r.URL.Path, "/api/v1/blobs/") {
		store = s.blobs
	}

	switch r.Method {
	case http.MethodGet:
		data, ok := store[r.URL.Path]
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Write(data)
	case http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		store[r.URL.Path] = data
	case http.MethodDelete:
		if _, ok := store[r.URL.Path]; !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		delete(store, r.URL.Path)
	}
}

func newRESTFixture(t *testing.T) (*remote.RESTStore, *remote.RESTBlobStore) {
	t.Helper()

	server := httptest.NewServer(newNoteServer())
	t.Cleanup(server.Close)

	logger := testutil.NewTestLogger()
	client := transport.NewClient(&config.APIConfig{
		BaseURL:    server.URL,
		Timeout:    5 * time.Second,
		MaxRetries: 0,
		UserAgent:  "notesync-test",
	}, logger)

	return remote.NewRESTStore(client, logger), remote.NewRESTBlobStore(client, logger)
}

func TestRESTStoreRoundTrip(t *testing.T) {
	notes, _ := newRESTFixture(t)
	ctx := context.Background()

	note := testutil.TestNote("n1")
	require.NoError(t, notes.SetNote(ctx, "u1", note))

	got, err := notes.GetNote(ctx, "u1", "n1")
	require.NoError(t, err)
	assert.Equal(t, note.Content, got.Content)
	assert.Equal(t, note.ModifiedAt, got.ModifiedAt)
}

func TestRESTStoreGetMissing(t *testing.T) {
	notes, _ := newRESTFixture(t)

	_, err := notes.GetNote(context.Background(), "u1", "absent")
	assert.ErrorIs(t, err, models.ErrNoteNotFound)
}

func TestRESTStoreDeleteIsIdempotent(t *testing.T) {
	notes, _ := newRESTFixture(t)
	ctx := context.Background()

	require.NoError(t, notes.SetNote(ctx, "u1", testutil.TestNote("n1")))
	require.NoError(t, notes.DeleteNote(ctx, "u1", "n1"))
	require.NoError(t, notes.DeleteNote(ctx, "u1", "n1"))
}

func TestRESTStoreIsolatesUsers(t *testing.T) {
	notes, _ := newRESTFixture(t)
	ctx := context.Background()

	require.NoError(t, notes.SetNote(ctx, "u1", testutil.TestNote("n1")))

	_, err := notes.GetNote(ctx, "u2", "n1")
	assert.ErrorIs(t, err, models.ErrNoteNotFound)
}

func TestRESTBlobStoreRoundTrip(t *testing.T) {
	_, blobs := newRESTFixture(t)
	ctx := context.Background()

	location, err := blobs.Upload(ctx, "audio/n1", []byte("payload"))
	require.NoError(t, err)
	assert.NotEmpty(t, location)

	data, err := blobs.Download(ctx, "audio/n1")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)

	require.NoError(t, blobs.Delete(ctx, "audio/n1"))
	_, err = blobs.Download(ctx, "audio/n1")
	assert.ErrorIs(t, err, models.ErrBlobNotFound)

	// Deleting again is fine.
	require.NoError(t, blobs.Delete(ctx, "audio/n1"))
}

func TestRESTStoreListNotes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/users/u1/notes", r.URL.Path)
		json.NewEncoder(w).Encode([]*models.Note{
			testutil.TestNote("n1"),
			testutil.TestNote("n2"),
		})
	}))
	t.Cleanup(server.Close)

	logger := testutil.NewTestLogger()
	client := transport.NewClient(&config.APIConfig{
		BaseURL:   server.URL,
		Timeout:   5 * time.Second,
		UserAgent: "notesync-test",
	}, logger)
	notes := remote.NewRESTStore(client, logger)

	list, err := notes.ListNotes(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
