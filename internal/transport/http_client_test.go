package transport_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/notesync/internal/config"
	"github.com/TheMichaelB/notesync/internal/models"
	"github.com/TheMichaelB/notesync/internal/transport"
	"github.com/TheMichaelB/notesync/test/testutil"
)

func newClient(t *testing.T, handler http.Handler) *transport.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return transport.NewClient(&config.APIConfig{
		BaseURL:    server.URL,
		Timeout:    5 * time.Second,
		MaxRetries: 2,
		UserAgent:  "notesync-test",
	}, testutil.NewTestLogger())
}

func TestDoJSONRoundTrip(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "notesync-test", r.Header.Get("User-Agent"))

		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "hello", in["msg"])

		json.NewEncoder(w).Encode(map[string]string{"echo": in["msg"]})
	}))
	client.SetToken("tok")

	var out map[string]string
	err := client.DoJSON(context.Background(), http.MethodPost, "/api/echo",
		map[string]string{"msg": "hello"}, &out)

	require.NoError(t, err)
	assert.Equal(t, "hello", out["echo"])
}

func TestDoJSONMapsNotFound(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))

	err := client.DoJSON(context.Background(), http.MethodGet, "/api/notes/x", nil, nil)
	assert.ErrorIs(t, err, models.ErrNoteNotFound)
}

func TestDoJSONDoesNotRetryClientErrors(t *testing.T) {
	var calls int64
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"code": "bad_request", "message": "invalid"})
	}))

	err := client.DoJSON(context.Background(), http.MethodGet, "/api/notes", nil, nil)

	var apiErr *models.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls), "4xx must not be retried")
}

func TestDoJSONHonorsContextCancel(t *testing.T) {
	started := make(chan struct{})
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	err := client.DoJSON(ctx, http.MethodGet, "/api/slow", nil, nil)
	require.Error(t, err)
}

func TestTokenSwapDuringRequests(t *testing.T) {
	var badHeaders int64
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth != "Bearer first" && auth != "Bearer second" {
			atomic.AddInt64(&badHeaders, 1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	client.SetToken("first")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				_ = client.DoJSON(context.Background(), http.MethodGet, "/api/ping", nil, nil)
			}
		}()
	}
	client.SetToken("second")
	wg.Wait()

	assert.Equal(t, "second", client.GetToken())
	assert.Zero(t, atomic.LoadInt64(&badHeaders), "every request carries a complete token")
}

func TestBlobRoundTrip(t *testing.T) {
	stored := make(map[string][]byte)
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			data, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			stored[r.URL.Path] = data
			w.WriteHeader(http.StatusCreated)
		case http.MethodGet:
			data, ok := stored[r.URL.Path]
			if !ok {
				http.Error(w, "missing", http.StatusNotFound)
				return
			}
			w.Write(data)
		}
	}))

	ctx := context.Background()
	require.NoError(t, client.UploadBlob(ctx, "/api/blobs/audio/n1", []byte("payload")))

	data, err := client.DownloadBlob(ctx, "/api/blobs/audio/n1")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)
}
