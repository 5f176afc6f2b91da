package sync_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/notesync/internal/connectivity"
	"github.com/TheMichaelB/notesync/internal/creds"
	"github.com/TheMichaelB/notesync/internal/models"
	"github.com/TheMichaelB/notesync/internal/remote"
	"github.com/TheMichaelB/notesync/internal/services/sync"
	"github.com/TheMichaelB/notesync/internal/storage"
	"github.com/TheMichaelB/notesync/internal/store"
	"github.com/TheMichaelB/notesync/test/testutil"
)

const testUser = "user-1"

type fixture struct {
	store    *store.MemoryStore
	remote   *remote.MockRemoteStore
	blobs    *remote.MockBlobStore
	media    *storage.MediaStore
	monitor  *testutil.FakeMonitor
	observer *connectivity.Observer
	prefs    *testutil.FakePrefs
	quota    *storage.StaticQuota
	engine   *sync.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := testutil.NewTestLogger()

	media, err := storage.NewMediaStore(t.TempDir(), logger)
	require.NoError(t, err)

	f := &fixture{
		store:   store.NewMemoryStore(),
		remote:  remote.NewMockRemoteStore(),
		blobs:   remote.NewMockBlobStore(),
		media:   media,
		monitor: testutil.NewFakeMonitor(true),
		prefs:   testutil.NewFakePrefs(),
		quota:   &storage.StaticQuota{Used: 0, Limit: 1 << 30},
	}
	f.observer = connectivity.NewObserver(f.monitor, logger)

	f.engine = sync.NewEngine(sync.EngineDeps{
		Store:    f.store,
		Remote:   f.remote,
		Transfer: sync.NewCoordinator(f.remote, f.blobs, media, logger),
		Observer: f.observer,
		Quota:    f.quota,
		Prefs:    f.prefs,
		User:     creds.StaticUser(testUser),
		Logger:   logger,
	})
	return f
}

func TestStartSyncUploadsPendingNotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	note := testutil.TestNote("n1")
	require.NoError(t, f.store.Put(ctx, note))

	require.NoError(t, f.engine.StartSync(ctx))

	assert.Equal(t, models.EngineIdle, f.engine.Status())
	assert.Equal(t, models.SyncSynced, f.store.Status("n1"))
	assert.NotNil(t, f.remote.Stored(testUser, "n1"))
	assert.Empty(t, f.engine.Errors())
	assert.False(t, f.prefs.LastSyncTime().IsZero())
}

func TestStartSyncUploadsAudioAfterText(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	note := testutil.TestNoteWithAudio("n1")
	require.NoError(t, f.media.Write(note.AudioKey(), []byte("audio-bytes")))
	require.NoError(t, f.store.Put(ctx, note))

	require.NoError(t, f.engine.StartSync(ctx))

	stored := f.remote.Stored(testUser, "n1")
	require.NotNil(t, stored)
	assert.NotEmpty(t, stored.AudioChecksum)
	assert.Equal(t, []byte("audio-bytes"), f.blobs.Stored(note.AudioKey()))
	assert.Equal(t, models.SyncSynced, f.store.Status("n1"))
}

func TestNoBlobUploadWhenTextFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	note := testutil.TestNoteWithAudio("n1")
	require.NoError(t, f.media.Write(note.AudioKey(), []byte("audio-bytes")))
	require.NoError(t, f.store.Put(ctx, note))

	f.remote.SetErrors["n1"] = errors.New("record write rejected")

	require.NoError(t, f.engine.StartSync(ctx))

	assert.Empty(t, f.blobs.UploadCalls, "blob upload must not run after a text failure")
	assert.Equal(t, models.SyncFailed, f.store.Status("n1"))
	require.Len(t, f.engine.Errors(), 1)
	assert.Equal(t, "n1", f.engine.Errors()[0].NoteID)
}

func TestPartialFailureIsolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bad := testutil.TestNoteWithAudio("bad")
	good := testutil.TestNote("good")
	require.NoError(t, f.media.Write(bad.AudioKey(), []byte("audio")))
	require.NoError(t, f.store.Put(ctx, bad))
	require.NoError(t, f.store.Put(ctx, good))

	f.blobs.UploadErrors[bad.AudioKey()] = errors.New("blob store down")

	require.NoError(t, f.engine.StartSync(ctx))

	// The failed blob marks its own note only; the other note and the
	// failed note's text record still go through.
	assert.Equal(t, models.SyncSynced, f.store.Status("good"))
	assert.Equal(t, models.SyncFailed, f.store.Status("bad"))
	assert.NotNil(t, f.remote.Stored(testUser, "bad"))

	require.Len(t, f.engine.Errors(), 1)
	assert.Equal(t, "bad", f.engine.Errors()[0].NoteID)
}

func TestOfflineShortCircuit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.Put(ctx, testutil.TestNote("n1")))
	f.monitor.SetReachable(false)

	err := f.engine.StartSync(ctx)

	assert.ErrorIs(t, err, models.ErrOffline)
	assert.Equal(t, models.EngineOffline, f.engine.Status())
	assert.Zero(t, f.remote.CallCount(), "no remote traffic while offline")
	assert.Empty(t, f.engine.Errors(), "offline is not an error condition")
}

func TestStorageFullBlocksSync(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.Put(ctx, testutil.TestNote("n1")))
	f.quota.Used = 100
	f.quota.Limit = 100

	err := f.engine.StartSync(ctx)

	assert.ErrorIs(t, err, models.ErrStorageFull)
	assert.Equal(t, models.EngineStorageFull, f.engine.Status())
	assert.Zero(t, f.remote.CallCount())
}

func TestDisabledBlocksSync(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.prefs.SetSyncEnabled(false))

	err := f.engine.StartSync(ctx)

	assert.ErrorIs(t, err, models.ErrSyncDisabled)
	assert.Equal(t, models.EngineDisabled, f.engine.Status())
	assert.Zero(t, f.remote.CallCount())
}

func TestUnauthenticatedFailsSync(t *testing.T) {
	f := newFixture(t)
	logger := testutil.NewTestLogger()

	engine := sync.NewEngine(sync.EngineDeps{
		Store:    f.store,
		Remote:   f.remote,
		Transfer: sync.NewCoordinator(f.remote, f.blobs, f.media, logger),
		Observer: f.observer,
		Quota:    f.quota,
		Prefs:    f.prefs,
		User:     creds.StaticUser(""),
		Logger:   logger,
	})

	err := engine.StartSync(context.Background())

	assert.ErrorIs(t, err, models.ErrNotAuthenticated)
	assert.Equal(t, models.EngineError, engine.Status())
	require.Len(t, engine.Errors(), 1)
	assert.Equal(t, models.ErrorAuthentication, engine.Errors()[0].Type)
}

// blockingRemote parks every GetNote until the gate opens, keeping a
// pass in flight for as long as the test needs.
type blockingRemote struct {
	*remote.MockRemoteStore
	gate chan struct{}
}

func (b *blockingRemote) GetNote(ctx context.Context, userID, id string) (*models.Note, error) {
	select {
	case <-b.gate:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return b.MockRemoteStore.GetNote(ctx, userID, id)
}

func TestAtMostOneSyncPass(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	logger := testutil.NewTestLogger()

	blocked := &blockingRemote{
		MockRemoteStore: f.remote,
		gate:            make(chan struct{}),
	}
	engine := sync.NewEngine(sync.EngineDeps{
		Store:    f.store,
		Remote:   blocked,
		Transfer: sync.NewCoordinator(blocked, f.blobs, f.media, logger),
		Observer: f.observer,
		Quota:    f.quota,
		Prefs:    f.prefs,
		User:     creds.StaticUser(testUser),
		Logger:   logger,
	})

	require.NoError(t, f.store.Put(ctx, testutil.TestNote("n1")))

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- engine.StartSync(ctx)
	}()

	require.Eventually(t, func() bool {
		return engine.Status() == models.EngineSyncing
	}, time.Second, 5*time.Millisecond)

	err := engine.StartSync(ctx)
	assert.ErrorIs(t, err, models.ErrSyncInProgress)

	close(blocked.gate)
	require.NoError(t, <-firstDone)

	// Exactly one pass touched the remote: the resolve and upload
	// version checks plus one record write.
	assert.Len(t, f.remote.GetCalls, 2)
	assert.Len(t, f.remote.SetCalls, 1)
}

func TestRemoteNewerWinsDownload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	local := testutil.TestNote("n1")
	local.Content = "stale local"
	require.NoError(t, f.store.Put(ctx, local))

	newer := local.Clone()
	newer.Content = "fresh remote"
	newer.ModifiedAt = local.ModifiedAt + 500
	f.remote.Seed(testUser, newer)

	require.NoError(t, f.engine.StartSync(ctx))

	got, err := f.store.Get(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "fresh remote", got.Content)
	assert.Equal(t, models.SyncSynced, got.SyncStatus)
}

func TestEqualTimestampDifferentContentParksConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	local := testutil.TestNote("n1")
	local.Content = "local text"
	require.NoError(t, f.store.Put(ctx, local))

	other := local.Clone()
	other.Content = "remote text"
	f.remote.Seed(testUser, other)

	require.NoError(t, f.engine.StartSync(ctx))

	assert.Equal(t, models.SyncConflict, f.store.Status("n1"))
	require.Len(t, f.engine.Errors(), 1)
	assert.Equal(t, models.ErrorConflict, f.engine.Errors()[0].Type)

	// Conflicted notes stay parked: the next pass leaves them alone.
	f.engine.ClearErrors()
	require.NoError(t, f.engine.StartSync(ctx))
	assert.Equal(t, models.SyncConflict, f.store.Status("n1"))
	assert.Empty(t, f.engine.Errors())
}

func TestDeletedNotePropagates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	note := testutil.TestNote("n1")
	require.NoError(t, f.store.Put(ctx, note))
	f.remote.Seed(testUser, note)

	require.NoError(t, f.engine.DeleteNote(ctx, "n1"))

	assert.Nil(t, f.remote.Stored(testUser, "n1"))
	_, err := f.store.Get(ctx, "n1")
	assert.ErrorIs(t, err, models.ErrNoteNotFound)
}

func TestOfflineEditsQueueAndCatchUp(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.monitor.SetReachable(false)

	note := testutil.TestNote("n1")
	require.NoError(t, f.engine.UploadNote(ctx, note))
	require.NoError(t, f.engine.UploadNote(ctx, note))

	assert.Equal(t, models.SyncOffline, f.store.Status("n1"))
	assert.Equal(t, 1, f.engine.Queue().Len(), "re-adding the same note must not duplicate it")
	assert.Zero(t, f.remote.CallCount())

	go f.observer.Start(ctx)
	go f.engine.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	f.monitor.SetReachable(true)

	require.Eventually(t, func() bool {
		return f.store.Status("n1") == models.SyncSynced
	}, 2*time.Second, 10*time.Millisecond, "reconnect should trigger a catch-up pass")
	assert.Zero(t, f.engine.Queue().Len())
}

func TestOfflineEditDuringPassKeepsSyncingState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	logger := testutil.NewTestLogger()

	blocked := &blockingRemote{
		MockRemoteStore: f.remote,
		gate:            make(chan struct{}),
	}
	engine := sync.NewEngine(sync.EngineDeps{
		Store:    f.store,
		Remote:   blocked,
		Transfer: sync.NewCoordinator(blocked, f.blobs, f.media, logger),
		Observer: f.observer,
		Quota:    f.quota,
		Prefs:    f.prefs,
		User:     creds.StaticUser(testUser),
		Logger:   logger,
	})

	require.NoError(t, f.store.Put(ctx, testutil.TestNote("n1")))

	done := make(chan error, 1)
	go func() {
		done <- engine.StartSync(ctx)
	}()

	require.Eventually(t, func() bool {
		return engine.Status() == models.EngineSyncing
	}, time.Second, 5*time.Millisecond)

	// Connectivity drops mid-pass and an edit arrives. The edit is
	// queued, but the running pass keeps the session state.
	f.monitor.SetReachable(false)
	require.NoError(t, engine.UploadNote(ctx, testutil.TestNote("n2")))

	assert.Equal(t, models.EngineSyncing, engine.Status(),
		"a queued offline edit must not override the running pass")
	assert.Equal(t, 1, engine.Queue().Len())

	close(blocked.gate)
	require.NoError(t, <-done)
	assert.Equal(t, models.EngineIdle, engine.Status())
}

func TestErrorsAccumulateUntilCleared(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.Put(ctx, testutil.TestNote("n1")))
	f.remote.SetErrors["n1"] = errors.New("boom")

	require.NoError(t, f.engine.StartSync(ctx))
	require.NoError(t, f.engine.StartSync(ctx))

	assert.Len(t, f.engine.Errors(), 2, "a new pass must not discard old errors")

	f.engine.ClearErrors()
	assert.Empty(t, f.engine.Errors())
}

func TestCancelSyncReturnsToIdle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	logger := testutil.NewTestLogger()

	blocked := &blockingRemote{
		MockRemoteStore: f.remote,
		gate:            make(chan struct{}),
	}
	engine := sync.NewEngine(sync.EngineDeps{
		Store:    f.store,
		Remote:   blocked,
		Transfer: sync.NewCoordinator(blocked, f.blobs, f.media, logger),
		Observer: f.observer,
		Quota:    f.quota,
		Prefs:    f.prefs,
		User:     creds.StaticUser(testUser),
		Logger:   logger,
	})

	require.NoError(t, f.store.Put(ctx, testutil.TestNote("n1")))

	done := make(chan error, 1)
	go func() {
		done <- engine.StartSync(ctx)
	}()

	require.Eventually(t, func() bool {
		return engine.Status() == models.EngineSyncing
	}, time.Second, 5*time.Millisecond)

	engine.CancelSync()
	err := <-done

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, models.EngineIdle, engine.Status())
}

func TestDownloadNoteMissingBlobKeepsText(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	remoteNote := testutil.TestNoteWithAudio("n1")
	f.remote.Seed(testUser, remoteNote)
	// Blob store intentionally left empty.

	require.NoError(t, f.engine.DownloadNote(ctx, "n1"))

	got, err := f.store.Get(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, remoteNote.Content, got.Content)
	assert.Equal(t, models.SyncFailed, got.SyncStatus)

	require.Len(t, f.engine.Errors(), 1)
	assert.ErrorContains(t, errors.New(f.engine.Errors()[0].Message), "blob not found")
}

func TestApplyRemoteDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	note := testutil.TestNoteWithAudio("n1")
	require.NoError(t, f.media.Write(note.AudioKey(), []byte("audio")))
	require.NoError(t, f.store.Put(ctx, note))

	require.NoError(t, f.engine.ApplyRemoteDelete(ctx, "n1"))

	_, err := f.store.Get(ctx, "n1")
	assert.ErrorIs(t, err, models.ErrNoteNotFound)
	assert.False(t, f.media.Exists(note.AudioKey()))

	// Deleting an already-absent note is a no-op.
	require.NoError(t, f.engine.ApplyRemoteDelete(ctx, "n1"))
}
