package sync_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/notesync/internal/integrity"
	"github.com/TheMichaelB/notesync/internal/models"
	"github.com/TheMichaelB/notesync/internal/remote"
	"github.com/TheMichaelB/notesync/internal/services/sync"
	"github.com/TheMichaelB/notesync/internal/storage"
	"github.com/TheMichaelB/notesync/test/testutil"
)

type transferFixture struct {
	remote *remote.MockRemoteStore
	blobs  *remote.MockBlobStore
	media  *storage.MediaStore
	coord  *sync.Coordinator
}

func newTransferFixture(t *testing.T) *transferFixture {
	t.Helper()

	logger := testutil.NewTestLogger()
	media, err := storage.NewMediaStore(t.TempDir(), logger)
	require.NoError(t, err)

	f := &transferFixture{
		remote: remote.NewMockRemoteStore(),
		blobs:  remote.NewMockBlobStore(),
		media:  media,
	}
	f.coord = sync.NewCoordinator(f.remote, f.blobs, media, logger)
	return f
}

func TestUploadRefusesNewerRemote(t *testing.T) {
	f := newTransferFixture(t)
	ctx := context.Background()

	local := testutil.TestNote("n1")
	newer := local.Clone()
	newer.ModifiedAt = local.ModifiedAt + 1000
	f.remote.Seed(testUser, newer)

	_, err := f.coord.Upload(ctx, testUser, local)

	assert.ErrorIs(t, err, models.ErrRemoteNewer)
	assert.Empty(t, f.remote.SetCalls)
	assert.Empty(t, f.blobs.UploadCalls)
}

func TestUploadComputesChecksums(t *testing.T) {
	f := newTransferFixture(t)
	ctx := context.Background()

	note := testutil.TestNoteWithAudio("n1")
	audio := []byte("audio payload")
	require.NoError(t, f.media.Write(note.AudioKey(), audio))

	partErrs, err := f.coord.Upload(ctx, testUser, note)
	require.NoError(t, err)
	assert.Empty(t, partErrs)

	stored := f.remote.Stored(testUser, "n1")
	require.NotNil(t, stored)
	assert.Equal(t, integrity.Checksum(audio), stored.AudioChecksum)
	assert.Equal(t, models.SyncSynced, stored.SyncStatus)
	assert.Empty(t, stored.AudioPath, "local paths must not leak to the remote")
}

func TestUploadMissingLocalAudioIsPartError(t *testing.T) {
	f := newTransferFixture(t)
	ctx := context.Background()

	note := testutil.TestNoteWithAudio("n1")
	// No media written.

	partErrs, err := f.coord.Upload(ctx, testUser, note)
	require.NoError(t, err)

	require.Len(t, partErrs, 1)
	assert.Equal(t, "audio", partErrs[0].Part)

	// Record still uploaded, without a checksum for the missing blob.
	stored := f.remote.Stored(testUser, "n1")
	require.NotNil(t, stored)
	assert.Empty(t, stored.AudioChecksum)
}

func TestDownloadVerifiesChecksum(t *testing.T) {
	f := newTransferFixture(t)
	ctx := context.Background()

	audio := []byte("audio payload")
	remoteNote := testutil.TestNoteWithAudio("n1")
	remoteNote.AudioChecksum = integrity.Checksum(audio)
	f.remote.Seed(testUser, remoteNote)
	f.blobs.Seed(remoteNote.AudioKey(), audio)

	note, partErrs, err := f.coord.Download(ctx, testUser, "n1")
	require.NoError(t, err)
	assert.Empty(t, partErrs)

	wantPath, err := f.media.Path(note.AudioKey())
	require.NoError(t, err)
	assert.Equal(t, wantPath, note.AudioPath)
	data, err := f.media.Read(note.AudioKey())
	require.NoError(t, err)
	assert.Equal(t, audio, data)
}

func TestDownloadRejectsCorruptBlob(t *testing.T) {
	f := newTransferFixture(t)
	ctx := context.Background()

	remoteNote := testutil.TestNoteWithAudio("n1")
	remoteNote.AudioChecksum = integrity.Checksum([]byte("original"))
	f.remote.Seed(testUser, remoteNote)
	f.blobs.Seed(remoteNote.AudioKey(), []byte("tampered"))

	note, partErrs, err := f.coord.Download(ctx, testUser, "n1")
	require.NoError(t, err)

	require.Len(t, partErrs, 1)
	assert.ErrorIs(t, partErrs[0].Err, models.ErrChecksumMismatch)
	assert.Empty(t, note.AudioPath)
	assert.False(t, f.media.Exists(note.AudioKey()), "corrupt data must not reach the media store")
}

func TestDeleteReportsOrphanedBlobs(t *testing.T) {
	f := newTransferFixture(t)
	ctx := context.Background()

	note := testutil.TestNoteWithAudio("n1")
	f.remote.Seed(testUser, note)
	f.blobs.Seed(note.AudioKey(), []byte("audio"))
	f.blobs.DeleteError = errors.New("blob store down")

	partErrs, err := f.coord.Delete(ctx, testUser, note)
	require.NoError(t, err, "record delete succeeded, blob failure is not fatal")

	require.Len(t, partErrs, 1)
	assert.Equal(t, "audio", partErrs[0].Part)
	assert.Nil(t, f.remote.Stored(testUser, "n1"))
}

func TestDeleteFailsWhenRecordDeleteFails(t *testing.T) {
	f := newTransferFixture(t)
	ctx := context.Background()

	note := testutil.TestNoteWithAudio("n1")
	f.remote.Seed(testUser, note)
	f.remote.DeleteError = errors.New("remote down")

	_, err := f.coord.Delete(ctx, testUser, note)

	require.Error(t, err)
	assert.Empty(t, f.blobs.DeleteCalls, "blobs are left alone when the record delete fails")
}
