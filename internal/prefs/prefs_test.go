package prefs_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/notesync/internal/prefs"
	"github.com/TheMichaelB/notesync/test/testutil"
)

func TestDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")

	store, err := prefs.NewStore(path, testutil.NewTestLogger())
	require.NoError(t, err)

	assert.True(t, store.SyncEnabled())
	assert.True(t, store.LastSyncTime().IsZero())
	assert.Zero(t, store.SyncInterval())
}

func TestSettingsPersistAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	logger := testutil.NewTestLogger()

	store, err := prefs.NewStore(path, logger)
	require.NoError(t, err)

	syncTime := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, store.SetSyncEnabled(false))
	require.NoError(t, store.SetLastSyncTime(syncTime))
	require.NoError(t, store.SetSyncInterval(45*time.Minute))

	reopened, err := prefs.NewStore(path, logger)
	require.NoError(t, err)

	assert.False(t, reopened.SyncEnabled())
	assert.Equal(t, syncTime, reopened.LastSyncTime())
	assert.Equal(t, 45*time.Minute, reopened.SyncInterval())
}

func TestClearSyncInterval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")

	store, err := prefs.NewStore(path, testutil.NewTestLogger())
	require.NoError(t, err)

	require.NoError(t, store.SetSyncInterval(30*time.Minute))
	require.NoError(t, store.SetSyncInterval(0))
	assert.Zero(t, store.SyncInterval())
}
