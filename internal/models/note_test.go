package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/TheMichaelB/notesync/internal/models"
)

func TestTouchMovesStrictlyForward(t *testing.T) {
	note := &models.Note{ID: "n1"}

	note.Touch()
	first := note.ModifiedAt
	assert.Positive(t, first)

	// Even a frozen or rewound clock must not produce a repeat value.
	note.ModifiedAt = time.Now().Add(time.Hour).UnixMilli()
	future := note.ModifiedAt
	note.Touch()
	assert.Equal(t, future+1, note.ModifiedAt)
}

func TestContentEquals(t *testing.T) {
	base := &models.Note{ID: "n1", Title: "title", Content: "body"}

	t.Run("identical content matches", func(t *testing.T) {
		assert.True(t, base.ContentEquals(base.Clone()))
	})

	t.Run("nil other never matches", func(t *testing.T) {
		assert.False(t, base.ContentEquals(nil))
	})

	t.Run("differing body does not match", func(t *testing.T) {
		other := base.Clone()
		other.Content = "different"
		assert.False(t, base.ContentEquals(other))
	})

	t.Run("unicode normalization applies", func(t *testing.T) {
		composed := base.Clone()
		composed.Title = "café"
		decomposed := base.Clone()
		decomposed.Title = "café"
		assert.True(t, composed.ContentEquals(decomposed))
	})

	t.Run("deletion flag is content", func(t *testing.T) {
		other := base.Clone()
		other.IsDeleted = true
		assert.False(t, base.ContentEquals(other))
	})

	t.Run("sync status is not content", func(t *testing.T) {
		other := base.Clone()
		other.SyncStatus = models.SyncFailed
		assert.True(t, base.ContentEquals(other))
	})
}

func TestValidate(t *testing.T) {
	assert.NoError(t, (&models.Note{ID: "n1"}).Validate())
	assert.ErrorIs(t, (&models.Note{}).Validate(), models.ErrEmptyNoteID)
	assert.ErrorIs(t, (&models.Note{ID: "   "}).Validate(), models.ErrEmptyNoteID)
}

func TestCloneIsIndependent(t *testing.T) {
	note := &models.Note{ID: "n1", Title: "original"}
	clone := note.Clone()

	clone.Title = "changed"
	assert.Equal(t, "original", note.Title)
}

func TestBlobKeys(t *testing.T) {
	note := &models.Note{ID: "n1"}
	assert.Equal(t, "audio/n1", note.AudioKey())
	assert.Equal(t, "summary/n1", note.SummaryKey())
}
