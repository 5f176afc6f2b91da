package sync_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/notesync/internal/services/sync"
)

func TestQueueAddIsIdempotent(t *testing.T) {
	q := sync.NewPendingQueue()

	q.Add("n1", sync.ReasonCreated)
	q.Add("n1", sync.ReasonUpdated)
	q.Add("n1", sync.ReasonUpdated)

	assert.Equal(t, 1, q.Len())

	changes := q.Peek()
	require.Len(t, changes, 1)
	assert.Equal(t, "n1", changes[0].NoteID)
	assert.Equal(t, sync.ReasonUpdated, changes[0].Reason)
}

func TestQueueDeleteReasonSticks(t *testing.T) {
	q := sync.NewPendingQueue()

	q.Add("n1", sync.ReasonDeleted)
	q.Add("n1", sync.ReasonUpdated)

	changes := q.Peek()
	require.Len(t, changes, 1)
	assert.Equal(t, sync.ReasonDeleted, changes[0].Reason)
}

func TestQueueDrainPreservesOrderAndClears(t *testing.T) {
	q := sync.NewPendingQueue()

	q.Add("n1", sync.ReasonCreated)
	q.Add("n2", sync.ReasonUpdated)
	q.Add("n3", sync.ReasonDeleted)
	q.Add("n1", sync.ReasonUpdated) // no reorder

	changes := q.Drain()
	require.Len(t, changes, 3)
	assert.Equal(t, "n1", changes[0].NoteID)
	assert.Equal(t, "n2", changes[1].NoteID)
	assert.Equal(t, "n3", changes[2].NoteID)

	assert.Zero(t, q.Len())
	assert.Empty(t, q.Drain())
}

func TestQueuePeekDoesNotClear(t *testing.T) {
	q := sync.NewPendingQueue()
	q.Add("n1", sync.ReasonCreated)

	assert.Len(t, q.Peek(), 1)
	assert.Len(t, q.Peek(), 1)
	assert.Equal(t, 1, q.Len())
}
