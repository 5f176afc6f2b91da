package sync

import "sync"

// ChangeReason records why a note entered the pending queue.
type ChangeReason string

const (
	ReasonCreated ChangeReason = "created"
	ReasonUpdated ChangeReason = "updated"
	ReasonDeleted ChangeReason = "deleted"
)

// PendingChange is a note id awaiting upload plus the reason it is
// pending.
type PendingChange struct {
	NoteID string
	Reason ChangeReason
}

// PendingQueue records notes written while the remote was unreachable.
// A note id appears at most once; re-adding updates the reason. The
// engine is the only writer, so operations only need to be atomic with
// respect to each other.
type PendingQueue struct {
	mu      sync.Mutex
	order   []string
	entries map[string]ChangeReason
}

// NewPendingQueue creates an empty queue.
func NewPendingQueue() *PendingQueue {
	return &PendingQueue{
		entries: make(map[string]ChangeReason),
	}
}

// Add records a pending change. Adding an id already present updates
// its reason without duplicating the entry; a deletion reason is never
// downgraded.
func (q *PendingQueue) Add(noteID string, reason ChangeReason) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if existing, ok := q.entries[noteID]; ok {
		if existing != ReasonDeleted {
			q.entries[noteID] = reason
		}
		return
	}

	q.entries[noteID] = reason
	q.order = append(q.order, noteID)
}

// Drain returns all pending changes in insertion order and clears the
// queue.
func (q *PendingQueue) Drain() []PendingChange {
	q.mu.Lock()
	defer q.mu.Unlock()

	changes := q.snapshot()
	q.order = nil
	q.entries = make(map[string]ChangeReason)
	return changes
}

// Peek returns all pending changes without clearing the queue.
func (q *PendingQueue) Peek() []PendingChange {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshot()
}

// Len returns the number of pending changes.
func (q *PendingQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order)
}

func (q *PendingQueue) snapshot() []PendingChange {
	changes := make([]PendingChange, 0, len(q.order))
	for _, id := range q.order {
		changes = append(changes, PendingChange{NoteID: id, Reason: q.entries[id]})
	}
	return changes
}
