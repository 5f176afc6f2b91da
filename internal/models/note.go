package models

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// SyncStatus tracks how far a single note has progressed toward the
// remote store.
type SyncStatus string

const (
	SyncPending  SyncStatus = "pending"
	SyncSyncing  SyncStatus = "syncing"
	SyncSynced   SyncStatus = "synced"
	SyncFailed   SyncStatus = "failed"
	SyncOffline  SyncStatus = "offline"
	SyncConflict SyncStatus = "conflict"
)

// Note is a captured voice note. The local store owns notes; the sync
// engine only ever writes back SyncStatus and the remote-confirmed
// ModifiedAt.
type Note struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	FolderID  string `json:"folder_id,omitempty"`
	IsPinned  bool   `json:"is_pinned"`
	IsDeleted bool   `json:"is_deleted"`

	// Optional audio payload recorded with the note.
	AudioPath string `json:"audio_path,omitempty"`
	HasAudio  bool   `json:"has_audio"`

	// Optional derived summary text.
	Summary    string `json:"summary,omitempty"`
	HasSummary bool   `json:"has_summary"`

	// Blob digests recorded at upload time and verified on download.
	// Transfer metadata only; the local store does not persist them.
	AudioChecksum   string `json:"audio_checksum,omitempty"`
	SummaryChecksum string `json:"summary_checksum,omitempty"`

	// ModifiedAt is a wall-clock timestamp in Unix milliseconds. Every
	// mutation that must reach the remote moves it strictly forward.
	ModifiedAt int64 `json:"modified_at"`

	SyncStatus SyncStatus `json:"sync_status"`
}

// Touch advances ModifiedAt. The new value is always strictly greater
// than the previous one, even when the clock has not moved.
func (n *Note) Touch() {
	now := time.Now().UnixMilli()
	if now <= n.ModifiedAt {
		now = n.ModifiedAt + 1
	}
	n.ModifiedAt = now
}

// AudioKey returns the blob-store key for the note's audio payload.
func (n *Note) AudioKey() string {
	return "audio/" + n.ID
}

// SummaryKey returns the blob-store key for the note's summary payload.
func (n *Note) SummaryKey() string {
	return "summary/" + n.ID
}

// ContentEquals compares the user-visible content of two notes. Text is
// NFC-normalized first so that differently composed but identical
// strings do not register as a conflict.
func (n *Note) ContentEquals(other *Note) bool {
	if other == nil {
		return false
	}
	return norm.NFC.String(n.Title) == norm.NFC.String(other.Title) &&
		norm.NFC.String(n.Content) == norm.NFC.String(other.Content) &&
		n.FolderID == other.FolderID &&
		n.IsPinned == other.IsPinned &&
		n.IsDeleted == other.IsDeleted
}

// Validate checks the note's structural invariants.
func (n *Note) Validate() error {
	if strings.TrimSpace(n.ID) == "" {
		return ErrEmptyNoteID
	}
	return nil
}

// Clone returns a copy of the note.
func (n *Note) Clone() *Note {
	clone := *n
	return &clone
}

// Folder groups notes. Folders sync as plain records with no attached
// payloads.
type Folder struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ModifiedAt int64  `json:"modified_at"`
	IsDeleted  bool   `json:"is_deleted"`
}
