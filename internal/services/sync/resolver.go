package sync

import "github.com/TheMichaelB/notesync/internal/models"

// Winner is the outcome of conflict resolution between a local and a
// remote version of a note.
type Winner int

const (
	// WinnerLocal means the local version should be uploaded.
	WinnerLocal Winner = iota

	// WinnerRemote means the remote version should overwrite the
	// local copy.
	WinnerRemote

	// WinnerConflict means neither side can be chosen automatically.
	// The note is parked for user or policy resolution.
	WinnerConflict
)

func (w Winner) String() string {
	switch w {
	case WinnerLocal:
		return "local"
	case WinnerRemote:
		return "remote"
	default:
		return "conflict"
	}
}

// Resolve compares a local and a remote version of a note and picks a
// winner. It is a pure function: no side effects, deterministic for
// identical inputs.
//
// Absent remote means first upload, so local wins. Otherwise the newer
// ModifiedAt wins. Equal timestamps with differing content cannot be
// merged automatically and yield a conflict.
func Resolve(local, remote *models.Note) Winner {
	if remote == nil {
		return WinnerLocal
	}

	localTS := clampTimestamp(local.ModifiedAt)
	remoteTS := clampTimestamp(remote.ModifiedAt)

	switch {
	case localTS > remoteTS:
		return WinnerLocal
	case remoteTS > localTS:
		return WinnerRemote
	}

	if local.ContentEquals(remote) {
		// Identical timestamps and content: both sides agree, an
		// upload is a harmless confirmation.
		return WinnerLocal
	}
	return WinnerConflict
}

// clampTimestamp treats malformed (negative or zero) timestamps as
// older than any real one.
func clampTimestamp(ts int64) int64 {
	if ts < 0 {
		return 0
	}
	return ts
}
