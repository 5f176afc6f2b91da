package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/TheMichaelB/notesync/internal/events"
	"github.com/TheMichaelB/notesync/internal/integrity"
	"github.com/TheMichaelB/notesync/internal/models"
	"github.com/TheMichaelB/notesync/internal/remote"
	"github.com/TheMichaelB/notesync/internal/storage"
)

// Coordinator moves a single note between the local stores and the
// remote backends. The text record always travels before any blob, so
// a note whose media transfer fails is still recoverable from its
// record alone.
type Coordinator struct {
	remote remote.RemoteStore
	blobs  remote.BlobStore
	media  *storage.MediaStore
	logger *events.Logger
}

// NewCoordinator creates a transfer coordinator.
func NewCoordinator(rs remote.RemoteStore, bs remote.BlobStore, media *storage.MediaStore, logger *events.Logger) *Coordinator {
	return &Coordinator{
		remote: rs,
		blobs:  bs,
		media:  media,
		logger: logger.WithField("component", "transfer"),
	}
}

// Upload pushes a note to the remote. It re-reads the remote version
// first and refuses to clobber a newer one, returning ErrRemoteNewer.
//
// The returned error covers the text record: if it is non-nil nothing
// was uploaded (or the record write itself failed) and the note must be
// retried whole. Blob failures after a successful record write come
// back in partErrs and do not fail the upload.
func (c *Coordinator) Upload(ctx context.Context, userID string, note *models.Note) (partErrs []*models.TransferError, err error) {
	current, err := c.remote.GetNote(ctx, userID, note.ID)
	if err != nil && !errors.Is(err, models.ErrNoteNotFound) {
		return nil, fmt.Errorf("check remote version: %w", err)
	}
	if current != nil && clampTimestamp(current.ModifiedAt) > clampTimestamp(note.ModifiedAt) {
		return nil, models.ErrRemoteNewer
	}

	record := note.Clone()
	record.SyncStatus = models.SyncSynced
	record.AudioPath = ""

	var audioData, summaryData []byte

	if note.HasAudio {
		audioData, err = c.media.Read(note.AudioKey())
		if err != nil {
			partErrs = append(partErrs, &models.TransferError{
				NoteID: note.ID,
				Part:   "audio",
				Err:    fmt.Errorf("read local audio: %w", err),
			})
			record.AudioChecksum = ""
		} else {
			record.AudioChecksum = integrity.Checksum(audioData)
		}
	}

	if note.HasSummary {
		summaryData, err = c.media.Read(note.SummaryKey())
		if err != nil {
			partErrs = append(partErrs, &models.TransferError{
				NoteID: note.ID,
				Part:   "summary",
				Err:    fmt.Errorf("read local summary: %w", err),
			})
			record.SummaryChecksum = ""
		} else {
			record.SummaryChecksum = integrity.Checksum(summaryData)
		}
	}

	// Text record first. If this fails no blob upload is attempted.
	if err := c.remote.SetNote(ctx, userID, record); err != nil {
		return nil, fmt.Errorf("upload note record: %w", err)
	}

	if audioData != nil {
		if _, err := c.blobs.Upload(ctx, note.AudioKey(), audioData); err != nil {
			partErrs = append(partErrs, &models.TransferError{
				NoteID: note.ID,
				Part:   "audio",
				Err:    err,
			})
		}
	}

	if summaryData != nil {
		if _, err := c.blobs.Upload(ctx, note.SummaryKey(), summaryData); err != nil {
			partErrs = append(partErrs, &models.TransferError{
				NoteID: note.ID,
				Part:   "summary",
				Err:    err,
			})
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"note_id":     note.ID,
		"blob_errors": len(partErrs),
	}).Debug("Uploaded note")

	return partErrs, nil
}

// Download pulls a note from the remote into the media store and
// returns the local representation ready to be persisted. A missing or
// corrupt blob is reported in partErrs but does not fail the download;
// the text record alone is enough to keep the note usable.
func (c *Coordinator) Download(ctx context.Context, userID, id string) (note *models.Note, partErrs []*models.TransferError, err error) {
	note, err = c.remote.GetNote(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}

	if note.HasAudio {
		if err := c.fetchBlob(ctx, note.AudioKey(), note.AudioChecksum); err != nil {
			partErrs = append(partErrs, &models.TransferError{
				NoteID: id,
				Part:   "audio",
				Err:    err,
			})
		} else if path, err := c.media.Path(note.AudioKey()); err != nil {
			partErrs = append(partErrs, &models.TransferError{
				NoteID: id,
				Part:   "audio",
				Err:    err,
			})
		} else {
			note.AudioPath = path
		}
	}

	if note.HasSummary {
		if err := c.fetchBlob(ctx, note.SummaryKey(), note.SummaryChecksum); err != nil {
			partErrs = append(partErrs, &models.TransferError{
				NoteID: id,
				Part:   "summary",
				Err:    err,
			})
		}
	}

	return note, partErrs, nil
}

func (c *Coordinator) fetchBlob(ctx context.Context, key, checksum string) error {
	data, err := c.blobs.Download(ctx, key)
	if err != nil {
		return err
	}

	if err := integrity.Verify(data, checksum); err != nil {
		return err
	}

	if err := c.media.Write(key, data); err != nil {
		return fmt.Errorf("write local media: %w", err)
	}
	return nil
}

// RemoveLocalMedia drops a note's media files from local storage. Best
// effort; a missing file is not an error.
func (c *Coordinator) RemoveLocalMedia(note *models.Note) {
	if note.HasAudio {
		if err := c.media.Delete(note.AudioKey()); err != nil {
			c.logger.WithError(err).WithField("note_id", note.ID).Warn("Failed to remove local audio")
		}
	}
	if note.HasSummary {
		if err := c.media.Delete(note.SummaryKey()); err != nil {
			c.logger.WithError(err).WithField("note_id", note.ID).Warn("Failed to remove local summary")
		}
	}
}

// Delete removes a note from the remote. The record delete must
// succeed; blob deletes are best effort and orphaned blobs are reported
// in partErrs for later cleanup.
func (c *Coordinator) Delete(ctx context.Context, userID string, note *models.Note) (partErrs []*models.TransferError, err error) {
	if err := c.remote.DeleteNote(ctx, userID, note.ID); err != nil {
		return nil, fmt.Errorf("delete note record: %w", err)
	}

	if note.HasAudio {
		if err := c.blobs.Delete(ctx, note.AudioKey()); err != nil {
			partErrs = append(partErrs, &models.TransferError{
				NoteID: note.ID,
				Part:   "audio",
				Err:    err,
			})
		}
	}

	if note.HasSummary {
		if err := c.blobs.Delete(ctx, note.SummaryKey()); err != nil {
			partErrs = append(partErrs, &models.TransferError{
				NoteID: note.ID,
				Part:   "summary",
				Err:    err,
			})
		}
	}

	return partErrs, nil
}
