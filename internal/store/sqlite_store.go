package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/TheMichaelB/notesync/internal/events"
	"github.com/TheMichaelB/notesync/internal/models"
)

// SQLiteStore implements LocalStore on SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *events.Logger
}

// NewSQLiteStore opens the note database, creating the schema if
// needed.
func NewSQLiteStore(dbPath string, logger *events.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &SQLiteStore{
		db:     db,
		logger: logger.WithField("component", "sqlite_store"),
	}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
    CREATE TABLE IF NOT EXISTS notes (
        id TEXT PRIMARY KEY,
        title TEXT NOT NULL DEFAULT '',
        content TEXT NOT NULL DEFAULT '',
        folder_id TEXT NOT NULL DEFAULT '',
        is_pinned INTEGER NOT NULL DEFAULT 0,
        is_deleted INTEGER NOT NULL DEFAULT 0,
        audio_path TEXT NOT NULL DEFAULT '',
        has_audio INTEGER NOT NULL DEFAULT 0,
        summary TEXT NOT NULL DEFAULT '',
        has_summary INTEGER NOT NULL DEFAULT 0,
        modified_at INTEGER NOT NULL DEFAULT 0,
        sync_status TEXT NOT NULL DEFAULT 'pending'
    );

    CREATE INDEX IF NOT EXISTS idx_notes_sync_status ON notes(sync_status);
    CREATE INDEX IF NOT EXISTS idx_notes_folder ON notes(folder_id);

    CREATE TABLE IF NOT EXISTS folders (
        id TEXT PRIMARY KEY,
        name TEXT NOT NULL DEFAULT '',
        modified_at INTEGER NOT NULL DEFAULT 0,
        is_deleted INTEGER NOT NULL DEFAULT 0
    );
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	return nil
}

// Get retrieves a note by id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*models.Note, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, title, content, folder_id, is_pinned, is_deleted,
               audio_path, has_audio, summary, has_summary,
               modified_at, sync_status
        FROM notes WHERE id = ?
    `, id)

	note, err := scanNote(row)
	if err == sql.ErrNoRows {
		return nil, models.ErrNoteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query note: %w", err)
	}
	return note, nil
}

// Put inserts or replaces a note.
func (s *SQLiteStore) Put(ctx context.Context, note *models.Note) error {
	if err := note.Validate(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
        INSERT INTO notes (id, title, content, folder_id, is_pinned, is_deleted,
                           audio_path, has_audio, summary, has_summary,
                           modified_at, sync_status)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            title = excluded.title,
            content = excluded.content,
            folder_id = excluded.folder_id,
            is_pinned = excluded.is_pinned,
            is_deleted = excluded.is_deleted,
            audio_path = excluded.audio_path,
            has_audio = excluded.has_audio,
            summary = excluded.summary,
            has_summary = excluded.has_summary,
            modified_at = excluded.modified_at,
            sync_status = excluded.sync_status
    `, note.ID, note.Title, note.Content, note.FolderID, note.IsPinned, note.IsDeleted,
		note.AudioPath, note.HasAudio, note.Summary, note.HasSummary,
		note.ModifiedAt, string(note.SyncStatus))

	if err != nil {
		return fmt.Errorf("upsert note: %w", err)
	}
	return nil
}

// GetUnsyncedNotes returns notes not confirmed remote, excluding
// conflicted ones.
func (s *SQLiteStore) GetUnsyncedNotes(ctx context.Context) ([]*models.Note, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, title, content, folder_id, is_pinned, is_deleted,
               audio_path, has_audio, summary, has_summary,
               modified_at, sync_status
        FROM notes
        WHERE sync_status NOT IN (?, ?)
        ORDER BY modified_at
    `, string(models.SyncSynced), string(models.SyncConflict))
	if err != nil {
		return nil, fmt.Errorf("query unsynced notes: %w", err)
	}
	defer rows.Close()

	var notes []*models.Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note row: %w", err)
		}
		notes = append(notes, note)
	}

	return notes, rows.Err()
}

// UpdateSyncStatus sets the sync status for a note.
func (s *SQLiteStore) UpdateSyncStatus(ctx context.Context, id string, status models.SyncStatus) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE notes SET sync_status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return fmt.Errorf("update sync status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return models.ErrNoteNotFound
	}
	return nil
}

// Delete removes a note record.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM notes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}

// PutFolder inserts or replaces a folder.
func (s *SQLiteStore) PutFolder(ctx context.Context, folder *models.Folder) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO folders (id, name, modified_at, is_deleted)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            name = excluded.name,
            modified_at = excluded.modified_at,
            is_deleted = excluded.is_deleted
    `, folder.ID, folder.Name, folder.ModifiedAt, folder.IsDeleted)

	if err != nil {
		return fmt.Errorf("upsert folder: %w", err)
	}
	return nil
}

// ListFolders returns all folders.
func (s *SQLiteStore) ListFolders(ctx context.Context) ([]*models.Folder, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, modified_at, is_deleted FROM folders ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("query folders: %w", err)
	}
	defer rows.Close()

	var folders []*models.Folder
	for rows.Next() {
		var f models.Folder
		if err := rows.Scan(&f.ID, &f.Name, &f.ModifiedAt, &f.IsDeleted); err != nil {
			return nil, fmt.Errorf("scan folder row: %w", err)
		}
		folders = append(folders, &f)
	}

	return folders, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNote(row rowScanner) (*models.Note, error) {
	var n models.Note
	var status string

	err := row.Scan(&n.ID, &n.Title, &n.Content, &n.FolderID, &n.IsPinned, &n.IsDeleted,
		&n.AudioPath, &n.HasAudio, &n.Summary, &n.HasSummary,
		&n.ModifiedAt, &status)
	if err != nil {
		return nil, err
	}

	n.SyncStatus = models.SyncStatus(status)
	return &n, nil
}
