// Package sync implements the note synchronization engine: conflict
// resolution, transfer coordination, the pending-change queue and the
// session state machine that ties them together.
package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/TheMichaelB/notesync/internal/connectivity"
	"github.com/TheMichaelB/notesync/internal/creds"
	"github.com/TheMichaelB/notesync/internal/events"
	"github.com/TheMichaelB/notesync/internal/models"
	"github.com/TheMichaelB/notesync/internal/remote"
	"github.com/TheMichaelB/notesync/internal/storage"
	"github.com/TheMichaelB/notesync/internal/store"
)

const defaultMaxConcurrent = 4

// Prefs is the slice of durable settings the engine consumes.
type Prefs interface {
	SyncEnabled() bool
	SetSyncEnabled(enabled bool) error
	LastSyncTime() time.Time
	SetLastSyncTime(t time.Time) error
}

// EngineDeps bundles the collaborators an Engine needs.
type EngineDeps struct {
	Store    store.LocalStore
	Remote   remote.RemoteStore
	Transfer *Coordinator
	Observer *connectivity.Observer
	Quota    storage.Quota
	Prefs    Prefs
	User     creds.CurrentUser

	// MaxConcurrent caps the per-pass worker pool. Zero means the
	// default of 4.
	MaxConcurrent int

	Logger *events.Logger
}

// Engine runs sync passes. At most one pass is in flight at any time;
// concurrent StartSync calls beyond the first return ErrSyncInProgress
// and cause no additional work.
type Engine struct {
	store         store.LocalStore
	remote        remote.RemoteStore
	transfer      *Coordinator
	observer      *connectivity.Observer
	quota         storage.Quota
	prefs         Prefs
	user          creds.CurrentUser
	queue         *PendingQueue
	maxConcurrent int
	logger        *events.Logger

	mu        sync.Mutex
	state     models.EngineState
	errs      []models.SyncError
	lastSync  time.Time
	syncing   bool
	cancelFn  context.CancelFunc
	stateSubs []chan models.EngineState
	errSubs   []chan models.SyncError
}

// NewEngine creates a sync engine. The initial state reflects the
// persisted sync-enabled flag.
func NewEngine(deps EngineDeps) *Engine {
	maxConcurrent := deps.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}

	state := models.EngineIdle
	if !deps.Prefs.SyncEnabled() {
		state = models.EngineDisabled
	}

	return &Engine{
		store:         deps.Store,
		remote:        deps.Remote,
		transfer:      deps.Transfer,
		observer:      deps.Observer,
		quota:         deps.Quota,
		prefs:         deps.Prefs,
		user:          deps.User,
		queue:         NewPendingQueue(),
		maxConcurrent: maxConcurrent,
		logger:        deps.Logger.WithField("component", "sync_engine"),
		state:         state,
		lastSync:      deps.Prefs.LastSyncTime(),
	}
}

// Queue exposes the pending-change queue for inspection.
func (e *Engine) Queue() *PendingQueue {
	return e.queue
}

// Status returns the current session state.
func (e *Engine) Status() models.EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Snapshot returns a copy of the session state for display.
func (e *Engine) Snapshot() models.SessionSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	errs := make([]models.SyncError, len(e.errs))
	copy(errs, e.errs)

	return models.SessionSnapshot{
		State:        e.state,
		LastSyncTime: e.lastSync,
		Errors:       errs,
	}
}

// Errors returns the accumulated error list.
func (e *Engine) Errors() []models.SyncError {
	e.mu.Lock()
	defer e.mu.Unlock()

	errs := make([]models.SyncError, len(e.errs))
	copy(errs, e.errs)
	return errs
}

// ClearErrors empties the error list. This is the only way the list
// shrinks; a new pass never discards earlier errors on its own.
func (e *Engine) ClearErrors() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errs = nil
}

// StateStream returns a conflated channel of state transitions.
func (e *Engine) StateStream() <-chan models.EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch := make(chan models.EngineState, 1)
	e.stateSubs = append(e.stateSubs, ch)
	return ch
}

// ErrorStream returns a buffered channel of recorded errors. Slow
// consumers lose errors rather than block the engine; the full list
// stays available through Errors.
func (e *Engine) ErrorStream() <-chan models.SyncError {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch := make(chan models.SyncError, 16)
	e.errSubs = append(e.errSubs, ch)
	return ch
}

// SetEnabled flips the persisted sync-enabled flag. Disabling cancels
// any running pass.
func (e *Engine) SetEnabled(enabled bool) error {
	if err := e.prefs.SetSyncEnabled(enabled); err != nil {
		return err
	}

	if enabled {
		e.setState(models.EngineIdle)
		return nil
	}

	e.CancelSync()
	e.setState(models.EngineDisabled)
	return nil
}

// StartSync runs one sync pass. It returns ErrSyncInProgress when a
// pass is already running, and a guard sentinel when sync is disabled,
// the network is unreachable, storage is full or no user is signed in.
// Per-note failures do not fail the pass; they accumulate in the error
// list.
func (e *Engine) StartSync(ctx context.Context) error {
	e.mu.Lock()
	if e.syncing {
		e.mu.Unlock()
		return models.ErrSyncInProgress
	}
	e.mu.Unlock()

	if !e.prefs.SyncEnabled() {
		e.setState(models.EngineDisabled)
		return models.ErrSyncDisabled
	}

	if !e.observer.Reachable(ctx) {
		e.setState(models.EngineOffline)
		e.logger.Debug("Sync skipped, network unreachable")
		return models.ErrOffline
	}

	used, limit, err := e.quota.Usage()
	if err != nil {
		e.recordError("", fmt.Errorf("check storage quota: %w", err))
		e.setState(models.EngineError)
		return err
	}
	if limit > 0 && used >= limit {
		e.setState(models.EngineStorageFull)
		e.logger.WithFields(map[string]interface{}{
			"used":  used,
			"limit": limit,
		}).Warn("Sync blocked, storage quota exceeded")
		return models.ErrStorageFull
	}

	userID := e.user.ID()
	if userID == "" {
		e.recordError("", models.ErrNotAuthenticated)
		e.setState(models.EngineError)
		return models.ErrNotAuthenticated
	}

	e.mu.Lock()
	if e.syncing {
		e.mu.Unlock()
		return models.ErrSyncInProgress
	}
	e.syncing = true
	runCtx, cancel := context.WithCancel(events.WithUserID(ctx, userID))
	e.cancelFn = cancel
	e.mu.Unlock()

	e.setState(models.EngineSyncing)

	defer func() {
		cancel()
		e.mu.Lock()
		e.syncing = false
		e.cancelFn = nil
		e.mu.Unlock()
	}()

	if err := e.runPass(runCtx, userID); err != nil {
		if errors.Is(err, context.Canceled) {
			e.logger.Info("Sync pass cancelled")
			e.setState(models.EngineIdle)
			return err
		}
		e.recordError("", err)
		e.setState(models.EngineError)
		return err
	}

	now := time.Now()
	e.mu.Lock()
	e.lastSync = now
	e.mu.Unlock()
	if err := e.prefs.SetLastSyncTime(now); err != nil {
		e.logger.WithError(err).Warn("Failed to persist last sync time")
	}

	e.setState(models.EngineIdle)
	return nil
}

// CancelSync aborts a running pass. Workers stop cooperatively; any
// note mid-transfer finishes or fails on its own.
func (e *Engine) CancelSync() {
	e.mu.Lock()
	cancel := e.cancelFn
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// runPass gathers the work set and fans it out to the worker pool. It
// returns an error only for pass-level failures; per-note errors are
// recorded and swallowed.
func (e *Engine) runPass(ctx context.Context, userID string) error {
	notes, err := e.store.GetUnsyncedNotes(ctx)
	if err != nil {
		return fmt.Errorf("load unsynced notes: %w", err)
	}

	seen := make(map[string]bool, len(notes))
	for _, n := range notes {
		seen[n.ID] = true
	}

	for _, change := range e.queue.Drain() {
		if seen[change.NoteID] {
			continue
		}
		note, err := e.store.Get(ctx, change.NoteID)
		switch {
		case errors.Is(err, models.ErrNoteNotFound):
			// The local record is already gone; a pending deletion
			// still needs to reach the remote.
			if change.Reason == ReasonDeleted {
				notes = append(notes, &models.Note{ID: change.NoteID, IsDeleted: true})
			}
		case err != nil:
			e.recordError(change.NoteID, err)
		default:
			notes = append(notes, note)
			seen[change.NoteID] = true
		}
	}

	e.logger.WithField("count", len(notes)).Info("Sync pass started")

	var wg sync.WaitGroup
	sem := make(chan struct{}, e.maxConcurrent)

	for _, note := range notes {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(n *models.Note) {
			defer wg.Done()
			defer func() { <-sem }()
			e.syncNote(ctx, userID, n)
		}(note)
	}

	// Join barrier: the pass does not complete until every worker has
	// returned.
	wg.Wait()

	return ctx.Err()
}

// syncNote pushes or pulls one note depending on which side wins
// resolution.
func (e *Engine) syncNote(ctx context.Context, userID string, note *models.Note) {
	ctx = events.WithNoteID(ctx, note.ID)

	if err := e.store.UpdateSyncStatus(ctx, note.ID, models.SyncSyncing); err != nil &&
		!errors.Is(err, models.ErrNoteNotFound) {
		e.logger.WithError(err).WithField("note_id", note.ID).Warn("Failed to mark note syncing")
	}

	if note.IsDeleted {
		e.pushDelete(ctx, userID, note)
		return
	}

	remoteNote, err := e.remote.GetNote(ctx, userID, note.ID)
	if err != nil {
		if !errors.Is(err, models.ErrNoteNotFound) {
			e.failNote(ctx, note.ID, fmt.Errorf("fetch remote note: %w", err))
			return
		}
		remoteNote = nil
	}

	switch Resolve(note, remoteNote) {
	case WinnerLocal:
		e.pushUpload(ctx, userID, note)
	case WinnerRemote:
		e.pullRemote(ctx, userID, note.ID)
	case WinnerConflict:
		e.parkConflict(ctx, note.ID)
	}
}

func (e *Engine) pushUpload(ctx context.Context, userID string, note *models.Note) {
	partErrs, err := e.transfer.Upload(ctx, userID, note)
	if errors.Is(err, models.ErrRemoteNewer) {
		e.parkConflict(ctx, note.ID)
		return
	}
	if err != nil {
		e.failNote(ctx, note.ID, err)
		return
	}

	for _, pe := range partErrs {
		e.recordError(pe.NoteID, pe)
	}

	// The text record is durable remotely even when a blob failed; a
	// failed status makes the next pass retry the blobs.
	status := models.SyncSynced
	if len(partErrs) > 0 {
		status = models.SyncFailed
	}
	if err := e.store.UpdateSyncStatus(ctx, note.ID, status); err != nil {
		e.recordError(note.ID, err)
	}
}

func (e *Engine) pullRemote(ctx context.Context, userID, id string) {
	downloaded, partErrs, err := e.transfer.Download(ctx, userID, id)
	if err != nil {
		e.failNote(ctx, id, err)
		return
	}

	for _, pe := range partErrs {
		e.recordError(pe.NoteID, pe)
	}

	downloaded.SyncStatus = models.SyncSynced
	if len(partErrs) > 0 {
		downloaded.SyncStatus = models.SyncFailed
	}
	if err := e.store.Put(ctx, downloaded); err != nil {
		e.failNote(ctx, id, fmt.Errorf("store downloaded note: %w", err))
	}
}

func (e *Engine) pushDelete(ctx context.Context, userID string, note *models.Note) {
	partErrs, err := e.transfer.Delete(ctx, userID, note)
	if err != nil {
		e.failNote(ctx, note.ID, err)
		return
	}

	for _, pe := range partErrs {
		e.recordError(pe.NoteID, pe)
	}

	e.transfer.RemoveLocalMedia(note)
	if err := e.store.Delete(ctx, note.ID); err != nil &&
		!errors.Is(err, models.ErrNoteNotFound) {
		e.recordError(note.ID, err)
	}
}

func (e *Engine) failNote(ctx context.Context, id string, err error) {
	// A cancelled pass is not a note failure; the note stays pending
	// for the next pass.
	if errors.Is(err, context.Canceled) {
		return
	}

	e.recordError(id, err)
	if serr := e.store.UpdateSyncStatus(ctx, id, models.SyncFailed); serr != nil &&
		!errors.Is(serr, models.ErrNoteNotFound) {
		e.logger.WithError(serr).WithField("note_id", id).Warn("Failed to mark note failed")
	}
}

func (e *Engine) parkConflict(ctx context.Context, id string) {
	e.recordError(id, models.ErrRemoteNewer)
	if err := e.store.UpdateSyncStatus(ctx, id, models.SyncConflict); err != nil &&
		!errors.Is(err, models.ErrNoteNotFound) {
		e.logger.WithError(err).WithField("note_id", id).Warn("Failed to park conflicted note")
	}
}

// UploadNote persists a local edit and pushes it to the remote. While
// offline the note is queued instead and the call succeeds.
func (e *Engine) UploadNote(ctx context.Context, note *models.Note) error {
	if err := note.Validate(); err != nil {
		return err
	}

	note.Touch()
	note.SyncStatus = models.SyncPending
	if err := e.store.Put(ctx, note); err != nil {
		return fmt.Errorf("store note: %w", err)
	}

	if !e.prefs.SyncEnabled() {
		return nil
	}

	if !e.observer.Reachable(ctx) {
		e.queue.Add(note.ID, ReasonUpdated)
		if err := e.store.UpdateSyncStatus(ctx, note.ID, models.SyncOffline); err != nil {
			return err
		}
		e.markOffline()
		return nil
	}

	userID := e.user.ID()
	if userID == "" {
		return models.ErrNotAuthenticated
	}

	e.syncNote(ctx, userID, note)
	return nil
}

// DeleteNote marks a note deleted and propagates the deletion. While
// offline the deletion is queued.
func (e *Engine) DeleteNote(ctx context.Context, id string) error {
	note, err := e.store.Get(ctx, id)
	if err != nil {
		return err
	}

	note.IsDeleted = true
	note.Touch()
	note.SyncStatus = models.SyncPending
	if err := e.store.Put(ctx, note); err != nil {
		return fmt.Errorf("mark note deleted: %w", err)
	}

	if !e.prefs.SyncEnabled() {
		return nil
	}

	if !e.observer.Reachable(ctx) {
		e.queue.Add(id, ReasonDeleted)
		if err := e.store.UpdateSyncStatus(ctx, id, models.SyncOffline); err != nil {
			return err
		}
		e.markOffline()
		return nil
	}

	userID := e.user.ID()
	if userID == "" {
		return models.ErrNotAuthenticated
	}

	e.pushDelete(ctx, userID, note)
	return nil
}

// DownloadNote pulls one note from the remote, overwriting the local
// copy.
func (e *Engine) DownloadNote(ctx context.Context, id string) error {
	userID := e.user.ID()
	if userID == "" {
		return models.ErrNotAuthenticated
	}

	downloaded, partErrs, err := e.transfer.Download(ctx, userID, id)
	if err != nil {
		return err
	}
	for _, pe := range partErrs {
		e.recordError(pe.NoteID, pe)
	}

	downloaded.SyncStatus = models.SyncSynced
	if len(partErrs) > 0 {
		downloaded.SyncStatus = models.SyncFailed
	}
	return e.store.Put(ctx, downloaded)
}

// ApplyRemoteDelete removes the local copy of a note deleted on the
// remote. Already-absent notes are a no-op.
func (e *Engine) ApplyRemoteDelete(ctx context.Context, id string) error {
	note, err := e.store.Get(ctx, id)
	if errors.Is(err, models.ErrNoteNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	e.transfer.RemoveLocalMedia(note)
	return e.store.Delete(ctx, id)
}

// RequestSync triggers a pass without blocking the caller. An already
// running pass absorbs the request.
func (e *Engine) RequestSync(ctx context.Context) {
	go func() {
		err := e.StartSync(ctx)
		if err != nil && !errors.Is(err, models.ErrSyncInProgress) {
			e.logger.WithError(err).Debug("Requested sync did not run")
		}
	}()
}

// Run reacts to connectivity transitions until ctx ends: loss of
// connectivity surfaces as the offline state, and a reconnect triggers
// a catch-up pass when offline work is waiting.
func (e *Engine) Run(ctx context.Context) {
	transitions := e.observer.Subscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case reachable := <-transitions:
			if !reachable {
				e.markOffline()
				continue
			}

			if e.Status() == models.EngineOffline || e.queue.Len() > 0 {
				e.logger.Info("Connectivity restored, starting catch-up sync")
				if err := e.StartSync(ctx); err != nil &&
					!errors.Is(err, models.ErrSyncInProgress) {
					e.logger.WithError(err).Warn("Catch-up sync failed")
				}
			}
		}
	}
}

func (e *Engine) setState(state models.EngineState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.setStateLocked(state)
}

func (e *Engine) setStateLocked(state models.EngineState) {
	if e.state == state {
		return
	}
	e.state = state

	for _, ch := range e.stateSubs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- state:
		default:
		}
	}
}

// markOffline reports loss of connectivity on the status stream. A
// running pass or another blocking state keeps precedence; the pass
// surfaces its own outcome when it finishes.
func (e *Engine) markOffline() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != models.EngineIdle {
		return
	}
	e.setStateLocked(models.EngineOffline)
}

func (e *Engine) recordError(noteID string, err error) {
	serr := models.NewSyncError(noteID, err)

	e.mu.Lock()
	e.errs = append(e.errs, serr)
	subs := e.errSubs
	e.mu.Unlock()

	e.logger.WithError(err).WithField("note_id", noteID).Warn("Sync error recorded")

	for _, ch := range subs {
		select {
		case ch <- serr:
		default:
		}
	}
}
