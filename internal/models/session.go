package models

import "time"

// EngineState is the session-level status of the sync engine. Exactly
// one pass runs at a time; the state reflects the most recent attempt.
type EngineState string

const (
	EngineIdle        EngineState = "idle"
	EngineSyncing     EngineState = "syncing"
	EngineOffline     EngineState = "offline"
	EngineDisabled    EngineState = "disabled"
	EngineStorageFull EngineState = "storage_full"
	EngineError       EngineState = "error"
)

// SessionSnapshot is the read-only view of the engine's session state
// handed to observers.
type SessionSnapshot struct {
	State        EngineState `json:"state"`
	LastSyncTime time.Time   `json:"last_sync_time"`
	Errors       []SyncError `json:"errors"`
}
