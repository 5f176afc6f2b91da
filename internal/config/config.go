package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// API configuration for the REST remote.
	API APIConfig `json:"api"`

	// Remote backend selection.
	Remote RemoteConfig `json:"remote"`

	// Local storage paths and quota.
	Storage StorageConfig `json:"storage"`

	// Sync behavior.
	Sync SyncConfig `json:"sync"`

	// Logging.
	Log LogConfig `json:"log"`
}

// APIConfig for server communication.
type APIConfig struct {
	BaseURL    string        `json:"base_url"`
	Timeout    time.Duration `json:"timeout"`
	MaxRetries int           `json:"max_retries"`
	UserAgent  string        `json:"user_agent"`

	// ProbeURL is requested to check reachability. Defaults to the
	// API health endpoint.
	ProbeURL string `json:"probe_url,omitempty"`
}

// RemoteConfig selects the note and blob backends. The backend kind is
// resolved once when the client is built, not per call.
type RemoteConfig struct {
	// Backend for note records: "rest" or "dynamodb".
	Backend string `json:"backend"`

	// BlobBackend for audio/summary payloads: "rest" or "s3".
	BlobBackend string `json:"blob_backend"`

	// DynamoDB settings (backend = dynamodb).
	DynamoTable string `json:"dynamo_table,omitempty"`

	// S3 settings (blob_backend = s3).
	S3Bucket string `json:"s3_bucket,omitempty"`
	S3Prefix string `json:"s3_prefix,omitempty"`

	// ChangeFeedURL enables the websocket change feed when set.
	ChangeFeedURL string `json:"change_feed_url,omitempty"`
}

// StorageConfig for local file paths.
type StorageConfig struct {
	DataDir    string `json:"data_dir"`    // Base directory for all data
	MediaDir   string `json:"media_dir"`   // Audio and summary payloads
	DBPath     string `json:"db_path"`     // SQLite note store
	PrefsPath  string `json:"prefs_path"`  // Durable engine settings
	TokenFile  string `json:"token_file"`  // Auth token + user id
	QuotaBytes int64  `json:"quota_bytes"` // Media quota; sync halts at or above
}

// SyncConfig for synchronization behavior.
type SyncConfig struct {
	MaxConcurrent int           `json:"max_concurrent"` // Concurrent note transfers per pass
	Interval      time.Duration `json:"interval"`       // Periodic sync interval
}

// LogConfig for logging behavior.
type LogConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // text, json
	File   string `json:"file"`   // Log file path (empty = stdout)
}

// Backend kinds.
const (
	BackendREST     = "rest"
	BackendDynamoDB = "dynamodb"
	BlobBackendREST = "rest"
	BlobBackendS3   = "s3"
)

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() *Config {
	dataDir := ".notesync"

	return &Config{
		API: APIConfig{
			BaseURL:    "https://api.notesync.dev",
			Timeout:    30 * time.Second,
			MaxRetries: 3,
			UserAgent:  "notesync-go",
		},
		Remote: RemoteConfig{
			Backend:     BackendREST,
			BlobBackend: BlobBackendREST,
		},
		Storage: StorageConfig{
			DataDir:    dataDir,
			MediaDir:   filepath.Join(dataDir, "media"),
			DBPath:     filepath.Join(dataDir, "notes.db"),
			PrefsPath:  filepath.Join(dataDir, "prefs.json"),
			TokenFile:  filepath.Join(dataDir, "token.json"),
			QuotaBytes: 1 << 30, // 1GB
		},
		Sync: SyncConfig{
			MaxConcurrent: 4,
			Interval:      30 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}

	if c.API.Timeout <= 0 {
		return errors.New("api.timeout must be positive")
	}

	switch c.Remote.Backend {
	case BackendREST:
	case BackendDynamoDB:
		if c.Remote.DynamoTable == "" {
			return errors.New("remote.dynamo_table is required for the dynamodb backend")
		}
	default:
		return fmt.Errorf("unknown remote backend: %s", c.Remote.Backend)
	}

	switch c.Remote.BlobBackend {
	case BlobBackendREST:
	case BlobBackendS3:
		if c.Remote.S3Bucket == "" {
			return errors.New("remote.s3_bucket is required for the s3 blob backend")
		}
	default:
		return fmt.Errorf("unknown blob backend: %s", c.Remote.BlobBackend)
	}

	if c.Storage.QuotaBytes <= 0 {
		return errors.New("storage.quota_bytes must be positive")
	}

	if c.Sync.MaxConcurrent <= 0 {
		return errors.New("sync.max_concurrent must be positive")
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}

	return nil
}

// EnsureDirectories creates required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDir,
		c.Storage.MediaDir,
		filepath.Dir(c.Storage.DBPath),
	}

	if c.Log.File != "" {
		dirs = append(dirs, filepath.Dir(c.Log.File))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return nil
}
