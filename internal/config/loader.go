package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Loader handles configuration loading from multiple sources. File
// values override defaults, environment variables override the file.
type Loader struct {
	configPath string
	envPrefix  string
}

// NewLoader creates a config loader.
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
		envPrefix:  "NOTESYNC_",
	}
}

// Load reads configuration from file and environment.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFile(cfg); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	} else {
		for _, path := range l.defaultPaths() {
			if _, err := os.Stat(path); err == nil {
				l.configPath = path
				if err := l.loadFile(cfg); err != nil {
					return nil, fmt.Errorf("load config file %s: %w", path, err)
				}
				break
			}
		}
	}

	if err := l.loadEnv(cfg); err != nil {
		return nil, fmt.Errorf("load env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// defaultPaths returns default config file locations.
func (l *Loader) defaultPaths() []string {
	paths := []string{
		"notesync.json",
		".notesync.json",
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(homeDir, ".config", "notesync", "config.json"),
			filepath.Join(homeDir, ".notesync", "config.json"),
		)
	}

	return paths
}

// loadFile reads config from a JSON file.
func (l *Loader) loadFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse JSON: %w", err)
	}

	return nil
}

// loadEnv overrides config from environment variables.
func (l *Loader) loadEnv(cfg *Config) error {
	if v := os.Getenv(l.envPrefix + "API_BASE_URL"); v != "" {
		cfg.API.BaseURL = v
	}

	if v := os.Getenv(l.envPrefix + "API_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse API_TIMEOUT: %w", err)
		}
		cfg.API.Timeout = d
	}

	if v := os.Getenv(l.envPrefix + "REMOTE_BACKEND"); v != "" {
		cfg.Remote.Backend = strings.ToLower(v)
	}

	if v := os.Getenv(l.envPrefix + "BLOB_BACKEND"); v != "" {
		cfg.Remote.BlobBackend = strings.ToLower(v)
	}

	if v := os.Getenv(l.envPrefix + "DYNAMO_TABLE"); v != "" {
		cfg.Remote.DynamoTable = v
	}

	if v := os.Getenv(l.envPrefix + "S3_BUCKET"); v != "" {
		cfg.Remote.S3Bucket = v
	}

	if v := os.Getenv(l.envPrefix + "DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
		cfg.Storage.MediaDir = filepath.Join(v, "media")
		cfg.Storage.DBPath = filepath.Join(v, "notes.db")
		cfg.Storage.PrefsPath = filepath.Join(v, "prefs.json")
		cfg.Storage.TokenFile = filepath.Join(v, "token.json")
	}

	if v := os.Getenv(l.envPrefix + "QUOTA_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("parse QUOTA_BYTES: %w", err)
		}
		cfg.Storage.QuotaBytes = n
	}

	if v := os.Getenv(l.envPrefix + "SYNC_MAX_CONCURRENT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse SYNC_MAX_CONCURRENT: %w", err)
		}
		cfg.Sync.MaxConcurrent = n
	}

	if v := os.Getenv(l.envPrefix + "SYNC_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse SYNC_INTERVAL: %w", err)
		}
		cfg.Sync.Interval = d
	}

	if v := os.Getenv(l.envPrefix + "LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}

	if v := os.Getenv(l.envPrefix + "LOG_FORMAT"); v != "" {
		cfg.Log.Format = strings.ToLower(v)
	}

	if v := os.Getenv(l.envPrefix + "LOG_FILE"); v != "" {
		cfg.Log.File = v
	}

	return nil
}
