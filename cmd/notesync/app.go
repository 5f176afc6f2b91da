package main

import (
	"context"
	"fmt"
	"time"

	"github.com/TheMichaelB/notesync/internal/connectivity"
	"github.com/TheMichaelB/notesync/internal/creds"
	"github.com/TheMichaelB/notesync/internal/prefs"
	"github.com/TheMichaelB/notesync/internal/remote"
	"github.com/TheMichaelB/notesync/internal/services/sync"
	"github.com/TheMichaelB/notesync/internal/storage"
	"github.com/TheMichaelB/notesync/internal/store"
	"github.com/TheMichaelB/notesync/internal/transport"
)

const (
	probeInterval = 30 * time.Second
	probeTimeout  = 5 * time.Second
)

// app wires the full engine stack from config. Commands that only need
// config or the token file skip building it.
type app struct {
	store    store.LocalStore
	prefs    *prefs.Store
	observer *connectivity.Observer
	engine   *sync.Engine
	service  *sync.Service
}

func newApp(ctx context.Context) (*app, error) {
	localStore, err := store.NewSQLiteStore(cfg.Storage.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("open note store: %w", err)
	}

	media, err := storage.NewMediaStore(cfg.Storage.MediaDir, logger)
	if err != nil {
		localStore.Close()
		return nil, fmt.Errorf("open media store: %w", err)
	}

	prefStore, err := prefs.NewStore(cfg.Storage.PrefsPath, logger)
	if err != nil {
		localStore.Close()
		return nil, fmt.Errorf("open prefs: %w", err)
	}

	client := transport.NewClient(&cfg.API, logger)
	user := creds.NewFileUser(cfg.Storage.TokenFile)
	if info, err := creds.LoadToken(cfg.Storage.TokenFile); err == nil {
		client.SetToken(info.Token)
	}

	remoteStore, blobStore, err := remote.New(ctx, &cfg.Remote, client, logger)
	if err != nil {
		localStore.Close()
		return nil, err
	}

	probeURL := cfg.API.ProbeURL
	if probeURL == "" {
		probeURL = cfg.API.BaseURL + "/health"
	}
	monitor := connectivity.NewHTTPMonitor(probeURL, probeInterval, probeTimeout, logger)
	observer := connectivity.NewObserver(monitor, logger)

	transfer := sync.NewCoordinator(remoteStore, blobStore, media, logger)
	quota := storage.NewDiskQuota(cfg.Storage.MediaDir, cfg.Storage.QuotaBytes)

	engine := sync.NewEngine(sync.EngineDeps{
		Store:         localStore,
		Remote:        remoteStore,
		Transfer:      transfer,
		Observer:      observer,
		Quota:         quota,
		Prefs:         prefStore,
		User:          user,
		MaxConcurrent: cfg.Sync.MaxConcurrent,
		Logger:        logger,
	})

	var feed *transport.ChangeFeed
	if cfg.Remote.ChangeFeedURL != "" {
		feed = transport.NewChangeFeed(cfg.Remote.ChangeFeedURL, client.GetToken(), logger)
	}

	return &app{
		store:    localStore,
		prefs:    prefStore,
		observer: observer,
		engine:   engine,
		service:  sync.NewService(engine, observer, feed, user, logger),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		logger.WithError(err).Warn("Failed to close note store")
	}
}
