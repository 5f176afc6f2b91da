package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/TheMichaelB/notesync/internal/models"
	"github.com/TheMichaelB/notesync/internal/services/sync"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize notes with the remote store",
	Long: `Sync runs one pass by default: every unsynced note is pushed or
pulled depending on which side is newer. With --watch the process stays
up, re-syncing periodically, on reconnect and on remote change events.`,
	Example: `  notesync sync
  notesync sync --watch`,
	RunE: runSyncCmd,
}

var syncWatch bool

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().BoolVarP(&syncWatch, "watch", "w", false,
		"Keep running and sync continuously")
}

func runSyncCmd(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		printWarning("\nInterrupted, cancelling...")
		application.engine.CancelSync()
		cancel()
	}()

	if syncWatch {
		return runWatch(ctx, application)
	}
	return runOnce(ctx, application)
}

func runOnce(ctx context.Context, application *app) error {
	start := time.Now()
	err := application.engine.StartSync(ctx)
	duration := time.Since(start).Round(time.Millisecond)

	snapshot := application.engine.Snapshot()

	if jsonOutput {
		printJSON(map[string]interface{}{
			"success":  err == nil,
			"state":    snapshot.State,
			"errors":   snapshot.Errors,
			"duration": duration.String(),
		})
		return err
	}

	for _, serr := range snapshot.Errors {
		printWarning("%s", serr.String())
	}

	switch {
	case err == nil:
		printSuccess("Sync completed in %s", duration)
		return nil
	case errors.Is(err, models.ErrOffline):
		printWarning("Network unreachable, sync skipped")
		return err
	default:
		return err
	}
}

func runWatch(ctx context.Context, application *app) error {
	application.service.Start(ctx)

	scheduler := sync.NewSyncScheduler(
		sync.NewTickerScheduler(ctx, application.observer, logger),
		application.engine, logger)

	interval := application.prefs.SyncInterval()
	if interval <= 0 {
		interval = cfg.Sync.Interval
	}
	effective := scheduler.SchedulePeriodic(interval)

	if !jsonOutput {
		printSuccess("Watching; syncing every %s", effective)
	}

	// Initial pass so a fresh start does not wait a full interval.
	application.engine.RequestSync(ctx)

	states := application.engine.StateStream()
	for {
		select {
		case <-ctx.Done():
			application.service.Wait()
			return nil
		case state := <-states:
			logger.WithField("state", string(state)).Info("Engine state changed")
		}
	}
}
