package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/TheMichaelB/notesync/internal/services/sync"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Configure the periodic sync interval",
	Long: `Schedule stores the interval used by sync --watch. Intervals below
15 minutes are raised to that minimum.`,
	Example: `  notesync schedule --interval 30m
  notesync schedule --cancel`,
	RunE: runSchedule,
}

var (
	scheduleInterval time.Duration
	scheduleCancel   bool
)

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().DurationVarP(&scheduleInterval, "interval", "i", 0,
		"Sync interval, e.g. 30m or 1h")
	scheduleCmd.Flags().BoolVar(&scheduleCancel, "cancel", false,
		"Remove the periodic schedule")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	application, err := newApp(context.Background())
	if err != nil {
		return err
	}
	defer application.Close()

	if scheduleCancel {
		if err := application.prefs.SetSyncInterval(0); err != nil {
			return err
		}
		if jsonOutput {
			printJSON(map[string]interface{}{"scheduled": false})
		} else {
			printSuccess("Periodic sync cancelled")
		}
		return nil
	}

	if scheduleInterval <= 0 {
		return errors.New("either --interval or --cancel is required")
	}

	effective := scheduleInterval
	if effective < sync.MinSyncInterval {
		printWarning("Interval %s is below the %s minimum, using the minimum",
			scheduleInterval, sync.MinSyncInterval)
		effective = sync.MinSyncInterval
	}

	if err := application.prefs.SetSyncInterval(effective); err != nil {
		return err
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"scheduled": true,
			"interval":  effective.String(),
		})
	} else {
		printSuccess("Periodic sync every %s", effective)
	}
	return nil
}
