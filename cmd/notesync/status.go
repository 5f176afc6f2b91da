package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show engine state, pending work and recorded errors",
	RunE:  runStatus,
}

var statusClear bool

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVar(&statusClear, "clear-errors", false,
		"Clear the recorded error list")
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	application, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	if statusClear {
		application.engine.ClearErrors()
	}

	snapshot := application.engine.Snapshot()
	reachable := application.observer.Reachable(ctx)
	enabled := application.prefs.SyncEnabled()

	if jsonOutput {
		printJSON(map[string]interface{}{
			"state":          snapshot.State,
			"sync_enabled":   enabled,
			"reachable":      reachable,
			"last_sync_time": snapshot.LastSyncTime,
			"errors":         snapshot.Errors,
		})
		return nil
	}

	fmt.Printf("State:      %s\n", snapshot.State)
	fmt.Printf("Enabled:    %t\n", enabled)
	fmt.Printf("Reachable:  %t\n", reachable)

	if snapshot.LastSyncTime.IsZero() {
		fmt.Println("Last sync:  never")
	} else {
		fmt.Printf("Last sync:  %s (%s ago)\n",
			snapshot.LastSyncTime.Format(time.RFC3339),
			time.Since(snapshot.LastSyncTime).Round(time.Second))
	}

	if len(snapshot.Errors) > 0 {
		fmt.Printf("Errors:     %d\n", len(snapshot.Errors))
		for _, serr := range snapshot.Errors {
			printWarning("  %s", serr.String())
		}
	}
	return nil
}
