package main

import (
	"context"

	"github.com/spf13/cobra"
)

var enableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Turn sync on",
	RunE: func(cmd *cobra.Command, args []string) error {
		return setEnabled(true)
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Turn sync off",
	Long: `Disable stops all sync activity until re-enabled. Local edits keep
accumulating and are pushed on the first pass after enabling.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return setEnabled(false)
	},
}

func init() {
	rootCmd.AddCommand(enableCmd)
	rootCmd.AddCommand(disableCmd)
}

func setEnabled(enabled bool) error {
	application, err := newApp(context.Background())
	if err != nil {
		return err
	}
	defer application.Close()

	if err := application.engine.SetEnabled(enabled); err != nil {
		return err
	}

	if jsonOutput {
		printJSON(map[string]interface{}{"sync_enabled": enabled})
		return nil
	}
	if enabled {
		printSuccess("Sync enabled")
	} else {
		printSuccess("Sync disabled")
	}
	return nil
}
