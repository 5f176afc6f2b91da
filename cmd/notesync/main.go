// Command notesync synchronizes voice notes between the local store and
// the configured remote backend.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/TheMichaelB/notesync/internal/config"
	"github.com/TheMichaelB/notesync/internal/events"
)

var rootCmd = &cobra.Command{
	Use:   "notesync",
	Short: "Offline-first voice note synchronization",
	Long: `Notesync keeps locally captured voice notes in sync with a remote
store. Notes written while offline are queued and pushed automatically
when connectivity returns.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

var (
	cfgFile    string
	logLevel   string
	jsonOutput bool

	cfg    *config.Config
	logger *events.Logger
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"Config file path (default: notesync.json, ~/.config/notesync/config.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Output results as JSON")
}

func initConfig() error {
	loaded, err := config.NewLoader(cfgFile).Load()
	if err != nil {
		return err
	}
	cfg = loaded

	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	logOutput := os.Stderr
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		logOutput = f
	}
	logger = events.New(events.ParseLevel(cfg.Log.Level), cfg.Log.Format, logOutput)
	events.SetDefault(logger)

	return cfg.EnsureDirectories()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}

func printSuccess(format string, args ...interface{}) {
	color.New(color.FgGreen).Fprintf(os.Stdout, format+"\n", args...)
}

func printWarning(format string, args ...interface{}) {
	color.New(color.FgYellow).Fprintf(os.Stderr, format+"\n", args...)
}

func printError(format string, args ...interface{}) {
	color.New(color.FgRed).Fprintf(os.Stderr, format+"\n", args...)
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		printError("marshal output: %v", err)
		return
	}
	fmt.Println(string(data))
}
