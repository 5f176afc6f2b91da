package main

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/TheMichaelB/notesync/internal/creds"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store credentials for the sync service",
	Long:  `Login stores the user id and API token used by sync operations.`,
	Example: `  notesync login --user user-123
  notesync login --user user-123 --token <api-token>`,
	RunE: runLogin,
}

var (
	loginUser  string
	loginToken string
)

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().StringVarP(&loginUser, "user", "u", "",
		"User id (required)")
	loginCmd.Flags().StringVarP(&loginToken, "token", "t", "",
		"API token (will prompt if not provided)")

	_ = loginCmd.MarkFlagRequired("user")
}

func runLogin(cmd *cobra.Command, args []string) error {
	if loginToken == "" {
		var err error
		loginToken, err = promptSecret("API token: ")
		if err != nil {
			return fmt.Errorf("read token: %w", err)
		}
	}

	info := &creds.TokenInfo{
		UserID: loginUser,
		Token:  loginToken,
	}
	if err := creds.SaveToken(cfg.Storage.TokenFile, info); err != nil {
		return err
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"success": true,
			"user_id": loginUser,
		})
	} else {
		printSuccess("Credentials stored for %s", loginUser)
	}
	return nil
}

func promptSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	// Read without echo
	secret, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)

	if err != nil {
		return "", err
	}
	return string(secret), nil
}
