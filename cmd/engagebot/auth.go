package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"engagebot/pkg/auth"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Twitter credentials",
	Long: `Manage stored Twitter credentials.

Credentials are kept in the system keychain when one is available, falling
back to an encrypted file under the user config directory. Tokens are never
written to the config file or logged.`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store credentials for an account",
	Long: `Store the auth token and CSRF token for a Twitter account.

Both values come from an authenticated browser session: auth_token and ct0
from the twitter.com cookies. Input is read with echo disabled.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return authLogin()
	},
}

var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return authList()
	},
}

var authRemoveCmd = &cobra.Command{
	Use:   "remove <username>",
	Short: "Remove a stored account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return authRemove(args[0])
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authListCmd)
	authCmd.AddCommand(authRemoveCmd)
}

func authLogin() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Print("Username: ")
	username, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}
	username = strings.TrimSpace(username)

	authToken, err := readSecret("Auth token (auth_token cookie): ")
	if err != nil {
		return err
	}
	csrfToken, err := readSecret("CSRF token (ct0 cookie): ")
	if err != nil {
		return err
	}

	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential storage: %w", err)
	}

	account := &auth.Account{
		Username:     username,
		AuthToken:    authToken,
		CSRFToken:    csrfToken,
		LastModified: time.Now(),
	}
	if err := manager.Store(account); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	fmt.Printf("Credentials stored for @%s\n", username)
	return nil
}

func authList() error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential storage: %w", err)
	}

	accounts, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	if len(accounts) == 0 {
		fmt.Println("No stored accounts. Run 'engagebot auth login' to add one.")
		return nil
	}

	for _, account := range accounts {
		fmt.Printf("@%s (updated %s)\n", account.Username,
			account.LastModified.Format("2006-01-02 15:04"))
	}
	return nil
}

func authRemove(username string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential storage: %w", err)
	}

	if err := manager.Delete(username); err != nil {
		return fmt.Errorf("failed to remove account: %w", err)
	}
	fmt.Printf("Removed credentials for @%s\n", username)
	return nil
}

// readSecret prompts for a value with terminal echo disabled.
func readSecret(prompt string) (string, error) {
	fmt.Print(prompt)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	value := strings.TrimSpace(string(raw))
	if value == "" {
		return "", fmt.Errorf("value cannot be empty")
	}
	return value, nil
}
