package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/xiaoyuanzhu-com/session-title/config"
	"github.com/xiaoyuanzhu-com/session-title/log"
)

var (
	// Global flags
	verbose    bool
	remoteURL  string
	secretKey  string
	ledgerPath string
	timeout    time.Duration

	// show flags
	providedTitle string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "session-title",
	Short: "Session title store and title resolution client",
	Long: `session-title runs the chat session store and resolves session titles
against it.

"serve" starts the HTTP store. The other commands act as a client: they bind
a session, reconcile its title with the store and the local manual-edit
ledger, and save or auto-generate titles.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		if verbose {
			log.SetLevel("debug")
		}
		if remoteURL == "" {
			remoteURL = cfg.RemoteBaseURL
		}
		if secretKey == "" {
			secretKey = cfg.SecretKey
		}
		if ledgerPath == "" {
			ledgerPath = cfg.LedgerPath
		}
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the session store HTTP server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var deriveCmd = &cobra.Command{
	Use:   "derive <text...>",
	Short: "Print the title derived from a first message",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDerive,
}

var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Resolve and print a session's title",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var renameCmd = &cobra.Command{
	Use:   "rename <session-id> <title>",
	Short: "Save a title entered by hand",
	Args:  cobra.ExactArgs(2),
	RunE:  runRename,
}

var firstMessageCmd = &cobra.Command{
	Use:   "first-message <session-id> <text>",
	Short: "Post a user message and auto-generate the title from it",
	Args:  cobra.ExactArgs(2),
	RunE:  runFirstMessage,
}

var editedCmd = &cobra.Command{
	Use:   "edited",
	Short: "List sessions the local ledger marks as titled by hand",
	Args:  cobra.NoArgs,
	RunE:  runEdited,
}

func init() {
	cfg := config.Get()

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&remoteURL, "remote", "", "Session store API base URL (or set REMOTE_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&secretKey, "secret-key", "", "Shared secret (or set SECRET_KEY)")
	rootCmd.PersistentFlags().StringVar(&ledgerPath, "ledger", "", "Manual-edit ledger database path")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", cfg.FetchTimeout+cfg.PersistTimeout, "Overall operation timeout")

	showCmd.Flags().StringVar(&providedTitle, "provided", "", "Title already known to the caller, e.g. from a list view")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(deriveCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(renameCmd)
	rootCmd.AddCommand(firstMessageCmd)
	rootCmd.AddCommand(editedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
