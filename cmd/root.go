// Package cmd provides the command-line host for the Jira flow nodes.
package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// newRootCmd builds the command tree. Every call returns fresh flag state.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "jiraflow",
		Short: "Jiraflow drives Jira REST operations from JSON messages",
		Long: `Jiraflow runs Jira search, issue and comment operations as message-driven nodes.

Each node takes a JSON message, performs one Jira REST operation and emits the
resulting messages as JSON lines on stdout. Progress and failures are logged to
stderr.

The Jira endpoint and credentials are read from the environment (JIRA_URL,
JIRA_USERNAME, JIRA_PASSWORD or JIRA_TOKEN), an optional .env file, or a
config file passed with --config.

Example:
  echo '{"jql":"project = TEST"}' | jiraflow run jira-search
  jiraflow get TEST-1`,
		SilenceUsage: true,
	}

	// Add persistent flags that will be available to all commands
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (yaml, json or toml)")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("metrics-addr", "", "address serving Prometheus metrics, e.g. ':9090'")
	rootCmd.PersistentFlags().Bool("insecure", false, "skip TLS certificate verification")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newNodesCmd())
	rootCmd.AddCommand(newSearchCmd())
	rootCmd.AddCommand(newGetCmd())
	rootCmd.AddCommand(newCreateCmd())
	rootCmd.AddCommand(newEditCmd())
	rootCmd.AddCommand(newCommentCmd())

	return rootCmd
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return newRootCmd().ExecuteContext(ctx)
}

