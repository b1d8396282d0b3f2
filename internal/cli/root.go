// Package cli implements the docbatch command line client.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/me/docbatch/internal/logging"
)

var (
	flagServer    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
	client *Client
)

// defaultServer returns the default server URL, checking DOCBATCH_SERVER env var first.
func defaultServer() string {
	if s := os.Getenv("DOCBATCH_SERVER"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

// NewRootCmd creates the root cobra command for the docbatch CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "docbatch",
		Short: "docbatch — operation queue for document edits",
		Long:  "docbatch submits, monitors, and cancels batched document-editing operations.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				flagLogLevel = "debug"
			}
			logger = logging.New(flagLogLevel, flagLogFormat)
			client = NewClient(flagServer, logger)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagServer, "server", defaultServer(), "docbatch server URL (or DOCBATCH_SERVER env)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newSubmitCmd(),
		newStatusCmd(),
		newWaitCmd(),
		newCancelCmd(),
		newStatsCmd(),
		newClearCmd(),
		newAuditCmd(),
	)

	return root
}
