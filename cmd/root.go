// Package cmd implements the sage command line interface.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/quorra0/sage/internal/app"
	"github.com/quorra0/sage/internal/config"
	"github.com/quorra0/sage/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "sage",
	Short: "Sage - retrieval-augmented question answering over your documents",
	Long: `Sage answers questions grounded in your own documents.

Ingest documents to index them, then ask one-shot questions or start a chat
session with memory. Every answer cites the passages it was built from. A
knowledge graph of entities and relations is maintained alongside the index.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// initLogger builds the process logger. DEBUG in the environment switches to
// debug level; logs go to stderr so stdout stays clean for answers.
func initLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	return log.NewWithWriter(os.Stderr, log.Config{Level: level})
}

// setup loads configuration and initializes the application. The caller
// must Close the returned app.
func setup(cmd *cobra.Command) (*app.App, error) {
	logger := initLogger()
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	a, err := app.Setup(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing application: %w", err)
	}
	return a, nil
}
