package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"combat-mc/internal/logging"
)

var (
	logLevel   string
	logFile    string
	logCleanup = func() {}
)

var rootCmd = &cobra.Command{
	Use:   "combat-mc",
	Short: "Monte Carlo batch runner for engagement simulations",
	Long:  "combat-mc runs batches of deterministically seeded engagement trials and reports survival and weapon statistics.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var w io.Writer = os.Stderr
		if logFile != "" {
			f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			w = f
			logCleanup = func() { f.Close() }
		}
		level := logLevel
		if env := os.Getenv("MC_LOG_LEVEL"); env != "" && !cmd.Flags().Changed("log-level") {
			level = env
		}
		cmd.SetContext(logging.NewContext(cmd.Context(), logging.NewWithWriter(level, w)))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logCleanup()
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to this file instead of stderr")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(ingestCmd)
}
