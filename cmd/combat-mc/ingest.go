package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"combat-mc/internal/config"
	"combat-mc/internal/logging"
	"combat-mc/internal/results"
)

var (
	ingestInput     string
	ingestConfig    string
	ingestBatch     string
	ingestSize      int
	ingestPrintOnly bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Forward a JSONL trial log to the configured sinks",
	Long:  "ingest feeds trials from a log file written by run back into GreptimeDB or STDOUT.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Default("")
		if ingestConfig != "" {
			var err error
			if cfg, err = config.Load(ingestConfig); err != nil {
				return err
			}
		}
		cfg.Output.LogFile = ""

		if ingestPrintOnly {
			cfg.Output.Greptime = nil
		}
		mode := sinkNone
		if cfg.Output.Greptime == nil || cfg.Output.Greptime.Endpoint == "" {
			mode = sinkStdout
		}
		mw, err := newWriters(cfg, mode, "", false)
		if err != nil {
			return err
		}
		defer mw.Close()

		batch := ingestBatch
		if batch == "" {
			batch = uuid.NewString()
		}
		mw.BeginBatch(batch, time.Now(), 0)
		n, err := results.IngestLogFile(ingestInput, mw, ingestSize)
		if err != nil {
			return fmt.Errorf("ingest %s after %d trials: %w", ingestInput, n, err)
		}
		logging.FromContext(cmd.Context()).Info("log ingested", "trials", n, "batch", batch)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestInput, "input", "", "Path to a JSONL trial log")
	ingestCmd.Flags().StringVar(&ingestConfig, "config", "", "Batch configuration with the greptime output section")
	ingestCmd.Flags().StringVar(&ingestBatch, "batch", "", "Batch id tag for ingested rows (random when empty)")
	ingestCmd.Flags().IntVar(&ingestSize, "batch-size", 100, "Trials per write")
	ingestCmd.Flags().BoolVar(&ingestPrintOnly, "print-only", false, "Print trials to STDOUT instead of writing to DB")
	ingestCmd.MarkFlagRequired("input")
}
