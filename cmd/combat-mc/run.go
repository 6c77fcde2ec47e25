package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"combat-mc/internal/config"
	"combat-mc/internal/logging"
	"combat-mc/internal/montecarlo"
	"combat-mc/internal/results"
	"combat-mc/internal/store"
	"combat-mc/internal/world"
)

var (
	runFlags     batchFlags
	runPrintOnly bool
	runEvents    bool
	runOutput    string
	runSQLite    string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a Monte Carlo batch",
	Long:  "run executes a batch of seeded trials, streams progress to the terminal and the configured sinks, and prints a summary.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := runFlags.load(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("output") {
			cfg.Output.ResultsFile = runOutput
		}
		if cmd.Flags().Changed("sqlite") {
			cfg.Output.SQLitePath = runSQLite
		}
		bc, err := batchConfig(cfg)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		mode := interactiveMode(runPrintOnly)
		if mode == sinkTUI && logFile == "" {
			// Log lines would corrupt the alternate screen.
			ctx = logging.NewContext(ctx, logging.Discard())
		}

		mw, err := newWriters(cfg, mode, bc.Scenario.Name, runEvents)
		if err != nil {
			return err
		}
		started := time.Now()
		id, res, err := runBatch(ctx, cfg, bc, mw)
		if cerr := mw.Close(); cerr != nil {
			logging.FromContext(ctx).Warn("closing sinks", "error", cerr)
		}
		if err != nil {
			return err
		}

		if err := saveOutputs(ctx, cfg, bc, id, started, res); err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), results.RenderSummary(montecarlo.Analyze(res, bc.MaxSimTime, bc.StepSize)))
		return nil
	},
}

// runBatch runs bc to completion, cancelling it on SIGINT or SIGTERM.
func runBatch(ctx context.Context, cfg *config.BatchFile, bc montecarlo.BatchConfig, mw *results.MultiWriter) (string, []montecarlo.TrialResult, error) {
	logger := logging.FromContext(ctx)
	c := montecarlo.NewController(world.NewBuilder(),
		montecarlo.WithTrialPause(cfg.TrialPause),
		montecarlo.WithEventHook(results.EventHook(ctx, mw)))

	results.Attach(ctx, &bc, mw)
	bc.OnProgress = func(completed, total, pct int) {
		logger.Debug("batch progress", "completed", completed, "total", total, "pct", pct)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	job := c.Start(ctx, bc)
	go func() {
		select {
		case <-sigs:
			logger.Info("interrupt received, cancelling batch")
			c.Cancel()
		case <-job.Done():
		}
	}()

	res, err := job.Wait(context.Background())
	return job.ID(), res, err
}

// saveOutputs writes the results document and the archive entry, when configured.
func saveOutputs(ctx context.Context, cfg *config.BatchFile, bc montecarlo.BatchConfig, id string, started time.Time, res []montecarlo.TrialResult) error {
	logger := logging.FromContext(ctx)
	out := cfg.Output
	if out.ResultsFile != "" {
		doc := results.NewDocument(results.DocumentConfig{
			Scenario:   bc.Scenario.Name,
			NumRuns:    bc.NumRuns,
			BaseSeed:   bc.BaseSeed,
			MaxSimTime: bc.MaxSimTime,
			StepSize:   bc.StepSize,
		}, res)
		if err := results.WriteDocument(out.ResultsFile, doc); err != nil {
			return err
		}
		logger.Info("results written", "path", out.ResultsFile)
	}
	if out.SQLitePath != "" {
		st, err := store.Open(ctx, out.SQLitePath)
		if err != nil {
			return err
		}
		defer st.Close()
		err = st.SaveBatch(ctx, store.Batch{
			ID:         id,
			Scenario:   bc.Scenario.Name,
			NumRuns:    bc.NumRuns,
			BaseSeed:   bc.BaseSeed,
			MaxSimTime: bc.MaxSimTime,
			StepSize:   bc.StepSize,
			StartedAt:  started,
			FinishedAt: time.Now(),
			Status:     store.StatusCompleted,
		}, res)
		if err != nil {
			return err
		}
		logger.Info("batch archived", "path", out.SQLitePath, "batch", id)
	}
	return nil
}

func init() {
	runFlags.register(runCmd)
	runCmd.Flags().BoolVar(&runPrintOnly, "print-only", false, "Print trial lines instead of the interactive TUI")
	runCmd.Flags().BoolVar(&runEvents, "events", false, "Also stream individual engagement events")
	runCmd.Flags().StringVar(&runOutput, "output", "", "Write the results document to this JSON file (overrides config)")
	runCmd.Flags().StringVar(&runSQLite, "sqlite", "", "Archive the batch in this SQLite database (overrides config)")
}
