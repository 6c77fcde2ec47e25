package main

import (
	"github.com/spf13/cobra"

	"combat-mc/internal/config"
	"combat-mc/internal/montecarlo"
	"combat-mc/internal/scenario"
)

// batchFlags are shared by every command that builds a batch.
type batchFlags struct {
	configPath string
	scenario   string
	runs       int
	seed       int64
	maxTime    float64
}

func (f *batchFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.configPath, "config", "", "Path to batch configuration YAML")
	cmd.Flags().StringVar(&f.scenario, "scenario", "", "Built-in scenario name or scenario file (overrides config)")
	cmd.Flags().IntVar(&f.runs, "runs", config.DefaultNumRuns, "Number of trials (overrides config)")
	cmd.Flags().Int64Var(&f.seed, "seed", config.DefaultBaseSeed, "Base seed; trial i uses seed+i (overrides config)")
	cmd.Flags().Float64Var(&f.maxTime, "max-time", config.DefaultMaxSimTime, "Simulated seconds per trial (overrides config)")
}

// load returns the batch file with explicitly set flags applied on top.
func (f *batchFlags) load(cmd *cobra.Command) (*config.BatchFile, error) {
	var cfg *config.BatchFile
	if f.configPath != "" {
		var err error
		if cfg, err = config.Load(f.configPath); err != nil {
			return nil, err
		}
	} else {
		cfg = config.Default(f.scenario)
	}
	flags := cmd.Flags()
	if flags.Changed("scenario") {
		cfg.Scenario = f.scenario
	}
	if flags.Changed("runs") {
		cfg.NumRuns = f.runs
	}
	if flags.Changed("seed") {
		seed := f.seed
		cfg.BaseSeed = &seed
	}
	if flags.Changed("max-time") {
		cfg.MaxSimTime = f.maxTime
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// batchConfig resolves the scenario and converts cfg to controller input.
func batchConfig(cfg *config.BatchFile) (montecarlo.BatchConfig, error) {
	sc, err := scenario.Resolve(cfg.Scenario)
	if err != nil {
		return montecarlo.BatchConfig{}, err
	}
	return montecarlo.BatchConfig{
		Scenario:   sc,
		NumRuns:    cfg.NumRuns,
		BaseSeed:   cfg.Seed(),
		MaxSimTime: cfg.MaxSimTime,
		StepSize:   cfg.StepSize,
		ChunkSize:  cfg.ChunkSize,
	}, nil
}
