// YAML config loader with CUE validation integration
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed schema/batch.cue
var batchSchema []byte

// Defaults applied to fields left empty in a batch file.
const (
	DefaultNumRuns    = 100
	DefaultBaseSeed   = 42
	DefaultMaxSimTime = 600.0
	DefaultStepSize   = 0.1
	DefaultChunkSize  = 500
	DefaultTrialPause = 10 * time.Millisecond
	DefaultAdminAddr  = ":8080"
)

// Greptime configures the GreptimeDB result sink.
type Greptime struct {
	Endpoint        string `yaml:"endpoint"`
	Database        string `yaml:"database"`
	TrialTable      string `yaml:"trial_table"`
	EngagementTable string `yaml:"engagement_table"`
}

// Output selects where trial results are written. Empty fields disable that sink.
type Output struct {
	ResultsFile string    `yaml:"results_file"`
	LogFile     string    `yaml:"log_file"`
	SQLitePath  string    `yaml:"sqlite_path"`
	Greptime    *Greptime `yaml:"greptime"`
}

// BatchFile is the root configuration of a Monte Carlo batch.
type BatchFile struct {
	// Scenario is a built-in scenario name or a path to a scenario file.
	Scenario   string        `yaml:"scenario"`
	NumRuns    int           `yaml:"num_runs"`
	BaseSeed   *int64        `yaml:"base_seed"`
	MaxSimTime float64       `yaml:"max_sim_time"`
	StepSize   float64       `yaml:"step_size"`
	ChunkSize  int           `yaml:"chunk_size"`
	TrialPause time.Duration `yaml:"trial_pause"`
	LogLevel   string        `yaml:"log_level"`
	AdminAddr  string        `yaml:"admin_addr"`
	Output     Output        `yaml:"output"`
}

// Default returns a batch file for the given scenario with every default and environment
// override applied.
func Default(scenario string) *BatchFile {
	cfg := &BatchFile{Scenario: scenario}
	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg
}

// Load loads a YAML batch file and validates it against the embedded CUE schema.
// Relative scenario paths are resolved against the directory of the batch file.
func Load(configPath string) (*BatchFile, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read batch config: %w", err)
	}
	cfg, err := Parse(filepath.Base(configPath), data)
	if err != nil {
		return nil, err
	}
	if ext := filepath.Ext(cfg.Scenario); ext != "" && !filepath.IsAbs(cfg.Scenario) {
		cfg.Scenario = filepath.Join(filepath.Dir(configPath), cfg.Scenario)
	}
	return cfg, nil
}

// Parse validates and decodes a batch file held in memory.
func Parse(name string, data []byte) (*BatchFile, error) {
	if err := ValidateWithCue(name, data, batchSchema, "#Batch"); err != nil {
		return nil, err
	}
	var cfg BatchFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("cannot unmarshal batch config: %w", err)
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	return &cfg, nil
}

// Validate checks values that may have been changed after loading, such as command-line
// overrides.
func (c *BatchFile) Validate() error {
	switch {
	case c.Scenario == "":
		return errors.New("scenario is required")
	case c.NumRuns < 1:
		return fmt.Errorf("num_runs must be at least 1, got %d", c.NumRuns)
	case c.MaxSimTime <= 0:
		return fmt.Errorf("max_sim_time must be positive, got %g", c.MaxSimTime)
	}
	return nil
}

// Seed returns the configured base seed.
func (c *BatchFile) Seed() int64 {
	if c.BaseSeed == nil {
		return DefaultBaseSeed
	}
	return *c.BaseSeed
}

func (c *BatchFile) applyDefaults() {
	if c.NumRuns <= 0 {
		c.NumRuns = DefaultNumRuns
	}
	if c.BaseSeed == nil {
		seed := int64(DefaultBaseSeed)
		c.BaseSeed = &seed
	}
	if c.MaxSimTime <= 0 {
		c.MaxSimTime = DefaultMaxSimTime
	}
	if c.StepSize <= 0 {
		c.StepSize = DefaultStepSize
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.TrialPause == 0 {
		c.TrialPause = DefaultTrialPause
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.AdminAddr == "" {
		c.AdminAddr = DefaultAdminAddr
	}
	if g := c.Output.Greptime; g != nil {
		if g.Database == "" {
			g.Database = "public"
		}
		if g.TrialTable == "" {
			g.TrialTable = "mc_trials"
		}
		if g.EngagementTable == "" {
			g.EngagementTable = "mc_engagements"
		}
	}
}

// applyEnv lets deployment environments override sink and log settings.
func (c *BatchFile) applyEnv() {
	if lvl := os.Getenv("MC_LOG_LEVEL"); lvl != "" {
		c.LogLevel = lvl
	}
	if ep := os.Getenv("GREPTIMEDB_ENDPOINT"); ep != "" {
		if c.Output.Greptime == nil {
			c.Output.Greptime = &Greptime{Database: "public", TrialTable: "mc_trials", EngagementTable: "mc_engagements"}
		}
		c.Output.Greptime.Endpoint = ep
	}
}
