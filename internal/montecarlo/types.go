// Package montecarlo runs batches of deterministically seeded simulation trials and turns each
// trial's engine state into engagement logs and survival snapshots.
package montecarlo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"combat-mc/internal/scenario"
)

// Defaults applied to zero-valued BatchConfig fields.
const (
	DefaultNumRuns    = 100
	DefaultBaseSeed   = 42
	DefaultMaxSimTime = 600.0
	DefaultStepSize   = 0.1
	DefaultChunkSize  = 500
	DefaultTrialPause = 10 * time.Millisecond
)

// BatchConfig describes one batch. The controller copies it at start.
type BatchConfig struct {
	Scenario *scenario.Scenario
	NumRuns  int
	// BaseSeed is used verbatim, including zero. Callers wanting the default seed set it to
	// DefaultBaseSeed.
	BaseSeed   int64
	MaxSimTime float64
	StepSize   float64
	ChunkSize  int
	// OnProgress is called after every trial with pct = round(100*completed/total).
	OnProgress func(completed, total, pct int)
	// OnComplete is called once with the full ordered result list when every trial finished.
	OnComplete func(results []TrialResult)
	// OnStart, when set, is called with the batch id before the first trial runs.
	OnStart func(id string, started time.Time, total int)
	// OnTrial, when set, observes each trial result as soon as it is recorded.
	OnTrial func(r TrialResult)
}

func (c BatchConfig) withDefaults() BatchConfig {
	if c.NumRuns <= 0 {
		c.NumRuns = DefaultNumRuns
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
	return c
}

// EngagementEvent is one normalized launch, kill or miss.
type EngagementEvent struct {
	Time       float64 `json:"time"`
	SourceID   string  `json:"sourceId"`
	SourceName string  `json:"sourceName"`
	SourceTeam string  `json:"sourceTeam"`
	TargetID   string  `json:"targetId"`
	TargetName string  `json:"targetName"`
	Result     string  `json:"result"`
	WeaponType string  `json:"weaponType"`
}

// SurvivalRecord is the end-of-trial status of one entity.
type SurvivalRecord struct {
	Name      string `json:"name"`
	Team      string `json:"team"`
	Type      string `json:"type"`
	Role      string `json:"role,omitempty"`
	Alive     bool   `json:"alive"`
	Destroyed bool   `json:"destroyed"`
}

// TrialResult is the frozen outcome of one trial.
type TrialResult struct {
	RunIndex       int                       `json:"runIndex"`
	Seed           int64                     `json:"seed"`
	EngagementLog  []EngagementEvent         `json:"engagementLog"`
	EntitySurvival map[string]SurvivalRecord `json:"entitySurvival"`
	SimTimeFinal   float64                   `json:"simTimeFinal"`
	Error          *TrialError               `json:"error"`
}

// DedupState holds the keys of every event already emitted in one trial.
type DedupState map[string]struct{}

// NewDedupState returns an empty per-trial dedup set.
func NewDedupState() DedupState { return make(DedupState) }

// Trial error kinds.
const (
	KindBuild = "build"
	KindTick  = "tick"
)

var (
	// ErrBatchRunning is returned when a batch is started while another one is running.
	ErrBatchRunning = errors.New("batch already running")
	// ErrCancelled matches every CancellationError.
	ErrCancelled = errors.New("batch cancelled")
)

// TrialError records why a trial did not complete normally. Kind is KindBuild or KindTick.
type TrialError struct {
	Kind    string
	SimTime float64
	Err     error
}

func (e *TrialError) Error() string {
	if e.Kind == KindTick {
		return fmt.Sprintf("tick error at t=%.1fs: %v", e.SimTime, e.Err)
	}
	return fmt.Sprintf("build error: %v", e.Err)
}

func (e *TrialError) Unwrap() error { return e.Err }

// MarshalText renders the error as the message stored in result documents.
func (e *TrialError) MarshalText() ([]byte, error) { return []byte(e.Error()), nil }

// UnmarshalText parses a message produced by MarshalText. Tick times keep the single decimal
// of the message.
func (e *TrialError) UnmarshalText(b []byte) error {
	msg := string(b)
	head, cause, _ := strings.Cut(msg, ": ")
	switch {
	case strings.HasPrefix(head, "tick error at t="):
		t, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimPrefix(head, "tick error at t="), "s"), 64)
		if err != nil {
			return fmt.Errorf("bad tick time in trial error %q: %w", msg, err)
		}
		e.Kind, e.SimTime = KindTick, t
	case head == "build error":
		e.Kind = KindBuild
	default:
		return fmt.Errorf("unrecognized trial error %q", msg)
	}
	e.Err = errors.New(cause)
	return nil
}

// CancellationError is returned by a job whose batch was cancelled.
type CancellationError struct {
	// Completed is the number of trials that had finished when cancellation was observed.
	Completed int
	Total     int
}

func (e *CancellationError) Error() string {
	return fmt.Sprintf("batch cancelled after %d of %d trials", e.Completed, e.Total)
}

func (e *CancellationError) Is(target error) bool { return target == ErrCancelled }
