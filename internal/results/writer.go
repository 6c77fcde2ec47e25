// Package results persists and displays Monte Carlo trial results.
package results

import (
	"context"
	"time"

	"combat-mc/internal/logging"
	"combat-mc/internal/montecarlo"
)

// TrialWriter receives every completed trial.
type TrialWriter interface {
	WriteTrial(montecarlo.TrialResult) error
}

// Optional: writers may support batch mode.
type batchTrialWriter interface {
	WriteTrials([]montecarlo.TrialResult) error
}

// EventWriter receives engagement events while a trial is still running.
type EventWriter interface {
	WriteEvent(trial int, ev montecarlo.EngagementEvent) error
}

// BatchAware writers are told which batch the following trials belong to.
type BatchAware interface {
	BeginBatch(id string, started time.Time, total int)
}

// WriteAll writes results to w, using batch mode when w supports it.
func WriteAll(w TrialWriter, results []montecarlo.TrialResult) error {
	if bw, ok := w.(batchTrialWriter); ok {
		return bw.WriteTrials(results)
	}
	for _, r := range results {
		if err := w.WriteTrial(r); err != nil {
			return err
		}
	}
	return nil
}

// Attach makes cfg stream each completed trial into w and, for BatchAware writers, announce
// the batch before its first trial. Write failures are logged and never abort the batch. Hooks
// already set keep running first.
func Attach(ctx context.Context, cfg *montecarlo.BatchConfig, w TrialWriter) {
	logger := logging.FromContext(ctx)
	if ba, ok := w.(BatchAware); ok {
		prevStart := cfg.OnStart
		cfg.OnStart = func(id string, started time.Time, total int) {
			if prevStart != nil {
				prevStart(id, started, total)
			}
			ba.BeginBatch(id, started, total)
		}
	}
	prev := cfg.OnTrial
	cfg.OnTrial = func(r montecarlo.TrialResult) {
		if prev != nil {
			prev(r)
		}
		if err := w.WriteTrial(r); err != nil {
			logger.Error("trial write failed", "trial", r.RunIndex, "error", err)
		}
	}
}

// EventHook adapts w to a controller event hook, logging write failures.
func EventHook(ctx context.Context, w EventWriter) func(int, montecarlo.EngagementEvent) {
	logger := logging.FromContext(ctx)
	return func(trial int, ev montecarlo.EngagementEvent) {
		if err := w.WriteEvent(trial, ev); err != nil {
			logger.Error("event write failed", "trial", trial, "error", err)
		}
	}
}
