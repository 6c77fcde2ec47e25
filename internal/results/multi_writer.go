package results

import (
	"time"

	"combat-mc/internal/montecarlo"
)

// MultiWriter fans out trials and events to multiple writers.
type MultiWriter struct {
	writers []TrialWriter
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(ws ...TrialWriter) *MultiWriter {
	return &MultiWriter{writers: ws}
}

// Add appends another writer.
func (mw *MultiWriter) Add(w TrialWriter) { mw.writers = append(mw.writers, w) }

// Len returns the number of writers.
func (mw *MultiWriter) Len() int { return len(mw.writers) }

// WriteTrial sends a trial to all writers.
func (mw *MultiWriter) WriteTrial(r montecarlo.TrialResult) error {
	for _, w := range mw.writers {
		if err := w.WriteTrial(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteTrials sends multiple trials to all writers, using batch if supported.
func (mw *MultiWriter) WriteTrials(rs []montecarlo.TrialResult) error {
	for _, w := range mw.writers {
		if err := WriteAll(w, rs); err != nil {
			return err
		}
	}
	return nil
}

// WriteEvent forwards an engagement event to the writers that accept events.
func (mw *MultiWriter) WriteEvent(trial int, ev montecarlo.EngagementEvent) error {
	for _, w := range mw.writers {
		if ew, ok := w.(EventWriter); ok {
			if err := ew.WriteEvent(trial, ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// BeginBatch forwards the batch identity to batch-aware writers.
func (mw *MultiWriter) BeginBatch(id string, started time.Time, total int) {
	for _, w := range mw.writers {
		if bw, ok := w.(BatchAware); ok {
			bw.BeginBatch(id, started, total)
		}
	}
}

// Close closes every writer that can be closed and returns the first error.
func (mw *MultiWriter) Close() error {
	var err error
	for _, w := range mw.writers {
		if c, ok := w.(interface{ Close() error }); ok {
			if e := c.Close(); e != nil && err == nil {
				err = e
			}
		}
	}
	return err
}
