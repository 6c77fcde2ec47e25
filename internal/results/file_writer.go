package results

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"combat-mc/internal/montecarlo"
)

// EventRow is one engagement event line of the JSONL event log.
type EventRow struct {
	Batch string `json:"batch,omitempty"`
	Trial int    `json:"trial"`
	montecarlo.EngagementEvent
}

// FileWriter writes trials and engagement events to JSONL files.
type FileWriter struct {
	mu        sync.Mutex
	trialFile *os.File
	eventFile *os.File
	trialEnc  *json.Encoder
	eventEnc  *json.Encoder
	batch     string
}

// NewFileWriter creates a FileWriter. eventPath may be empty to skip the event log.
func NewFileWriter(trialPath, eventPath string) (*FileWriter, error) {
	tf, err := os.Create(trialPath)
	if err != nil {
		return nil, err
	}
	fw := &FileWriter{trialFile: tf, trialEnc: json.NewEncoder(tf)}
	if eventPath != "" {
		ef, err := os.Create(eventPath)
		if err != nil {
			tf.Close()
			return nil, err
		}
		fw.eventFile = ef
		fw.eventEnc = json.NewEncoder(ef)
	}
	return fw, nil
}

// BeginBatch tags following event lines with the batch id.
func (f *FileWriter) BeginBatch(id string, _ time.Time, _ int) {
	f.mu.Lock()
	f.batch = id
	f.mu.Unlock()
}

// WriteTrial logs a single trial.
func (f *FileWriter) WriteTrial(r montecarlo.TrialResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.trialEnc.Encode(r)
}

// WriteTrials logs multiple trials.
func (f *FileWriter) WriteTrials(rs []montecarlo.TrialResult) error {
	for _, r := range rs {
		if err := f.WriteTrial(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteEvent logs a single engagement event, if enabled.
func (f *FileWriter) WriteEvent(trial int, ev montecarlo.EngagementEvent) error {
	if f.eventEnc == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.eventEnc.Encode(EventRow{Batch: f.batch, Trial: trial, EngagementEvent: ev})
}

// Close closes any underlying files.
func (f *FileWriter) Close() error {
	var err error
	if f.trialFile != nil {
		if e := f.trialFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	if f.eventFile != nil {
		if e := f.eventFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
