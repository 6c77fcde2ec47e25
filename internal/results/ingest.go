package results

import (
	"encoding/json"
	"io"
	"os"

	"combat-mc/internal/montecarlo"
)

// IngestLog reads trials from a JSONL log written by FileWriter and forwards them to w in
// groups of batchSize (1 when batchSize <= 0). It returns the number of trials forwarded.
func IngestLog(r io.Reader, w TrialWriter, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 1
	}
	dec := json.NewDecoder(r)
	pending := make([]montecarlo.TrialResult, 0, batchSize)
	n := 0
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if err := WriteAll(w, pending); err != nil {
			return err
		}
		n += len(pending)
		pending = pending[:0]
		return nil
	}
	for {
		var tr montecarlo.TrialResult
		if err := dec.Decode(&tr); err != nil {
			if err == io.EOF {
				return n, flush()
			}
			return n, err
		}
		pending = append(pending, tr)
		if len(pending) == batchSize {
			if err := flush(); err != nil {
				return n, err
			}
		}
	}
}

// IngestLogFile opens a file and ingests its trials.
func IngestLogFile(path string, w TrialWriter, batchSize int) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return IngestLog(f, w, batchSize)
}
