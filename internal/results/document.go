package results

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"combat-mc/internal/montecarlo"
)

// DocumentConfig echoes the batch parameters in a results document.
type DocumentConfig struct {
	Scenario   string  `json:"scenario,omitempty"`
	NumRuns    int     `json:"numRuns"`
	BaseSeed   int64   `json:"baseSeed"`
	MaxSimTime float64 `json:"maxSimTime"`
	StepSize   float64 `json:"stepSize,omitempty"`
}

// Survival is the serialized survival record; Role is null when the entity has none.
type Survival struct {
	Name      string  `json:"name"`
	Team      string  `json:"team"`
	Type      string  `json:"type"`
	Role      *string `json:"role"`
	Alive     bool    `json:"alive"`
	Destroyed bool    `json:"destroyed"`
}

// Run is one serialized trial.
type Run struct {
	RunIndex       int                          `json:"runIndex"`
	Seed           int64                        `json:"seed"`
	SimTimeFinal   float64                      `json:"simTimeFinal"`
	Error          *string                      `json:"error"`
	EngagementLog  []montecarlo.EngagementEvent `json:"engagementLog"`
	EntitySurvival map[string]Survival          `json:"entitySurvival"`
}

// Document is the JSON results file of a whole batch.
type Document struct {
	Config DocumentConfig `json:"config"`
	Runs   []Run          `json:"runs"`
}

// NewDocument serializes results with the batch parameters that produced them.
func NewDocument(cfg DocumentConfig, results []montecarlo.TrialResult) *Document {
	doc := &Document{Config: cfg, Runs: make([]Run, 0, len(results))}
	for _, r := range results {
		run := Run{
			RunIndex:       r.RunIndex,
			Seed:           r.Seed,
			SimTimeFinal:   r.SimTimeFinal,
			EngagementLog:  r.EngagementLog,
			EntitySurvival: make(map[string]Survival, len(r.EntitySurvival)),
		}
		if run.EngagementLog == nil {
			run.EngagementLog = []montecarlo.EngagementEvent{}
		}
		if r.Error != nil {
			msg := r.Error.Error()
			run.Error = &msg
		}
		for id, s := range r.EntitySurvival {
			rec := Survival{Name: s.Name, Team: s.Team, Type: s.Type, Alive: s.Alive, Destroyed: s.Destroyed}
			if s.Role != "" {
				role := s.Role
				rec.Role = &role
			}
			run.EntitySurvival[id] = rec
		}
		doc.Runs = append(doc.Runs, run)
	}
	return doc
}

// Results converts the document back into trial results.
func (d *Document) Results() []montecarlo.TrialResult {
	out := make([]montecarlo.TrialResult, 0, len(d.Runs))
	for _, run := range d.Runs {
		r := montecarlo.TrialResult{
			RunIndex:       run.RunIndex,
			Seed:           run.Seed,
			SimTimeFinal:   run.SimTimeFinal,
			EngagementLog:  run.EngagementLog,
			EntitySurvival: make(map[string]montecarlo.SurvivalRecord, len(run.EntitySurvival)),
		}
		if run.Error != nil {
			r.Error = parseTrialError(*run.Error, run.SimTimeFinal)
		}
		for id, s := range run.EntitySurvival {
			rec := montecarlo.SurvivalRecord{Name: s.Name, Team: s.Team, Type: s.Type, Alive: s.Alive, Destroyed: s.Destroyed}
			if s.Role != nil {
				rec.Role = *s.Role
			}
			r.EntitySurvival[id] = rec
		}
		out = append(out, r)
	}
	return out
}

func parseTrialError(msg string, simTime float64) *montecarlo.TrialError {
	kind := montecarlo.KindBuild
	if strings.HasPrefix(msg, "tick error") {
		kind = montecarlo.KindTick
	}
	cause := msg
	if _, rest, ok := strings.Cut(msg, ": "); ok {
		cause = rest
	}
	te := &montecarlo.TrialError{Kind: kind, Err: errors.New(cause)}
	if kind == montecarlo.KindTick {
		te.SimTime = simTime
	}
	return te
}

// WriteDocument writes doc as indented JSON to path.
func WriteDocument(path string, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}

// ReadDocument loads a results document written by WriteDocument.
func ReadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode results %s: %w", path, err)
	}
	return &doc, nil
}
