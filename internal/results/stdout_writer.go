package results

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"combat-mc/internal/engine"
	"combat-mc/internal/montecarlo"
)

const (
	colorReset  = "\x1b[0m"
	colorRed    = "\x1b[31m"
	colorGreen  = "\x1b[32m"
	colorYellow = "\x1b[33m"
	colorBlue   = "\x1b[34m"
	colorGray   = "\x1b[90m"
)

var resultColors = map[string]string{
	engine.ResultLaunch: colorYellow,
	engine.ResultKill:   colorRed,
	engine.ResultMiss:   colorGray,
}

// StdoutWriter prints trial summaries and engagement events. Without color it emits JSON lines.
type StdoutWriter struct {
	out      io.Writer
	colorize bool
	events   bool
	mu       sync.Mutex
}

// NewStdoutWriter writes to os.Stdout. events also prints every engagement event.
func NewStdoutWriter(colorize, events bool) *StdoutWriter {
	return &StdoutWriter{out: os.Stdout, colorize: colorize, events: events}
}

// WriteTrial prints a single trial.
func (w *StdoutWriter) WriteTrial(r montecarlo.TrialResult) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.colorize {
		data, err := json.Marshal(r)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w.out, string(data))
		return err
	}
	_, err := fmt.Fprintln(w.out, TrialLine(r, true))
	return err
}

// WriteEvent prints an engagement event when event output is enabled.
func (w *StdoutWriter) WriteEvent(trial int, ev montecarlo.EngagementEvent) error {
	if !w.events {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.colorize {
		data, err := json.Marshal(EventRow{Trial: trial, EngagementEvent: ev})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w.out, string(data))
		return err
	}
	_, err := fmt.Fprintf(w.out, "  %s\n", EventLine(ev, true))
	return err
}

// TrialLine renders a one-line trial summary.
func TrialLine(r montecarlo.TrialResult, color bool) string {
	paint := func(c, s string) string {
		if !color {
			return s
		}
		return c + s + colorReset
	}
	var b strings.Builder
	fmt.Fprintf(&b, "trial %-4d seed %-6d t=%7.1fs", r.RunIndex, r.Seed, r.SimTimeFinal)

	counts := map[string]int{}
	for _, ev := range r.EngagementLog {
		counts[ev.Result]++
	}
	fmt.Fprintf(&b, "  launch %s kill %s miss %s",
		paint(colorYellow, fmt.Sprint(counts[engine.ResultLaunch])),
		paint(colorRed, fmt.Sprint(counts[engine.ResultKill])),
		paint(colorGray, fmt.Sprint(counts[engine.ResultMiss])))

	alive, total := map[string]int{}, map[string]int{}
	for _, s := range r.EntitySurvival {
		total[s.Team]++
		if s.Alive {
			alive[s.Team]++
		}
	}
	teams := make([]string, 0, len(total))
	for t := range total {
		teams = append(teams, t)
	}
	sort.Strings(teams)
	for _, t := range teams {
		c := colorGreen
		if t == engine.TeamBlue {
			c = colorBlue
		} else if t == engine.TeamRed {
			c = colorRed
		}
		fmt.Fprintf(&b, "  %s %d/%d", paint(c, t), alive[t], total[t])
	}
	if r.Error != nil {
		fmt.Fprintf(&b, "  %s", paint(colorRed, r.Error.Error()))
	}
	return b.String()
}

// EventLine renders one engagement event.
func EventLine(ev montecarlo.EngagementEvent, color bool) string {
	result := ev.Result
	if color {
		if c, ok := resultColors[result]; ok {
			result = c + result + colorReset
		}
	}
	return fmt.Sprintf("[%7.1fs] %-4s %-6s %s (%s) -> %s", ev.Time, ev.WeaponType, result, ev.SourceName, ev.SourceTeam, ev.TargetName)
}
