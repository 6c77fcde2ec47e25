package results

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"combat-mc/internal/montecarlo"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderRow(false).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return cellStyle
		})
}

// RenderSummary formats a batch summary as terminal tables.
func RenderSummary(s montecarlo.Summary) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Batch summary") + "\n")
	fmt.Fprintf(&b, "trials %d  errors %d (build %d, tick %d)  resolved early %d\n",
		s.Trials, s.Errors, s.BuildErrors, s.TickErrors, s.EarlyTerminated)
	fmt.Fprintf(&b, "final sim time: mean %.1fs  min %.1fs  max %.1fs\n", s.MeanSimTime, s.MinSimTime, s.MaxSimTime)

	if len(s.Weapons) > 0 {
		names := make([]string, 0, len(s.Weapons))
		for n := range s.Weapons {
			names = append(names, n)
		}
		sort.Strings(names)
		t := newTable("Weapon", "Launches", "Kills", "Misses", "Kill ratio")
		for _, n := range names {
			w := s.Weapons[n]
			t.Row(n, fmt.Sprint(w.Launches), fmt.Sprint(w.Kills), fmt.Sprint(w.Misses), fmt.Sprintf("%.2f", w.KillRatio))
		}
		b.WriteString(t.Render() + "\n")
	}

	if len(s.Teams) > 0 {
		teams := make([]string, 0, len(s.Teams))
		for n := range s.Teams {
			teams = append(teams, n)
		}
		sort.Strings(teams)
		t := newTable("Team", "Members", "Mean survivors")
		for _, n := range teams {
			ts := s.Teams[n]
			t.Row(n, fmt.Sprint(ts.Members), fmt.Sprintf("%.2f", ts.MeanSurvived))
		}
		b.WriteString(t.Render() + "\n")
	}

	if len(s.Entities) > 0 {
		t := newTable("Entity", "Team", "Role", "Survived", "Rate")
		for _, e := range s.Entities {
			t.Row(e.Name, e.Team, e.Role, fmt.Sprintf("%d/%d", e.Survived, e.Trials), fmt.Sprintf("%.0f%%", 100*e.Rate))
		}
		b.WriteString(t.Render() + "\n")
	}
	return b.String()
}

// RenderSurvival formats the survival snapshot of one trial, sorted by team then id.
func RenderSurvival(survival map[string]montecarlo.SurvivalRecord) string {
	ids := make([]string, 0, len(survival))
	for id := range survival {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := survival[ids[i]], survival[ids[j]]
		if a.Team != b.Team {
			return a.Team < b.Team
		}
		return ids[i] < ids[j]
	})
	t := newTable("ID", "Name", "Team", "Type", "Role", "Status")
	for _, id := range ids {
		s := survival[id]
		status := "alive"
		switch {
		case s.Destroyed:
			status = "destroyed"
		case !s.Alive:
			status = "inactive"
		}
		t.Row(id, s.Name, s.Team, s.Type, s.Role, status)
	}
	return t.Render()
}
