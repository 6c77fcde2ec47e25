package montecarlo

import (
	"math"
	"sort"

	"combat-mc/internal/engine"
)

// Summary aggregates the results of a batch.
type Summary struct {
	Trials          int                    `json:"trials"`
	Errors          int                    `json:"errors"`
	BuildErrors     int                    `json:"buildErrors"`
	TickErrors      int                    `json:"tickErrors"`
	EarlyTerminated int                    `json:"earlyTerminated"`
	MeanSimTime     float64                `json:"meanSimTime"`
	MinSimTime      float64                `json:"minSimTime"`
	MaxSimTime      float64                `json:"maxSimTime"`
	Entities        []EntitySurvivalStat   `json:"entities"`
	Teams           map[string]TeamStat    `json:"teams"`
	Weapons         map[string]*WeaponStat `json:"weapons"`
}

// EntitySurvivalStat is the survival rate of one entity across the trials that reported it.
type EntitySurvivalStat struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Team     string  `json:"team"`
	Role     string  `json:"role,omitempty"`
	Trials   int     `json:"trials"`
	Survived int     `json:"survived"`
	Rate     float64 `json:"rate"`
}

// TeamStat is the mean number of surviving team members per trial.
type TeamStat struct {
	Members      int     `json:"members"`
	MeanSurvived float64 `json:"meanSurvived"`
}

// WeaponStat counts engagement results of one weapon system.
type WeaponStat struct {
	Launches  int     `json:"launches"`
	Kills     int     `json:"kills"`
	Misses    int     `json:"misses"`
	KillRatio float64 `json:"killRatio"`
}

// Analyze summarizes results. horizon and stepSize are the batch's stepping parameters; trials
// that ended cleanly at least one step short of the full run count as early terminations. A
// non-positive stepSize counts as DefaultStepSize.
func Analyze(results []TrialResult, horizon, stepSize float64) Summary {
	s := Summary{
		Trials:  len(results),
		Teams:   map[string]TeamStat{},
		Weapons: map[string]*WeaponStat{},
	}
	if len(results) == 0 {
		return s
	}
	s.MinSimTime = math.Inf(1)
	// Sim time accumulates step by step, so a full run may end a rounding error short of horizon.
	spec := TrialSpec{Horizon: horizon, StepSize: stepSize}
	cutoff := (float64(spec.TotalSteps()) - 0.5) * spec.step()

	entities := map[string]*EntitySurvivalStat{}
	teamSurvived := map[string]int{}
	teamMembers := map[string]int{}
	sum := 0.0

	for _, r := range results {
		if r.Error != nil {
			s.Errors++
			if r.Error.Kind == KindBuild {
				s.BuildErrors++
			} else {
				s.TickErrors++
			}
		} else if r.SimTimeFinal < cutoff {
			s.EarlyTerminated++
		}
		sum += r.SimTimeFinal
		s.MinSimTime = math.Min(s.MinSimTime, r.SimTimeFinal)
		s.MaxSimTime = math.Max(s.MaxSimTime, r.SimTimeFinal)

		members := map[string]int{}
		for id, rec := range r.EntitySurvival {
			st, ok := entities[id]
			if !ok {
				st = &EntitySurvivalStat{ID: id, Name: rec.Name, Team: rec.Team, Role: rec.Role}
				entities[id] = st
			}
			st.Trials++
			members[rec.Team]++
			if rec.Alive {
				st.Survived++
				teamSurvived[rec.Team]++
			}
		}
		for team, n := range members {
			teamMembers[team] = max(teamMembers[team], n)
		}

		for _, ev := range r.EngagementLog {
			w := s.Weapons[ev.WeaponType]
			if w == nil {
				w = &WeaponStat{}
				s.Weapons[ev.WeaponType] = w
			}
			switch ev.Result {
			case engine.ResultLaunch:
				w.Launches++
			case engine.ResultKill:
				w.Kills++
			case engine.ResultMiss:
				w.Misses++
			}
		}
	}

	n := float64(len(results))
	s.MeanSimTime = sum / n
	for _, st := range entities {
		st.Rate = float64(st.Survived) / float64(st.Trials)
		s.Entities = append(s.Entities, *st)
	}
	sort.Slice(s.Entities, func(i, j int) bool {
		if s.Entities[i].Team != s.Entities[j].Team {
			return s.Entities[i].Team < s.Entities[j].Team
		}
		return s.Entities[i].ID < s.Entities[j].ID
	})
	for team, m := range teamMembers {
		s.Teams[team] = TeamStat{Members: m, MeanSurvived: float64(teamSurvived[team]) / n}
	}
	for _, w := range s.Weapons {
		if shots := w.Kills + w.Misses; shots > 0 {
			w.KillRatio = float64(w.Kills) / float64(shots)
		}
	}
	return s
}
