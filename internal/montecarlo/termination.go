package montecarlo

import (
	"combat-mc/internal/engine"
	"combat-mc/internal/scenario"
)

type sideCount struct {
	hva, combat int
}

// IsResolved reports whether further stepping of inst can no longer change the outcome.
//
// The orbital model covers entities with an orbital-combat AI and a role tag: it is resolved once
// either side has no live high-value asset, or neither side has a live combat-capable unit. A
// scenario made only of high-value assets is therefore resolved immediately. The aircraft model
// is resolved once both teams fielded aircraft and one of them has none left alive.
func IsResolved(inst engine.Instance) bool {
	var (
		orbital       bool
		sides         = map[string]*sideCount{engine.TeamBlue: {}, engine.TeamRed: {}}
		fielded, live = map[string]int{}, map[string]int{}
	)
	for _, e := range inst.Entities() {
		alive := e.Active() && !e.Destroyed()
		if _, ok := e.Component(engine.ComponentOrbitalAI); ok && e.Role() != "" {
			orbital = true
			if s, ok := sides[e.Team()]; ok && alive {
				if e.Role() == scenario.RoleHVA {
					s.hva++
				} else {
					s.combat++
				}
			}
		}
		if e.Type() == engine.EntityTypeAircraft {
			fielded[e.Team()]++
			if alive {
				live[e.Team()]++
			}
		}
	}

	if orbital {
		blue, red := sides[engine.TeamBlue], sides[engine.TeamRed]
		if blue.hva == 0 || red.hva == 0 || (blue.combat == 0 && red.combat == 0) {
			return true
		}
	}
	if fielded[engine.TeamBlue] > 0 && fielded[engine.TeamRed] > 0 {
		if live[engine.TeamBlue] == 0 || live[engine.TeamRed] == 0 {
			return true
		}
	}
	return false
}
