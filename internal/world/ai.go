package world

import (
	"math"

	"combat-mc/internal/engine"
	"combat-mc/internal/scenario"
)

// OrbitalAI drives a unit of the two-sided orbital combat model.
type OrbitalAI struct {
	Role     string
	TargetID string
}

// InterceptAI makes an aircraft pursue the nearest hostile aircraft.
type InterceptAI struct {
	TargetID string
}

// targetScore ranks a candidate target for role. Lower wins; a negative score means never.
func targetScore(role string, t *Entity) int {
	switch role {
	case scenario.RoleAttacker:
		if t.role == scenario.RoleHVA {
			return 0
		}
		return 1
	case scenario.RoleDefender, scenario.RoleEscort:
		if t.role == scenario.RoleAttacker {
			return 0
		}
		if t.role == scenario.RoleHVA {
			return 2
		}
		return 1
	case scenario.RoleSweep:
		return 0
	}
	return -1
}

func (w *World) aiSystem(dt float64) error {
	for _, e := range w.entities {
		if !e.Alive() {
			continue
		}
		if c, ok := e.components[engine.ComponentOrbitalAI]; ok {
			w.orbital(e, c.(*OrbitalAI))
		}
		if c, ok := e.components[engine.ComponentInterceptAI]; ok {
			w.intercept(e, c.(*InterceptAI))
		}
	}
	return nil
}

func (w *World) orbital(e *Entity, ai *OrbitalAI) {
	if ai.Role == scenario.RoleHVA || ai.Role == "" {
		return
	}
	var best *Entity
	bestScore, bestDist := math.MaxInt, math.Inf(1)
	for _, t := range w.entities {
		if !t.Alive() || !e.hostileTo(t) {
			continue
		}
		d := e.Pos.Dist(t.Pos)
		if d > e.SensorRange {
			continue
		}
		s := targetScore(ai.Role, t)
		if s < 0 {
			continue
		}
		if s < bestScore || (s == bestScore && d < bestDist) {
			best, bestScore, bestDist = t, s, d
		}
	}
	w.pursue(e, best, &ai.TargetID)
	if best == nil {
		return
	}
	if c, ok := e.components[engine.ComponentKineticKill]; ok {
		c.(*KineticKill).Designate(best.id, w.simTime)
	}
}

func (w *World) intercept(e *Entity, ai *InterceptAI) {
	var best *Entity
	bestDist := math.Inf(1)
	for _, t := range w.entities {
		if !t.Alive() || !e.hostileTo(t) || t.typ != engine.EntityTypeAircraft {
			continue
		}
		if d := e.Pos.Dist(t.Pos); d <= e.SensorRange && d < bestDist {
			best, bestDist = t, d
		}
	}
	w.pursue(e, best, &ai.TargetID)
}

// pursue steers e at full speed toward t and records the choice in e's state bag.
func (w *World) pursue(e, t *Entity, current *string) {
	if t == nil {
		*current = ""
		delete(e.state, "target")
		return
	}
	*current = t.id
	e.state["target"] = t.id
	if e.MaxSpeed > 0 {
		e.Vel = e.Pos.Toward(t.Pos, e.MaxSpeed)
	}
}
