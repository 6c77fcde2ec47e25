package world

import (
	"fmt"
	"math"

	"combat-mc/internal/engine"
	"combat-mc/internal/scenario"
)

// Kill chain timings of the area-defense battery, in seconds.
const (
	samDetectTime = 1.0
	samTrackTime  = 2.0
	samAssessTime = 3.0
)

func newWeapon(w scenario.Weapon) (string, any, error) {
	switch w.Kind {
	case scenario.WeaponKineticKill:
		if w.KillRange <= 0 {
			return "", nil, fmt.Errorf("kinetic_kill: kill_range must be positive")
		}
		return engine.ComponentKineticKill, &KineticKill{Pk: w.Pk, KillRange: w.KillRange, Cooldown: w.Cooldown, mode: engine.KKVIdle}, nil
	case scenario.WeaponSAMBattery:
		if w.MissileSpeed <= 0 || w.MaxRange <= w.MinRange {
			return "", nil, fmt.Errorf("sam_battery: invalid range or missile speed")
		}
		salvo := w.Salvo
		if salvo <= 0 {
			salvo = 1
		}
		return engine.ComponentAreaDefense, &SAMBattery{
			Pk: w.Pk, MinRange: w.MinRange, MaxRange: w.MaxRange,
			MissileSpeed: w.MissileSpeed, Salvo: salvo, missiles: w.Missiles,
		}, nil
	case scenario.WeaponA2AMissile:
		if len(w.Loadout) == 0 {
			return "", nil, fmt.Errorf("a2a_missile: empty loadout")
		}
		a := &A2AController{LockTime: w.LockTime, inventory: make(map[string]int, len(w.Loadout))}
		for _, m := range w.Loadout {
			if m.Speed <= 0 {
				return "", nil, fmt.Errorf("a2a_missile: munition %s needs a positive speed", m.Name)
			}
			a.Loadout = append(a.Loadout, m)
			a.inventory[m.Name] = m.Count
		}
		return engine.ComponentAirIntercept, a, nil
	}
	return "", nil, fmt.Errorf("unknown weapon kind %q", w.Kind)
}

// KineticKill is a single-shot-at-a-time kinetic interceptor.
type KineticKill struct {
	Pk        float64
	KillRange float64
	Cooldown  float64

	mode      string
	target    string
	since     float64
	remaining float64
	outcomes  []engine.Outcome
}

// Designate hands a target to an idle interceptor. It reports whether the target was accepted.
func (k *KineticKill) Designate(targetID string, now float64) bool {
	if k.mode != engine.KKVIdle {
		return false
	}
	k.mode, k.target, k.since = engine.KKVEngaging, targetID, now
	return true
}

func (k *KineticKill) WeaponState() engine.WeaponState {
	return engine.KineticKillState{
		Mode:     k.mode,
		TargetID: k.target,
		Since:    k.since,
		Outcomes: append([]engine.Outcome(nil), k.outcomes...),
	}
}

func (k *KineticKill) record(target, result string, t float64) {
	k.outcomes = append(k.outcomes, engine.Outcome{Seq: len(k.outcomes), TargetID: target, Result: result, Time: t})
}

func (w *World) kineticKillSystem(dt float64) error {
	for _, e := range w.entities {
		c, ok := e.components[engine.ComponentKineticKill]
		if !ok || !e.Alive() {
			continue
		}
		k := c.(*KineticKill)
		switch k.mode {
		case engine.KKVCooldown:
			k.remaining -= dt
			if k.remaining <= 0 {
				k.mode = engine.KKVIdle
			}
		case engine.KKVEngaging:
			t := w.index[k.target]
			if t == nil || !t.Alive() {
				k.mode, k.target = engine.KKVIdle, ""
				continue
			}
			// The designation step itself never resolves, so the launch is always observable.
			if w.simTime <= k.since || e.Pos.Dist(t.Pos) > k.KillRange {
				continue
			}
			if w.roll(k.Pk) {
				k.record(t.id, engine.ResultKill, w.simTime)
				t.Destroy()
				e.Destroy()
				k.mode, k.target = engine.KKVIdle, ""
				continue
			}
			k.record(t.id, engine.ResultMiss, w.simTime)
			k.mode, k.target, k.remaining = engine.KKVCooldown, "", k.Cooldown
		}
	}
	return nil
}

type samEngagement struct {
	engine.AreaEngagement
	timer float64
	fired int
}

// SAMBattery is a guided area-defense battery running a detect, track, engage, assess kill chain
// per target.
type SAMBattery struct {
	Pk           float64
	MinRange     float64
	MaxRange     float64
	MissileSpeed float64
	Salvo        int

	missiles    int
	engagements []*samEngagement
	outcomes    []engine.Outcome
}

// Missiles returns the remaining missile count.
func (s *SAMBattery) Missiles() int { return s.missiles }

func (s *SAMBattery) WeaponState() engine.WeaponState {
	st := engine.AreaDefenseState{Outcomes: append([]engine.Outcome(nil), s.outcomes...)}
	for _, e := range s.engagements {
		st.Engagements = append(st.Engagements, e.AreaEngagement)
	}
	return st
}

func (s *SAMBattery) engaging(id string) bool {
	for _, e := range s.engagements {
		if e.TargetID == id {
			return true
		}
	}
	return false
}

func (w *World) samSystem(dt float64) error {
	for _, e := range w.entities {
		c, ok := e.components[engine.ComponentAreaDefense]
		if !ok || !e.Alive() {
			continue
		}
		w.stepSAM(e, c.(*SAMBattery), dt)
	}
	return nil
}

func (w *World) stepSAM(site *Entity, s *SAMBattery, dt float64) {
	kept := s.engagements[:0]
	for _, eg := range s.engagements {
		if w.advanceSAM(site, s, eg, dt) {
			kept = append(kept, eg)
		}
	}
	s.engagements = kept

	for _, t := range w.entities {
		if s.missiles <= 0 {
			return
		}
		if !t.Alive() || !site.hostileTo(t) || t.typ != engine.EntityTypeAircraft || s.engaging(t.id) {
			continue
		}
		if d := site.Pos.Dist(t.Pos); d >= s.MinRange && d <= s.MaxRange {
			s.engagements = append(s.engagements, &samEngagement{
				AreaEngagement: engine.AreaEngagement{TargetID: t.id, Phase: engine.PhaseDetect, Since: w.simTime},
				timer:          samDetectTime,
			})
		}
	}
}

// advanceSAM moves one engagement along the kill chain and reports whether it stays open.
func (w *World) advanceSAM(site *Entity, s *SAMBattery, eg *samEngagement, dt float64) bool {
	t := w.index[eg.TargetID]
	if t == nil || !t.Alive() {
		return false
	}
	eg.timer -= dt
	if eg.timer > 0 {
		return true
	}
	switch eg.Phase {
	case engine.PhaseDetect:
		eg.Phase, eg.Since, eg.timer = engine.PhaseTrack, w.simTime, samTrackTime
	case engine.PhaseTrack:
		d := site.Pos.Dist(t.Pos)
		if d < s.MinRange || d > s.MaxRange || s.missiles <= 0 {
			return false
		}
		eg.fired = min(s.Salvo, s.missiles)
		s.missiles -= eg.fired
		eg.Phase, eg.Since, eg.timer = engine.PhaseEngage, w.simTime, d/s.MissileSpeed
	case engine.PhaseEngage:
		// A salvo resolves as one roll with the combined kill probability.
		pk := 1 - math.Pow(1-s.Pk, float64(eg.fired))
		result := engine.ResultMiss
		if w.roll(pk) {
			result = engine.ResultKill
			t.Destroy()
		}
		s.outcomes = append(s.outcomes, engine.Outcome{Seq: len(s.outcomes), TargetID: t.id, Result: result, Time: w.simTime})
		eg.Phase, eg.Since, eg.timer = engine.PhaseAssess, w.simTime, samAssessTime
	case engine.PhaseAssess:
		if !t.Alive() || s.missiles <= 0 {
			return false
		}
		eg.Phase, eg.Since, eg.timer = engine.PhaseTrack, w.simTime, samTrackTime
	}
	return true
}

type a2aShot struct {
	engine.AirEngagement
	timer float64
}

// A2AController manages an aircraft's air-to-air loadout, one shot at a time.
type A2AController struct {
	LockTime float64
	Loadout  []scenario.Munition

	inventory map[string]int
	shot      *a2aShot
	outcomes  []engine.Outcome
}

// Remaining returns the number of rounds left of the named munition.
func (a *A2AController) Remaining(name string) int { return a.inventory[name] }

func (a *A2AController) WeaponState() engine.WeaponState {
	st := engine.AirInterceptState{
		Outcomes:  append([]engine.Outcome(nil), a.outcomes...),
		Inventory: make(map[string]int, len(a.inventory)),
	}
	for k, v := range a.inventory {
		st.Inventory[k] = v
	}
	if a.shot != nil {
		st.Engagements = []engine.AirEngagement{a.shot.AirEngagement}
	}
	return st
}

// selectWeapon picks the shortest-range munition still in inventory that reaches dist.
func (a *A2AController) selectWeapon(dist float64) (scenario.Munition, bool) {
	var best scenario.Munition
	found := false
	for _, m := range a.Loadout {
		if a.inventory[m.Name] <= 0 || m.Range < dist {
			continue
		}
		if !found || m.Range < best.Range {
			best, found = m, true
		}
	}
	return best, found
}

func (w *World) a2aSystem(dt float64) error {
	for _, e := range w.entities {
		c, ok := e.components[engine.ComponentAirIntercept]
		if !ok || !e.Alive() {
			continue
		}
		w.stepA2A(e, c.(*A2AController), dt)
	}
	return nil
}

func (w *World) a2aTarget(e *Entity) *Entity {
	if id, ok := e.state["target"].(string); ok {
		if t := w.index[id]; t != nil && t.Alive() {
			return t
		}
	}
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
	return best
}

func (w *World) stepA2A(e *Entity, a *A2AController, dt float64) {
	if a.shot == nil {
		t := w.a2aTarget(e)
		if t == nil {
			return
		}
		if _, ok := a.selectWeapon(e.Pos.Dist(t.Pos)); !ok {
			return
		}
		a.shot = &a2aShot{
			AirEngagement: engine.AirEngagement{TargetID: t.id, Phase: engine.PhaseLock, Since: w.simTime},
			timer:         a.LockTime,
		}
		return
	}
	shot := a.shot
	t := w.index[shot.TargetID]
	if t == nil || !t.Alive() {
		a.shot = nil
		return
	}
	shot.timer -= dt
	if shot.timer > 0 {
		return
	}
	switch shot.Phase {
	case engine.PhaseLock:
		d := e.Pos.Dist(t.Pos)
		m, ok := a.selectWeapon(d)
		if !ok {
			a.shot = nil
			return
		}
		a.inventory[m.Name]--
		shot.Munition, shot.Phase, shot.Since, shot.timer = m.Name, engine.PhaseGuide, w.simTime, d/m.Speed
	case engine.PhaseGuide:
		pk := 0.0
		for _, m := range a.Loadout {
			if m.Name == shot.Munition {
				pk = m.Pk
			}
		}
		result := engine.ResultMiss
		if w.roll(pk) {
			result = engine.ResultKill
			t.Destroy()
		}
		a.outcomes = append(a.outcomes, engine.Outcome{Seq: len(a.outcomes), TargetID: t.id, Result: result, Time: w.simTime})
		a.shot = nil
	}
}
