package montecarlo

import "combat-mc/internal/engine"

// Watch appends to log every engagement event visible in inst that dedup has not seen yet.
// Inactive entities are skipped unless they were destroyed, so a destroyed shooter still reports
// its final outcome. Events already in log are never touched.
func Watch(inst engine.Instance, simTime float64, log *[]EngagementEvent, dedup DedupState) {
	for _, ent := range inst.Entities() {
		if !ent.Active() && !ent.Destroyed() {
			continue
		}
		for _, name := range engine.WeaponComponents {
			c, ok := ent.Component(name)
			if !ok {
				continue
			}
			rep, ok := c.(engine.WeaponReporter)
			if !ok {
				continue
			}
			st := rep.WeaponState()
			if st == nil {
				continue
			}
			for _, cand := range st.Candidates() {
				if cand.TargetID == "" {
					continue
				}
				key := cand.Key(ent.ID())
				if _, seen := dedup[key]; seen {
					continue
				}
				dedup[key] = struct{}{}
				*log = append(*log, normalize(inst, ent, st.Kind(), cand, simTime))
			}
		}
	}
}

func normalize(inst engine.Instance, src engine.Entity, kind string, c engine.Candidate, simTime float64) EngagementEvent {
	t := c.Time
	if t <= 0 {
		t = simTime
	}
	targetName := c.TargetID
	if tgt, ok := inst.Entity(c.TargetID); ok {
		targetName = tgt.Name()
	}
	return EngagementEvent{
		Time:       t,
		SourceID:   src.ID(),
		SourceName: src.Name(),
		SourceTeam: src.Team(),
		TargetID:   c.TargetID,
		TargetName: targetName,
		Result:     c.Result,
		WeaponType: kind,
	}
}
