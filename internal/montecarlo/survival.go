package montecarlo

import "combat-mc/internal/engine"

// CollectSurvival snapshots the final status of every entity in inst.
func CollectSurvival(inst engine.Instance) map[string]SurvivalRecord {
	ents := inst.Entities()
	out := make(map[string]SurvivalRecord, len(ents))
	for _, e := range ents {
		out[e.ID()] = SurvivalRecord{
			Name:      e.Name(),
			Team:      e.Team(),
			Type:      e.Type(),
			Role:      e.Role(),
			Alive:     e.Active() && !e.Destroyed(),
			Destroyed: e.Destroyed() || !e.Active(),
		}
	}
	return out
}
