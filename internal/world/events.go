package world

import (
	"sync"

	"combat-mc/internal/scenario"
)

// EventRegistry records which scripted events already fired in the current run.
// One registry is shared by every world a Builder constructs.
type EventRegistry struct {
	mu    sync.Mutex
	fired map[string]bool
}

// NewEventRegistry returns an empty registry.
func NewEventRegistry() *EventRegistry {
	return &EventRegistry{fired: make(map[string]bool)}
}

// Fire marks id as fired and reports whether this call was the first.
func (r *EventRegistry) Fire(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fired[id] {
		return false
	}
	r.fired[id] = true
	return true
}

// Fired reports whether id already fired.
func (r *EventRegistry) Fired(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fired[id]
}

// Reset forgets every fired event.
func (r *EventRegistry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fired = make(map[string]bool)
}

func (w *World) eventSystem(dt float64) error {
	for _, ev := range w.events {
		if ev.Time > w.simTime {
			continue
		}
		if !w.registry.Fire(ev.ID) {
			continue
		}
		w.apply(ev)
	}
	return nil
}

func (w *World) apply(ev scenario.Event) {
	e, ok := w.index[ev.Target]
	if !ok {
		return
	}
	switch ev.Action {
	case scenario.ActionDestroy:
		e.Destroy()
	case scenario.ActionDeactivate:
		e.active = false
	case scenario.ActionActivate:
		if !e.destroyed && !e.despawned {
			e.active = true
		}
	case scenario.ActionDespawn:
		e.Despawn()
	}
}
