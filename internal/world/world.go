// Package world is a small headless engagement engine. It implements the engine contract so
// batches can run without the full visualization stack.
package world

import (
	"fmt"

	"combat-mc/internal/engine"
	"combat-mc/internal/scenario"
)

const defaultSensorRange = 1000000.0

// Builder constructs worlds from scenarios. Every world it builds shares one event registry.
type Builder struct {
	registry *EventRegistry
}

// NewBuilder returns a Builder with a fresh event registry.
func NewBuilder() *Builder {
	return &Builder{registry: NewEventRegistry()}
}

// Registry returns the event registry shared by the builder's worlds.
func (b *Builder) Registry() *EventRegistry { return b.registry }

// Build implements engine.Builder.
func (b *Builder) Build(sc *scenario.Scenario) (engine.Instance, error) {
	return b.BuildWorld(sc)
}

// BuildWorld constructs a world, rejecting scenarios that cannot run.
func (b *Builder) BuildWorld(sc *scenario.Scenario) (*World, error) {
	if sc == nil {
		return nil, fmt.Errorf("nil scenario")
	}
	w := &World{
		index:    make(map[string]*Entity, len(sc.Entities)),
		registry: b.registry,
		events:   append([]scenario.Event(nil), sc.Events...),
	}
	for i, se := range sc.Entities {
		e, err := newEntity(se)
		if err != nil {
			return nil, fmt.Errorf("entity %d (%s): %w", i, se.ID, err)
		}
		if _, dup := w.index[e.id]; dup {
			return nil, fmt.Errorf("duplicate entity id %q", e.id)
		}
		w.entities = append(w.entities, e)
		w.index[e.id] = e
	}
	for _, ev := range w.events {
		if _, ok := w.index[ev.Target]; !ok {
			return nil, fmt.Errorf("event %s targets unknown entity %q", ev.ID, ev.Target)
		}
	}
	w.systems = []engine.System{
		func(dt float64, _ engine.Instance) error { return w.aiSystem(dt) },
		func(dt float64, _ engine.Instance) error { return w.physicsSystem(dt) },
		func(dt float64, _ engine.Instance) error { return w.kineticKillSystem(dt) },
		func(dt float64, _ engine.Instance) error { return w.samSystem(dt) },
		func(dt float64, _ engine.Instance) error { return w.a2aSystem(dt) },
		func(dt float64, _ engine.Instance) error { return w.eventSystem(dt) },
	}
	return w, nil
}

func newEntity(se scenario.Entity) (*Entity, error) {
	if se.ID == "" {
		return nil, fmt.Errorf("missing id")
	}
	if se.Team == "" {
		return nil, fmt.Errorf("missing team")
	}
	e := &Entity{
		id:          se.ID,
		name:        se.DisplayName(),
		team:        se.Team,
		typ:         se.Type,
		role:        se.Role,
		active:      !se.Inactive,
		Pos:         fromScenario(se.Position),
		Vel:         fromScenario(se.Velocity),
		MaxSpeed:    se.MaxSpeed,
		SensorRange: se.SensorRange,
		state:       make(map[string]any),
		components:  make(map[string]any),
	}
	if e.SensorRange <= 0 {
		e.SensorRange = defaultSensorRange
	}
	switch se.AI {
	case "":
	case scenario.AIOrbitalCombat:
		e.components[engine.ComponentOrbitalAI] = &OrbitalAI{Role: se.Role}
	case scenario.AIIntercept:
		e.components[engine.ComponentInterceptAI] = &InterceptAI{}
	default:
		return nil, fmt.Errorf("unknown ai %q", se.AI)
	}
	if se.Weapon != nil {
		name, c, err := newWeapon(*se.Weapon)
		if err != nil {
			return nil, err
		}
		e.components[name] = c
	}
	return e, nil
}

// World is one simulation instance.
type World struct {
	rng      engine.Rand
	simTime  float64
	entities []*Entity
	index    map[string]*Entity
	events   []scenario.Event
	registry *EventRegistry
	systems  []engine.System
}

var (
	_ engine.Instance      = (*World)(nil)
	_ engine.EventResetter = (*World)(nil)
)

func (w *World) SetRand(r engine.Rand)    { w.rng = r }
func (w *World) SimTime() float64         { return w.simTime }
func (w *World) SetSimTime(t float64)     { w.simTime = t }
func (w *World) Systems() []engine.System { return w.systems }

// ResetEvents clears the shared once-per-run event registry.
func (w *World) ResetEvents() { w.registry.Reset() }

// Entities returns the entities in scenario order, despawned ones included.
func (w *World) Entities() []engine.Entity {
	out := make([]engine.Entity, len(w.entities))
	for i, e := range w.entities {
		out[i] = e
	}
	return out
}

// Entity looks up an entity by id.
func (w *World) Entity(id string) (engine.Entity, bool) {
	e, ok := w.index[id]
	if !ok {
		return nil, false
	}
	return e, true
}

// Get returns the concrete entity with the given id.
func (w *World) Get(id string) *Entity { return w.index[id] }

func (w *World) roll(p float64) bool {
	if w.rng == nil {
		panic("world: random source not installed")
	}
	return w.rng.Float64() < p
}

func (w *World) physicsSystem(dt float64) error {
	for _, e := range w.entities {
		if !e.Alive() {
			continue
		}
		e.Pos = e.Pos.Add(e.Vel.Scale(dt))
	}
	return nil
}
