package montecarlo

import (
	"context"
	"time"

	"combat-mc/internal/engine"
	"combat-mc/internal/scenario"
)

// fakeEntity is a hand-rolled engine.Entity.
type fakeEntity struct {
	id, name, team, typ, role string
	active, destroyed         bool
	components                map[string]any
}

func (e *fakeEntity) ID() string            { return e.id }
func (e *fakeEntity) Name() string          { return e.name }
func (e *fakeEntity) Team() string          { return e.team }
func (e *fakeEntity) Type() string          { return e.typ }
func (e *fakeEntity) Role() string          { return e.role }
func (e *fakeEntity) Active() bool          { return e.active }
func (e *fakeEntity) Destroyed() bool       { return e.destroyed }
func (e *fakeEntity) State() map[string]any { return nil }
func (e *fakeEntity) Component(name string) (any, bool) {
	c, ok := e.components[name]
	return c, ok
}

// fakeWeapon reports whatever state the test installs.
type fakeWeapon struct{ state engine.WeaponState }

func (w *fakeWeapon) WeaponState() engine.WeaponState { return w.state }

// fakeInstance is a hand-rolled engine.Instance.
type fakeInstance struct {
	rng      engine.Rand
	simTime  float64
	entities []*fakeEntity
	systems  []engine.System
	resets   int
}

func (f *fakeInstance) SetRand(r engine.Rand)    { f.rng = r }
func (f *fakeInstance) SimTime() float64         { return f.simTime }
func (f *fakeInstance) SetSimTime(t float64)     { f.simTime = t }
func (f *fakeInstance) Systems() []engine.System { return f.systems }
func (f *fakeInstance) ResetEvents()             { f.resets++ }
func (f *fakeInstance) Entities() []engine.Entity {
	out := make([]engine.Entity, len(f.entities))
	for i, e := range f.entities {
		out[i] = e
	}
	return out
}

func (f *fakeInstance) Entity(id string) (engine.Entity, bool) {
	for _, e := range f.entities {
		if e.id == id {
			return e, true
		}
	}
	return nil, false
}

func aircraft(id, team string) *fakeEntity {
	return &fakeEntity{id: id, name: "name-" + id, team: team, typ: engine.EntityTypeAircraft, active: true}
}

func orbital(id, team, role string) *fakeEntity {
	return &fakeEntity{
		id: id, name: id, team: team, typ: "satellite", role: role, active: true,
		components: map[string]any{engine.ComponentOrbitalAI: struct{}{}},
	}
}

func builderOf(fn func() (engine.Instance, error)) engine.Builder {
	return engine.BuilderFunc(func(*scenario.Scenario) (engine.Instance, error) { return fn() })
}

// countingYielder returns immediately and remembers every requested delay.
type countingYielder struct{ delays []time.Duration }

func (y *countingYielder) Yield(ctx context.Context, d time.Duration) error {
	y.delays = append(y.delays, d)
	return ctx.Err()
}

var noWait = YieldFunc(func(ctx context.Context, _ time.Duration) error { return ctx.Err() })

var emptyScenario = &scenario.Scenario{Name: "empty"}
