// Package engine declares the contract between the batch orchestrator and a simulation engine.
// The orchestrator only ever talks to an engine through these interfaces.
package engine

import "combat-mc/internal/scenario"

// Rand is the deterministic random source installed into every instance.
// *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	NormFloat64() float64
}

// System is one per-step system function, invoked as (stepSize, instance).
type System func(dt float64, inst Instance) error

// Builder constructs fresh, headless simulation instances.
type Builder interface {
	Build(sc *scenario.Scenario) (Instance, error)
}

// BuilderFunc adapts a function to Builder.
type BuilderFunc func(sc *scenario.Scenario) (Instance, error)

// Build calls f(sc).
func (f BuilderFunc) Build(sc *scenario.Scenario) (Instance, error) { return f(sc) }

// Instance is one buildable, steppable, queryable simulation.
type Instance interface {
	SetRand(r Rand)
	SimTime() float64
	SetSimTime(t float64)
	Systems() []System
	// Entities returns every entity the instance was built with in a stable order, including
	// entities taken out of play.
	Entities() []Entity
	Entity(id string) (Entity, bool)
}

// EventResetter is implemented by instances exposing a once-per-run event registry.
type EventResetter interface {
	ResetEvents()
}

// Entity is the read view of one simulated platform.
type Entity interface {
	ID() string
	Name() string
	Team() string
	Type() string
	// Role is the optional combat-role tag; empty when the entity has none.
	Role() string
	Active() bool
	Destroyed() bool
	State() map[string]any
	Component(name string) (any, bool)
}

// Component names looked up by the orchestrator.
const (
	ComponentOrbitalAI    = "orbital_combat_ai"
	ComponentInterceptAI  = "intercept_ai"
	ComponentAreaDefense  = "sam_battery"
	ComponentAirIntercept = "a2a_missile"
	ComponentKineticKill  = "kinetic_kill"
)

// WeaponComponents lists the weapon subsystem components in inspection order.
var WeaponComponents = []string{ComponentAreaDefense, ComponentAirIntercept, ComponentKineticKill}

// Teams of the two-sided combat models.
const (
	TeamBlue = "blue"
	TeamRed  = "red"
)

// EntityTypeAircraft keys the conventional two-team combat model.
const EntityTypeAircraft = "aircraft"
