package world

import "combat-mc/internal/engine"

// Entity is one platform of the reference engine.
type Entity struct {
	id          string
	name        string
	team        string
	typ         string
	role        string
	active      bool
	destroyed   bool
	despawned   bool
	Pos         Vec3
	Vel         Vec3
	MaxSpeed    float64
	SensorRange float64
	state       map[string]any
	components  map[string]any
}

var _ engine.Entity = (*Entity)(nil)

func (e *Entity) ID() string            { return e.id }
func (e *Entity) Name() string          { return e.name }
func (e *Entity) Team() string          { return e.team }
func (e *Entity) Type() string          { return e.typ }
func (e *Entity) Role() string          { return e.role }
func (e *Entity) Active() bool          { return e.active }
func (e *Entity) Destroyed() bool       { return e.destroyed }
func (e *Entity) State() map[string]any { return e.state }

// Component returns the named component, if the entity carries one.
func (e *Entity) Component(name string) (any, bool) {
	c, ok := e.components[name]
	return c, ok
}

// Alive reports whether the entity is active and not destroyed.
func (e *Entity) Alive() bool { return e.active && !e.destroyed }

// Destroy marks the entity destroyed and inactive.
func (e *Entity) Destroy() {
	e.active = false
	e.destroyed = true
	e.Vel = Vec3{}
}

// Despawn takes the entity out of play. It stays listed with its final status but can no longer
// be reactivated.
func (e *Entity) Despawn() {
	e.active = false
	e.despawned = true
	e.Vel = Vec3{}
}

// Despawned reports whether a scripted event removed the entity from play.
func (e *Entity) Despawned() bool { return e.despawned }

func (e *Entity) hostileTo(o *Entity) bool { return e.team != o.team }
