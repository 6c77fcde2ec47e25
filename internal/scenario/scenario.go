package scenario

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"combat-mc/internal/config"
)

//go:embed schema.cue
var schemaCUE []byte

// Combat roles understood by the orbital combat model.
const (
	RoleHVA      = "hva"
	RoleDefender = "defender"
	RoleAttacker = "attacker"
	RoleEscort   = "escort"
	RoleSweep    = "sweep"
)

// AI kinds.
const (
	AIOrbitalCombat = "orbital_combat"
	AIIntercept     = "intercept"
)

// Weapon kinds.
const (
	WeaponKineticKill = "kinetic_kill"
	WeaponSAMBattery  = "sam_battery"
	WeaponA2AMissile  = "a2a_missile"
)

// Scripted event actions.
const (
	ActionDestroy    = "destroy"
	ActionDeactivate = "deactivate"
	ActionActivate   = "activate"
	ActionDespawn    = "despawn"
)

// Scenario describes the initial entity set of an engagement and its scripted events.
type Scenario struct {
	Name        string   `yaml:"name,omitempty" json:"name,omitempty"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Entities    []Entity `yaml:"entities" json:"entities"`
	Events      []Event  `yaml:"events,omitempty" json:"events,omitempty"`
}

// Vec3 is a position or velocity in meters (per second).
type Vec3 [3]float64

// Entity declares one simulated platform.
type Entity struct {
	ID          string  `yaml:"id" json:"id"`
	Name        string  `yaml:"name,omitempty" json:"name,omitempty"`
	Team        string  `yaml:"team" json:"team"`
	Type        string  `yaml:"type" json:"type"`
	Role        string  `yaml:"role,omitempty" json:"role,omitempty"`
	AI          string  `yaml:"ai,omitempty" json:"ai,omitempty"`
	Weapon      *Weapon `yaml:"weapon,omitempty" json:"weapon,omitempty"`
	Position    Vec3    `yaml:"position,omitempty,flow" json:"position,omitempty"`
	Velocity    Vec3    `yaml:"velocity,omitempty,flow" json:"velocity,omitempty"`
	MaxSpeed    float64 `yaml:"max_speed,omitempty" json:"max_speed,omitempty"`
	SensorRange float64 `yaml:"sensor_range,omitempty" json:"sensor_range,omitempty"`
	// Inactive entities are present but dormant until an activate event fires.
	Inactive bool `yaml:"inactive,omitempty" json:"inactive,omitempty"`
}

// Weapon holds the parameters of a weapon subsystem. Only the fields relevant to Kind are used.
type Weapon struct {
	Kind         string     `yaml:"kind" json:"kind"`
	Pk           float64    `yaml:"pk,omitempty" json:"pk,omitempty"`
	KillRange    float64    `yaml:"kill_range,omitempty" json:"kill_range,omitempty"`
	Cooldown     float64    `yaml:"cooldown,omitempty" json:"cooldown,omitempty"`
	MinRange     float64    `yaml:"min_range,omitempty" json:"min_range,omitempty"`
	MaxRange     float64    `yaml:"max_range,omitempty" json:"max_range,omitempty"`
	MissileSpeed float64    `yaml:"missile_speed,omitempty" json:"missile_speed,omitempty"`
	Missiles     int        `yaml:"missiles,omitempty" json:"missiles,omitempty"`
	Salvo        int        `yaml:"salvo,omitempty" json:"salvo,omitempty"`
	LockTime     float64    `yaml:"lock_time,omitempty" json:"lock_time,omitempty"`
	Loadout      []Munition `yaml:"loadout,omitempty" json:"loadout,omitempty"`
}

// Munition is one air-to-air weapon type carried in a loadout.
type Munition struct {
	Name  string  `yaml:"name" json:"name"`
	Count int     `yaml:"count" json:"count"`
	Range float64 `yaml:"range" json:"range"`
	Pk    float64 `yaml:"pk" json:"pk"`
	Speed float64 `yaml:"speed" json:"speed"`
}

// Event is a scripted occurrence that fires at most once per run.
type Event struct {
	ID     string  `yaml:"id" json:"id"`
	Time   float64 `yaml:"time" json:"time"`
	Action string  `yaml:"action" json:"action"`
	Target string  `yaml:"target" json:"target"`
}

// Load reads a YAML or JSON scenario definition from disk and validates it.
func Load(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return Parse(filepath.Base(path), b)
}

// Parse validates data against the scenario schema and decodes it.
func Parse(name string, data []byte) (*Scenario, error) {
	if err := config.ValidateWithCue(name, data, schemaCUE, "#Scenario"); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", name, err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	return &s, nil
}

// Resolve returns the built-in scenario called ref, or loads ref as a file path.
func Resolve(ref string) (*Scenario, error) {
	if sc, ok := BuiltIn()[ref]; ok {
		return &sc, nil
	}
	return Load(ref)
}

// Entity returns the declared entity with the given id.
func (s *Scenario) Entity(id string) (Entity, bool) {
	for _, e := range s.Entities {
		if e.ID == id {
			return e, true
		}
	}
	return Entity{}, false
}

// DisplayName returns the entity name, falling back to its id.
func (e Entity) DisplayName() string {
	if e.Name != "" {
		return e.Name
	}
	return e.ID
}
