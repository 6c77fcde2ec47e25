package engine

import "strconv"

// Engagement results.
const (
	ResultLaunch = "LAUNCH"
	ResultKill   = "KILL"
	ResultMiss   = "MISS"
)

// Weapon-system labels carried by engagement events.
const (
	WeaponSAM = "SAM"
	WeaponA2A = "A2A"
	WeaponKKV = "KKV"
)

// WeaponReporter is implemented by weapon components that can describe their state.
type WeaponReporter interface {
	WeaponState() WeaponState
}

// WeaponState is a snapshot of one weapon subsystem. It is one of AreaDefenseState,
// AirInterceptState or KineticKillState.
type WeaponState interface {
	// Kind returns the weapon-system label, e.g. "SAM".
	Kind() string
	// Candidates returns every engagement the subsystem currently exposes. The same physical
	// event is returned on every call while it stays visible; callers dedupe on Candidate.Key.
	Candidates() []Candidate
	isWeaponState()
}

// Candidate is one engagement observation before normalization.
type Candidate struct {
	TargetID string
	Result   string
	Time     float64
	// Disambiguator separates physically distinct events with the same source, target and result.
	Disambiguator string
}

// Key returns the composite dedup key of the candidate for the given source entity.
func (c Candidate) Key(sourceID string) string {
	return sourceID + "|" + c.TargetID + "|" + c.Result + "|" + c.Disambiguator
}

// Outcome is a subsystem-maintained KILL or MISS record.
type Outcome struct {
	Seq      int
	TargetID string
	Result   string
	Time     float64
}

func (o Outcome) candidate() Candidate {
	return Candidate{TargetID: o.TargetID, Result: o.Result, Time: o.Time, Disambiguator: "seq" + strconv.Itoa(o.Seq)}
}

// launch synthesizes the LAUNCH candidate of an idle→engaging transition.
func launch(targetID string, since float64) Candidate {
	return Candidate{TargetID: targetID, Result: ResultLaunch, Time: since, Disambiguator: timeBucket(since)}
}

// timeBucket quantizes a simulated time to a tenth of a second.
func timeBucket(t float64) string {
	return "t" + strconv.FormatInt(int64(t*10+0.5), 10)
}

func outcomes(out []Outcome) []Candidate {
	cs := make([]Candidate, 0, len(out))
	for _, o := range out {
		cs = append(cs, o.candidate())
	}
	return cs
}

// Area-defense kill chain phases.
const (
	PhaseDetect = iota
	PhaseTrack
	PhaseEngage
	PhaseAssess
)

// AreaEngagement is one target moving through a battery's kill chain.
type AreaEngagement struct {
	TargetID string
	Phase    int
	// Since is when the current phase was entered.
	Since float64
}

// AreaDefenseState describes a guided area-defense battery.
type AreaDefenseState struct {
	Engagements []AreaEngagement
	Outcomes    []Outcome
}

func (AreaDefenseState) Kind() string   { return WeaponSAM }
func (AreaDefenseState) isWeaponState() {}

// Candidates reports a LAUNCH for each engagement that reached the engage phase plus every outcome.
func (s AreaDefenseState) Candidates() []Candidate {
	var cs []Candidate
	for _, e := range s.Engagements {
		if e.Phase == PhaseEngage {
			cs = append(cs, launch(e.TargetID, e.Since))
		}
	}
	return append(cs, outcomes(s.Outcomes)...)
}

// Air-intercept controller phases: a shot locks, then the missile is guided until it resolves.
const (
	PhaseLock = iota
	PhaseGuide
)

// AirEngagement is one missile shot in progress.
type AirEngagement struct {
	TargetID string
	Munition string
	Phase    int
	Since    float64
}

// AirInterceptState describes an air-intercept missile controller.
type AirInterceptState struct {
	Engagements []AirEngagement
	Outcomes    []Outcome
	Inventory   map[string]int
}

func (AirInterceptState) Kind() string   { return WeaponA2A }
func (AirInterceptState) isWeaponState() {}

// Candidates reports a LAUNCH for each missile in flight plus every outcome.
func (s AirInterceptState) Candidates() []Candidate {
	var cs []Candidate
	for _, e := range s.Engagements {
		if e.Phase == PhaseGuide {
			cs = append(cs, launch(e.TargetID, e.Since))
		}
	}
	return append(cs, outcomes(s.Outcomes)...)
}

// Kinetic-kill interceptor modes.
const (
	KKVIdle     = "idle"
	KKVEngaging = "engaging"
	KKVCooldown = "cooldown"
)

// KineticKillState describes a kinetic-kill interceptor.
type KineticKillState struct {
	Mode     string
	TargetID string
	// Since is when the interceptor entered the engaging mode.
	Since    float64
	Outcomes []Outcome
}

func (KineticKillState) Kind() string   { return WeaponKKV }
func (KineticKillState) isWeaponState() {}

// Candidates reports a LAUNCH while engaging plus every outcome.
func (s KineticKillState) Candidates() []Candidate {
	var cs []Candidate
	if s.Mode == KKVEngaging && s.TargetID != "" {
		cs = append(cs, launch(s.TargetID, s.Since))
	}
	return append(cs, outcomes(s.Outcomes)...)
}
