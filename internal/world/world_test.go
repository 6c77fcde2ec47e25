package world

import (
	"math/rand"
	"testing"

	"combat-mc/internal/engine"
	"combat-mc/internal/scenario"
)

func step(t *testing.T, w *World, dt float64, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		w.SetSimTime(w.SimTime() + dt)
		for _, sys := range w.Systems() {
			if err := sys(dt, w); err != nil {
				t.Fatalf("system error: %v", err)
			}
		}
	}
}

// stepUntil steps w until cond holds, failing after limit steps.
func stepUntil(t *testing.T, w *World, limit int, cond func() bool) int {
	t.Helper()
	for i := 1; i <= limit; i++ {
		step(t, w, 0.1, 1)
		if cond() {
			return i
		}
	}
	t.Fatalf("condition not reached within %d steps", limit)
	return 0
}

func build(t *testing.T, sc scenario.Scenario) *World {
	t.Helper()
	w, err := NewBuilder().BuildWorld(&sc)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	w.SetRand(rand.New(rand.NewSource(1)))
	return w
}

func TestBuildBuiltIns(t *testing.T) {
	for name, sc := range scenario.BuiltIn() {
		sc := sc
		w, err := NewBuilder().Build(&sc)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if got := len(w.Entities()); got != len(sc.Entities) {
			t.Fatalf("%s: expected %d entities, got %d", name, len(sc.Entities), got)
		}
	}
}

func TestBuildRejectsBadScenarios(t *testing.T) {
	cases := map[string]scenario.Scenario{
		"duplicate id": {Entities: []scenario.Entity{
			{ID: "a", Team: "blue", Type: "aircraft"},
			{ID: "a", Team: "red", Type: "aircraft"},
		}},
		"unknown event target": {
			Entities: []scenario.Entity{{ID: "a", Team: "blue"}},
			Events:   []scenario.Event{{ID: "e1", Time: 1, Action: scenario.ActionDestroy, Target: "ghost"}},
		},
		"bad weapon": {Entities: []scenario.Entity{
			{ID: "a", Team: "blue", Weapon: &scenario.Weapon{Kind: scenario.WeaponKineticKill}},
		}},
		"unknown ai":   {Entities: []scenario.Entity{{ID: "a", Team: "blue", AI: "pacifist"}}},
		"missing team": {Entities: []scenario.Entity{{ID: "a"}}},
	}
	for name, sc := range cases {
		sc := sc
		if _, err := NewBuilder().Build(&sc); err == nil {
			t.Errorf("%s: expected build error", name)
		}
	}
	if _, err := NewBuilder().Build(nil); err == nil {
		t.Error("expected error for nil scenario")
	}
}

func TestKineticKillMutualDestruction(t *testing.T) {
	w := build(t, scenario.Scenario{Entities: []scenario.Entity{
		{ID: "atk", Team: "blue", Type: "satellite", Role: scenario.RoleAttacker, AI: scenario.AIOrbitalCombat,
			MaxSpeed: 100, Weapon: &scenario.Weapon{Kind: scenario.WeaponKineticKill, Pk: 1, KillRange: 1000}},
		{ID: "hva", Team: "red", Type: "satellite", Role: scenario.RoleHVA, AI: scenario.AIOrbitalCombat,
			Position: scenario.Vec3{500, 0, 0}},
	}})
	step(t, w, 0.1, 1)
	k := w.Get("atk").components[engine.ComponentKineticKill].(*KineticKill)
	st := k.WeaponState().(engine.KineticKillState)
	if st.Mode != engine.KKVEngaging || st.TargetID != "hva" {
		t.Fatalf("expected engaging hva after designation, got %+v", st)
	}
	step(t, w, 0.1, 1)
	if !w.Get("hva").Destroyed() || !w.Get("atk").Destroyed() {
		t.Fatal("expected mutual destruction")
	}
	st = k.WeaponState().(engine.KineticKillState)
	if len(st.Outcomes) != 1 || st.Outcomes[0].Result != engine.ResultKill {
		t.Fatalf("expected one KILL outcome, got %+v", st.Outcomes)
	}
}

func TestKineticKillMissEntersCooldown(t *testing.T) {
	w := build(t, scenario.Scenario{Entities: []scenario.Entity{
		{ID: "atk", Team: "blue", Role: scenario.RoleAttacker, AI: scenario.AIOrbitalCombat,
			Weapon: &scenario.Weapon{Kind: scenario.WeaponKineticKill, Pk: 0, KillRange: 1000, Cooldown: 1}},
		{ID: "hva", Team: "red", Role: scenario.RoleHVA, AI: scenario.AIOrbitalCombat, Position: scenario.Vec3{10, 0, 0}},
	}})
	step(t, w, 0.1, 2)
	k := w.Get("atk").components[engine.ComponentKineticKill].(*KineticKill)
	st := k.WeaponState().(engine.KineticKillState)
	if st.Mode != engine.KKVCooldown || len(st.Outcomes) != 1 || st.Outcomes[0].Result != engine.ResultMiss {
		t.Fatalf("expected cooldown after one MISS, got %+v", st)
	}
	n := stepUntil(t, w, 30, func() bool { return len(k.WeaponState().(engine.KineticKillState).Outcomes) == 2 })
	if n < 10 {
		t.Fatalf("second shot after %d steps, before the cooldown elapsed", n)
	}
}

func TestSAMKillChain(t *testing.T) {
	w := build(t, scenario.Scenario{Entities: []scenario.Entity{
		{ID: "sam", Team: "blue", Type: "sam", Weapon: &scenario.Weapon{
			Kind: scenario.WeaponSAMBattery, Pk: 1, MinRange: 100, MaxRange: 10000, MissileSpeed: 1000, Missiles: 4, Salvo: 2}},
		{ID: "bandit", Team: "red", Type: "aircraft", Position: scenario.Vec3{5000, 0, 0}},
	}})
	sam := w.Get("sam").components[engine.ComponentAreaDefense].(*SAMBattery)

	step(t, w, 0.1, 1)
	st := sam.WeaponState().(engine.AreaDefenseState)
	if len(st.Engagements) != 1 || st.Engagements[0].Phase != engine.PhaseDetect {
		t.Fatalf("expected detect phase, got %+v", st.Engagements)
	}
	engaged := func() bool {
		st := sam.WeaponState().(engine.AreaDefenseState)
		return len(st.Engagements) == 1 && st.Engagements[0].Phase == engine.PhaseEngage
	}
	// detect 1s + track 2s
	if n := stepUntil(t, w, 40, engaged); n < 28 {
		t.Fatalf("engaged after %d steps, kill chain too short", n)
	}
	if sam.Missiles() != 2 {
		t.Fatalf("expected salvo of 2 fired, %d left", sam.Missiles())
	}
	// time of flight 5s
	if n := stepUntil(t, w, 60, w.Get("bandit").Destroyed); n < 48 {
		t.Fatalf("impact after %d steps, time of flight too short", n)
	}
	st = sam.WeaponState().(engine.AreaDefenseState)
	if len(st.Outcomes) != 1 || st.Outcomes[0].Result != engine.ResultKill {
		t.Fatalf("expected one KILL outcome, got %+v", st.Outcomes)
	}
}

func TestSAMIgnoresTargetsOutsideEnvelope(t *testing.T) {
	w := build(t, scenario.Scenario{Entities: []scenario.Entity{
		{ID: "sam", Team: "blue", Type: "sam", Weapon: &scenario.Weapon{
			Kind: scenario.WeaponSAMBattery, Pk: 1, MinRange: 100, MaxRange: 1000, MissileSpeed: 1000, Missiles: 4}},
		{ID: "far", Team: "red", Type: "aircraft", Position: scenario.Vec3{5000, 0, 0}},
		{ID: "sat", Team: "red", Type: "satellite", Position: scenario.Vec3{500, 0, 0}},
	}})
	step(t, w, 0.1, 10)
	st := w.Get("sam").components[engine.ComponentAreaDefense].(*SAMBattery).WeaponState().(engine.AreaDefenseState)
	if len(st.Engagements) != 0 {
		t.Fatalf("expected no engagements, got %+v", st.Engagements)
	}
}

func TestA2ASelectsShortestReachingMunition(t *testing.T) {
	a := &A2AController{
		Loadout: []scenario.Munition{
			{Name: "long", Count: 1, Range: 80000, Pk: 1, Speed: 1000},
			{Name: "short", Count: 1, Range: 15000, Pk: 1, Speed: 800},
		},
		inventory: map[string]int{"long": 1, "short": 1},
	}
	if m, ok := a.selectWeapon(10000); !ok || m.Name != "short" {
		t.Fatalf("expected short, got %v %v", m.Name, ok)
	}
	if m, ok := a.selectWeapon(50000); !ok || m.Name != "long" {
		t.Fatalf("expected long, got %v %v", m.Name, ok)
	}
	a.inventory["short"] = 0
	if m, ok := a.selectWeapon(10000); !ok || m.Name != "long" {
		t.Fatalf("expected fallback to long, got %v %v", m.Name, ok)
	}
	if _, ok := a.selectWeapon(90000); ok {
		t.Fatal("expected nothing in range")
	}
}

func TestA2AShotLifecycle(t *testing.T) {
	w := build(t, scenario.Scenario{Entities: []scenario.Entity{
		{ID: "f1", Team: "blue", Type: "aircraft", SensorRange: 50000, Weapon: &scenario.Weapon{
			Kind: scenario.WeaponA2AMissile, LockTime: 1,
			Loadout: []scenario.Munition{{Name: "fox", Count: 1, Range: 20000, Pk: 1, Speed: 1000}},
		}},
		{ID: "b1", Team: "red", Type: "aircraft", Position: scenario.Vec3{2000, 0, 0}},
	}})
	a := w.Get("f1").components[engine.ComponentAirIntercept].(*A2AController)
	step(t, w, 0.1, 1)
	st := a.WeaponState().(engine.AirInterceptState)
	if len(st.Engagements) != 1 || st.Engagements[0].Phase != engine.PhaseLock {
		t.Fatalf("expected lock, got %+v", st.Engagements)
	}
	stepUntil(t, w, 15, func() bool {
		st := a.WeaponState().(engine.AirInterceptState)
		return len(st.Engagements) == 1 && st.Engagements[0].Phase == engine.PhaseGuide
	})
	if a.Remaining("fox") != 0 {
		t.Fatalf("expected fox expended, %d left", a.Remaining("fox"))
	}
	stepUntil(t, w, 30, w.Get("b1").Destroyed)
	if got := a.WeaponState().(engine.AirInterceptState); len(got.Outcomes) != 1 || len(got.Engagements) != 0 {
		t.Fatalf("expected a single resolved shot, got %+v", got)
	}
}

func TestScriptedEventsFireOncePerRun(t *testing.T) {
	b := NewBuilder()
	sc := scenario.Scenario{
		Entities: []scenario.Entity{
			{ID: "a", Team: "blue", Type: "aircraft"},
			{ID: "b", Team: "red", Type: "aircraft"},
			{ID: "c", Team: "red", Type: "aircraft", Inactive: true},
		},
		Events: []scenario.Event{
			{ID: "kill-a", Time: 0.5, Action: scenario.ActionDestroy, Target: "a"},
			{ID: "wake-c", Time: 0.5, Action: scenario.ActionActivate, Target: "c"},
			{ID: "drop-b", Time: 1, Action: scenario.ActionDespawn, Target: "b"},
		},
	}
	w, err := b.BuildWorld(&sc)
	if err != nil {
		t.Fatal(err)
	}
	w.SetRand(rand.New(rand.NewSource(1)))
	step(t, w, 0.1, 11)
	if !w.Get("a").Destroyed() || !w.Get("c").Active() {
		t.Fatal("expected destroy and activate to apply")
	}
	if b, ok := w.Entity("b"); !ok || b.Active() || !w.Get("b").Despawned() {
		t.Fatal("expected b despawned but still listed")
	}
	if len(w.Entities()) != 3 {
		t.Fatalf("expected all entities listed, got %d", len(w.Entities()))
	}
	if !b.Registry().Fired("kill-a") {
		t.Fatal("expected kill-a recorded")
	}

	// A second world from the same builder shares the registry until it is reset.
	w2, _ := b.BuildWorld(&sc)
	w2.SetRand(rand.New(rand.NewSource(1)))
	step(t, w2, 0.1, 11)
	if w2.Get("a").Destroyed() {
		t.Fatal("expected shared registry to suppress refiring")
	}
	w3, _ := b.BuildWorld(&sc)
	w3.ResetEvents()
	w3.SetRand(rand.New(rand.NewSource(1)))
	step(t, w3, 0.1, 11)
	if !w3.Get("a").Destroyed() {
		t.Fatal("expected reset registry to fire again")
	}
}

func TestActivateDoesNotReviveDestroyed(t *testing.T) {
	w := build(t, scenario.Scenario{
		Entities: []scenario.Entity{{ID: "a", Team: "blue"}},
		Events: []scenario.Event{
			{ID: "d", Time: 0.1, Action: scenario.ActionDestroy, Target: "a"},
			{ID: "r", Time: 0.2, Action: scenario.ActionActivate, Target: "a"},
		},
	})
	step(t, w, 0.1, 3)
	if e := w.Get("a"); e.Active() || !e.Destroyed() {
		t.Fatalf("expected a to stay destroyed, got active=%v destroyed=%v", e.Active(), e.Destroyed())
	}
}

func TestDespawnedEntityLeavesPlay(t *testing.T) {
	w := build(t, scenario.Scenario{
		Entities: []scenario.Entity{
			{ID: "a", Team: "blue", Type: "aircraft"},
			{ID: "b", Team: "red", Type: "aircraft"},
		},
		Events: []scenario.Event{
			{ID: "drop", Time: 0.1, Action: scenario.ActionDespawn, Target: "b"},
			{ID: "wake", Time: 0.3, Action: scenario.ActionActivate, Target: "b"},
		},
	})
	step(t, w, 0.1, 5)
	b := w.Get("b")
	if b.Active() || b.Destroyed() || !b.Despawned() {
		t.Fatalf("expected b out of play, active=%v destroyed=%v", b.Active(), b.Destroyed())
	}
	if w.a2aTarget(w.Get("a")) != nil {
		t.Fatal("despawned entity must not be targeted")
	}
}

func TestDeterministicAcrossBuilds(t *testing.T) {
	run := func() []float64 {
		sc := scenario.BuiltIn()["dogfight"]
		w, err := NewBuilder().BuildWorld(&sc)
		if err != nil {
			t.Fatal(err)
		}
		w.SetRand(rand.New(rand.NewSource(7)))
		step(t, w, 0.1, 1500)
		var out []float64
		for _, e := range w.entities {
			out = append(out, e.Pos.X, e.Pos.Y, e.Pos.Z)
		}
		return out
	}
	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("position %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestRollWithoutRandPanics(t *testing.T) {
	w := &World{}
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	w.roll(0.5)
}
