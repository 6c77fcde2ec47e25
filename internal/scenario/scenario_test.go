package scenario

import (
	"testing"
)

func TestLoadScenario(t *testing.T) {
	sc, err := Load("testdata/skirmish.yaml")
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	if sc.Name != "example" {
		t.Fatalf("unexpected name %s", sc.Name)
	}
	if sc.Description != "basic test scenario" {
		t.Fatalf("unexpected description %s", sc.Description)
	}
	if len(sc.Entities) != 3 {
		t.Fatalf("expected 3 entities, got %d", len(sc.Entities))
	}
	kkv, ok := sc.Entity("red-kkv-1")
	if !ok {
		t.Fatalf("red-kkv-1 not found")
	}
	if kkv.Weapon == nil || kkv.Weapon.Kind != WeaponKineticKill || kkv.Weapon.Pk != 0.7 {
		t.Fatalf("unexpected weapon %+v", kkv.Weapon)
	}
	if kkv.Position != (Vec3{600000, 0, 0}) {
		t.Fatalf("unexpected position %v", kkv.Position)
	}
	if len(sc.Events) != 1 || sc.Events[0].Action != ActionDeactivate {
		t.Fatalf("unexpected events %+v", sc.Events)
	}
}

func TestLoadScenario_SchemaViolation(t *testing.T) {
	if _, err := Load("testdata/bad_role.yaml"); err == nil {
		t.Fatalf("expected schema error for unknown role")
	}
}

func TestParse_JSON(t *testing.T) {
	doc := `{"name":"j","entities":[{"id":"a","team":"blue","type":"aircraft","position":[1,2,3]}]}`
	sc, err := Parse("inline.json", []byte(doc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if sc.Entities[0].Position != (Vec3{1, 2, 3}) {
		t.Fatalf("unexpected position %v", sc.Entities[0].Position)
	}
	if sc.Entities[0].DisplayName() != "a" {
		t.Fatalf("display name fallback failed")
	}
}

func TestBuiltInScenarios(t *testing.T) {
	names := []string{"orbital-skirmish", "hva-standoff", "air-defense", "dogfight"}
	builtins := BuiltIn()
	for _, n := range names {
		sc, ok := builtins[n]
		if !ok {
			t.Fatalf("scenario %s not found", n)
		}
		if sc.Description == "" {
			t.Fatalf("scenario %s missing description", n)
		}
		seen := map[string]bool{}
		for _, e := range sc.Entities {
			if seen[e.ID] {
				t.Fatalf("scenario %s has duplicate id %s", n, e.ID)
			}
			seen[e.ID] = true
		}
	}
}

func TestResolve(t *testing.T) {
	sc, err := Resolve("dogfight")
	if err != nil || sc.Name != "Dogfight" {
		t.Fatalf("resolve built-in: %v %+v", err, sc)
	}
	if _, err := Resolve("testdata/skirmish.yaml"); err != nil {
		t.Fatalf("resolve file: %v", err)
	}
	if _, err := Resolve("no-such-scenario"); err == nil {
		t.Fatalf("expected error for unknown scenario")
	}
}
