package scenario

// BuiltIn returns predefined engagement scenarios keyed by name.
func BuiltIn() map[string]Scenario {
	return map[string]Scenario{
		"orbital-skirmish": orbitalSkirmish(),
		"hva-standoff":     hvaStandoff(),
		"air-defense":      airDefense(),
		"dogfight":         dogfight(),
	}
}

func kkv(pk float64) *Weapon {
	return &Weapon{Kind: WeaponKineticKill, Pk: pk, KillRange: 50000, Cooldown: 5}
}

func orbitalSkirmish() Scenario {
	return Scenario{
		Name:        "Orbital Skirmish",
		Description: "Two relay constellations, each guarded by defenders, under attack by kinetic interceptors.",
		Entities: []Entity{
			{ID: "blue-hva-1", Name: "Blue Relay", Team: "blue", Type: "satellite", Role: RoleHVA, AI: AIOrbitalCombat, Position: Vec3{0, 0, 0}},
			{ID: "blue-def-1", Name: "Blue Guard 1", Team: "blue", Type: "satellite", Role: RoleDefender, AI: AIOrbitalCombat, Position: Vec3{50000, 20000, 0}, MaxSpeed: 2500, SensorRange: 1500000, Weapon: kkv(0.6)},
			{ID: "blue-atk-1", Name: "Blue Lancer 1", Team: "blue", Type: "satellite", Role: RoleAttacker, AI: AIOrbitalCombat, Position: Vec3{100000, -30000, 0}, MaxSpeed: 3000, SensorRange: 2500000, Weapon: kkv(0.7)},
			{ID: "red-hva-1", Name: "Red Relay", Team: "red", Type: "satellite", Role: RoleHVA, AI: AIOrbitalCombat, Position: Vec3{1200000, 0, 0}},
			{ID: "red-def-1", Name: "Red Guard 1", Team: "red", Type: "satellite", Role: RoleDefender, AI: AIOrbitalCombat, Position: Vec3{1150000, -20000, 0}, MaxSpeed: 2500, SensorRange: 1500000, Weapon: kkv(0.6)},
			{ID: "red-atk-1", Name: "Red Lancer 1", Team: "red", Type: "satellite", Role: RoleAttacker, AI: AIOrbitalCombat, Position: Vec3{1100000, 30000, 0}, MaxSpeed: 3000, SensorRange: 2500000, Weapon: kkv(0.7)},
			{ID: "red-atk-2", Name: "Red Lancer 2", Team: "red", Type: "satellite", Role: RoleAttacker, AI: AIOrbitalCombat, Position: Vec3{1100000, -60000, 10000}, MaxSpeed: 3000, SensorRange: 2500000, Weapon: kkv(0.7)},
		},
	}
}

func hvaStandoff() Scenario {
	return Scenario{
		Name:        "HVA Standoff",
		Description: "Two passive relays and nothing able to shoot at them.",
		Entities: []Entity{
			{ID: "blue-hva-1", Name: "Blue Relay", Team: "blue", Type: "satellite", Role: RoleHVA, AI: AIOrbitalCombat, Position: Vec3{0, 0, 0}},
			{ID: "red-hva-1", Name: "Red Relay", Team: "red", Type: "satellite", Role: RoleHVA, AI: AIOrbitalCombat, Position: Vec3{1000000, 0, 0}},
		},
	}
}

func airDefense() Scenario {
	sam := &Weapon{Kind: WeaponSAMBattery, Pk: 0.7, MinRange: 5000, MaxRange: 150000, MissileSpeed: 1200, Missiles: 8, Salvo: 2}
	return Scenario{
		Name:        "Air Defense",
		Description: "A surface-to-air battery defends a fighter CAP against an inbound strike package.",
		Entities: []Entity{
			{ID: "blue-sam-1", Name: "Blue SAM Site", Team: "blue", Type: "sam", Position: Vec3{0, 0, 0}, Weapon: sam},
			{ID: "blue-cap-1", Name: "Viper 1", Team: "blue", Type: "aircraft", AI: AIIntercept, Position: Vec3{-20000, 0, 8000}, MaxSpeed: 300, SensorRange: 90000, Weapon: fighterLoadout()},
			{ID: "red-strike-1", Name: "Bandit 1", Team: "red", Type: "aircraft", Position: Vec3{220000, 5000, 6000}, Velocity: Vec3{-250, 0, 0}},
			{ID: "red-strike-2", Name: "Bandit 2", Team: "red", Type: "aircraft", Position: Vec3{230000, -5000, 6000}, Velocity: Vec3{-250, 0, 0}},
			{ID: "red-strike-3", Name: "Bandit 3", Team: "red", Type: "aircraft", Position: Vec3{240000, 0, 7000}, Velocity: Vec3{-240, 0, 0}},
		},
	}
}

func dogfight() Scenario {
	return Scenario{
		Name:        "Dogfight",
		Description: "Two-ship versus two-ship beyond and within visual range.",
		Entities: []Entity{
			{ID: "blue-f-1", Name: "Eagle 1", Team: "blue", Type: "aircraft", AI: AIIntercept, Position: Vec3{0, 0, 9000}, MaxSpeed: 320, SensorRange: 120000, Weapon: fighterLoadout()},
			{ID: "blue-f-2", Name: "Eagle 2", Team: "blue", Type: "aircraft", AI: AIIntercept, Position: Vec3{0, 3000, 9000}, MaxSpeed: 320, SensorRange: 120000, Weapon: fighterLoadout()},
			{ID: "red-f-1", Name: "Flanker 1", Team: "red", Type: "aircraft", AI: AIIntercept, Position: Vec3{100000, 0, 9500}, MaxSpeed: 330, SensorRange: 110000, Weapon: fighterLoadout()},
			{ID: "red-f-2", Name: "Flanker 2", Team: "red", Type: "aircraft", AI: AIIntercept, Position: Vec3{100000, -3000, 9500}, MaxSpeed: 330, SensorRange: 110000, Weapon: fighterLoadout()},
		},
	}
}

func fighterLoadout() *Weapon {
	return &Weapon{
		Kind:     WeaponA2AMissile,
		LockTime: 1.5,
		Loadout: []Munition{
			{Name: "aim120", Count: 2, Range: 80000, Pk: 0.6, Speed: 1200},
			{Name: "aim9", Count: 2, Range: 18000, Pk: 0.75, Speed: 900},
		},
	}
}
