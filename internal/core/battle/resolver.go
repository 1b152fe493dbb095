package battle

// Outcome describes one resolved attack.
type Outcome struct {
	AttackerID string `json:"attackerId"`
	DefenderID string `json:"defenderId"`
	Damage     int    `json:"damage"`
	HPBefore   int    `json:"hpBefore"`
	HPAfter    int    `json:"hpAfter"`
	Killed     bool   `json:"killed"`
}

// Damage is attack minus the defender's defense, never less than 1.
func Damage(attacker, defender Unit) int {
	return max(1, attacker.Stats.Attack-defender.Stats.Defense)
}

// ApplyDamage returns the defender after losing damage hit points, clamped at zero.
func ApplyDamage(defender Unit, damage int) Unit {
	defender.Stats.HP = max(0, defender.Stats.HP-damage)
	defender.Alive = defender.Stats.HP > 0
	return defender
}

// Resolve computes and applies a single attack.
func Resolve(attacker, defender Unit) (Unit, Outcome) {
	dmg := Damage(attacker, defender)
	after := ApplyDamage(defender, dmg)
	return after, Outcome{
		AttackerID: attacker.ID,
		DefenderID: defender.ID,
		Damage:     dmg,
		HPBefore:   defender.Stats.HP,
		HPAfter:    after.Stats.HP,
		Killed:     defender.Alive && !after.Alive,
	}
}
