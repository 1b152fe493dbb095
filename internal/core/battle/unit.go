package battle

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
)

// Goal is the gauge value a unit must reach to act.
const Goal = 10000.0

// Epsilon absorbs floating-point drift in readiness comparisons.
const Epsilon = 0.01

// MinStep is the smallest virtual-clock jump the scheduler takes.
const MinStep = 0.001

// StartGaugeFraction bounds the random starting gauge to [0, StartGaugeFraction*Goal).
const StartGaugeFraction = 0.3

type Side uint8

const (
	SidePlayer Side = iota
	SideEnemy
)

func (s Side) String() string {
	switch s {
	case SidePlayer:
		return "player"
	case SideEnemy:
		return "enemy"
	default:
		return fmt.Sprintf("side(%d)", uint8(s))
	}
}

func (s Side) Opponent() Side {
	if s == SidePlayer {
		return SideEnemy
	}
	return SidePlayer
}

// parseEnum maps text back to the value whose String matches it.
func parseEnum[T interface {
	~uint8
	String() string
}](kind string, text []byte, values ...T) (T, error) {
	for _, v := range values {
		if v.String() == string(text) {
			return v, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("unknown %s %q", kind, text)
}

func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "player":
		*s = SidePlayer
	case "enemy":
		*s = SideEnemy
	default:
		return fmt.Errorf("unknown side %q", text)
	}
	return nil
}

type Archetype uint8

const (
	// ArchetypeAny asks the roster generator to pick one at random.
	ArchetypeAny Archetype = iota
	ArchetypeAttacker
	ArchetypeTank
	ArchetypeDefender
	ArchetypeSpeedster
)

var archetypeNames = map[Archetype]string{
	ArchetypeAny:       "any",
	ArchetypeAttacker:  "attacker",
	ArchetypeTank:      "tank",
	ArchetypeDefender:  "defender",
	ArchetypeSpeedster: "speedster",
}

// Archetypes lists the concrete archetypes in declaration order.
func Archetypes() []Archetype {
	return []Archetype{ArchetypeAttacker, ArchetypeTank, ArchetypeDefender, ArchetypeSpeedster}
}

func (a Archetype) String() string {
	if name, ok := archetypeNames[a]; ok {
		return name
	}
	return fmt.Sprintf("archetype(%d)", uint8(a))
}

func ParseArchetype(s string) (Archetype, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for a, name := range archetypeNames {
		if name == needle {
			return a, nil
		}
	}
	return ArchetypeAny, fmt.Errorf("unknown archetype %q", s)
}

func (a Archetype) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Archetype) UnmarshalText(text []byte) error {
	parsed, err := ParseArchetype(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

type Stats struct {
	HP      int `json:"hp"`
	MaxHP   int `json:"maxHp"`
	Attack  int `json:"attack"`
	Defense int `json:"defense"`
	Speed   int `json:"speed"`
}

// Unit is a combatant. Units are values: every mutation produces a new
// snapshot that replaces the old one in the owning collection.
type Unit struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Side      Side      `json:"side"`
	Archetype Archetype `json:"archetype"`
	Stats     Stats     `json:"stats"`
	Gauge     float64   `json:"gauge"`
	Alive     bool      `json:"alive"`
}

func (u Unit) IsPlayer() bool { return u.Side == SidePlayer }

// Ready reports whether the gauge has reached Goal within Epsilon.
func (u Unit) Ready() bool { return u.Gauge >= Goal-Epsilon }

// Validate checks the unit invariants.
func (u Unit) Validate() error {
	switch {
	case u.ID == "":
		return invariantf("unit has no id")
	case u.Side != SidePlayer && u.Side != SideEnemy:
		return invariantf("unit %s: unknown side %d", u.ID, u.Side)
	case u.Stats.Speed <= 0:
		return invariantf("unit %s: speed must be positive, got %d", u.ID, u.Stats.Speed)
	case u.Stats.MaxHP <= 0:
		return invariantf("unit %s: max hp must be positive, got %d", u.ID, u.Stats.MaxHP)
	case u.Stats.HP < 0 || u.Stats.HP > u.Stats.MaxHP:
		return invariantf("unit %s: hp %d outside [0, %d]", u.ID, u.Stats.HP, u.Stats.MaxHP)
	case u.Alive != (u.Stats.HP > 0):
		return invariantf("unit %s: alive=%t with hp %d", u.ID, u.Alive, u.Stats.HP)
	case u.Gauge < 0 || math.IsNaN(u.Gauge) || math.IsInf(u.Gauge, 0):
		return invariantf("unit %s: invalid gauge %v", u.ID, u.Gauge)
	}
	return nil
}

// Refreshed returns the unit at full health with the given gauge.
func (u Unit) Refreshed(gauge float64) Unit {
	u.Stats.HP = u.Stats.MaxHP
	u.Alive = u.Stats.HP > 0
	u.Gauge = gauge
	return u
}

// RandomStartGauge draws a whole-number gauge in [0, StartGaugeFraction*Goal).
func RandomStartGauge(rng *rand.Rand) float64 {
	return math.Floor(rng.Float64() * StartGaugeFraction * Goal)
}

// ValidateRoster checks every unit, id uniqueness and that both sides are present.
func ValidateRoster(units []Unit) error {
	seen := make(map[string]struct{}, len(units))
	var players, enemies int
	for _, u := range units {
		if err := u.Validate(); err != nil {
			return err
		}
		if _, dup := seen[u.ID]; dup {
			return invariantf("duplicate unit id %s", u.ID)
		}
		seen[u.ID] = struct{}{}
		if u.IsPlayer() {
			players++
		} else {
			enemies++
		}
	}
	if players == 0 || enemies == 0 {
		return invariantf("both sides need units, got %d player and %d enemy", players, enemies)
	}
	return nil
}

func cloneUnits(units []Unit) []Unit {
	out := make([]Unit, len(units))
	copy(out, units)
	return out
}
