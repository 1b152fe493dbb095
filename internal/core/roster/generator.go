package roster

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/google/uuid"

	"github.com/zeusync/arena/internal/core/battle"
)

// Generator rolls units from a Table. It is not safe for concurrent use
// because it shares its random source.
type Generator struct {
	table *Table
	rng   *rand.Rand
}

func NewGenerator(table *Table, rng *rand.Rand) *Generator {
	if table == nil {
		table = DefaultTable()
	}
	return &Generator{table: table, rng: rng}
}

// GenerateUnit creates a unit at full health with a random starting gauge.
// ArchetypeAny picks one of the concrete archetypes uniformly.
func (g *Generator) GenerateUnit(id string, side battle.Side, archetype battle.Archetype) (battle.Unit, error) {
	if archetype == battle.ArchetypeAny {
		all := battle.Archetypes()
		archetype = all[g.rng.Intn(len(all))]
	}
	base, ok := g.table.Base(archetype)
	if !ok {
		return battle.Unit{}, fmt.Errorf("%w: no stats for archetype %s", battle.ErrInvariantViolation, archetype)
	}

	hp := g.roll(base.HP)
	u := battle.Unit{
		ID:        id,
		Name:      fmt.Sprintf("%s (%s)", g.name(side), base.Tag),
		Side:      side,
		Archetype: archetype,
		Stats: battle.Stats{
			HP:      hp,
			MaxHP:   hp,
			Attack:  g.roll(base.Attack),
			Defense: g.roll(base.Defense),
			Speed:   g.roll(base.Speed),
		},
		Gauge: battle.RandomStartGauge(g.rng),
		Alive: hp > 0,
	}
	if err := u.Validate(); err != nil {
		return battle.Unit{}, err
	}
	return u, nil
}

// GenerateRoster creates count player recruits with random archetypes.
func (g *Generator) GenerateRoster(count int) ([]battle.Unit, error) {
	roster := make([]battle.Unit, 0, count)
	for i := 0; i < count; i++ {
		u, err := g.GenerateUnit(fmt.Sprintf("roster-%d-%s", i, uuid.NewString()), battle.SidePlayer, battle.ArchetypeAny)
		if err != nil {
			return nil, fmt.Errorf("generate recruit %d: %w", i, err)
		}
		roster = append(roster, u)
	}
	return roster, nil
}

// EnemyTeam creates enemies e1..eN with random archetypes.
func (g *Generator) EnemyTeam(count int) ([]battle.Unit, error) {
	team := make([]battle.Unit, 0, count)
	for i := 1; i <= count; i++ {
		u, err := g.GenerateUnit(fmt.Sprintf("e%d", i), battle.SideEnemy, battle.ArchetypeAny)
		if err != nil {
			return nil, err
		}
		team = append(team, u)
	}
	return team, nil
}

// Team picks the first size recruits of roster.
func Team(roster []battle.Unit, size int) []battle.Unit {
	size = max(0, min(size, len(roster)))
	out := make([]battle.Unit, size)
	copy(out, roster[:size])
	return out
}

func (g *Generator) roll(base int) int {
	v := g.table.Variance
	return int(math.Floor(float64(base) * (1 - v + g.rng.Float64()*2*v)))
}

func (g *Generator) name(side battle.Side) string {
	pool := g.table.Names.Player
	if side == battle.SideEnemy {
		pool = g.table.Names.Enemy
	}
	return pool[g.rng.Intn(len(pool))]
}
