package battle

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUnit(id string, side Side, stats Stats) Unit {
	return Unit{
		ID:        id,
		Name:      id,
		Side:      side,
		Archetype: ArchetypeAttacker,
		Stats:     stats,
		Alive:     stats.HP > 0,
	}
}

func fighter(id string, side Side, hp, attack, defense, speed int) Unit {
	return newTestUnit(id, side, Stats{HP: hp, MaxHP: hp, Attack: attack, Defense: defense, Speed: speed})
}

func TestUnitValidate(t *testing.T) {
	valid := fighter("p1", SidePlayer, 100, 10, 10, 100)
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Unit)
	}{
		{"empty id", func(u *Unit) { u.ID = "" }},
		{"zero speed", func(u *Unit) { u.Stats.Speed = 0 }},
		{"negative speed", func(u *Unit) { u.Stats.Speed = -5 }},
		{"hp above max", func(u *Unit) { u.Stats.HP = 101 }},
		{"alive without hp", func(u *Unit) { u.Stats.HP = 0 }},
		{"negative gauge", func(u *Unit) { u.Gauge = -1 }},
		{"unknown side", func(u *Unit) { u.Side = Side(9) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := valid
			tt.mutate(&u)
			err := u.Validate()
			require.ErrorIs(t, err, ErrInvariantViolation)
			assert.Equal(t, CodeInvariantViolation, CodeOf(err))
		})
	}
}

func TestValidateRoster(t *testing.T) {
	p := fighter("p1", SidePlayer, 100, 10, 10, 100)
	e := fighter("e1", SideEnemy, 100, 10, 10, 100)

	require.NoError(t, ValidateRoster([]Unit{p, e}))
	assert.ErrorIs(t, ValidateRoster([]Unit{p, p, e}), ErrInvariantViolation)
	assert.ErrorIs(t, ValidateRoster([]Unit{p}), ErrInvariantViolation)
	assert.ErrorIs(t, ValidateRoster(nil), ErrInvariantViolation)
}

func TestRandomStartGauge(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		g := RandomStartGauge(rng)
		assert.GreaterOrEqual(t, g, 0.0)
		assert.Less(t, g, StartGaugeFraction*Goal)
	}
}

func TestRefreshed(t *testing.T) {
	u := newTestUnit("p1", SidePlayer, Stats{HP: 0, MaxHP: 300, Speed: 100})
	u.Gauge = 12000

	fresh := u.Refreshed(250)
	assert.Equal(t, 300, fresh.Stats.HP)
	assert.True(t, fresh.Alive)
	assert.Equal(t, 250.0, fresh.Gauge)
	assert.False(t, u.Alive)
}

func TestTextEncoding(t *testing.T) {
	u := fighter("p1", SidePlayer, 100, 10, 10, 100)
	u.Archetype = ArchetypeSpeedster

	data, err := json.Marshal(u)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"side":"player"`)
	assert.Contains(t, string(data), `"archetype":"speedster"`)

	var decoded Unit
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, u, decoded)

	_, err = ParseArchetype("wizard")
	assert.Error(t, err)
	a, err := ParseArchetype(" Tank ")
	require.NoError(t, err)
	assert.Equal(t, ArchetypeTank, a)
}

func TestSideOpponent(t *testing.T) {
	assert.Equal(t, SideEnemy, SidePlayer.Opponent())
	assert.Equal(t, SidePlayer, SideEnemy.Opponent())
}
