package battle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredictOrder(t *testing.T) {
	units := []Unit{
		withGauge(fighter("fast", SidePlayer, 100, 10, 10, 200), 0),
		withGauge(fighter("slow", SideEnemy, 100, 10, 10, 100), 0),
	}

	timeline := Predict(units, 3)
	require.Len(t, timeline, 3)
	assert.Equal(t, []TurnSnapshot{
		{UnitID: "fast", Side: SidePlayer, TicksUntilTurn: 50},
		{UnitID: "fast", Side: SidePlayer, TicksUntilTurn: 100},
		{UnitID: "slow", Side: SideEnemy, TicksUntilTurn: 100},
	}, timeline)
}

func TestPredictOverflowOrderWithinJump(t *testing.T) {
	units := []Unit{
		withGauge(fighter("p1", SidePlayer, 100, 10, 10, 100), Goal+100),
		withGauge(fighter("e1", SideEnemy, 100, 10, 10, 100), Goal+900),
	}

	timeline := Predict(units, 2)
	require.Len(t, timeline, 2)
	assert.Equal(t, "e1", timeline[0].UnitID)
	assert.Equal(t, "p1", timeline[1].UnitID)
	assert.Zero(t, timeline[0].TicksUntilTurn)
}

func TestPredictIsPure(t *testing.T) {
	units := []Unit{
		withGauge(fighter("p1", SidePlayer, 100, 10, 10, 137), 1234),
		withGauge(fighter("p2", SidePlayer, 100, 10, 10, 220), 2900),
		withGauge(fighter("e1", SideEnemy, 100, 10, 10, 101), 15),
		withGauge(fighter("e2", SideEnemy, 100, 10, 10, 99), 777),
	}
	before := cloneUnits(units)

	first := Predict(units, 10)
	second := Predict(units, 10)
	assert.Len(t, first, 10)
	assert.Equal(t, first, second)
	assert.Equal(t, before, units)
}

func TestPredictMatchesScheduler(t *testing.T) {
	units := []Unit{
		withGauge(fighter("p1", SidePlayer, 100, 10, 10, 130), 2500),
		withGauge(fighter("p2", SidePlayer, 100, 10, 10, 220), 100),
		withGauge(fighter("e1", SideEnemy, 100, 10, 10, 100), 1800),
		withGauge(fighter("e2", SideEnemy, 100, 10, 10, 110), 0),
	}
	predicted := Predict(units, 10)

	s := NewScheduler(units)
	var actual []string
	for len(actual) < len(predicted) {
		if s.Settle() == StateActorSelected {
			active, _ := s.Active()
			actual = append(actual, active.ID)
			finishActive(t, s)
			continue
		}
		s.Advance()
	}

	ids := make([]string, len(predicted))
	for i, snap := range predicted {
		ids[i] = snap.UnitID
	}
	assert.Equal(t, ids, actual)
}

func TestPredictSkipsDeadUnits(t *testing.T) {
	dead := fighter("e2", SideEnemy, 100, 10, 10, 500)
	dead.Stats.HP, dead.Alive = 0, false
	units := []Unit{fighter("p1", SidePlayer, 100, 10, 10, 100), fighter("e1", SideEnemy, 100, 10, 10, 100), dead}

	for _, snap := range Predict(units, 10) {
		assert.NotEqual(t, "e2", snap.UnitID)
	}
}

func TestPredictEdgeCases(t *testing.T) {
	dead := fighter("p1", SidePlayer, 100, 10, 10, 100)
	dead.Stats.HP, dead.Alive = 0, false

	assert.Empty(t, Predict(nil, 10))
	assert.NotNil(t, Predict(nil, 10))
	assert.Empty(t, Predict([]Unit{dead}, 10))
	assert.Empty(t, Predict([]Unit{fighter("p1", SidePlayer, 100, 10, 10, 100)}, 0))
}

func TestPredictStepBound(t *testing.T) {
	units := []Unit{
		fighter("p1", SidePlayer, 100, 10, 10, 1),
		fighter("e1", SideEnemy, 100, 10, 10, 1),
	}
	p := Predictor{Lookahead: 10, MaxSteps: 2}

	assert.Len(t, p.Predict(units), 4, "two jumps, both units ready on each")
}
