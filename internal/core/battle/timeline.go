package battle

import (
	"math"

	"github.com/zeusync/arena/pkg/sequence"
)

// TurnSnapshot is one predicted future turn.
type TurnSnapshot struct {
	UnitID string `json:"unitId"`
	Side   Side   `json:"side"`
	// TicksUntilTurn is the virtual time from now until the turn starts.
	TicksUntilTurn float64 `json:"ticksUntilTurn"`
}

// Predictor forecasts turn order without touching live state.
type Predictor struct {
	Lookahead int
	MaxSteps  int
}

func NewPredictor(cfg Config) Predictor {
	return Predictor{Lookahead: cfg.Lookahead, MaxSteps: cfg.MaxSimulationSteps}
}

// Predict forecasts the next lookahead actors with the default step bound.
func Predict(units []Unit, lookahead int) []TurnSnapshot {
	return Predictor{Lookahead: lookahead, MaxSteps: DefaultConfig().MaxSimulationSteps}.Predict(units)
}

type simUnit struct {
	id    string
	side  Side
	speed float64
	gauge float64
}

// Predict runs the scheduler's jump-then-select loop on a private copy of the
// alive units. It stops after Lookahead entries or MaxSteps jumps.
func (p Predictor) Predict(units []Unit) []TurnSnapshot {
	sim := make([]simUnit, 0, len(units))
	for _, u := range units {
		if !u.Alive || u.Stats.Speed <= 0 {
			continue
		}
		sim = append(sim, simUnit{id: u.ID, side: u.Side, speed: float64(u.Stats.Speed), gauge: u.Gauge})
	}
	if len(sim) == 0 || p.Lookahead <= 0 {
		return []TurnSnapshot{}
	}

	timeline := make([]TurnSnapshot, 0, p.Lookahead)
	clock := 0.0
	for steps := 0; len(timeline) < p.Lookahead && steps < p.MaxSteps; steps++ {
		dt := math.Inf(1)
		for _, u := range sim {
			dt = min(dt, math.Max(0, Goal-u.gauge)/u.speed)
		}
		for i := range sim {
			sim[i].gauge += dt * sim[i].speed
		}
		clock += dt

		ready := sequence.NewPriorityQueue[int]()
		for i, u := range sim {
			if u.gauge >= Goal-Epsilon {
				ready.Enqueue(i, u.gauge)
			}
		}
		for !ready.IsEmpty() && len(timeline) < p.Lookahead {
			i, _ := ready.Dequeue()
			timeline = append(timeline, TurnSnapshot{UnitID: sim[i].id, Side: sim[i].side, TicksUntilTurn: clock})
			sim[i].gauge -= Goal
		}
	}
	return timeline
}
