package battle

import (
	"fmt"
	"math"

	"github.com/zeusync/arena/pkg/sequence"
)

type SchedulerState uint8

const (
	StateAwaitingReadiness SchedulerState = iota
	StateActorSelected
	StateResolvingTurn
	StatePlayerWon
	StateEnemyWon
)

func (s SchedulerState) String() string {
	switch s {
	case StateAwaitingReadiness:
		return "awaiting_readiness"
	case StateActorSelected:
		return "actor_selected"
	case StateResolvingTurn:
		return "resolving_turn"
	case StatePlayerWon:
		return "player_won"
	case StateEnemyWon:
		return "enemy_won"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

func (s SchedulerState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *SchedulerState) UnmarshalText(text []byte) (err error) {
	*s, err = parseEnum("scheduler state", text,
		StateAwaitingReadiness, StateActorSelected, StateResolvingTurn, StatePlayerWon, StateEnemyWon)
	return err
}

func (s SchedulerState) Terminal() bool {
	return s == StatePlayerWon || s == StateEnemyWon
}

// Scheduler is the discrete-event readiness clock. It owns the unit
// collection of one battle and is not safe for concurrent use.
type Scheduler struct {
	units  []Unit
	index  map[string]int
	state  SchedulerState
	active int
	clock  float64
	turns  int
}

// NewScheduler takes ownership of a copy of units.
func NewScheduler(units []Unit) *Scheduler {
	s := &Scheduler{
		units:  cloneUnits(units),
		index:  make(map[string]int, len(units)),
		state:  StateAwaitingReadiness,
		active: -1,
	}
	for i, u := range s.units {
		s.index[u.ID] = i
	}
	return s
}

func (s *Scheduler) State() SchedulerState { return s.state }

// Clock is the virtual time elapsed since the scheduler was created.
func (s *Scheduler) Clock() float64 { return s.clock }

// Turns counts resolved turns.
func (s *Scheduler) Turns() int { return s.turns }

func (s *Scheduler) Units() []Unit { return cloneUnits(s.units) }

func (s *Scheduler) Unit(id string) (Unit, bool) {
	i, ok := s.index[id]
	if !ok {
		return Unit{}, false
	}
	return s.units[i], true
}

// Active returns the unit whose turn it is.
func (s *Scheduler) Active() (Unit, bool) {
	if s.active < 0 {
		return Unit{}, false
	}
	return s.units[s.active], true
}

// Replace swaps in a new snapshot of an existing unit.
func (s *Scheduler) Replace(u Unit) error {
	i, ok := s.index[u.ID]
	if !ok {
		return fmt.Errorf("replace %s: %w", u.ID, ErrTargetNotFound)
	}
	if err := u.Validate(); err != nil {
		return err
	}
	s.units[i] = u
	return nil
}

// Settle checks for a winner and otherwise selects the ready unit with the
// largest gauge. Units that became ready in the same jump stay ready and are
// picked, highest overflow first, by the following settles before any further
// gauge advance.
func (s *Scheduler) Settle() SchedulerState {
	if s.state != StateAwaitingReadiness {
		return s.state
	}

	var players, enemies int
	ready := sequence.NewPriorityQueue[int]()
	for i, u := range s.units {
		if !u.Alive {
			continue
		}
		if u.IsPlayer() {
			players++
		} else {
			enemies++
		}
		if u.Ready() {
			ready.Enqueue(i, u.Gauge)
		}
	}

	switch {
	case players == 0:
		s.state = StateEnemyWon
		return s.state
	case enemies == 0:
		s.state = StatePlayerWon
		return s.state
	}

	if next, ok := ready.Dequeue(); ok {
		s.active = next
		s.state = StateActorSelected
	}
	return s.state
}

// Advance jumps the virtual clock by the smallest step that makes some alive
// unit ready and returns that step. It does nothing unless the scheduler is
// awaiting readiness with nobody ready.
func (s *Scheduler) Advance() float64 {
	if s.state != StateAwaitingReadiness {
		return 0
	}
	dt := math.Inf(1)
	for _, u := range s.units {
		if !u.Alive {
			continue
		}
		if u.Ready() {
			return 0
		}
		dt = min(dt, math.Max(0, Goal-u.Gauge)/float64(u.Stats.Speed))
	}
	if math.IsInf(dt, 1) {
		return 0
	}
	dt = math.Max(dt, MinStep)
	for i := range s.units {
		if s.units[i].Alive {
			s.units[i].Gauge += dt * float64(s.units[i].Stats.Speed)
		}
	}
	s.clock += dt
	return dt
}

// BeginResolution marks the selected actor's action as started.
func (s *Scheduler) BeginResolution() error {
	if s.state != StateActorSelected {
		return fmt.Errorf("begin resolution in state %s: %w", s.state, ErrNoActorAwaitingTarget)
	}
	s.state = StateResolvingTurn
	return nil
}

// FinishTurn subtracts Goal from the actor's gauge, keeping any overflow,
// and returns to awaiting readiness.
func (s *Scheduler) FinishTurn() (Unit, error) {
	if s.state != StateActorSelected && s.state != StateResolvingTurn {
		return Unit{}, fmt.Errorf("finish turn in state %s: %w", s.state, ErrNoActorAwaitingTarget)
	}
	actor := &s.units[s.active]
	actor.Gauge = math.Max(0, actor.Gauge-Goal)
	finished := *actor
	s.active = -1
	s.turns++
	s.state = StateAwaitingReadiness
	return finished, nil
}
