package battle

import (
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/arena/internal/core/events/bus"
)

type pickerFunc func(actor Unit, candidates []Unit) (string, error)

func (f pickerFunc) PickTarget(actor Unit, candidates []Unit) (string, error) {
	return f(actor, candidates)
}

type sourceFunc func(id string, side Side, archetype Archetype) (Unit, error)

func (f sourceFunc) GenerateUnit(id string, side Side, archetype Archetype) (Unit, error) {
	return f(id, side, archetype)
}

func newTestSession(t *testing.T, opts ...Option) *Session {
	t.Helper()
	base := []Option{WithRand(rand.New(rand.NewSource(42)))}
	s, err := NewSession(DefaultConfig(), append(base, opts...)...)
	require.NoError(t, err)
	return s
}

// duel returns a fast player facing two enemies too slow to act for thousands of ticks.
func duel() ([]Unit, []Unit) {
	players := []Unit{fighter("p1", SidePlayer, 800, 180, 30, 1000)}
	enemies := []Unit{
		fighter("e1", SideEnemy, 800, 50, 30, 1),
		fighter("e2", SideEnemy, 1, 50, 30, 1),
	}
	return players, enemies
}

func startDuel(t *testing.T, opts ...Option) *Session {
	t.Helper()
	s := newTestSession(t, opts...)
	require.NoError(t, s.Initialize(duel()))
	require.NoError(t, s.Advance(s.Config().Pace))
	require.True(t, s.AwaitingTarget())
	return s
}

func playAttack(t *testing.T, s *Session, target string) {
	t.Helper()
	require.NoError(t, s.SubmitTarget(target))
	cfg := s.Config()
	require.NoError(t, s.Advance(cfg.WindUpDelay+cfg.ImpactDelay))
}

func hp(t *testing.T, s *Session, id string) int {
	t.Helper()
	u, ok := s.Unit(id)
	require.True(t, ok)
	return u.Stats.HP
}

func TestSessionInitialize(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.Initialize(duel()))

	assert.Equal(t, StateAwaitingReadiness, s.State())
	assert.Equal(t, ResultNone, s.Result())
	assert.Empty(t, s.ActiveUnitID())
	assert.Len(t, s.Units(), 3)
	assert.NotEmpty(t, s.Timeline())

	entries := s.Log()
	require.Len(t, entries, 1)
	assert.Equal(t, LogInfo, entries[0].Kind)
	assert.Equal(t, "Battle started!", entries[0].Message)

	for _, u := range s.Units() {
		assert.Equal(t, u.Stats.MaxHP, u.Stats.HP)
		assert.GreaterOrEqual(t, u.Gauge, 0.0)
		assert.Less(t, u.Gauge, StartGaugeFraction*Goal)
	}
}

func TestSessionInitializeRejectsInvalidUnits(t *testing.T) {
	s := newTestSession(t)
	players, enemies := duel()

	slow := players[0]
	slow.Stats.Speed = 0
	err := s.Initialize([]Unit{slow}, enemies)
	require.ErrorIs(t, err, ErrInvariantViolation)
	assert.Equal(t, CodeInvariantViolation, CodeOf(err))

	assert.ErrorIs(t, s.Initialize(nil, enemies), ErrInvariantViolation)
	assert.ErrorIs(t, s.Initialize(players, []Unit{players[0]}), ErrInvariantViolation, "duplicate id across sides")
}

func TestSessionGeneratesEnemies(t *testing.T) {
	var requested []string
	roster := sourceFunc(func(id string, side Side, archetype Archetype) (Unit, error) {
		requested = append(requested, id)
		assert.Equal(t, SideEnemy, side)
		assert.Equal(t, ArchetypeAny, archetype)
		return fighter(id, side, 500, 60, 20, 100), nil
	})
	s := newTestSession(t, WithRoster(roster))

	players, _ := duel()
	require.NoError(t, s.Initialize(players, nil))
	assert.Equal(t, []string{"e1", "e2", "e3"}, requested)

	var enemies int
	for _, u := range s.Units() {
		if u.Side == SideEnemy {
			enemies++
		}
	}
	assert.Equal(t, 3, enemies)

	bare := newTestSession(t)
	assert.ErrorIs(t, bare.Initialize(players, nil), ErrNoRoster)
}

func TestSessionRequiresInitialize(t *testing.T) {
	s := newTestSession(t)
	assert.ErrorIs(t, s.Advance(time.Second), ErrNotInitialized)
	assert.ErrorIs(t, s.Restart(), ErrNotInitialized)

	err := s.SubmitTarget("e1")
	assert.ErrorIs(t, err, ErrIllegalTarget)
	assert.Empty(t, s.Units())
}

func TestSubmitTargetWithoutActivePlayer(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.Initialize(duel()))
	before := s.Units()

	err := s.SubmitTarget("e1")
	require.ErrorIs(t, err, ErrIllegalTarget)
	assert.ErrorIs(t, err, ErrNoActorAwaitingTarget)
	assert.Equal(t, CodeIllegalTarget, CodeOf(err))
	assert.Equal(t, before, s.Units())
	assert.Equal(t, PhaseIdle, s.Phase())
}

func TestGaugeJumpsArePaced(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.Initialize(duel()))
	pace := s.Config().Pace

	require.NoError(t, s.Advance(pace/2))
	assert.Zero(t, s.Clock())

	require.NoError(t, s.Advance(pace/2))
	assert.Positive(t, s.Clock())
	assert.Equal(t, "p1", s.ActiveUnitID())
}

func TestPlayerTurn(t *testing.T) {
	s := startDuel(t)
	cfg := s.Config()
	assert.Equal(t, "p1", s.ActiveUnitID())
	assert.Equal(t, PhaseIdle, s.Phase())

	units, clock := s.Units(), s.Clock()
	require.NoError(t, s.Advance(time.Hour))
	assert.True(t, s.AwaitingTarget(), "player turns never time out")
	assert.Equal(t, units, s.Units())
	assert.Equal(t, clock, s.Clock())

	assert.ErrorIs(t, s.SubmitTarget("p1"), ErrTargetSameSide)
	assert.ErrorIs(t, s.SubmitTarget("ghost"), ErrTargetNotFound)
	assert.Equal(t, units, s.Units())

	require.NoError(t, s.SubmitTarget("e1"))
	assert.False(t, s.AwaitingTarget())
	assert.Equal(t, PhaseWindUp, s.Phase())
	assert.Equal(t, "p1", s.AttackingUnitID())
	assert.Equal(t, cfg.WindUpDelay, s.machine.Remaining(), "time spent waiting is not banked")
	assert.ErrorIs(t, s.SubmitTarget("e1"), ErrNoActorAwaitingTarget)

	require.NoError(t, s.Advance(cfg.WindUpDelay-time.Millisecond))
	assert.Equal(t, 800, hp(t, s, "e1"))

	require.NoError(t, s.Advance(time.Millisecond))
	assert.Equal(t, PhaseImpact, s.Phase())
	assert.Equal(t, "e1", s.HitUnitID())
	assert.Equal(t, 650, hp(t, s, "e1"))

	require.NoError(t, s.Advance(cfg.ImpactDelay))
	assert.Equal(t, 1, s.Turns())
	assert.Equal(t, PhaseIdle, s.Phase())
	assert.Empty(t, s.AttackingUnitID())
	assert.Empty(t, s.HitUnitID())
	assert.Empty(t, s.ActiveUnitID())

	var kinds []LogKind
	for _, e := range s.Log() {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []LogKind{LogInfo, LogTurn, LogDamage}, kinds)
	assert.Equal(t, "p1 deals 150 damage to e1!", s.Log()[2].Message)
}

func TestKilledUnitLeavesPlay(t *testing.T) {
	s := startDuel(t)
	playAttack(t, s, "e2")

	e2, _ := s.Unit("e2")
	assert.False(t, e2.Alive)
	assert.Zero(t, e2.Stats.HP)

	last := s.Log()[len(s.Log())-1]
	assert.Equal(t, LogDeath, last.Kind)
	assert.Equal(t, "e2 falls!", last.Message)

	for _, snap := range s.Timeline() {
		assert.NotEqual(t, "e2", snap.UnitID)
	}

	require.NoError(t, s.Advance(s.Config().Pace))
	require.True(t, s.AwaitingTarget())
	assert.ErrorIs(t, s.SubmitTarget("e2"), ErrTargetDead)
}

func TestPauseFreezesEverything(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.Initialize(duel()))

	s.SetPaused(true)
	require.NoError(t, s.Advance(time.Hour))
	assert.Zero(t, s.Clock())
	s.SetPaused(false)

	require.NoError(t, s.Advance(s.Config().Pace))
	require.True(t, s.AwaitingTarget())

	s.SetPaused(true)
	assert.ErrorIs(t, s.SubmitTarget("e1"), ErrSessionPaused)
	s.SetPaused(false)

	require.NoError(t, s.SubmitTarget("e1"))
	s.SetPaused(true)
	require.NoError(t, s.Advance(time.Hour))
	assert.Equal(t, PhaseWindUp, s.Phase())
	assert.Equal(t, s.Config().WindUpDelay, s.machine.Remaining())
	assert.Equal(t, 800, hp(t, s, "e1"))

	s.SetPaused(false)
	require.NoError(t, s.Advance(s.Config().WindUpDelay))
	assert.Equal(t, PhaseImpact, s.Phase())
	assert.Equal(t, 650, hp(t, s, "e1"))
}

func TestPlayerWins(t *testing.T) {
	s := newTestSession(t)
	players := []Unit{fighter("p1", SidePlayer, 800, 1000, 30, 1000)}
	enemies := []Unit{fighter("e1", SideEnemy, 100, 50, 30, 1)}
	require.NoError(t, s.Initialize(players, enemies))
	require.NoError(t, s.Advance(s.Config().Pace))

	playAttack(t, s, "e1")
	assert.Equal(t, ResultPlayerWon, s.Result())
	assert.Equal(t, StatePlayerWon, s.State())
	assert.Equal(t, "Victory!", s.Log()[len(s.Log())-1].Message)

	clock, turns := s.Clock(), s.Turns()
	require.NoError(t, s.Advance(time.Hour))
	assert.Equal(t, clock, s.Clock())
	assert.Equal(t, turns, s.Turns())
	assert.ErrorIs(t, s.SubmitTarget("e1"), ErrBattleOver)
}

func TestEnemyTurnUsesPicker(t *testing.T) {
	var calls [][]string
	picker := pickerFunc(func(actor Unit, candidates []Unit) (string, error) {
		var ids []string
		for _, c := range candidates {
			ids = append(ids, c.ID)
		}
		calls = append(calls, ids)
		return "p2", nil
	})
	s := newTestSession(t, WithTargetPicker(picker))
	cfg := s.Config()

	players := []Unit{fighter("p1", SidePlayer, 800, 100, 30, 1), fighter("p2", SidePlayer, 800, 100, 40, 1)}
	enemies := []Unit{fighter("e1", SideEnemy, 800, 140, 30, 1000)}
	require.NoError(t, s.Initialize(players, enemies))

	require.NoError(t, s.Advance(cfg.Pace))
	assert.Equal(t, "e1", s.ActiveUnitID())
	assert.Equal(t, PhaseDeciding, s.Phase())
	assert.False(t, s.AwaitingTarget())
	assert.ErrorIs(t, s.SubmitTarget("p1"), ErrNoActorAwaitingTarget)
	assert.Empty(t, calls)

	require.NoError(t, s.Advance(cfg.DecideDelay))
	assert.Equal(t, [][]string{{"p1", "p2"}}, calls)
	assert.Equal(t, PhaseWindUp, s.Phase())
	assert.Equal(t, "e1", s.AttackingUnitID())

	require.NoError(t, s.Advance(cfg.WindUpDelay))
	assert.Equal(t, 700, hp(t, s, "p2"))
	assert.Equal(t, 800, hp(t, s, "p1"))
}

func TestPickerFailureFallsBackToRandom(t *testing.T) {
	picker := pickerFunc(func(Unit, []Unit) (string, error) { return "nobody", nil })
	s := newTestSession(t, WithTargetPicker(picker))
	cfg := s.Config()

	players := []Unit{fighter("p1", SidePlayer, 800, 100, 30, 1)}
	enemies := []Unit{fighter("e1", SideEnemy, 800, 140, 30, 1000)}
	require.NoError(t, s.Initialize(players, enemies))

	require.NoError(t, s.Advance(cfg.Pace+cfg.DecideDelay+cfg.WindUpDelay))
	assert.Equal(t, 690, hp(t, s, "p1"))
}

func TestAutoPlayBattleFinishes(t *testing.T) {
	s := newTestSession(t, WithAutoPlay(true))
	players := []Unit{
		fighter("p1", SidePlayer, 800, 180, 30, 130),
		fighter("p2", SidePlayer, 1500, 80, 50, 100),
		fighter("p3", SidePlayer, 700, 110, 20, 220),
	}
	enemies := []Unit{
		fighter("e1", SideEnemy, 1000, 90, 120, 110),
		fighter("e2", SideEnemy, 800, 180, 30, 130),
		fighter("e3", SideEnemy, 700, 110, 20, 220),
	}
	require.NoError(t, s.Initialize(players, enemies))

	pace := s.Config().Pace
	for i := 0; i < 100000 && s.Result() == ResultNone; i++ {
		require.NoError(t, s.Advance(pace))
		assert.False(t, s.AwaitingTarget())
		for _, u := range s.Units() {
			require.NoError(t, u.Validate())
		}
		if id := s.ActiveUnitID(); id != "" {
			active, _ := s.Unit(id)
			require.True(t, active.Alive, "dead unit %s selected", id)
		}
	}

	require.NotEqual(t, ResultNone, s.Result())
	assert.Positive(t, s.Turns())
	last := s.Log()[len(s.Log())-1].Message
	assert.Contains(t, []string{"Victory!", "Defeat!"}, last)
}

func TestTurnsWithoutDeathsKeepUnits(t *testing.T) {
	s := newTestSession(t, WithAutoPlay(true))
	players := []Unit{fighter("p1", SidePlayer, 100000, 10, 0, 100), fighter("p2", SidePlayer, 100000, 10, 0, 150)}
	enemies := []Unit{fighter("e1", SideEnemy, 100000, 10, 0, 120)}
	require.NoError(t, s.Initialize(players, enemies))

	ids := func() []string {
		var out []string
		for _, u := range s.Units() {
			out = append(out, u.ID)
		}
		return out
	}
	before := ids()

	for i := 0; i < 2000; i++ {
		require.NoError(t, s.Advance(s.Config().Pace))
	}
	assert.Greater(t, s.Turns(), 5)
	assert.Equal(t, ResultNone, s.Result())
	assert.ElementsMatch(t, before, ids())
}

func TestRestart(t *testing.T) {
	s := startDuel(t)
	playAttack(t, s, "e2")
	s.SetPaused(true)
	require.Equal(t, 1, s.Turns())

	require.NoError(t, s.Restart())
	assert.False(t, s.Paused())
	assert.Zero(t, s.Turns())
	assert.Zero(t, s.Clock())
	assert.Equal(t, ResultNone, s.Result())
	assert.Empty(t, s.ActiveUnitID())
	assert.Len(t, s.Log(), 1)

	var ids []string
	for _, u := range s.Units() {
		ids = append(ids, u.ID)
		assert.True(t, u.Alive)
		assert.Equal(t, u.Stats.MaxHP, u.Stats.HP)
	}
	assert.Equal(t, []string{"p1", "e1", "e2"}, ids)
}

func TestRestartRejectedDuringResolution(t *testing.T) {
	b := bus.New()
	s := startDuel(t, WithEventBus(b))

	var restartErr error
	_, err := b.SubscribeTopic(s.ID(), EventDamageApplied, func(bus.Event) error {
		restartErr = s.Restart()
		return nil
	})
	require.NoError(t, err)

	playAttack(t, s, "e1")
	require.ErrorIs(t, restartErr, ErrResolutionInFlight)
	assert.Equal(t, CodeResolutionInFlight, CodeOf(restartErr))
	assert.Equal(t, 650, hp(t, s, "e1"))
	assert.Equal(t, 1, s.Turns())
}

func TestSessionPublishesEvents(t *testing.T) {
	b := bus.New()
	s := newTestSession(t, WithEventBus(b))

	var seen []string
	_, err := b.SubscribeTopic(s.ID(), bus.Wildcard, func(e bus.Event) error {
		seen = append(seen, e.Type())
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, s.Initialize(duel()))
	assert.Equal(t, []string{EventBattleStarted, EventLogAppended, EventTimelineUpdated}, seen)

	seen = nil
	require.NoError(t, s.Advance(s.Config().Pace))
	s.SetPaused(true)
	s.SetPaused(false)
	playAttack(t, s, "e2")
	assert.Equal(t, []string{
		EventLogAppended, EventTurnStarted,
		EventPauseChanged, EventPauseChanged,
		EventAttackStarted,
		EventLogAppended, EventDamageApplied,
		EventLogAppended, EventUnitDied,
		EventTurnResolved, EventTimelineUpdated,
	}, seen)

	require.NoError(t, s.Close())
	assert.Empty(t, b.GetTopics())
}

func TestSnapshotEncoding(t *testing.T) {
	s := startDuel(t)
	snap := s.Snapshot()

	assert.Equal(t, s.ID(), snap.SessionID)
	assert.True(t, snap.AwaitingTarget)
	assert.Equal(t, "p1", snap.ActiveUnitID)

	data, err := json.Marshal(snap)
	require.NoError(t, err)
	body := string(data)
	assert.Contains(t, body, `"awaitingTarget":true`)
	assert.Contains(t, body, `"phase":"idle"`)
	assert.Contains(t, body, `"state":"actor_selected"`)
	assert.Contains(t, body, `"result":"none"`)
	assert.Contains(t, body, `"kind":"turn"`)
}

func TestSnapshotDecodes(t *testing.T) {
	s := startDuel(t)
	playAttack(t, s, "e2")
	snap := s.Snapshot()

	data, err := json.Marshal(snap)
	require.NoError(t, err)

	var decoded Snapshot
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, snap, decoded)

	var phase Phase
	assert.Error(t, phase.UnmarshalText([]byte("sleeping")))
}
