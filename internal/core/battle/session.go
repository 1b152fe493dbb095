package battle

import (
	"fmt"
	"math/rand"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/zeusync/arena/internal/core/events/bus"
	"github.com/zeusync/arena/internal/core/observability/log"
)

// Result is the terminal outcome of a battle.
type Result uint8

const (
	ResultNone Result = iota
	ResultPlayerWon
	ResultEnemyWon
)

func (r Result) String() string {
	switch r {
	case ResultNone:
		return "none"
	case ResultPlayerWon:
		return "player_won"
	case ResultEnemyWon:
		return "enemy_won"
	default:
		return fmt.Sprintf("result(%d)", uint8(r))
	}
}

func (r Result) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Result) UnmarshalText(text []byte) (err error) {
	*r, err = parseEnum("result", text, ResultNone, ResultPlayerWon, ResultEnemyWon)
	return err
}

type Option func(*Session)

func WithLogger(l log.Log) Option {
	return func(s *Session) { s.logger = l }
}

// WithEventBus publishes every battle event on the topic named after the session id.
func WithEventBus(b bus.EventBus) Option {
	return func(s *Session) { s.bus = b }
}

func WithRand(rng *rand.Rand) Option {
	return func(s *Session) { s.rng = rng }
}

// WithRoster sets the source used to generate an enemy team when none is given.
func WithRoster(src UnitSource) Option {
	return func(s *Session) { s.roster = src }
}

func WithTargetPicker(p TargetPicker) Option {
	return func(s *Session) { s.picker = p }
}

// WithAutoPlay lets the target picker drive player units too.
func WithAutoPlay(enabled bool) Option {
	return func(s *Session) { s.autoPlay = enabled }
}

func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// Session is one battle. All entry points must be called from a single
// goroutine; Runner provides that for real-time use.
type Session struct {
	id        string
	cfg       Config
	logger    log.Log
	bus       bus.EventBus
	rng       *rand.Rand
	roster    UnitSource
	picker    TargetPicker
	predictor Predictor
	autoPlay  bool

	players []Unit
	enemies []Unit

	sched    *Scheduler
	machine  Machine
	timeline []TurnSnapshot
	entries  []LogEntry
	result   Result
	paused   bool
	pending  time.Duration
	stepping bool

	attackingID string
	hitID       string
}

func NewSession(cfg Config, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Session{
		cfg:       cfg,
		predictor: NewPredictor(cfg),
		timeline:  []TurnSnapshot{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	if s.logger == nil {
		s.logger = log.NewNop()
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if s.picker == nil {
		s.picker = RandomPicker{Rand: s.rng}
	}
	s.logger = s.logger.With(log.String("component", "battle"), log.String("session", s.id))
	if s.bus != nil {
		if err := s.bus.CreateTopic(s.id); err != nil {
			return nil, fmt.Errorf("create session topic: %w", err)
		}
	}
	return s, nil
}

// Initialize starts a battle between players and enemies. With nil enemies a
// fresh team of Config.EnemyCount units is generated through the roster.
// Sides are assigned by argument position.
func (s *Session) Initialize(players, enemies []Unit) error {
	if s.stepping {
		return newError(CodeResolutionInFlight, "initialize", nil)
	}
	if enemies == nil {
		generated, err := s.generateEnemies()
		if err != nil {
			return err
		}
		enemies = generated
	}

	s.players = assignSide(players, SidePlayer)
	s.enemies = assignSide(enemies, SideEnemy)
	return s.start()
}

// Restart resets the battle with the same players and enemies at full health
// and fresh random gauges.
func (s *Session) Restart() error {
	if s.stepping {
		return newError(CodeResolutionInFlight, "restart", nil)
	}
	if s.sched == nil {
		return newError(CodeNotInitialized, "restart", nil)
	}
	return s.start()
}

func (s *Session) generateEnemies() ([]Unit, error) {
	if s.roster == nil {
		return nil, fmt.Errorf("initialize: %w", ErrNoRoster)
	}
	enemies := make([]Unit, 0, s.cfg.EnemyCount)
	for i := 1; i <= s.cfg.EnemyCount; i++ {
		u, err := s.roster.GenerateUnit(fmt.Sprintf("e%d", i), SideEnemy, ArchetypeAny)
		if err != nil {
			return nil, fmt.Errorf("generate enemy %d: %w", i, err)
		}
		enemies = append(enemies, u)
	}
	return enemies, nil
}

func assignSide(units []Unit, side Side) []Unit {
	out := cloneUnits(units)
	for i := range out {
		out[i].Side = side
	}
	return out
}

func (s *Session) start() error {
	units := make([]Unit, 0, len(s.players)+len(s.enemies))
	for _, u := range slices.Concat(s.players, s.enemies) {
		units = append(units, u.Refreshed(RandomStartGauge(s.rng)))
	}
	if err := ValidateRoster(units); err != nil {
		return err
	}

	s.sched = NewScheduler(units)
	s.machine.Reset()
	s.entries = []LogEntry{}
	s.result = ResultNone
	s.paused = false
	s.pending = 0
	s.attackingID, s.hitID = "", ""

	s.logger.Info("Battle started",
		log.Int("players", len(s.players)),
		log.Int("enemies", len(s.enemies)),
	)
	s.publish(EventBattleStarted, s.sched.Units())
	s.appendLog(LogInfo, "Battle started!")
	s.refreshTimeline()
	return nil
}

// Advance moves the session forward by dt of real time. Gauge jumps happen
// once per Config.Pace; decision, wind-up and impact delays consume dt
// directly. Nothing moves while paused, finished or waiting on the player.
func (s *Session) Advance(dt time.Duration) error {
	if s.sched == nil {
		return ErrNotInitialized
	}
	if s.paused || s.result != ResultNone || dt <= 0 {
		return nil
	}

	s.stepping = true
	defer func() { s.stepping = false }()

	budget := s.pending + dt
	s.pending = 0
	for s.result == ResultNone {
		if !s.machine.Timed() {
			progressed, err := s.stepIdle(&budget)
			if err != nil {
				return err
			}
			if !progressed {
				s.pending = budget
				return nil
			}
			continue
		}

		left, done := s.machine.Consume(budget)
		budget = left
		if !done {
			return nil
		}
		if err := s.onDelayElapsed(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) stepIdle(budget *time.Duration) (bool, error) {
	before := s.sched.State()
	switch after := s.sched.Settle(); after {
	case StatePlayerWon, StateEnemyWon:
		s.finish(after)
		return true, nil
	case StateActorSelected:
		actor, _ := s.sched.Active()
		if before == StateAwaitingReadiness {
			s.beginTurn(actor)
		}
		if s.controlledByPlayer(actor) {
			*budget = 0
			return false, nil
		}
		return true, s.machine.Decide(actor.ID, s.cfg.DecideDelay)
	case StateAwaitingReadiness:
		if *budget < s.cfg.Pace {
			return false, nil
		}
		*budget -= s.cfg.Pace
		if dt := s.sched.Advance(); dt == 0 {
			return false, invariantf("scheduler made no progress at clock %v", s.sched.Clock())
		}
		return true, nil
	default:
		return false, invariantf("idle machine with scheduler in state %s", after)
	}
}

func (s *Session) controlledByPlayer(u Unit) bool {
	return u.IsPlayer() && !s.autoPlay
}

func (s *Session) beginTurn(actor Unit) {
	s.logger.Debug("Actor selected",
		log.String("unit", actor.ID),
		log.Float64("gauge", actor.Gauge),
		log.Float64("clock", s.sched.Clock()),
	)
	s.appendLog(LogTurn, "%s's turn!", actor.Name)
	s.publish(EventTurnStarted, TurnEvent{UnitID: actor.ID, Side: actor.Side, Gauge: actor.Gauge})
}

func (s *Session) onDelayElapsed() error {
	switch s.machine.Phase() {
	case PhaseDeciding:
		return s.decide()
	case PhaseWindUp:
		return s.applyDamage()
	case PhaseImpact:
		return s.resolveTurn()
	default:
		return invariantf("delay elapsed in phase %s", s.machine.Phase())
	}
}

func (s *Session) decide() error {
	actor, _ := s.sched.Active()
	candidates := s.opponents(actor)
	if len(candidates) == 0 {
		return s.resolveTurn()
	}

	targetID, err := s.picker.PickTarget(actor, candidates)
	if err != nil || !slices.ContainsFunc(candidates, func(u Unit) bool { return u.ID == targetID }) {
		s.logger.Warn("Target picker failed, picking at random",
			log.String("unit", actor.ID),
			log.String("target", targetID),
			log.Error(err),
		)
		targetID = candidates[s.rng.Intn(len(candidates))].ID
	}
	return s.startAttack(actor, targetID)
}

func (s *Session) opponents(actor Unit) []Unit {
	var out []Unit
	for _, u := range s.sched.units {
		if u.Alive && u.Side != actor.Side {
			out = append(out, u)
		}
	}
	return out
}

func (s *Session) startAttack(actor Unit, targetID string) error {
	if err := s.sched.BeginResolution(); err != nil {
		return err
	}
	if err := s.machine.WindUp(actor.ID, targetID, s.cfg.WindUpDelay); err != nil {
		return err
	}
	s.attackingID = actor.ID
	s.publish(EventAttackStarted, AttackEvent{AttackerID: actor.ID, TargetID: targetID})
	return nil
}

func (s *Session) applyDamage() error {
	if err := s.machine.ApplyDamage(); err != nil {
		return err
	}
	attackerID, targetID := s.machine.Pair()
	attacker, _ := s.sched.Unit(attackerID)
	defender, ok := s.sched.Unit(targetID)
	if !ok {
		return invariantf("attack target %s vanished", targetID)
	}

	after, outcome := Resolve(attacker, defender)
	if err := s.sched.Replace(after); err != nil {
		return err
	}
	s.logger.Debug("Damage applied",
		log.String("attacker", attacker.ID),
		log.String("defender", defender.ID),
		log.Int("damage", outcome.Damage),
		log.Int("hp", outcome.HPAfter),
	)
	s.appendLog(LogDamage, "%s deals %d damage to %s!", attacker.Name, outcome.Damage, defender.Name)
	s.publish(EventDamageApplied, outcome)
	if outcome.Killed {
		s.logger.Info("Unit died", log.String("unit", defender.ID), log.String("by", attacker.ID))
		s.appendLog(LogDeath, "%s falls!", defender.Name)
		s.publish(EventUnitDied, after)
	}

	s.hitID = targetID
	return s.machine.Impact(s.cfg.ImpactDelay)
}

func (s *Session) resolveTurn() error {
	finished, err := s.sched.FinishTurn()
	if err != nil {
		return err
	}
	s.machine.Reset()
	s.attackingID, s.hitID = "", ""
	s.publish(EventTurnResolved, TurnEvent{UnitID: finished.ID, Side: finished.Side, Gauge: finished.Gauge})
	s.refreshTimeline()
	return nil
}

func (s *Session) finish(state SchedulerState) {
	s.result = ResultEnemyWon
	message := "Defeat!"
	if state == StatePlayerWon {
		s.result = ResultPlayerWon
		message = "Victory!"
	}
	s.pending = 0
	s.logger.Info("Battle finished",
		log.String("result", s.result.String()),
		log.Int("turns", s.sched.Turns()),
		log.Float64("clock", s.sched.Clock()),
	)
	s.appendLog(LogInfo, "%s", message)
	s.publish(EventBattleFinished, FinishEvent{Result: s.result, Turns: s.sched.Turns()})
}

func (s *Session) refreshTimeline() {
	s.timeline = s.predictor.Predict(s.sched.units)
	s.publish(EventTimelineUpdated, slices.Clone(s.timeline))
}

// SubmitTarget starts the waiting player actor's attack on targetID. A
// rejected command leaves the session unchanged.
func (s *Session) SubmitTarget(targetID string) error {
	if err := s.checkTarget(targetID); err != nil {
		s.logger.Warn("Target rejected", log.String("target", targetID), log.Error(err))
		return err
	}
	actor, _ := s.sched.Active()
	return s.startAttack(actor, targetID)
}

func (s *Session) checkTarget(targetID string) error {
	switch {
	case s.sched == nil:
		return illegalTarget(targetID, ErrNotInitialized)
	case s.result != ResultNone:
		return illegalTarget(targetID, ErrBattleOver)
	case s.paused:
		return illegalTarget(targetID, ErrSessionPaused)
	case !s.AwaitingTarget():
		return illegalTarget(targetID, ErrNoActorAwaitingTarget)
	}

	actor, _ := s.sched.Active()
	target, ok := s.sched.Unit(targetID)
	switch {
	case !ok:
		return illegalTarget(targetID, ErrTargetNotFound)
	case !target.Alive:
		return illegalTarget(targetID, ErrTargetDead)
	case target.Side == actor.Side:
		return illegalTarget(targetID, ErrTargetSameSide)
	}
	return nil
}

// SetPaused freezes or resumes every timer of the session.
func (s *Session) SetPaused(paused bool) {
	if s.paused == paused {
		return
	}
	s.paused = paused
	s.logger.Debug("Pause toggled", log.Bool("paused", paused))
	s.publish(EventPauseChanged, PauseEvent{Paused: paused})
}

func (s *Session) appendLog(kind LogKind, format string, args ...any) {
	entry := newLogEntry(kind, format, args...)
	s.entries = append(s.entries, entry)
	s.publish(EventLogAppended, entry)
}

func (s *Session) publish(eventType string, data any) {
	if s.bus == nil {
		return
	}
	if err := s.bus.PublishToTopic(s.id, bus.NewEvent(eventType, s.id, data, nil)); err != nil {
		s.logger.Warn("Event handler failed", log.String("event", eventType), log.Error(err))
	}
}

// Close drops the session's event topic.
func (s *Session) Close() error {
	if s.bus == nil {
		return nil
	}
	return s.bus.DeleteTopic(s.id)
}

func (s *Session) ID() string     { return s.id }
func (s *Session) Config() Config { return s.cfg }

func (s *Session) Units() []Unit {
	if s.sched == nil {
		return []Unit{}
	}
	return s.sched.Units()
}

func (s *Session) Unit(id string) (Unit, bool) {
	if s.sched == nil {
		return Unit{}, false
	}
	return s.sched.Unit(id)
}

func (s *Session) ActiveUnitID() string {
	if s.sched == nil {
		return ""
	}
	if actor, ok := s.sched.Active(); ok {
		return actor.ID
	}
	return ""
}

// AwaitingTarget reports whether a player actor is waiting for SubmitTarget.
func (s *Session) AwaitingTarget() bool {
	if s.sched == nil || s.result != ResultNone || s.machine.Phase() != PhaseIdle {
		return false
	}
	if s.sched.State() != StateActorSelected {
		return false
	}
	actor, _ := s.sched.Active()
	return s.controlledByPlayer(actor)
}

func (s *Session) Timeline() []TurnSnapshot { return slices.Clone(s.timeline) }
func (s *Session) Log() []LogEntry          { return slices.Clone(s.entries) }
func (s *Session) Result() Result           { return s.result }
func (s *Session) Paused() bool             { return s.paused }
func (s *Session) Phase() Phase             { return s.machine.Phase() }
func (s *Session) AttackingUnitID() string  { return s.attackingID }

// HitUnitID is the unit being struck during the impact hold.
func (s *Session) HitUnitID() string { return s.hitID }

func (s *Session) Turns() int {
	if s.sched == nil {
		return 0
	}
	return s.sched.Turns()
}

func (s *Session) Clock() float64 {
	if s.sched == nil {
		return 0
	}
	return s.sched.Clock()
}

func (s *Session) State() SchedulerState {
	if s.sched == nil {
		return StateAwaitingReadiness
	}
	return s.sched.State()
}

// Snapshot is a read-only copy of everything a renderer needs.
type Snapshot struct {
	SessionID       string         `json:"sessionId"`
	Units           []Unit         `json:"units"`
	ActiveUnitID    string         `json:"activeUnitId,omitempty"`
	AwaitingTarget  bool           `json:"awaitingTarget"`
	AttackingUnitID string         `json:"attackingUnitId,omitempty"`
	HitUnitID       string         `json:"hitUnitId,omitempty"`
	Phase           Phase          `json:"phase"`
	State           SchedulerState `json:"state"`
	Paused          bool           `json:"paused"`
	Result          Result         `json:"result"`
	Timeline        []TurnSnapshot `json:"timeline"`
	Log             []LogEntry     `json:"log"`
	Turns           int            `json:"turns"`
	Clock           float64        `json:"clock"`
}

func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		SessionID:       s.id,
		Units:           s.Units(),
		ActiveUnitID:    s.ActiveUnitID(),
		AwaitingTarget:  s.AwaitingTarget(),
		AttackingUnitID: s.attackingID,
		HitUnitID:       s.hitID,
		Phase:           s.machine.Phase(),
		State:           s.State(),
		Paused:          s.paused,
		Result:          s.result,
		Timeline:        s.Timeline(),
		Log:             s.Log(),
		Turns:           s.Turns(),
		Clock:           s.Clock(),
	}
}
