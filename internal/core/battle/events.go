package battle

// Event types published on the session's topic.
const (
	EventBattleStarted   = "battle.started"
	EventLogAppended     = "battle.log"
	EventTurnStarted     = "turn.started"
	EventAttackStarted   = "attack.started"
	EventDamageApplied   = "damage.applied"
	EventUnitDied        = "unit.died"
	EventTurnResolved    = "turn.resolved"
	EventTimelineUpdated = "timeline.updated"
	EventPauseChanged    = "battle.paused"
	EventBattleFinished  = "battle.finished"
)

type TurnEvent struct {
	UnitID string  `json:"unitId"`
	Side   Side    `json:"side"`
	Gauge  float64 `json:"gauge"`
}

type AttackEvent struct {
	AttackerID string `json:"attackerId"`
	TargetID   string `json:"targetId"`
}

type PauseEvent struct {
	Paused bool `json:"paused"`
}

type FinishEvent struct {
	Result Result `json:"result"`
	Turns  int    `json:"turns"`
}
