package battle

import (
	"fmt"
	"time"
)

// Phase is the turn/attack state machine's position within one turn.
type Phase uint8

const (
	// PhaseIdle waits on the scheduler, or on a player command once a player actor is selected.
	PhaseIdle Phase = iota
	// PhaseDeciding is the AI thinking delay.
	PhaseDeciding
	// PhaseWindUp runs from the attack start until damage lands.
	PhaseWindUp
	// PhaseDamageApplied is entered and left within a single step.
	PhaseDamageApplied
	// PhaseImpact holds the hit on screen before the turn resolves.
	PhaseImpact
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDeciding:
		return "deciding"
	case PhaseWindUp:
		return "wind_up"
	case PhaseDamageApplied:
		return "damage_applied"
	case PhaseImpact:
		return "impact"
	default:
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) (err error) {
	*p, err = parseEnum("phase", text, PhaseIdle, PhaseDeciding, PhaseWindUp, PhaseDamageApplied, PhaseImpact)
	return err
}

// Machine tracks the current phase, its remaining delay and the attack pair.
// Time only moves through Consume, so tests drive it without sleeping.
type Machine struct {
	phase     Phase
	remaining time.Duration
	actorID   string
	targetID  string
}

func (m *Machine) Phase() Phase                 { return m.phase }
func (m *Machine) Remaining() time.Duration     { return m.remaining }
func (m *Machine) Pair() (actor, target string) { return m.actorID, m.targetID }

// Timed reports whether the current phase is waiting on a delay.
func (m *Machine) Timed() bool {
	return m.phase == PhaseDeciding || m.phase == PhaseWindUp || m.phase == PhaseImpact
}

func (m *Machine) Decide(actorID string, delay time.Duration) error {
	if m.phase != PhaseIdle {
		return m.illegal(PhaseDeciding)
	}
	m.phase, m.remaining, m.actorID, m.targetID = PhaseDeciding, delay, actorID, ""
	return nil
}

func (m *Machine) WindUp(actorID, targetID string, delay time.Duration) error {
	if m.phase != PhaseIdle && m.phase != PhaseDeciding {
		return m.illegal(PhaseWindUp)
	}
	m.phase, m.remaining, m.actorID, m.targetID = PhaseWindUp, delay, actorID, targetID
	return nil
}

func (m *Machine) ApplyDamage() error {
	if m.phase != PhaseWindUp || m.remaining > 0 {
		return m.illegal(PhaseDamageApplied)
	}
	m.phase = PhaseDamageApplied
	return nil
}

func (m *Machine) Impact(delay time.Duration) error {
	if m.phase != PhaseDamageApplied {
		return m.illegal(PhaseImpact)
	}
	m.phase, m.remaining = PhaseImpact, delay
	return nil
}

// Reset returns to PhaseIdle and forgets the attack pair.
func (m *Machine) Reset() {
	*m = Machine{}
}

// Consume spends budget on the current delay. It returns the unspent budget
// and whether the delay has fully elapsed.
func (m *Machine) Consume(budget time.Duration) (time.Duration, bool) {
	if !m.Timed() {
		return budget, false
	}
	if budget < m.remaining {
		m.remaining -= budget
		return 0, false
	}
	left := budget - m.remaining
	m.remaining = 0
	return left, true
}

func (m *Machine) illegal(to Phase) error {
	return fmt.Errorf("turn machine: cannot enter %s from %s", to, m.phase)
}
