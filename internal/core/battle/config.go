package battle

import (
	"fmt"
	"time"
)

// Config holds the timing and forecast settings of a session.
type Config struct {
	// Pace is the real time spent before each gauge jump. It only paces the
	// display and has no effect on turn order.
	Pace time.Duration
	// DecideDelay is how long an AI actor "thinks" before choosing a target.
	DecideDelay time.Duration
	// WindUpDelay separates the attack start from damage application.
	WindUpDelay time.Duration
	// ImpactDelay holds the hit before the turn resolves.
	ImpactDelay time.Duration

	Lookahead          int
	MaxSimulationSteps int
	EnemyCount         int
}

func DefaultConfig() Config {
	return Config{
		Pace:               30 * time.Millisecond,
		DecideDelay:        800 * time.Millisecond,
		WindUpDelay:        300 * time.Millisecond,
		ImpactDelay:        500 * time.Millisecond,
		Lookahead:          10,
		MaxSimulationSteps: 100,
		EnemyCount:         3,
	}
}

func (c Config) Validate() error {
	switch {
	case c.Pace <= 0:
		return invariantf("pace must be positive, got %s", c.Pace)
	case c.DecideDelay < 0 || c.WindUpDelay < 0 || c.ImpactDelay < 0:
		return invariantf("delays must not be negative")
	case c.Lookahead < 0:
		return invariantf("lookahead must not be negative, got %d", c.Lookahead)
	case c.MaxSimulationSteps <= 0:
		return invariantf("max simulation steps must be positive, got %d", c.MaxSimulationSteps)
	case c.EnemyCount <= 0:
		return invariantf("enemy count must be positive, got %d", c.EnemyCount)
	}
	return nil
}

func (c Config) String() string {
	return fmt.Sprintf("pace=%s decide=%s windup=%s impact=%s lookahead=%d",
		c.Pace, c.DecideDelay, c.WindUpDelay, c.ImpactDelay, c.Lookahead)
}
