package config

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/zeusync/arena/internal/core/battle"
	"github.com/zeusync/arena/internal/core/observability/log"
)

// Config is the process configuration read from ARENA_* variables.
type Config struct {
	ListenAddr      string        `env:"ARENA_LISTEN_ADDR" envDefault:"127.0.0.1:8080"`
	LogLevel        log.Level     `env:"ARENA_LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"ARENA_SHUTDOWN_TIMEOUT" envDefault:"5s"`
	MaxClients      int           `env:"ARENA_MAX_CLIENTS" envDefault:"1000"`

	// Seed fixes every random source of the process. Zero draws a fresh seed.
	Seed int64 `env:"ARENA_SEED" envDefault:"0"`
	// RosterFile is an archetype table in YAML; empty uses the builtin one.
	RosterFile string `env:"ARENA_ROSTER_FILE"`
	// BrainFile is a builtin brain name or a YAML/JSON tree file.
	BrainFile  string `env:"ARENA_BRAIN_FILE" envDefault:"random"`
	RosterSize int    `env:"ARENA_ROSTER_SIZE" envDefault:"20"`
	TeamSize   int    `env:"ARENA_TEAM_SIZE" envDefault:"3"`

	Pace        time.Duration `env:"ARENA_PACE" envDefault:"30ms"`
	DecideDelay time.Duration `env:"ARENA_DECIDE_DELAY" envDefault:"800ms"`
	WindUpDelay time.Duration `env:"ARENA_WIND_UP_DELAY" envDefault:"300ms"`
	ImpactDelay time.Duration `env:"ARENA_IMPACT_DELAY" envDefault:"500ms"`
	Lookahead   int           `env:"ARENA_LOOKAHEAD" envDefault:"10"`
	EnemyCount  int           `env:"ARENA_ENEMY_COUNT" envDefault:"3"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.ListenAddr == "":
		return fmt.Errorf("listen address is empty")
	case c.MaxClients < 0:
		return fmt.Errorf("max clients must not be negative, got %d", c.MaxClients)
	case c.RosterSize <= 0:
		return fmt.Errorf("roster size must be positive, got %d", c.RosterSize)
	case c.TeamSize <= 0 || c.TeamSize > c.RosterSize:
		return fmt.Errorf("team size must be in [1, %d], got %d", c.RosterSize, c.TeamSize)
	}
	return c.Battle().Validate()
}

// Battle returns the session configuration.
func (c Config) Battle() battle.Config {
	cfg := battle.DefaultConfig()
	cfg.Pace = c.Pace
	cfg.DecideDelay = c.DecideDelay
	cfg.WindUpDelay = c.WindUpDelay
	cfg.ImpactDelay = c.ImpactDelay
	cfg.Lookahead = c.Lookahead
	cfg.EnemyCount = c.EnemyCount
	return cfg
}

// ResolveSeed returns Seed, or a fresh one when Seed is zero.
func (c Config) ResolveSeed() int64 {
	if c.Seed != 0 {
		return c.Seed
	}
	return NewSeed()
}

// NewSeed draws a non-zero seed from the OS random source.
func NewSeed() int64 {
	var b [8]byte
	for {
		if _, err := crand.Read(b[:]); err != nil {
			return time.Now().UnixNano()
		}
		if seed := int64(binary.LittleEndian.Uint64(b[:])); seed != 0 {
			return seed
		}
	}
}
