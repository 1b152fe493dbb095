// Package sim plays battles headlessly, both sides driven by a brain.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zeusync/arena/internal/core/battle"
	"github.com/zeusync/arena/internal/core/npc"
	"github.com/zeusync/arena/internal/core/observability/log"
	"github.com/zeusync/arena/internal/core/roster"
)

var ErrInvalidOptions = errors.New("invalid simulation options")

type Options struct {
	Runs    int
	Workers int
	// Seed derives one seed per battle, so results do not depend on Workers.
	Seed       int64
	RosterSize int
	TeamSize   int
	// MaxSteps caps the Advance calls of a single battle; unfinished battles
	// are counted, not failed.
	MaxSteps int

	Battle battle.Config
	Table  *roster.Table
	Brain  *npc.Config
	Logger log.Log
}

func DefaultOptions() Options {
	return Options{
		Runs:       100,
		Workers:    runtime.NumCPU(),
		Seed:       1,
		RosterSize: 20,
		TeamSize:   3,
		MaxSteps:   1_000_000,
		Battle:     battle.DefaultConfig(),
	}
}

func (o Options) validate() error {
	switch {
	case o.Runs <= 0:
		return fmt.Errorf("%w: runs must be positive", ErrInvalidOptions)
	case o.Workers <= 0:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidOptions)
	case o.MaxSteps <= 0:
		return fmt.Errorf("%w: max steps must be positive", ErrInvalidOptions)
	case o.TeamSize <= 0 || o.TeamSize > o.RosterSize:
		return fmt.Errorf("%w: team %d of roster %d", ErrInvalidOptions, o.TeamSize, o.RosterSize)
	}
	return o.Battle.Validate()
}

// Outcome is the result of one battle.
type Outcome struct {
	Seed   int64         `json:"seed"`
	Result battle.Result `json:"result"`
	Turns  int           `json:"turns"`
	// Clock is the scheduler's virtual clock at the end.
	Clock float64 `json:"clock"`
	// Elapsed is the real time the battle would have taken on screen.
	Elapsed time.Duration `json:"elapsed"`
}

type Summary struct {
	Runs          int     `json:"runs"`
	PlayerWins    int     `json:"playerWins"`
	EnemyWins     int     `json:"enemyWins"`
	Unfinished    int     `json:"unfinished"`
	PlayerWinRate float64 `json:"playerWinRate"`
	MeanTurns     float64 `json:"meanTurns"`
	MeanClock     float64 `json:"meanClock"`
	MeanElapsedMs float64 `json:"meanElapsedMs"`
}

// Run plays opts.Runs battles on opts.Workers goroutines.
func Run(ctx context.Context, opts Options) (Summary, []Outcome, error) {
	if err := opts.validate(); err != nil {
		return Summary{}, nil, err
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNop()
	}
	if opts.Brain == nil {
		brain, err := npc.LoadConfig(npc.DefaultBrain)
		if err != nil {
			return Summary{}, nil, err
		}
		opts.Brain = brain
	}

	seeds := rand.New(rand.NewSource(opts.Seed))
	outcomes := make([]Outcome, opts.Runs)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i := range outcomes {
		seed := seeds.Int63()
		g.Go(func() error {
			out, err := Play(gctx, opts, fmt.Sprintf("sim-%d", i), seed)
			if err != nil {
				return fmt.Errorf("battle %d (seed %d): %w", i, seed, err)
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, nil, err
	}

	summary := Summarize(outcomes)
	opts.Logger.Info("Simulation finished",
		log.Int("runs", summary.Runs),
		log.Float64("player_win_rate", summary.PlayerWinRate),
		log.Float64("mean_turns", summary.MeanTurns))
	return summary, outcomes, nil
}

// Play runs one battle to its end, advancing time in Pace steps.
func Play(ctx context.Context, opts Options, id string, seed int64) (Outcome, error) {
	rng := rand.New(rand.NewSource(seed))
	gen := roster.NewGenerator(opts.Table, rng)

	recruits, err := gen.GenerateRoster(opts.RosterSize)
	if err != nil {
		return Outcome{}, err
	}
	brain, err := npc.NewBrain(opts.Brain, rng, opts.Logger)
	if err != nil {
		return Outcome{}, err
	}
	s, err := battle.NewSession(opts.Battle,
		battle.WithID(id),
		battle.WithLogger(opts.Logger),
		battle.WithRand(rng),
		battle.WithRoster(gen),
		battle.WithTargetPicker(brain),
		battle.WithAutoPlay(true),
	)
	if err != nil {
		return Outcome{}, err
	}
	if err := s.Initialize(roster.Team(recruits, opts.TeamSize), nil); err != nil {
		return Outcome{}, err
	}

	pace := opts.Battle.Pace
	var elapsed time.Duration
	for steps := 0; s.Result() == battle.ResultNone && steps < opts.MaxSteps; steps++ {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}
		if err := s.Advance(pace); err != nil {
			return Outcome{}, err
		}
		elapsed += pace
	}

	return Outcome{
		Seed:    seed,
		Result:  s.Result(),
		Turns:   s.Turns(),
		Clock:   s.Clock(),
		Elapsed: elapsed,
	}, nil
}

// Summarize aggregates outcomes. Means cover finished battles only.
func Summarize(outcomes []Outcome) Summary {
	sum := Summary{Runs: len(outcomes)}
	var turns, clock float64
	var elapsed time.Duration
	for _, o := range outcomes {
		switch o.Result {
		case battle.ResultPlayerWon:
			sum.PlayerWins++
		case battle.ResultEnemyWon:
			sum.EnemyWins++
		default:
			sum.Unfinished++
			continue
		}
		turns += float64(o.Turns)
		clock += o.Clock
		elapsed += o.Elapsed
	}
	if finished := sum.PlayerWins + sum.EnemyWins; finished > 0 {
		n := float64(finished)
		sum.PlayerWinRate = float64(sum.PlayerWins) / n
		sum.MeanTurns = turns / n
		sum.MeanClock = clock / n
		sum.MeanElapsedMs = float64(elapsed.Milliseconds()) / n
	}
	return sum
}
