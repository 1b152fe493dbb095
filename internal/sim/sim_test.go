package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/arena/internal/core/battle"
	"github.com/zeusync/arena/internal/core/npc"
)

func testOptions() Options {
	opts := DefaultOptions()
	opts.Runs = 8
	opts.Workers = 3
	opts.Seed = 2024
	return opts
}

func TestRunFinishesEveryBattle(t *testing.T) {
	sum, outcomes, err := Run(context.Background(), testOptions())
	require.NoError(t, err)

	assert.Equal(t, 8, sum.Runs)
	assert.Zero(t, sum.Unfinished)
	assert.Equal(t, 8, sum.PlayerWins+sum.EnemyWins)
	assert.InDelta(t, float64(sum.PlayerWins)/8, sum.PlayerWinRate, 1e-9)
	assert.Positive(t, sum.MeanTurns)
	assert.Positive(t, sum.MeanClock)
	assert.Positive(t, sum.MeanElapsedMs)

	require.Len(t, outcomes, 8)
	for _, o := range outcomes {
		assert.NotEqual(t, battle.ResultNone, o.Result)
		assert.Positive(t, o.Turns)
	}
}

func TestRunIsDeterministicAcrossWorkerCounts(t *testing.T) {
	opts := testOptions()
	_, serial, err := Run(context.Background(), withWorkers(opts, 1))
	require.NoError(t, err)
	_, parallel, err := Run(context.Background(), withWorkers(opts, 4))
	require.NoError(t, err)

	assert.Equal(t, serial, parallel)
}

func withWorkers(opts Options, n int) Options {
	opts.Workers = n
	return opts
}

func TestTacticianBrain(t *testing.T) {
	brain, err := npc.LoadConfig("tactician")
	require.NoError(t, err)

	opts := testOptions()
	opts.Brain = brain
	sum, _, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Zero(t, sum.Unfinished)
}

func TestPlayStopsAtMaxSteps(t *testing.T) {
	opts := testOptions()
	opts.MaxSteps = 3
	brain, err := npc.LoadConfig(npc.DefaultBrain)
	require.NoError(t, err)
	opts.Brain = brain

	out, err := Play(context.Background(), opts, "short", 5)
	require.NoError(t, err)
	assert.Equal(t, battle.ResultNone, out.Result)
	assert.Equal(t, 3*opts.Battle.Pace, out.Elapsed)
}

func TestPlayHonoursContext(t *testing.T) {
	brain, err := npc.LoadConfig(npc.DefaultBrain)
	require.NoError(t, err)
	opts := testOptions()
	opts.Brain = brain

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Play(ctx, opts, "cancelled", 5)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunValidatesOptions(t *testing.T) {
	for name, mutate := range map[string]func(*Options){
		"runs":     func(o *Options) { o.Runs = 0 },
		"workers":  func(o *Options) { o.Workers = 0 },
		"steps":    func(o *Options) { o.MaxSteps = 0 },
		"team":     func(o *Options) { o.TeamSize = 30 },
		"pace":     func(o *Options) { o.Battle.Pace = 0 },
		"negative": func(o *Options) { o.Battle.ImpactDelay = -time.Second },
	} {
		t.Run(name, func(t *testing.T) {
			opts := testOptions()
			mutate(&opts)
			_, _, err := Run(context.Background(), opts)
			assert.Error(t, err)
		})
	}
}

func TestSummarizeIgnoresUnfinishedInMeans(t *testing.T) {
	sum := Summarize([]Outcome{
		{Result: battle.ResultPlayerWon, Turns: 10, Clock: 100, Elapsed: time.Second},
		{Result: battle.ResultEnemyWon, Turns: 20, Clock: 300, Elapsed: 3 * time.Second},
		{Result: battle.ResultNone, Turns: 999},
	})

	assert.Equal(t, 3, sum.Runs)
	assert.Equal(t, 1, sum.Unfinished)
	assert.InDelta(t, 0.5, sum.PlayerWinRate, 1e-9)
	assert.InDelta(t, 15, sum.MeanTurns, 1e-9)
	assert.InDelta(t, 200, sum.MeanClock, 1e-9)
	assert.InDelta(t, 2000, sum.MeanElapsedMs, 1e-9)
}
