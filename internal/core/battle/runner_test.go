package battle

import (
	"context"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.Pace = time.Millisecond
	cfg.DecideDelay = time.Millisecond
	cfg.WindUpDelay = time.Millisecond
	cfg.ImpactDelay = time.Millisecond
	return cfg
}

func TestRunnerPlaysAutoBattle(t *testing.T) {
	s, err := NewSession(fastConfig(), WithRand(rand.New(rand.NewSource(3))), WithAutoPlay(true))
	require.NoError(t, err)
	require.NoError(t, s.Initialize(
		[]Unit{fighter("p1", SidePlayer, 300, 120, 10, 150), fighter("p2", SidePlayer, 300, 120, 10, 100)},
		[]Unit{fighter("e1", SideEnemy, 300, 120, 10, 120)},
	))

	var finished atomic.Bool
	r := NewRunner(s, func(snap Snapshot) {
		if snap.Result != ResultNone {
			finished.Store(true)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, finished.Load, 5*time.Second, 5*time.Millisecond)

	snap, err := r.Snapshot(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, ResultNone, snap.Result)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.ErrorIs(t, r.Restart(context.Background()), ErrRunnerStopped)
}

func TestRunnerCommands(t *testing.T) {
	s, err := NewSession(fastConfig(), WithRand(rand.New(rand.NewSource(5))))
	require.NoError(t, err)
	require.NoError(t, s.Initialize(duel()))

	r := NewRunner(s, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = r.Run(ctx) }()

	require.Eventually(t, func() bool {
		snap, err := r.Snapshot(ctx)
		return err == nil && snap.AwaitingTarget
	}, 5*time.Second, 2*time.Millisecond)

	err = r.SubmitTarget(ctx, "p1")
	assert.ErrorIs(t, err, ErrTargetSameSide)

	require.NoError(t, r.SetPaused(ctx, true))
	assert.ErrorIs(t, r.SubmitTarget(ctx, "e1"), ErrSessionPaused)
	require.NoError(t, r.SetPaused(ctx, false))
	require.NoError(t, r.SubmitTarget(ctx, "e1"))

	require.Eventually(t, func() bool {
		snap, err := r.Snapshot(ctx)
		return err == nil && snap.Turns == 1
	}, 5*time.Second, 2*time.Millisecond)

	require.NoError(t, r.Restart(ctx))
	snap, err := r.Snapshot(ctx)
	require.NoError(t, err)
	for _, u := range snap.Units {
		assert.Equal(t, u.Stats.MaxHP, u.Stats.HP)
	}
}
