package battle

import (
	"context"
	"errors"
	"time"

	"github.com/zeusync/arena/internal/core/observability/log"
)

var ErrRunnerStopped = errors.New("runner stopped")

type command struct {
	fn   func(*Session) error
	done chan error
}

// Runner drives a Session in real time. The session is only touched by the
// goroutine executing Run; other goroutines reach it through Do.
type Runner struct {
	session  *Session
	onChange func(Snapshot)
	logger   log.Log
	commands chan command
	stopped  chan struct{}
	now      func() time.Time
}

// NewRunner wraps session. onChange, when set, receives a snapshot after each
// tick or command, on the Run goroutine.
func NewRunner(session *Session, onChange func(Snapshot)) *Runner {
	return &Runner{
		session:  session,
		onChange: onChange,
		logger:   session.logger.With(log.String("component", "runner")),
		commands: make(chan command),
		stopped:  make(chan struct{}),
		now:      time.Now,
	}
}

// Run ticks the session every Config.Pace until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	defer close(r.stopped)

	ticker := time.NewTicker(r.session.cfg.Pace)
	defer ticker.Stop()

	r.notify()
	last := r.now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-r.commands:
			err := cmd.fn(r.session)
			cmd.done <- err
			r.notify()
		case <-ticker.C:
			now := r.now()
			elapsed := now.Sub(last)
			last = now
			if err := r.session.Advance(elapsed); err != nil {
				r.logger.Error("Advance failed", log.Error(err))
				return err
			}
			r.notify()
		}
	}
}

func (r *Runner) notify() {
	if r.onChange != nil {
		r.onChange(r.session.Snapshot())
	}
}

// Do runs fn on the Run goroutine between ticks and returns its error.
func (r *Runner) Do(ctx context.Context, fn func(*Session) error) error {
	cmd := command{fn: fn, done: make(chan error, 1)}
	select {
	case r.commands <- cmd:
	case <-r.stopped:
		return ErrRunnerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-cmd.done
}

func (r *Runner) SubmitTarget(ctx context.Context, targetID string) error {
	return r.Do(ctx, func(s *Session) error { return s.SubmitTarget(targetID) })
}

func (r *Runner) SetPaused(ctx context.Context, paused bool) error {
	return r.Do(ctx, func(s *Session) error {
		s.SetPaused(paused)
		return nil
	})
}

func (r *Runner) Restart(ctx context.Context) error {
	return r.Do(ctx, func(s *Session) error { return s.Restart() })
}

func (r *Runner) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := r.Do(ctx, func(s *Session) error {
		snap = s.Snapshot()
		return nil
	})
	return snap, err
}
