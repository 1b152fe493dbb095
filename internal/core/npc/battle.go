package npc

import (
	"errors"
	"fmt"

	"github.com/zeusync/arena/internal/core/battle"
)

// Blackboard keys shared between the brain and battle nodes.
const (
	KeyActor      = "actor"
	KeyCandidates = "candidates"
	KeyTarget     = "target"
)

var ErrNoCandidates = errors.New("no candidates on blackboard")

func actorOf(bb Blackboard) (battle.Unit, error) {
	v, ok := bb.Get(KeyActor)
	if !ok {
		return battle.Unit{}, errors.New("no actor on blackboard")
	}
	u, ok := v.(battle.Unit)
	if !ok {
		return battle.Unit{}, fmt.Errorf("actor has type %T", v)
	}
	return u, nil
}

func candidatesOf(bb Blackboard) ([]battle.Unit, error) {
	v, ok := bb.Get(KeyCandidates)
	if !ok {
		return nil, ErrNoCandidates
	}
	units, ok := v.([]battle.Unit)
	if !ok {
		return nil, fmt.Errorf("candidates have type %T", v)
	}
	return units, nil
}

// pickBy returns an action that writes the candidate chosen by choose to
// KeyTarget. A failed pick leaves no target behind.
func pickBy(name string, choose func(t TickContext, actor battle.Unit, candidates []battle.Unit) (battle.Unit, bool)) Action {
	return NewAction(name, func(t TickContext) (Status, error) {
		t.BB.Delete(KeyTarget)
		actor, err := actorOf(t.BB)
		if err != nil {
			return StatusFailure, err
		}
		candidates, err := candidatesOf(t.BB)
		if err != nil {
			return StatusFailure, err
		}
		if len(candidates) == 0 {
			return StatusFailure, nil
		}
		target, ok := choose(t, actor, candidates)
		if !ok {
			return StatusFailure, nil
		}
		t.BB.Set(KeyTarget, target.ID)
		return StatusSuccess, nil
	})
}

// minBy returns the first candidate with the smallest key.
func minBy(candidates []battle.Unit, key func(battle.Unit) int) battle.Unit {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if key(c) < key(best) {
			best = c
		}
	}
	return best
}

func killable(actor battle.Unit, candidates []battle.Unit) []battle.Unit {
	var out []battle.Unit
	for _, c := range candidates {
		if battle.Damage(actor, c) >= c.Stats.HP {
			out = append(out, c)
		}
	}
	return out
}

// RegisterBattleNodes registers target selection nodes.
//
// Conditions: HasOpponents, CanFinish.
// Actions: PickRandomOpponent, PickWeakestOpponent, PickSoftestOpponent,
// PickFinishingBlow.
func RegisterBattleNodes(r Registry) {
	r.RegisterCondition("HasOpponents", func(map[string]any) (Condition, error) {
		return NewCondition("HasOpponents", func(t TickContext) (bool, error) {
			candidates, err := candidatesOf(t.BB)
			if errors.Is(err, ErrNoCandidates) {
				return false, nil
			}
			return len(candidates) > 0, err
		}), nil
	})
	r.RegisterCondition("CanFinish", func(map[string]any) (Condition, error) {
		return NewCondition("CanFinish", func(t TickContext) (bool, error) {
			actor, err := actorOf(t.BB)
			if err != nil {
				return false, err
			}
			candidates, err := candidatesOf(t.BB)
			if err != nil {
				return false, err
			}
			return len(killable(actor, candidates)) > 0, nil
		}), nil
	})

	r.RegisterAction("PickRandomOpponent", func(map[string]any) (Action, error) {
		return pickBy("PickRandomOpponent", func(t TickContext, _ battle.Unit, candidates []battle.Unit) (battle.Unit, bool) {
			if t.Rand == nil {
				return battle.Unit{}, false
			}
			return candidates[t.Rand.Intn(len(candidates))], true
		}), nil
	})
	r.RegisterAction("PickWeakestOpponent", func(map[string]any) (Action, error) {
		return pickBy("PickWeakestOpponent", func(_ TickContext, _ battle.Unit, candidates []battle.Unit) (battle.Unit, bool) {
			return minBy(candidates, func(u battle.Unit) int { return u.Stats.HP }), true
		}), nil
	})
	r.RegisterAction("PickSoftestOpponent", func(map[string]any) (Action, error) {
		return pickBy("PickSoftestOpponent", func(_ TickContext, _ battle.Unit, candidates []battle.Unit) (battle.Unit, bool) {
			return minBy(candidates, func(u battle.Unit) int { return u.Stats.Defense }), true
		}), nil
	})
	r.RegisterAction("PickFinishingBlow", func(map[string]any) (Action, error) {
		return pickBy("PickFinishingBlow", func(_ TickContext, actor battle.Unit, candidates []battle.Unit) (battle.Unit, bool) {
			finishable := killable(actor, candidates)
			if len(finishable) == 0 {
				return battle.Unit{}, false
			}
			// the most dangerous one goes first
			return minBy(finishable, func(u battle.Unit) int { return -u.Stats.Attack }), true
		}), nil
	})
}
