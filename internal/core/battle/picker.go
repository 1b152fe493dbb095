package battle

import (
	"errors"
	"math/rand"
)

// TargetPicker chooses whom an AI-controlled actor attacks. candidates holds
// the alive opposing units and is never empty.
type TargetPicker interface {
	PickTarget(actor Unit, candidates []Unit) (string, error)
}

// UnitSource generates units; the session uses it for fresh enemy teams.
type UnitSource interface {
	GenerateUnit(id string, side Side, archetype Archetype) (Unit, error)
}

// RandomPicker picks a uniformly random candidate.
type RandomPicker struct {
	Rand *rand.Rand
}

func (p RandomPicker) PickTarget(_ Unit, candidates []Unit) (string, error) {
	if len(candidates) == 0 {
		return "", ErrTargetNotFound
	}
	if p.Rand == nil {
		return "", errors.New("random picker has no source")
	}
	return candidates[p.Rand.Intn(len(candidates))].ID, nil
}
