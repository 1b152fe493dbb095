package npc

import (
	"context"
	"fmt"
)

// OpponentSensor summarises the candidates: it writes the opponent count to
// "<out>.count" and whether any can be killed this hit to "<out>.killable".
type OpponentSensor struct {
	out string
}

func NewOpponentSensor(out string) *OpponentSensor {
	if out == "" {
		out = "opponents"
	}
	return &OpponentSensor{out: out}
}

func (s *OpponentSensor) Name() string { return "OpponentSensor" }

func (s *OpponentSensor) Update(_ context.Context, bb Blackboard) error {
	actor, err := actorOf(bb)
	if err != nil {
		return err
	}
	candidates, err := candidatesOf(bb)
	if err != nil {
		return err
	}
	bb.Set(s.out+".count", len(candidates))
	bb.Set(s.out+".killable", len(killable(actor, candidates)) > 0)
	return nil
}

// HealthSensor writes true to out when the actor's hp ratio is below threshold.
type HealthSensor struct {
	threshold float64
	out       string
}

func NewHealthSensor(out string, threshold float64) *HealthSensor {
	return &HealthSensor{threshold: threshold, out: out}
}

func (s *HealthSensor) Name() string { return "HealthSensor" }

func (s *HealthSensor) Update(_ context.Context, bb Blackboard) error {
	actor, err := actorOf(bb)
	if err != nil {
		return err
	}
	ratio := float64(actor.Stats.HP) / float64(max(1, actor.Stats.MaxHP))
	bb.Set(s.out, ratio < s.threshold)
	return nil
}

func RegisterSensors(r Registry) {
	r.RegisterSensor("OpponentSensor", func(params map[string]any) (Sensor, error) {
		out, _ := params["out"].(string)
		return NewOpponentSensor(out), nil
	})
	r.RegisterSensor("HealthSensor", func(params map[string]any) (Sensor, error) {
		out, _ := params["out"].(string)
		thr, ok := floatParam(params, "threshold")
		if out == "" || !ok {
			return nil, fmt.Errorf("HealthSensor requires out,threshold")
		}
		return NewHealthSensor(out, thr), nil
	})
}
