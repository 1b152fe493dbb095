package npc

import (
	"context"
	"math/rand"
	"time"
)

// Status is the result of a behavior node tick.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailure
	StatusRunning
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusRunning:
		return "running"
	default:
		return "invalid"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Blackboard is thread-safe storage for the state a tree reads and writes.
type Blackboard interface {
	// Get retrieves a value by key. Returns (nil, false) if absent.
	Get(key string) (any, bool)
	Set(key string, value any)
	Delete(key string)
	// Namespace returns a view that prefixes every key with "ns:".
	Namespace(ns string) Blackboard
	// Keys returns a sorted snapshot of existing keys.
	Keys() []string
	// Clear removes every key visible through this view.
	Clear()
}

// Memory keeps a bounded history of decisions.
type Memory interface {
	AppendDecision(rec DecisionRecord)
	// History returns a copy, oldest first.
	History() []DecisionRecord
	Reset()
}

// TickContext is passed to nodes during Tick.
type TickContext struct {
	Ctx    context.Context
	BB     Blackboard
	Memory Memory
	Clock  func() time.Time
	// Rand is the only randomness nodes may use.
	Rand *rand.Rand
}

// BehaviorNode is the fundamental interface for behavior tree nodes.
// Shared instances must keep per-agent state in the Blackboard.
type BehaviorNode interface {
	Tick(t TickContext) (Status, error)
	Name() string
}

type Action interface {
	BehaviorNode
}

type Condition interface {
	BehaviorNode
}

// Decorator wraps a single child node and changes its behavior.
type Decorator interface {
	BehaviorNode
	SetChild(child BehaviorNode)
}

// Composite manages multiple children.
type Composite interface {
	BehaviorNode
	SetChildren(children ...BehaviorNode)
}

// Sensor derives facts from raw blackboard input before each tick.
type Sensor interface {
	Name() string
	Update(ctx context.Context, bb Blackboard) error
}

type DecisionTree interface {
	Root() BehaviorNode
	Tick(t TickContext) (Status, error)
}

// Registry maps node names used in configs to factories.
type Registry interface {
	RegisterAction(name string, factory func(params map[string]any) (Action, error))
	RegisterCondition(name string, factory func(params map[string]any) (Condition, error))
	RegisterDecorator(name string, factory func(params map[string]any) (Decorator, error))
	RegisterSensor(name string, factory func(params map[string]any) (Sensor, error))

	NewAction(name string, params map[string]any) (Action, error)
	NewCondition(name string, params map[string]any) (Condition, error)
	NewDecorator(name string, params map[string]any) (Decorator, error)
	NewSensor(name string, params map[string]any) (Sensor, error)
}

// DecisionRecord is one entry of a brain's decision history.
type DecisionRecord struct {
	Node      string        `json:"node"`
	Status    Status        `json:"status"`
	Actor     string        `json:"actor"`
	Target    string        `json:"target,omitempty"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"ts"`
}
