package npc

import (
	"errors"
)

type baseNode struct{ name string }

func (b baseNode) Name() string { return b.name }

// ActionFunc wraps a function as an Action node.
type ActionFunc struct {
	baseNode
	Fn func(t TickContext) (Status, error)
}

func NewAction(name string, fn func(t TickContext) (Status, error)) ActionFunc {
	return ActionFunc{baseNode: baseNode{name: name}, Fn: fn}
}

func (a ActionFunc) Tick(t TickContext) (Status, error) { return a.Fn(t) }

// ConditionFunc wraps a predicate as a Condition node.
type ConditionFunc struct {
	baseNode
	Fn func(t TickContext) (bool, error)
}

func NewCondition(name string, fn func(t TickContext) (bool, error)) ConditionFunc {
	return ConditionFunc{baseNode: baseNode{name: name}, Fn: fn}
}

func (c ConditionFunc) Tick(t TickContext) (Status, error) {
	ok, err := c.Fn(t)
	if err != nil {
		return StatusFailure, err
	}
	if ok {
		return StatusSuccess, nil
	}
	return StatusFailure, nil
}

// Sequence runs children until one fails; success if all succeed; running if a child is running.
type Sequence struct {
	baseNode
	children []BehaviorNode
}

func NewSequence(name string, children ...BehaviorNode) *Sequence {
	return &Sequence{baseNode: baseNode{name: name}, children: children}
}

func (s *Sequence) SetChildren(children ...BehaviorNode) { s.children = children }

func (s *Sequence) Tick(t TickContext) (Status, error) {
	for _, ch := range s.children {
		st, err := ch.Tick(t)
		if err != nil {
			return StatusFailure, err
		}
		switch st {
		case StatusFailure:
			return StatusFailure, nil
		case StatusRunning:
			return StatusRunning, nil
		}
	}
	return StatusSuccess, nil
}

// Selector runs children until one succeeds; failure if all fail; running if a child is running.
type Selector struct {
	baseNode
	children []BehaviorNode
}

func NewSelector(name string, children ...BehaviorNode) *Selector {
	return &Selector{baseNode: baseNode{name: name}, children: children}
}

func (s *Selector) SetChildren(children ...BehaviorNode) { s.children = children }

func (s *Selector) Tick(t TickContext) (Status, error) {
	var lastErr error
	for _, ch := range s.children {
		st, err := ch.Tick(t)
		if err != nil {
			lastErr = err
		}
		switch st {
		case StatusSuccess:
			return StatusSuccess, err
		case StatusRunning:
			return StatusRunning, err
		}
	}
	return StatusFailure, lastErr
}

// Inverter swaps success and failure of its child.
type Inverter struct {
	baseNode
	child BehaviorNode
}

func NewInverter(name string) *Inverter {
	return &Inverter{baseNode: baseNode{name: name}}
}

func (i *Inverter) SetChild(child BehaviorNode) { i.child = child }

func (i *Inverter) Tick(t TickContext) (Status, error) {
	if i.child == nil {
		return StatusFailure, errors.New("inverter: child is nil")
	}
	st, err := i.child.Tick(t)
	switch st {
	case StatusSuccess:
		return StatusFailure, err
	case StatusFailure:
		return StatusSuccess, err
	default:
		return st, err
	}
}

// Probability runs its child with chance P and fails otherwise.
// It draws from TickContext.Rand.
type Probability struct {
	baseNode
	child BehaviorNode
	P     float64
}

func NewProbability(name string, p float64) *Probability {
	return &Probability{baseNode: baseNode{name: name}, P: p}
}

func (p *Probability) SetChild(child BehaviorNode) { p.child = child }

func (p *Probability) Tick(t TickContext) (Status, error) {
	if p.child == nil {
		return StatusFailure, errors.New("probability: child is nil")
	}
	if p.P <= 0 {
		return StatusFailure, nil
	}
	if p.P >= 1 {
		return p.child.Tick(t)
	}
	if t.Rand == nil {
		return StatusFailure, errors.New("probability: no random source")
	}
	if t.Rand.Float64() < p.P {
		return p.child.Tick(t)
	}
	return StatusFailure, nil
}

// Tree is a DecisionTree with a single root node.
type Tree struct{ root BehaviorNode }

func NewTree(root BehaviorNode) Tree { return Tree{root: root} }

func (t Tree) Root() BehaviorNode { return t.root }

func (t Tree) Tick(tc TickContext) (Status, error) {
	if t.root == nil {
		return StatusSuccess, nil
	}
	return t.root.Tick(tc)
}
