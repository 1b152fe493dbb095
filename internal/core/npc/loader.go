package npc

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Config describes a tree and its sensors in JSON or YAML. Node types are
// resolved by name through a Registry.
type Config struct {
	Root    string                `json:"root" yaml:"root"`
	Nodes   map[string]ConfigNode `json:"nodes" yaml:"nodes"`
	Sensors []ConfigSensor        `json:"sensors" yaml:"sensors"`
}

type ConfigSensor struct {
	Name   string         `json:"name" yaml:"name"`
	Type   string         `json:"type" yaml:"type"`
	Params map[string]any `json:"params" yaml:"params"`
}

type ConfigNode struct {
	Type      string         `json:"type" yaml:"type"`
	Children  []string       `json:"children,omitempty" yaml:"children,omitempty"`
	Child     string         `json:"child,omitempty" yaml:"child,omitempty"`
	Action    string         `json:"action,omitempty" yaml:"action,omitempty"`
	Condition string         `json:"condition,omitempty" yaml:"condition,omitempty"`
	Params    map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

func LoadJSON(r io.Reader) (*Config, error) {
	var c Config
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func LoadYAML(r io.Reader) (*Config, error) {
	var c Config
	if err := yaml.NewDecoder(r).Decode(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Build constructs the decision tree and sensors from config using a registry.
// Nodes referenced more than once are shared; cycles are rejected.
func (c *Config) Build(reg Registry) (DecisionTree, []Sensor, error) {
	if c.Root == "" {
		return Tree{}, nil, nil
	}
	created := make(map[string]BehaviorNode)
	building := make(map[string]bool)

	var buildNode func(name string) (BehaviorNode, error)
	buildChildren := func(names []string) ([]BehaviorNode, error) {
		children := make([]BehaviorNode, 0, len(names))
		for _, chname := range names {
			ch, err := buildNode(chname)
			if err != nil {
				return nil, err
			}
			children = append(children, ch)
		}
		return children, nil
	}
	buildNode = func(name string) (BehaviorNode, error) {
		if n, ok := created[name]; ok {
			return n, nil
		}
		if building[name] {
			return nil, fmt.Errorf("cycle through node %s", name)
		}
		nc, ok := c.Nodes[name]
		if !ok {
			return nil, fmt.Errorf("unknown node in config: %s", name)
		}
		building[name] = true
		defer delete(building, name)

		var node BehaviorNode
		switch nc.Type {
		case "Sequence", "sequence":
			children, err := buildChildren(nc.Children)
			if err != nil {
				return nil, err
			}
			node = NewSequence(name, children...)
		case "Selector", "selector":
			children, err := buildChildren(nc.Children)
			if err != nil {
				return nil, err
			}
			node = NewSelector(name, children...)
		case "Decorator", "decorator":
			decName, _ := nc.Params["name"].(string)
			dec, err := reg.NewDecorator(decName, nc.Params)
			if err != nil {
				return nil, err
			}
			if nc.Child == "" {
				return nil, fmt.Errorf("decorator %s requires child", name)
			}
			ch, err := buildNode(nc.Child)
			if err != nil {
				return nil, err
			}
			dec.SetChild(ch)
			node = dec
		case "Action", "action":
			a, err := reg.NewAction(nc.Action, nc.Params)
			if err != nil {
				return nil, err
			}
			node = a
		case "Condition", "condition":
			cnd, err := reg.NewCondition(nc.Condition, nc.Params)
			if err != nil {
				return nil, err
			}
			node = cnd
		default:
			return nil, fmt.Errorf("unsupported node type: %s", nc.Type)
		}
		created[name] = node
		return node, nil
	}

	root, err := buildNode(c.Root)
	if err != nil {
		return nil, nil, err
	}
	sensors := make([]Sensor, 0, len(c.Sensors))
	for _, s := range c.Sensors {
		sen, err := reg.NewSensor(s.Type, s.Params)
		if err != nil {
			return nil, nil, fmt.Errorf("sensor %s: %w", s.Name, err)
		}
		sensors = append(sensors, sen)
	}
	return Tree{root: root}, sensors, nil
}

// RegisterBuiltins registers generic nodes: IsTrue, SetBool, Noop,
// Probability and Inverter.
func RegisterBuiltins(r Registry) {
	r.RegisterCondition("IsTrue", func(params map[string]any) (Condition, error) {
		key, _ := params["key"].(string)
		if key == "" {
			return nil, fmt.Errorf("IsTrue requires 'key'")
		}
		return NewCondition("IsTrue("+key+")", func(t TickContext) (bool, error) {
			v, ok := t.BB.Get(key)
			if !ok {
				return false, nil
			}
			b, ok := v.(bool)
			return ok && b, nil
		}), nil
	})
	r.RegisterAction("SetBool", func(params map[string]any) (Action, error) {
		key, _ := params["key"].(string)
		val, _ := params["value"].(bool)
		if key == "" {
			return nil, fmt.Errorf("SetBool requires 'key'")
		}
		return NewAction("SetBool("+key+")", func(t TickContext) (Status, error) {
			t.BB.Set(key, val)
			return StatusSuccess, nil
		}), nil
	})
	r.RegisterAction("Noop", func(map[string]any) (Action, error) {
		return NewAction("Noop", func(TickContext) (Status, error) { return StatusSuccess, nil }), nil
	})
	r.RegisterDecorator("Probability", func(params map[string]any) (Decorator, error) {
		p, ok := floatParam(params, "p")
		if !ok {
			return nil, fmt.Errorf("Probability requires 'p'")
		}
		return NewProbability("Probability", p), nil
	})
	r.RegisterDecorator("Inverter", func(map[string]any) (Decorator, error) {
		return NewInverter("Inverter"), nil
	})
}

// floatParam reads a number decoded from either JSON or YAML.
func floatParam(params map[string]any, key string) (float64, bool) {
	switch v := params[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
