package npc

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/zeusync/arena/internal/core/battle"
	"github.com/zeusync/arena/internal/core/observability/log"
)

//go:embed brains/*.yaml
var builtinBrains embed.FS

// DefaultBrain is the builtin tree used when no brain is configured.
const DefaultBrain = "random"

var ErrNoDecision = errors.New("brain made no decision")

// LoadConfig resolves a builtin brain by name ("random", "tactician") or
// reads a YAML or JSON file. An empty name yields DefaultBrain.
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		nameOrPath = DefaultBrain
	}
	if data, err := builtinBrains.ReadFile("brains/" + nameOrPath + ".yaml"); err == nil {
		return LoadYAML(bytes.NewReader(data))
	}

	f, err := os.Open(nameOrPath)
	if err != nil {
		return nil, fmt.Errorf("open brain config: %w", err)
	}
	defer f.Close()
	if filepath.Ext(nameOrPath) == ".json" {
		return LoadJSON(f)
	}
	return LoadYAML(f)
}

// Brain picks targets for AI-controlled units by ticking a behavior tree.
// Each decision starts from a clean blackboard holding the actor and the
// candidates; the tree writes its choice to KeyTarget.
type Brain struct {
	mu      sync.Mutex
	tree    DecisionTree
	sensors []Sensor
	bb      Blackboard
	mem     Memory
	rng     *rand.Rand
	logger  log.Log
	clock   func() time.Time
}

// NewBrain builds cfg with the battle registry.
func NewBrain(cfg *Config, rng *rand.Rand, logger log.Log) (*Brain, error) {
	if cfg == nil {
		return nil, errors.New("brain config is nil")
	}
	tree, sensors, err := cfg.Build(NewBattleRegistry())
	if err != nil {
		return nil, fmt.Errorf("build brain: %w", err)
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Brain{
		tree:    tree,
		sensors: sensors,
		bb:      NewBlackboard(),
		mem:     NewMemory(DefaultMemorySize),
		rng:     rng,
		logger:  logger.With(log.String("component", "brain")),
		clock:   time.Now,
	}, nil
}

func (b *Brain) PickTarget(actor battle.Unit, candidates []battle.Unit) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ctx := context.Background()
	b.bb.Clear()
	b.bb.Set(KeyActor, actor)
	b.bb.Set(KeyCandidates, slices.Clone(candidates))
	for _, s := range b.sensors {
		if err := s.Update(ctx, b.bb); err != nil {
			return "", fmt.Errorf("sensor %s: %w", s.Name(), err)
		}
	}

	start := b.clock()
	st, err := b.tree.Tick(TickContext{Ctx: ctx, BB: b.bb, Memory: b.mem, Clock: b.clock, Rand: b.rng})
	target, _ := b.bb.Get(KeyTarget)
	targetID, _ := target.(string)

	rec := DecisionRecord{Status: st, Actor: actor.ID, Target: targetID, Duration: b.clock().Sub(start), Timestamp: b.clock()}
	if root := b.tree.Root(); root != nil {
		rec.Node = root.Name()
	}
	b.mem.AppendDecision(rec)

	if err != nil {
		return "", err
	}
	if st != StatusSuccess || targetID == "" {
		return "", fmt.Errorf("%w: status %s", ErrNoDecision, st)
	}
	b.logger.Debug("Target picked",
		log.String("actor", actor.ID),
		log.String("target", targetID),
		log.Duration("took", rec.Duration))
	return targetID, nil
}

var _ battle.TargetPicker = (*Brain)(nil)
