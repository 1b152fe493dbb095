package roster

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/arena/internal/core/battle"
)

//go:embed archetypes.yaml
var defaultTable []byte

// BaseStats are the unrolled stats of one archetype.
type BaseStats struct {
	Tag     string `yaml:"tag"`
	HP      int    `yaml:"hp"`
	Attack  int    `yaml:"attack"`
	Defense int    `yaml:"defense"`
	Speed   int    `yaml:"speed"`
}

type Names struct {
	Player []string `yaml:"player"`
	Enemy  []string `yaml:"enemy"`
}

// Table is the archetype stat table the generator rolls from.
type Table struct {
	Variance   float64              `yaml:"variance"`
	Archetypes map[string]BaseStats `yaml:"archetypes"`
	Names      Names                `yaml:"names"`

	bases map[battle.Archetype]BaseStats
}

// DefaultTable returns the embedded table.
func DefaultTable() *Table {
	t, err := ParseTable(defaultTable)
	if err != nil {
		panic(fmt.Sprintf("roster: embedded table: %v", err))
	}
	return t
}

// LoadTable reads a YAML table from path. An empty path yields the default table.
func LoadTable(path string) (*Table, error) {
	if path == "" {
		return DefaultTable(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster table: %w", err)
	}
	return ParseTable(data)
}

func ParseTable(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse roster table: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks the table and indexes it by archetype. Every concrete
// archetype needs an entry with positive hp and speed.
func (t *Table) Validate() error {
	if t.Variance < 0 || t.Variance >= 1 {
		return fmt.Errorf("%w: variance %v outside [0, 1)", battle.ErrInvariantViolation, t.Variance)
	}
	if len(t.Names.Player) == 0 || len(t.Names.Enemy) == 0 {
		return fmt.Errorf("%w: both name pools must be non-empty", battle.ErrInvariantViolation)
	}

	bases := make(map[battle.Archetype]BaseStats, len(t.Archetypes))
	for name, base := range t.Archetypes {
		a, err := battle.ParseArchetype(name)
		if err != nil || a == battle.ArchetypeAny {
			return fmt.Errorf("%w: unknown archetype %q", battle.ErrInvariantViolation, name)
		}
		if base.HP <= 0 || base.Speed <= 0 {
			return fmt.Errorf("%w: archetype %s needs positive hp and speed", battle.ErrInvariantViolation, name)
		}
		if base.Attack < 0 || base.Defense < 0 {
			return fmt.Errorf("%w: archetype %s has negative attack or defense", battle.ErrInvariantViolation, name)
		}
		bases[a] = base
	}
	for _, a := range battle.Archetypes() {
		if _, ok := bases[a]; !ok {
			return fmt.Errorf("%w: archetype %s missing", battle.ErrInvariantViolation, a)
		}
	}
	t.bases = bases
	return nil
}

func (t *Table) Base(a battle.Archetype) (BaseStats, bool) {
	b, ok := t.bases[a]
	return b, ok
}
