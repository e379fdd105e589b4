package repository

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"FinScope/internal/domain/models"
	"FinScope/internal/domain/repository"
)

// StrategyValidator rejects definitions the backtesting engine cannot compile.
type StrategyValidator func(models.StrategyDefinition) error

// MemoryStrategyCatalog holds definitions in process, seeded at start.
type MemoryStrategyCatalog struct {
	mu       sync.RWMutex
	defs     map[string]models.StrategyDefinition
	validate StrategyValidator
}

func NewMemoryStrategyCatalog(validate StrategyValidator, seed ...models.StrategyDefinition) (*MemoryStrategyCatalog, error) {
	c := &MemoryStrategyCatalog{defs: make(map[string]models.StrategyDefinition), validate: validate}
	for _, def := range seed {
		if err := c.Save(context.Background(), def); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// LoadStrategiesFile reads a YAML list of strategy definitions under a top-level "strategies" key.
func LoadStrategiesFile(path string) ([]models.StrategyDefinition, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read strategies: %w", err)
	}
	var doc struct {
		Strategies []models.StrategyDefinition `yaml:"strategies"`
	}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse strategies: %w", err)
	}
	return doc.Strategies, nil
}

func (c *MemoryStrategyCatalog) Get(_ context.Context, name string) (models.StrategyDefinition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.defs[strings.ToLower(name)]
	if !ok {
		return models.StrategyDefinition{}, fmt.Errorf("strategy %q: %w", name, models.ErrNotFound)
	}
	return def, nil
}

// List returns definitions sorted by name.
func (c *MemoryStrategyCatalog) List(_ context.Context) ([]models.StrategyDefinition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.StrategyDefinition, 0, len(c.defs))
	for _, d := range c.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Save adds or replaces a definition after validating it.
func (c *MemoryStrategyCatalog) Save(_ context.Context, def models.StrategyDefinition) error {
	if c.validate != nil {
		if err := c.validate(def); err != nil {
			return err
		}
	}
	c.mu.Lock()
	c.defs[strings.ToLower(def.Name)] = def
	c.mu.Unlock()
	return nil
}

var _ repository.StrategyCatalog = (*MemoryStrategyCatalog)(nil)
