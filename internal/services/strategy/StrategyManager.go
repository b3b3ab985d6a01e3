package strategy

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"CryptoBacktest/internal/operations/backtest"
)

// ErrUnknownStrategy is returned for names nobody registered
var ErrUnknownStrategy = errors.New("unknown strategy")

type registration struct {
	definition Definition
	factory    Factory
}

// StrategyManager is the registry of named strategies the service can run
type StrategyManager struct {
	mu         sync.RWMutex
	strategies map[string]registration
}

// NewStrategyManager returns a manager with every built-in strategy
func NewStrategyManager() *StrategyManager {
	m := &StrategyManager{strategies: make(map[string]registration)}
	m.mustRegister(emaCrossDefinition, newEMACross)
	m.mustRegister(rsiReversionDefinition, newRSIReversion)
	m.mustRegister(superTrendDefinition, newSuperTrend)
	m.mustRegister(donchianBreakoutDefinition, newDonchianBreakout)
	m.mustRegister(candlePatternDefinition, newCandlePattern)
	m.mustRegister(rulesDefinition, newRules)
	m.mustRegister(scriptedDefinition, newScripted)
	return m
}

// Register adds a strategy. Names are unique.
func (m *StrategyManager) Register(def Definition, factory Factory) error {
	if def.Name == "" {
		return fmt.Errorf("strategy name cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("strategy %s: factory cannot be nil", def.Name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.strategies[def.Name]; exists {
		return fmt.Errorf("strategy %s already registered", def.Name)
	}
	m.strategies[def.Name] = registration{definition: def, factory: factory}
	return nil
}

func (m *StrategyManager) mustRegister(def Definition, factory Factory) {
	if err := m.Register(def, factory); err != nil {
		panic(err)
	}
}

// Decider builds a fresh decision function for one run. Missing params fall
// back to the strategy's defaults.
func (m *StrategyManager) Decider(name string, params backtest.Params) (backtest.DecisionFunc, error) {
	m.mu.RLock()
	reg, ok := m.strategies[name]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownStrategy, name)
	}

	merged := backtest.Params{}
	for k, v := range reg.definition.Defaults {
		merged[k] = v
	}
	for k, v := range params {
		merged[k] = v
	}
	return reg.factory(merged)
}

// Has reports whether name is registered
func (m *StrategyManager) Has(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.strategies[name]
	return ok
}

// GetStrategies lists every definition sorted by name
func (m *StrategyManager) GetStrategies() []Definition {
	m.mu.RLock()
	defer m.mu.RUnlock()

	defs := make([]Definition, 0, len(m.strategies))
	for _, reg := range m.strategies {
		defs = append(defs, reg.definition)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}
