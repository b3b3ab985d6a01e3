package strategy

import (
	"strings"
	"sync"

	"CryptoBacktest/internal/operations/backtest"
	"CryptoBacktest/internal/services/indicators"
)

// Definition describes a registered strategy and its default parameters
type Definition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Defaults    backtest.Params `json:"defaults"`
}

// Factory builds a decision function for one run. Deciders may cache
// derived series, so build a fresh one per run.
type Factory func(params backtest.Params) (backtest.DecisionFunc, error)

// lineCache keeps series computed for periods outside the precomputed grid.
// It resets when it sees a different indicator set.
type lineCache struct {
	mu    sync.Mutex
	owner *indicators.Set
	lines map[string]indicators.Series
}

func (c *lineCache) get(ind *indicators.Set, key string, compute func() indicators.Series) indicators.Series {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.owner != ind || c.lines == nil {
		c.owner = ind
		c.lines = make(map[string]indicators.Series)
	}
	if line, ok := c.lines[key]; ok {
		return line
	}
	line := compute()
	c.lines[key] = line
	return line
}

func emaLine(c *lineCache, ind *indicators.Set, period int) indicators.Series {
	if line, ok := ind.EMA[period]; ok {
		return line
	}
	return c.get(ind, "ema/"+indicators.ParamKey(float64(period)), func() indicators.Series {
		return ind.Calc.EMA(ind.Raw.Closes, period)
	})
}

func rsiLine(c *lineCache, ind *indicators.Set, period int) indicators.Series {
	if line, ok := ind.RSI[period]; ok {
		return line
	}
	return c.get(ind, "rsi/"+indicators.ParamKey(float64(period)), func() indicators.Series {
		return ind.Calc.RSI(ind.Raw.Closes, period)
	})
}

// holding returns the lowercase side of the first open position, "" if flat
func holding(open []backtest.PositionSnapshot) string {
	if len(open) == 0 {
		return ""
	}
	return strings.ToLower(open[0].Side)
}
