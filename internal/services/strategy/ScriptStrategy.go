package strategy

import (
	"encoding/json"
	"fmt"
	"math"

	"CryptoBacktest/internal/models"
	"CryptoBacktest/internal/operations/backtest"
	"CryptoBacktest/internal/services/indicators"
)

var scriptedDefinition = Definition{
	Name:        "scripted",
	Description: "Replays decisions listed per bar as {bar, action, type, price, index}; unrecognized actions hold",
	Defaults:    backtest.Params{},
}

func newScripted(params backtest.Params) (backtest.DecisionFunc, error) {
	script, err := parseScript(params["actions"])
	if err != nil {
		return nil, err
	}

	return backtest.FromWire(func(_ []models.Candle, i int, _ *indicators.Set, _ backtest.Params, _ []backtest.PositionSnapshot) (map[string]any, error) {
		return script[i], nil
	}), nil
}

// parseScript indexes the action list by bar. Each bar may appear once.
func parseScript(v any) (map[int]map[string]any, error) {
	var entries []map[string]any
	switch list := v.(type) {
	case []map[string]any:
		entries = list
	case []any:
		for n, e := range list {
			m, ok := e.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("scripted: action %d is not an object", n)
			}
			entries = append(entries, m)
		}
	case nil:
		return nil, fmt.Errorf("scripted: actions is required")
	default:
		return nil, fmt.Errorf("scripted: actions must be a list, got %T", v)
	}

	script := make(map[int]map[string]any, len(entries))
	for n, m := range entries {
		bar, ok := barOf(m["bar"])
		if !ok || bar < 0 {
			return nil, fmt.Errorf("scripted: action %d needs a non-negative integer bar", n)
		}
		if _, dup := script[bar]; dup {
			return nil, fmt.Errorf("scripted: bar %d listed twice", bar)
		}
		script[bar] = m
	}
	return script, nil
}

func barOf(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == math.Trunc(n) && !math.IsInf(n, 0) {
			return int(n), true
		}
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
	}
	return 0, false
}
