package strategy

import (
	"fmt"

	"CryptoBacktest/internal/models"
	"CryptoBacktest/internal/operations/backtest"
	"CryptoBacktest/internal/services/analysis"
	"CryptoBacktest/internal/services/indicators"
)

var candlePatternDefinition = Definition{
	Name:        "candle_pattern",
	Description: "Trades three-bar, engulfing and pinbar patterns; an opposite pattern closes the position",
	Defaults:    backtest.Params{"min_strength": 0.05, "min_height": 0.001},
}

func newCandlePattern(params backtest.Params) (backtest.DecisionFunc, error) {
	minStrength := params.Float("min_strength", 0.05)
	if minStrength < 0 || minStrength > 1 {
		return nil, fmt.Errorf("candle_pattern: min_strength must be within [0, 1], got %v", minStrength)
	}
	analyzer := analysis.NewPatternAnalyzer(params.Float("min_height", 0.001))

	return func(candles []models.Candle, i int, _ *indicators.Set, _ backtest.Params, open []backtest.PositionSnapshot) (backtest.Action, error) {
		pattern := analyzer.Analyze(candles, i)
		if pattern == nil || pattern.Strength < minStrength {
			return backtest.Hold{}, nil
		}

		switch side := holding(open); {
		case side == "" && pattern.Signal > 0:
			return backtest.EntryLong{Type: backtest.OrderMarket}, nil
		case side == "" && pattern.Signal < 0:
			return backtest.EntryShort{Type: backtest.OrderMarket}, nil
		case side == "long" && pattern.Signal < 0, side == "short" && pattern.Signal > 0:
			return backtest.Exit{}, nil
		}
		return backtest.Hold{}, nil
	}, nil
}
