package strategy

import (
	"fmt"

	"CryptoBacktest/internal/models"
	"CryptoBacktest/internal/operations/backtest"
	"CryptoBacktest/internal/services/indicators"
)

var rsiReversionDefinition = Definition{
	Name:        "rsi_reversion",
	Description: "Long below oversold, short above overbought, exit when RSI returns to the midline",
	Defaults:    backtest.Params{"period": 14.0, "oversold": 30.0, "overbought": 70.0, "exit": 50.0},
}

func newRSIReversion(params backtest.Params) (backtest.DecisionFunc, error) {
	period := params.Int("period", 14)
	oversold := params.Float("oversold", 30)
	overbought := params.Float("overbought", 70)
	exitLevel := params.Float("exit", 50)
	if period <= 0 {
		return nil, fmt.Errorf("rsi_reversion: period must be positive, got %d", period)
	}
	if oversold >= overbought {
		return nil, fmt.Errorf("rsi_reversion: oversold %v must be below overbought %v", oversold, overbought)
	}

	cache := &lineCache{}
	return func(_ []models.Candle, i int, ind *indicators.Set, _ backtest.Params, open []backtest.PositionSnapshot) (backtest.Action, error) {
		if ind == nil {
			return backtest.Hold{}, nil
		}
		rsi, ok := rsiLine(cache, ind, period).At(i)
		if !ok {
			return backtest.Hold{}, nil
		}

		switch holding(open) {
		case "":
			if rsi < oversold {
				return backtest.EntryLong{}, nil
			}
			if rsi > overbought {
				return backtest.EntryShort{}, nil
			}
		case "long":
			if rsi >= exitLevel {
				return backtest.Exit{}, nil
			}
		case "short":
			if rsi <= exitLevel {
				return backtest.Exit{}, nil
			}
		}
		return backtest.Hold{}, nil
	}, nil
}
