package strategy

import (
	"fmt"

	"CryptoBacktest/internal/models"
	"CryptoBacktest/internal/operations/backtest"
	"CryptoBacktest/internal/services/indicators"
)

var donchianBreakoutDefinition = Definition{
	Name:        "donchian_breakout",
	Description: "Rests stop orders at the Donchian channel edges, refreshing them every few bars, and exits at the midline",
	Defaults:    backtest.Params{"period": 20.0},
}

// While flat the decider cycles through three bars: cancel what is resting,
// place the buy stop at the upper band, place the sell stop at the lower band.
func newDonchianBreakout(params backtest.Params) (backtest.DecisionFunc, error) {
	period := params.Int("period", 20)
	if period <= 0 {
		return nil, fmt.Errorf("donchian_breakout: period must be positive, got %d", period)
	}

	cache := &lineCache{}
	return func(candles []models.Candle, i int, ind *indicators.Set, _ backtest.Params, open []backtest.PositionSnapshot) (backtest.Action, error) {
		if ind == nil {
			return backtest.Hold{}, nil
		}
		band, ok := ind.Donchian[period]
		if !ok {
			band.Upper = cache.get(ind, fmt.Sprintf("donchian/%d/upper", period), func() indicators.Series {
				return ind.Calc.Donchian(ind.Raw.Highs, ind.Raw.Lows, period).Upper
			})
			band.Middle = cache.get(ind, fmt.Sprintf("donchian/%d/middle", period), func() indicators.Series {
				return ind.Calc.Donchian(ind.Raw.Highs, ind.Raw.Lows, period).Middle
			})
			band.Lower = cache.get(ind, fmt.Sprintf("donchian/%d/lower", period), func() indicators.Series {
				return ind.Calc.Donchian(ind.Raw.Highs, ind.Raw.Lows, period).Lower
			})
		}

		upper, ok1 := band.Upper.At(i)
		middle, ok2 := band.Middle.At(i)
		lower, ok3 := band.Lower.At(i)
		if !ok1 || !ok2 || !ok3 {
			return backtest.Hold{}, nil
		}
		closePrice := candles[i].Close

		switch holding(open) {
		case "long":
			if closePrice < middle {
				return backtest.Exit{}, nil
			}
			return backtest.Cancel{}, nil
		case "short":
			if closePrice > middle {
				return backtest.Exit{}, nil
			}
			return backtest.Cancel{}, nil
		}

		switch i % 3 {
		case 0:
			return backtest.Cancel{}, nil
		case 1:
			return backtest.EntryLong{Type: backtest.OrderStop, Price: upper}, nil
		default:
			return backtest.EntryShort{Type: backtest.OrderStop, Price: lower}, nil
		}
	}, nil
}
