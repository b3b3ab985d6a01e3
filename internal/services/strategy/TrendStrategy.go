package strategy

import (
	"fmt"

	"CryptoBacktest/internal/models"
	"CryptoBacktest/internal/operations/backtest"
	"CryptoBacktest/internal/services/indicators"
)

var emaCrossDefinition = Definition{
	Name:        "ema_cross",
	Description: "Long when the fast EMA crosses above the slow EMA, flat again on the bearish cross",
	Defaults:    backtest.Params{"fast": 12.0, "slow": 26.0},
}

func newEMACross(params backtest.Params) (backtest.DecisionFunc, error) {
	fast := params.Int("fast", 12)
	slow := params.Int("slow", 26)
	if fast <= 0 || slow <= 0 || fast >= slow {
		return nil, fmt.Errorf("ema_cross: need 0 < fast < slow, got fast=%d slow=%d", fast, slow)
	}

	cache := &lineCache{}
	return func(_ []models.Candle, i int, ind *indicators.Set, _ backtest.Params, open []backtest.PositionSnapshot) (backtest.Action, error) {
		if ind == nil {
			return backtest.Hold{}, nil
		}
		cross := indicators.CheckCrossover(emaLine(cache, ind, fast), emaLine(cache, ind, slow), i)
		if !cross.Crossed {
			return backtest.Hold{}, nil
		}

		side := holding(open)
		switch {
		case cross.Direction > 0 && side == "":
			return backtest.EntryLong{Type: backtest.OrderMarket}, nil
		case cross.Direction < 0 && side != "":
			return backtest.Exit{}, nil
		}
		return backtest.Hold{}, nil
	}, nil
}

var superTrendDefinition = Definition{
	Name:        "supertrend",
	Description: "Always positioned with the SuperTrend direction; exits on a flip and re-enters the next bar",
	Defaults:    backtest.Params{"period": 10.0, "multiplier": 3.0},
}

func newSuperTrend(params backtest.Params) (backtest.DecisionFunc, error) {
	period := params.Int("period", 10)
	multiplier := params.Float("multiplier", 3)
	if period <= 0 || multiplier <= 0 {
		return nil, fmt.Errorf("supertrend: period and multiplier must be positive, got %d and %v", period, multiplier)
	}
	key := indicators.ParamKey(float64(period), multiplier)

	cache := &lineCache{}
	return func(_ []models.Candle, i int, ind *indicators.Set, _ backtest.Params, open []backtest.PositionSnapshot) (backtest.Action, error) {
		if ind == nil {
			return backtest.Hold{}, nil
		}
		direction, ok := ind.Lookup("supertrend.direction", key)
		if !ok {
			direction = cache.get(ind, "supertrend/"+key, func() indicators.Series {
				return ind.Calc.SuperTrend(ind.Raw.Highs, ind.Raw.Lows, ind.Raw.Closes, period, multiplier).Direction
			})
		}

		dir, ok := direction.At(i)
		if !ok {
			return backtest.Hold{}, nil
		}

		switch side := holding(open); {
		case side == "" && dir > 0:
			return backtest.EntryLong{}, nil
		case side == "" && dir < 0:
			return backtest.EntryShort{}, nil
		case side == "long" && dir < 0, side == "short" && dir > 0:
			return backtest.Exit{}, nil
		}
		return backtest.Hold{}, nil
	}, nil
}
