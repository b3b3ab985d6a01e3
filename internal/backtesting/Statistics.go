package backtesting

import (
	"math"

	"CryptoBacktest/internal/operations/backtest"

	"github.com/shopspring/decimal"
)

// Stats are the derived figures stored next to a report
type Stats struct {
	SharpeRatio  float64 `json:"sharpe_ratio"`
	ProfitFactor float64 `json:"profit_factor"`
	Expectancy   float64 `json:"expectancy"`
	GrossProfit  float64 `json:"gross_profit"`
	GrossLoss    float64 `json:"gross_loss"`
}

// Summarize derives Stats from a finished report. Per-trade returns are pnl
// over the initial balance; the Sharpe ratio is annualised over 252 periods.
// ProfitFactor is 0 when there are no losing trades.
func Summarize(report *backtest.Report) Stats {
	var stats Stats
	if report == nil || len(report.Trades) == 0 || report.InitialBalance <= 0 {
		return stats
	}

	returns := make([]float64, len(report.Trades))
	var totalPnL float64
	for i, trade := range report.Trades {
		if trade.PnL > 0 {
			stats.GrossProfit += trade.PnL
		} else if trade.PnL < 0 {
			stats.GrossLoss += -trade.PnL
		}
		totalPnL += trade.PnL
		returns[i] = trade.PnL / report.InitialBalance
	}

	stats.Expectancy = totalPnL / float64(len(report.Trades))
	if stats.GrossLoss > 0 {
		stats.ProfitFactor = stats.GrossProfit / stats.GrossLoss
	}
	stats.SharpeRatio = sharpeRatio(returns)

	stats.SharpeRatio = round(stats.SharpeRatio, 4)
	stats.ProfitFactor = round(stats.ProfitFactor, 4)
	stats.Expectancy = round(stats.Expectancy, 2)
	stats.GrossProfit = round(stats.GrossProfit, 2)
	stats.GrossLoss = round(stats.GrossLoss, 2)
	return stats
}

func sharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	avgReturn := average(returns)
	stdDev := standardDeviation(returns, avgReturn)

	if stdDev == 0 {
		return 0
	}

	return (avgReturn * math.Sqrt(252)) / stdDev
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func standardDeviation(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}

	var variance float64
	for _, v := range values {
		variance += math.Pow(v-mean, 2)
	}

	variance = variance / float64(len(values)-1)
	return math.Sqrt(variance)
}

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
