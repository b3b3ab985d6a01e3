package indicators

// CalculateRSI computes Wilder's relative strength index. The first value is
// at index period, seeded with the plain average gain and loss of the first
// period changes.
func CalculateRSI(prices []float64, period int) Series {
	rsi := NewSeries(len(prices))
	if period <= 0 || len(prices) < period+1 {
		return rsi
	}

	gainSum, lossSum := 0.0, 0.0
	for i := 1; i <= period; i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gainSum += change
		} else {
			lossSum -= change
		}
	}

	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)
	rsi[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else if change < 0 {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		rsi[i] = rsiValue(avgGain, avgLoss)
	}
	return rsi
}

// CalculateStochRSI applies the stochastic formula to RSI values. K is the
// kSmooth SMA of the raw value and D the dSmooth SMA of K. A flat RSI window
// reads 50.
func CalculateStochRSI(prices []float64, rsiPeriod, stochPeriod, kSmooth, dSmooth int) StochResult {
	rsi := CalculateRSI(prices, rsiPeriod)
	raw := NewSeries(len(prices))

	start := rsi.FirstValid()
	if start >= 0 && stochPeriod > 0 {
		for i := start + stochPeriod - 1; i < len(prices); i++ {
			hi, lo := rsi[i], rsi[i]
			for j := i - stochPeriod + 1; j <= i; j++ {
				if rsi[j] > hi {
					hi = rsi[j]
				}
				if rsi[j] < lo {
					lo = rsi[j]
				}
			}
			if hi == lo {
				raw[i] = 50
				continue
			}
			raw[i] = (rsi[i] - lo) / (hi - lo) * 100
		}
	}

	k := applyCompact(raw, func(v []float64) Series { return CalculateSMA(v, kSmooth) })
	d := applyCompact(k, func(v []float64) Series { return CalculateSMA(v, dSmooth) })
	return StochResult{K: k, D: d}
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	return 100 - (100 / (1 + avgGain/avgLoss))
}
