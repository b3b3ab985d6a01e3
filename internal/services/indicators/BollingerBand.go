package indicators

import "math"

// BandResult is the shared shape of every envelope style indicator
type BandResult struct {
	Upper  Series `json:"upper"`
	Middle Series `json:"middle"`
	Lower  Series `json:"lower"`
}

// CalculateBB computes Bollinger Bands around an SMA using the population
// standard deviation of the window.
func CalculateBB(prices []float64, period int, deviation float64) BandResult {
	sma := CalculateSMA(prices, period)
	n := len(prices)
	upper := NewSeries(n)
	lower := NewSeries(n)

	if period > 0 {
		for i := period - 1; i < n; i++ {
			sumSq := 0.0
			for j := i - period + 1; j <= i; j++ {
				diff := prices[j] - sma[i]
				sumSq += diff * diff
			}
			std := math.Sqrt(sumSq / float64(period))
			upper[i] = sma[i] + deviation*std
			lower[i] = sma[i] - deviation*std
		}
	}

	return BandResult{Upper: upper, Middle: sma, Lower: lower}
}

// CalculateEnvelopes places bands a fixed percent above and below an SMA
func CalculateEnvelopes(prices []float64, period int, deviation float64) BandResult {
	sma := CalculateSMA(prices, period)
	n := len(prices)
	upper := NewSeries(n)
	lower := NewSeries(n)

	for i := range prices {
		if !IsNull(sma[i]) {
			upper[i] = sma[i] * (1 + deviation/100)
			lower[i] = sma[i] * (1 - deviation/100)
		}
	}
	return BandResult{Upper: upper, Middle: sma, Lower: lower}
}

// CalculateKeltner places bands multiplier ATRs around an EMA of closes
func CalculateKeltner(highs, lows, closes []float64, period int, multiplier float64) BandResult {
	ema := CalculateEMA(closes, period)
	atr := CalculateATR(highs, lows, closes, period)
	n := len(closes)
	upper := NewSeries(n)
	lower := NewSeries(n)

	for i := range closes {
		if !IsNull(ema[i]) && !IsNull(atr[i]) {
			upper[i] = ema[i] + multiplier*atr[i]
			lower[i] = ema[i] - multiplier*atr[i]
		}
	}
	return BandResult{Upper: upper, Middle: ema, Lower: lower}
}

// CalculateDonchian tracks the highest high and lowest low of the window
func CalculateDonchian(highs, lows []float64, period int) BandResult {
	n := len(highs)
	upper := NewSeries(n)
	middle := NewSeries(n)
	lower := NewSeries(n)
	if period <= 0 {
		return BandResult{Upper: upper, Middle: middle, Lower: lower}
	}

	for i := period - 1; i < n; i++ {
		hh, ll := highestLowest(highs, lows, i-period+1, i)
		upper[i] = hh
		lower[i] = ll
		middle[i] = (hh + ll) / 2
	}
	return BandResult{Upper: upper, Middle: middle, Lower: lower}
}
