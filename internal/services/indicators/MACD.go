package indicators

type MACDResult struct {
	MACD      Series `json:"macd"`
	Signal    Series `json:"signal"`
	Histogram Series `json:"histogram"`
}

// CalculateMACD returns MACD line, signal line, and histogram.
// Default periods: fast=12, slow=26, signal=9. The signal line is the EMA of
// the defined MACD values only, so its warm-up starts where the MACD line does.
func CalculateMACD(prices []float64, fastPeriod, slowPeriod, signalPeriod int) MACDResult {
	emaFast := CalculateEMA(prices, fastPeriod)
	emaSlow := CalculateEMA(prices, slowPeriod)
	n := len(prices)

	macdLine := NewSeries(n)
	start := slowPeriod - 1
	if start < 0 {
		start = 0
	}
	for i := start; i < n; i++ {
		if !IsNull(emaFast[i]) && !IsNull(emaSlow[i]) {
			macdLine[i] = emaFast[i] - emaSlow[i]
		}
	}

	signal := applyCompact(macdLine, func(v []float64) Series { return CalculateEMA(v, signalPeriod) })

	histogram := NewSeries(n)
	for i := 0; i < n; i++ {
		if !IsNull(signal[i]) {
			histogram[i] = macdLine[i] - signal[i]
		}
	}

	return MACDResult{
		MACD:      macdLine,
		Signal:    signal,
		Histogram: histogram,
	}
}
