package indicators

import "math"

// CrossSignal represents crossover status between two lines at one bar
type CrossSignal struct {
	Crossed   bool    // Whether cross occurred
	Direction int     // 1 (bullish), -1 (bearish)
	Strength  float64 // Relative gap after the cross
}

// CalculateEMA computes the exponential moving average. The first value sits
// at index period-1 and is the simple average of the first period prices.
func CalculateEMA(prices []float64, period int) Series {
	ema := NewSeries(len(prices))
	if period <= 0 || len(prices) < period {
		return ema
	}

	ema[period-1] = calculateInitialSMA(prices, period)

	k := getMultiplier(period)
	for i := period; i < len(prices); i++ {
		ema[i] = calculatePoint(prices[i], ema[i-1], k)
	}
	return ema
}

// CalculateDEMA computes the double exponential moving average
// 2*EMA - EMA(EMA). The inner EMA only sees defined values.
func CalculateDEMA(prices []float64, period int) Series {
	ema1 := CalculateEMA(prices, period)
	ema2 := applyCompact(ema1, func(v []float64) Series { return CalculateEMA(v, period) })

	dema := NewSeries(len(prices))
	for i := range prices {
		if !IsNull(ema1[i]) && !IsNull(ema2[i]) {
			dema[i] = 2*ema1[i] - ema2[i]
		}
	}
	return dema
}

// CalculateTEMA computes the triple exponential moving average
// 3*EMA - 3*EMA(EMA) + EMA(EMA(EMA)).
func CalculateTEMA(prices []float64, period int) Series {
	ema1 := CalculateEMA(prices, period)
	ema2 := applyCompact(ema1, func(v []float64) Series { return CalculateEMA(v, period) })
	ema3 := applyCompact(ema2, func(v []float64) Series { return CalculateEMA(v, period) })

	tema := NewSeries(len(prices))
	for i := range prices {
		if !IsNull(ema1[i]) && !IsNull(ema2[i]) && !IsNull(ema3[i]) {
			tema[i] = 3*ema1[i] - 3*ema2[i] + ema3[i]
		}
	}
	return tema
}

// CalculateTRIX is the one-bar percent rate of change of a triple smoothed EMA
func CalculateTRIX(prices []float64, period int) Series {
	ema1 := CalculateEMA(prices, period)
	ema2 := applyCompact(ema1, func(v []float64) Series { return CalculateEMA(v, period) })
	ema3 := applyCompact(ema2, func(v []float64) Series { return CalculateEMA(v, period) })

	trix := NewSeries(len(prices))
	for i := 1; i < len(prices); i++ {
		if IsNull(ema3[i]) || IsNull(ema3[i-1]) {
			continue
		}
		if ema3[i-1] == 0 {
			trix[i] = 0
			continue
		}
		trix[i] = (ema3[i] - ema3[i-1]) / ema3[i-1] * 100
	}
	return trix
}

// CheckCrossover detects a cross of fast over slow between bar i-1 and bar i.
// Bars where either line is undefined never count as a cross.
func CheckCrossover(fast, slow Series, i int) CrossSignal {
	currFast, ok1 := fast.At(i)
	prevFast, ok2 := fast.At(i - 1)
	currSlow, ok3 := slow.At(i)
	prevSlow, ok4 := slow.At(i - 1)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return CrossSignal{Crossed: false}
	}

	bullishCross := prevFast <= prevSlow && currFast > currSlow
	bearishCross := prevFast >= prevSlow && currFast < currSlow

	if !bullishCross && !bearishCross {
		return CrossSignal{Crossed: false}
	}

	strength := 0.0
	if currSlow != 0 {
		strength = math.Abs((currFast - currSlow) / currSlow)
	}
	direction := 1
	if bearishCross {
		direction = -1
	}

	return CrossSignal{
		Crossed:   true,
		Direction: direction,
		Strength:  strength,
	}
}

// Private helper methods

func getMultiplier(period int) float64 {
	return 2.0 / float64(period+1)
}

func calculateInitialSMA(prices []float64, period int) float64 {
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += prices[i]
	}
	return sum / float64(period)
}

func calculatePoint(price, prevEMA, k float64) float64 {
	return price*k + prevEMA*(1-k)
}
