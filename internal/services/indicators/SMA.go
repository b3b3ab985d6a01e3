package indicators

import "math"

// CalculateSMA computes a simple moving average with a running sum
func CalculateSMA(prices []float64, period int) Series {
	sma := NewSeries(len(prices))
	if period <= 0 || len(prices) < period {
		return sma
	}

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += prices[i]
	}
	sma[period-1] = sum / float64(period)

	for i := period; i < len(prices); i++ {
		sum += prices[i] - prices[i-period]
		sma[i] = sum / float64(period)
	}
	return sma
}

// CalculateWMA computes a linearly weighted moving average, the newest bar
// carrying weight period and the oldest weight 1.
func CalculateWMA(prices []float64, period int) Series {
	wma := NewSeries(len(prices))
	if period <= 0 || len(prices) < period {
		return wma
	}

	denom := float64(period*(period+1)) / 2
	for i := period - 1; i < len(prices); i++ {
		sum := 0.0
		for j := 0; j < period; j++ {
			sum += prices[i-period+1+j] * float64(j+1)
		}
		wma[i] = sum / denom
	}
	return wma
}

// CalculateHMA computes the Hull moving average
// WMA(2*WMA(n/2) - WMA(n), sqrt(n)).
func CalculateHMA(prices []float64, period int) Series {
	hma := NewSeries(len(prices))
	if period < 2 {
		return hma
	}

	half := CalculateWMA(prices, period/2)
	full := CalculateWMA(prices, period)
	diff := NewSeries(len(prices))
	for i := range prices {
		if !IsNull(half[i]) && !IsNull(full[i]) {
			diff[i] = 2*half[i] - full[i]
		}
	}

	sqrtPeriod := int(math.Sqrt(float64(period)))
	return applyCompact(diff, func(v []float64) Series { return CalculateWMA(v, sqrtPeriod) })
}

// CalculateVWMA computes the volume weighted moving average. A window with no
// volume falls back to the plain average.
func CalculateVWMA(prices, volumes []float64, period int) Series {
	vwma := NewSeries(len(prices))
	if period <= 0 || len(prices) < period {
		return vwma
	}

	for i := period - 1; i < len(prices); i++ {
		pv, vol, sum := 0.0, 0.0, 0.0
		for j := i - period + 1; j <= i; j++ {
			pv += prices[j] * volumes[j]
			vol += volumes[j]
			sum += prices[j]
		}
		if vol == 0 {
			vwma[i] = sum / float64(period)
			continue
		}
		vwma[i] = pv / vol
	}
	return vwma
}

// CalculateStdDev is the population standard deviation over period bars
func CalculateStdDev(prices []float64, period int) Series {
	sma := CalculateSMA(prices, period)
	std := NewSeries(len(prices))
	if period <= 0 || len(prices) < period {
		return std
	}

	for i := period - 1; i < len(prices); i++ {
		sumSq := 0.0
		for j := i - period + 1; j <= i; j++ {
			diff := prices[j] - sma[i]
			sumSq += diff * diff
		}
		std[i] = math.Sqrt(sumSq / float64(period))
	}
	return std
}
