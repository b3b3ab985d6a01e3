package indicators

// CalculateOBV computes on-balance volume. It has no warm-up: the first bar
// carries its own volume.
func CalculateOBV(closes, volumes []float64) Series {
	n := len(closes)
	obv := make(Series, n)
	if n == 0 {
		return obv
	}

	obv[0] = volumes[0]
	for i := 1; i < n; i++ {
		switch {
		case closes[i] > closes[i-1]:
			obv[i] = obv[i-1] + volumes[i]
		case closes[i] < closes[i-1]:
			obv[i] = obv[i-1] - volumes[i]
		default:
			obv[i] = obv[i-1]
		}
	}
	return obv
}

// CalculateMFI computes the money flow index over period bars. A window with
// no negative flow reads 100.
func CalculateMFI(highs, lows, closes, volumes []float64, period int) Series {
	n := len(closes)
	mfi := NewSeries(n)
	if period <= 0 {
		return mfi
	}
	tp := typicalPrices(highs, lows, closes)

	for i := period; i < n; i++ {
		posFlow, negFlow := 0.0, 0.0
		for j := i - period + 1; j <= i; j++ {
			flow := tp[j] * volumes[j]
			if tp[j] > tp[j-1] {
				posFlow += flow
			} else if tp[j] < tp[j-1] {
				negFlow += flow
			}
		}
		if negFlow == 0 {
			mfi[i] = 100
			continue
		}
		mfi[i] = 100 - (100 / (1 + posFlow/negFlow))
	}
	return mfi
}

// CalculateCMF computes Chaikin money flow. Bars without range add no flow
// and a window without volume reads 0.
func CalculateCMF(highs, lows, closes, volumes []float64, period int) Series {
	n := len(closes)
	cmf := NewSeries(n)
	if period <= 0 {
		return cmf
	}

	mfv := make([]float64, n)
	for i := 0; i < n; i++ {
		mfv[i] = moneyFlowMultiplier(highs[i], lows[i], closes[i]) * volumes[i]
	}

	for i := period - 1; i < n; i++ {
		sumMFV, sumVol := 0.0, 0.0
		for j := i - period + 1; j <= i; j++ {
			sumMFV += mfv[j]
			sumVol += volumes[j]
		}
		if sumVol == 0 {
			cmf[i] = 0
			continue
		}
		cmf[i] = sumMFV / sumVol
	}
	return cmf
}

// CalculateADLine is the cumulative accumulation/distribution line
func CalculateADLine(highs, lows, closes, volumes []float64) Series {
	n := len(closes)
	ad := make(Series, n)
	running := 0.0
	for i := 0; i < n; i++ {
		running += moneyFlowMultiplier(highs[i], lows[i], closes[i]) * volumes[i]
		ad[i] = running
	}
	return ad
}

// CalculateVWAP is the cumulative volume weighted typical price of the whole
// series. Before any volume trades it reads the bar's typical price.
func CalculateVWAP(highs, lows, closes, volumes []float64) Series {
	n := len(closes)
	vwap := make(Series, n)
	tp := typicalPrices(highs, lows, closes)

	cumPV, cumVol := 0.0, 0.0
	for i := 0; i < n; i++ {
		cumPV += tp[i] * volumes[i]
		cumVol += volumes[i]
		if cumVol == 0 {
			vwap[i] = tp[i]
			continue
		}
		vwap[i] = cumPV / cumVol
	}
	return vwap
}

func moneyFlowMultiplier(high, low, close float64) float64 {
	if high == low {
		return 0
	}
	return ((close - low) - (high - close)) / (high - low)
}
