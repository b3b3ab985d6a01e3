package indicators

import "math"

type ADXResult struct {
	ADX     Series `json:"adx"`
	PlusDI  Series `json:"plusDI"`
	MinusDI Series `json:"minusDI"`
}

type SuperTrendResult struct {
	SuperTrend Series `json:"supertrend"`
	Direction  Series `json:"direction"` // 1 up, -1 down
}

type AroonResult struct {
	Up   Series `json:"up"`
	Down Series `json:"down"`
}

type VortexResult struct {
	Plus  Series `json:"plus"`
	Minus Series `json:"minus"`
}

// CalculateATR computes the average true range. The first bar's true range
// is its high-low span; the seed at period-1 is a plain average followed by
// Wilder smoothing.
func CalculateATR(highs, lows, closes []float64, period int) Series {
	n := len(closes)
	atr := NewSeries(n)
	if period <= 0 || n < period {
		return atr
	}

	tr := make([]float64, n)
	tr[0] = highs[0] - lows[0]
	for i := 1; i < n; i++ {
		tr[i] = trueRange(highs, lows, closes, i)
	}

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += tr[i]
	}
	atr[period-1] = sum / float64(period)

	for i := period; i < n; i++ {
		atr[i] = (atr[i-1]*float64(period-1) + tr[i]) / float64(period)
	}
	return atr
}

// CalculateADX computes the average directional index with +DI and -DI.
// Needs at least 2*period bars. DI values start at index period+1 and ADX at
// 2*period.
func CalculateADX(highs, lows, closes []float64, period int) ADXResult {
	n := len(closes)
	adx := NewSeries(n)
	plusDI := NewSeries(n)
	minusDI := NewSeries(n)
	if period <= 0 || n < period*2 {
		return ADXResult{ADX: adx, PlusDI: plusDI, MinusDI: minusDI}
	}

	// index j of these slices describes bar j+1
	tr := make([]float64, 0, n-1)
	plusDM := make([]float64, 0, n-1)
	minusDM := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		tr = append(tr, trueRange(highs, lows, closes, i))
		upMove := highs[i] - highs[i-1]
		downMove := lows[i-1] - lows[i]
		if upMove > downMove && upMove > 0 {
			plusDM = append(plusDM, upMove)
		} else {
			plusDM = append(plusDM, 0)
		}
		if downMove > upMove && downMove > 0 {
			minusDM = append(minusDM, downMove)
		} else {
			minusDM = append(minusDM, 0)
		}
	}

	smoothTR, smoothPDM, smoothMDM := 0.0, 0.0, 0.0
	for i := 0; i < period; i++ {
		smoothTR += tr[i]
		smoothPDM += plusDM[i]
		smoothMDM += minusDM[i]
	}

	p := float64(period)
	dxCount := 0
	dxSum := 0.0
	for i := period; i < len(tr); i++ {
		// the first pass reuses the seed sums as they are
		if i > period {
			smoothTR = smoothTR - smoothTR/p + tr[i]
			smoothPDM = smoothPDM - smoothPDM/p + plusDM[i]
			smoothMDM = smoothMDM - smoothMDM/p + minusDM[i]
		}

		pdi, mdi := 0.0, 0.0
		if smoothTR != 0 {
			pdi = smoothPDM / smoothTR * 100
			mdi = smoothMDM / smoothTR * 100
		}
		plusDI[i+1] = pdi
		minusDI[i+1] = mdi

		dx := 0.0
		if diSum := pdi + mdi; diSum != 0 {
			dx = math.Abs(pdi-mdi) / diSum * 100
		}
		dxCount++

		switch {
		case dxCount < period:
			dxSum += dx
		case dxCount == period:
			dxSum += dx
			adx[i+1] = dxSum / p
		default:
			adx[i+1] = (adx[i]*(p-1) + dx) / p
		}
	}

	return ADXResult{ADX: adx, PlusDI: plusDI, MinusDI: minusDI}
}

// CalculateSuperTrend follows hl2 ± multiplier*ATR bands that only ratchet
// toward price. Values start at index period.
func CalculateSuperTrend(highs, lows, closes []float64, period int, multiplier float64) SuperTrendResult {
	n := len(closes)
	supertrend := NewSeries(n)
	direction := NewSeries(n)
	if period <= 0 || n < period {
		return SuperTrendResult{SuperTrend: supertrend, Direction: direction}
	}
	atr := CalculateATR(highs, lows, closes, period)

	var upperBand, lowerBand, prevUpper, prevLower float64
	for i := period; i < n; i++ {
		hl2 := (highs[i] + lows[i]) / 2
		basicUpper := hl2 + multiplier*atr[i]
		basicLower := hl2 - multiplier*atr[i]

		if i == period {
			upperBand = basicUpper
			lowerBand = basicLower
			if closes[i] > upperBand {
				direction[i] = 1
			} else {
				direction[i] = -1
			}
		} else {
			if basicUpper < prevUpper || closes[i-1] > prevUpper {
				upperBand = basicUpper
			} else {
				upperBand = prevUpper
			}
			if basicLower > prevLower || closes[i-1] < prevLower {
				lowerBand = basicLower
			} else {
				lowerBand = prevLower
			}

			if direction[i-1] == 1 {
				if closes[i] < lowerBand {
					direction[i] = -1
				} else {
					direction[i] = 1
				}
			} else {
				if closes[i] > upperBand {
					direction[i] = 1
				} else {
					direction[i] = -1
				}
			}
		}

		if direction[i] == 1 {
			supertrend[i] = lowerBand
		} else {
			supertrend[i] = upperBand
		}
		prevUpper = upperBand
		prevLower = lowerBand
	}

	return SuperTrendResult{SuperTrend: supertrend, Direction: direction}
}

// CalculateSAR computes the parabolic stop-and-reverse. It is defined from
// the first bar on; fewer than two bars yield no values.
func CalculateSAR(highs, lows []float64, accelStart, accelMax float64) Series {
	n := len(highs)
	sar := NewSeries(n)
	if n < 2 {
		return sar
	}

	isLong := highs[1] > highs[0]
	af := accelStart
	ep := lows[0]
	sar[0] = highs[0]
	if isLong {
		ep = highs[0]
		sar[0] = lows[0]
	}

	for i := 1; i < n; i++ {
		prevSar := sar[i-1]
		if prevSar == 0 || IsNull(prevSar) {
			prevSar = highs[0]
			if isLong {
				prevSar = lows[0]
			}
		}
		sar[i] = prevSar + af*(ep-prevSar)

		if isLong {
			if i >= 2 {
				sar[i] = math.Min(sar[i], math.Min(lows[i-1], orElse(lows[i-2], lows[i-1])))
			}
			if lows[i] < sar[i] {
				isLong = false
				sar[i] = ep
				ep = lows[i]
				af = accelStart
			} else if highs[i] > ep {
				ep = highs[i]
				af = math.Min(af+accelStart, accelMax)
			}
		} else {
			if i >= 2 {
				sar[i] = math.Max(sar[i], math.Max(highs[i-1], orElse(highs[i-2], highs[i-1])))
			}
			if highs[i] > sar[i] {
				isLong = true
				sar[i] = ep
				ep = highs[i]
				af = accelStart
			} else if lows[i] < ep {
				ep = lows[i]
				af = math.Min(af+accelStart, accelMax)
			}
		}
	}
	return sar
}

// CalculateAroon measures bars since the highest high and lowest low of the
// last period+1 bars. The most recent extreme wins ties.
func CalculateAroon(highs, lows []float64, period int) AroonResult {
	n := len(highs)
	up := NewSeries(n)
	down := NewSeries(n)
	if period <= 0 {
		return AroonResult{Up: up, Down: down}
	}

	for i := period; i < n; i++ {
		highIdx, lowIdx := 0, 0
		hh, ll := math.Inf(-1), math.Inf(1)
		for j := 0; j <= period; j++ {
			if highs[i-j] > hh {
				hh = highs[i-j]
				highIdx = j
			}
			if lows[i-j] < ll {
				ll = lows[i-j]
				lowIdx = j
			}
		}
		up[i] = float64(period-highIdx) / float64(period) * 100
		down[i] = float64(period-lowIdx) / float64(period) * 100
	}
	return AroonResult{Up: up, Down: down}
}

// CalculateVortex computes VI+ and VI- over period bars, 0 when the window
// has no true range.
func CalculateVortex(highs, lows, closes []float64, period int) VortexResult {
	n := len(closes)
	plus := NewSeries(n)
	minus := NewSeries(n)
	if period <= 0 {
		return VortexResult{Plus: plus, Minus: minus}
	}

	for i := period; i < n; i++ {
		vmPlus, vmMinus, sumTR := 0.0, 0.0, 0.0
		for j := i - period + 1; j <= i; j++ {
			vmPlus += math.Abs(highs[j] - lows[j-1])
			vmMinus += math.Abs(lows[j] - highs[j-1])
			sumTR += trueRange(highs, lows, closes, j)
		}
		if sumTR == 0 {
			plus[i], minus[i] = 0, 0
			continue
		}
		plus[i] = vmPlus / sumTR
		minus[i] = vmMinus / sumTR
	}
	return VortexResult{Plus: plus, Minus: minus}
}

// orElse substitutes fallback for a zero value
func orElse(v, fallback float64) float64 {
	if v == 0 {
		return fallback
	}
	return v
}
