package indicators

type StochResult struct {
	K Series `json:"k"`
	D Series `json:"d"`
}

type KDJResult struct {
	K Series `json:"k"`
	D Series `json:"d"`
	J Series `json:"j"`
}

// CalculateStochastic computes %K over kPeriod bars and %D as the dPeriod SMA
// of %K. A window with no range reads 50.
func CalculateStochastic(highs, lows, closes []float64, kPeriod, dPeriod int) StochResult {
	n := len(closes)
	k := NewSeries(n)
	d := NewSeries(n)
	if kPeriod <= 0 || dPeriod <= 0 {
		return StochResult{K: k, D: d}
	}

	for i := kPeriod - 1; i < n; i++ {
		hh, ll := highestLowest(highs, lows, i-kPeriod+1, i)
		if hh == ll {
			k[i] = 50
			continue
		}
		k[i] = (closes[i] - ll) / (hh - ll) * 100
	}

	for i := kPeriod - 1 + dPeriod - 1; i < n; i++ {
		sum := 0.0
		for j := i - dPeriod + 1; j <= i; j++ {
			sum += k[j]
		}
		d[i] = sum / float64(dPeriod)
	}

	return StochResult{K: k, D: d}
}

// CalculateKDJ is the recursively smoothed stochastic. K and D start from 50
// at the first full window; J = 3K - 2D.
func CalculateKDJ(highs, lows, closes []float64, period, kSmooth, dSmooth int) KDJResult {
	n := len(closes)
	k := NewSeries(n)
	d := NewSeries(n)
	j := NewSeries(n)
	if period <= 0 || kSmooth <= 0 || dSmooth <= 0 {
		return KDJResult{K: k, D: d, J: j}
	}

	prevK, prevD := 50.0, 50.0
	for i := period - 1; i < n; i++ {
		hh, ll := highestLowest(highs, lows, i-period+1, i)
		rsv := 50.0
		if hh != ll {
			rsv = (closes[i] - ll) / (hh - ll) * 100
		}
		k[i] = (float64(kSmooth-1)*prevK + rsv) / float64(kSmooth)
		d[i] = (float64(dSmooth-1)*prevD + k[i]) / float64(dSmooth)
		j[i] = 3*k[i] - 2*d[i]
		prevK, prevD = k[i], d[i]
	}
	return KDJResult{K: k, D: d, J: j}
}

// CalculateCCI computes the commodity channel index on typical prices. Zero
// mean deviation reads 0.
func CalculateCCI(highs, lows, closes []float64, period int) Series {
	n := len(closes)
	cci := NewSeries(n)
	if period <= 0 {
		return cci
	}
	tp := typicalPrices(highs, lows, closes)

	for i := period - 1; i < n; i++ {
		sum := 0.0
		for j := i - period + 1; j <= i; j++ {
			sum += tp[j]
		}
		mean := sum / float64(period)

		madSum := 0.0
		for j := i - period + 1; j <= i; j++ {
			madSum += abs(tp[j] - mean)
		}
		mad := madSum / float64(period)

		if mad == 0 {
			cci[i] = 0
			continue
		}
		cci[i] = (tp[i] - mean) / (0.015 * mad)
	}
	return cci
}

// CalculateMomentum is the price difference over period bars
func CalculateMomentum(prices []float64, period int) Series {
	mom := NewSeries(len(prices))
	if period < 0 {
		return mom
	}
	for i := period; i < len(prices); i++ {
		mom[i] = prices[i] - prices[i-period]
	}
	return mom
}

// CalculateROC is the percent change over period bars, 0 from a zero base
func CalculateROC(prices []float64, period int) Series {
	roc := NewSeries(len(prices))
	if period <= 0 {
		return roc
	}
	for i := period; i < len(prices); i++ {
		base := prices[i-period]
		if base == 0 {
			roc[i] = 0
			continue
		}
		roc[i] = (prices[i] - base) / base * 100
	}
	return roc
}

// CalculateWilliamsR reads 0 at the window high and -100 at the low, -50
// when the window has no range.
func CalculateWilliamsR(highs, lows, closes []float64, period int) Series {
	n := len(closes)
	wr := NewSeries(n)
	if period <= 0 {
		return wr
	}

	for i := period - 1; i < n; i++ {
		hh, ll := highestLowest(highs, lows, i-period+1, i)
		if hh == ll {
			wr[i] = -50
			continue
		}
		wr[i] = (hh - closes[i]) / (hh - ll) * -100
	}
	return wr
}

// CalculateAO is the awesome oscillator, SMA5 minus SMA34 of median price
func CalculateAO(highs, lows []float64) Series {
	n := len(highs)
	ao := NewSeries(n)
	mid := medianPrices(highs, lows)
	sma5 := CalculateSMA(mid, 5)
	sma34 := CalculateSMA(mid, 34)

	for i := 33; i < n; i++ {
		if !IsNull(sma5[i]) && !IsNull(sma34[i]) {
			ao[i] = sma5[i] - sma34[i]
		}
	}
	return ao
}

// CalculateAC is the accelerator oscillator, AO minus its own SMA5
func CalculateAC(highs, lows []float64) Series {
	ao := CalculateAO(highs, lows)
	aoSma := applyCompact(ao, func(v []float64) Series { return CalculateSMA(v, 5) })

	ac := NewSeries(len(highs))
	for i := range ao {
		if !IsNull(aoSma[i]) {
			ac[i] = ao[i] - aoSma[i]
		}
	}
	return ac
}

// CalculateUltimateOscillator blends buying pressure over three windows with
// 4:2:1 weights. A window without range contributes a neutral 0.5.
func CalculateUltimateOscillator(highs, lows, closes []float64, short, medium, long int) Series {
	n := len(closes)
	uo := NewSeries(n)
	if short <= 0 || medium <= 0 || long <= 0 {
		return uo
	}

	bp := make([]float64, n)
	tr := make([]float64, n)
	for i := 1; i < n; i++ {
		low := min(lows[i], closes[i-1])
		high := max(highs[i], closes[i-1])
		bp[i] = closes[i] - low
		tr[i] = high - low
	}

	average := func(i, period int) float64 {
		sumBP, sumTR := 0.0, 0.0
		for j := i - period + 1; j <= i; j++ {
			sumBP += bp[j]
			sumTR += tr[j]
		}
		if sumTR == 0 {
			return 0.5
		}
		return sumBP / sumTR
	}

	longest := max(short, medium, long)
	for i := longest; i < n; i++ {
		a1 := average(i, short)
		a2 := average(i, medium)
		a3 := average(i, long)
		uo[i] = 100 * (4*a1 + 2*a2 + a3) / 7
	}
	return uo
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
