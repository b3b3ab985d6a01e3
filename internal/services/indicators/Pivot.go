package indicators

type PivotResult struct {
	PP Series `json:"pp"`
	R1 Series `json:"r1"`
	R2 Series `json:"r2"`
	R3 Series `json:"r3"`
	S1 Series `json:"s1"`
	S2 Series `json:"s2"`
	S3 Series `json:"s3"`
}

// CalculatePivot computes classic floor pivots for each bar from the bar
// before it, so index 0 has none.
func CalculatePivot(highs, lows, closes []float64) PivotResult {
	n := len(closes)
	res := PivotResult{
		PP: NewSeries(n), R1: NewSeries(n), R2: NewSeries(n), R3: NewSeries(n),
		S1: NewSeries(n), S2: NewSeries(n), S3: NewSeries(n),
	}

	for i := 1; i < n; i++ {
		h, l, c := highs[i-1], lows[i-1], closes[i-1]
		pp := (h + l + c) / 3
		res.PP[i] = pp
		res.R1[i] = 2*pp - l
		res.S1[i] = 2*pp - h
		res.R2[i] = pp + (h - l)
		res.S2[i] = pp - (h - l)
		res.R3[i] = h + 2*(pp-l)
		res.S3[i] = l - 2*(h-pp)
	}
	return res
}
