package indicators

import (
	"encoding/json"
	"math"
)

// Series is one indicator output aligned bar-for-bar with its input. NaN
// marks a bar without a value (warm-up, or past the end of a shifted line).
type Series []float64

// NewSeries returns a series of length n with every entry null
func NewSeries(n int) Series {
	s := make(Series, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

// IsNull reports whether v is the null marker
func IsNull(v float64) bool {
	return math.IsNaN(v)
}

// At returns the value at index i and whether it is defined
func (s Series) At(i int) (float64, bool) {
	if i < 0 || i >= len(s) || IsNull(s[i]) {
		return 0, false
	}
	return s[i], true
}

// FirstValid returns the index of the first defined value, -1 if none
func (s Series) FirstValid() int {
	for i, v := range s {
		if !IsNull(v) {
			return i
		}
	}
	return -1
}

// MarshalJSON writes null markers as JSON null
func (s Series) MarshalJSON() ([]byte, error) {
	out := make([]*float64, len(s))
	for i := range s {
		if !IsNull(s[i]) {
			v := s[i]
			out[i] = &v
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads JSON null as the null marker
func (s *Series) UnmarshalJSON(data []byte) error {
	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := NewSeries(len(raw))
	for i, v := range raw {
		if v != nil {
			out[i] = *v
		}
	}
	*s = out
	return nil
}

// applyCompact runs fn over the defined values of s only and writes each
// result back at the index its input came from.
func applyCompact(s []float64, fn func([]float64) Series) Series {
	out := NewSeries(len(s))
	idx := make([]int, 0, len(s))
	vals := make([]float64, 0, len(s))
	for i, v := range s {
		if !IsNull(v) {
			idx = append(idx, i)
			vals = append(vals, v)
		}
	}
	res := fn(vals)
	for j, i := range idx {
		out[i] = res[j]
	}
	return out
}

// highestLowest scans highs[start..end] and lows[start..end] inclusive
func highestLowest(highs, lows []float64, start, end int) (float64, float64) {
	hh, ll := math.Inf(-1), math.Inf(1)
	for j := start; j <= end; j++ {
		if highs[j] > hh {
			hh = highs[j]
		}
		if lows[j] < ll {
			ll = lows[j]
		}
	}
	return hh, ll
}

func typicalPrices(highs, lows, closes []float64) []float64 {
	tp := make([]float64, len(closes))
	for i, c := range closes {
		tp[i] = (highs[i] + lows[i] + c) / 3
	}
	return tp
}

func medianPrices(highs, lows []float64) []float64 {
	mid := make([]float64, len(highs))
	for i, h := range highs {
		mid[i] = (h + lows[i]) / 2
	}
	return mid
}

func trueRange(highs, lows, closes []float64, i int) float64 {
	return math.Max(
		highs[i]-lows[i],
		math.Max(math.Abs(highs[i]-closes[i-1]), math.Abs(lows[i]-closes[i-1])),
	)
}
