package indicators

import "math"

type IchimokuResult struct {
	Tenkan  Series `json:"tenkan"`
	Kijun   Series `json:"kijun"`
	SenkouA Series `json:"senkouA"`
	SenkouB Series `json:"senkouB"`
	Chikou  Series `json:"chikou"`

	// ChikouShifted holds the close written kijunPeriod bars back
	ChikouShifted Series `json:"chikouShifted"`
}

type AlligatorResult struct {
	Jaw   Series `json:"jaw"`
	Teeth Series `json:"teeth"`
	Lips  Series `json:"lips"`
}

type GatorResult struct {
	Upper Series `json:"upper"`
	Lower Series `json:"lower"`
}

// Alligator lines are SMAs of median price plotted ahead of the bar that
// produced them.
const (
	jawPeriod   = 13
	jawShift    = 8
	teethPeriod = 8
	teethShift  = 5
	lipsPeriod  = 5
	lipsShift   = 3
)

// CalculateIchimoku computes the cloud. Both senkou spans are produced once
// senkouBPeriod bars are available and written kijunPeriod bars ahead; values
// that would land past the last bar are dropped. Chikou stays null on every
// bar; the lagging close is in ChikouShifted.
func CalculateIchimoku(highs, lows, closes []float64, tenkanPeriod, kijunPeriod, senkouBPeriod int) IchimokuResult {
	n := len(highs)
	res := IchimokuResult{
		Tenkan:  NewSeries(n),
		Kijun:   NewSeries(n),
		SenkouA: NewSeries(n),
		SenkouB: NewSeries(n),
		Chikou:  NewSeries(n),

		ChikouShifted: NewSeries(n),
	}
	if tenkanPeriod <= 0 || kijunPeriod <= 0 || senkouBPeriod <= 0 {
		return res
	}

	midpoint := func(start, end int) float64 {
		hh, ll := highestLowest(highs, lows, start, end)
		return (hh + ll) / 2
	}

	for i := 0; i < n; i++ {
		if i >= tenkanPeriod-1 {
			res.Tenkan[i] = midpoint(i-tenkanPeriod+1, i)
		}
		if i >= kijunPeriod-1 {
			res.Kijun[i] = midpoint(i-kijunPeriod+1, i)
		}
		if i >= senkouBPeriod-1 && i+kijunPeriod < n {
			a := math.NaN()
			if !IsNull(res.Tenkan[i]) && !IsNull(res.Kijun[i]) {
				a = (res.Tenkan[i] + res.Kijun[i]) / 2
			}
			res.SenkouA[i+kijunPeriod] = a
			res.SenkouB[i+kijunPeriod] = midpoint(i-senkouBPeriod+1, i)
		}
		if i >= kijunPeriod && i < len(closes) {
			res.ChikouShifted[i-kijunPeriod] = closes[i]
		}
	}
	return res
}

// CalculateAlligator computes jaw SMA13 shifted 8, teeth SMA8 shifted 5 and
// lips SMA5 shifted 3, all over median price.
func CalculateAlligator(highs, lows []float64) AlligatorResult {
	mid := medianPrices(highs, lows)
	n := len(highs)

	return AlligatorResult{
		Jaw:   shiftForward(CalculateSMA(mid, jawPeriod), jawShift, n),
		Teeth: shiftForward(CalculateSMA(mid, teethPeriod), teethShift, n),
		Lips:  shiftForward(CalculateSMA(mid, lipsPeriod), lipsShift, n),
	}
}

// CalculateGator is the alligator histogram: |jaw-teeth| above zero and
// -|teeth-lips| below.
func CalculateGator(highs, lows []float64) GatorResult {
	al := CalculateAlligator(highs, lows)
	n := len(highs)
	upper := NewSeries(n)
	lower := NewSeries(n)

	for i := 0; i < n; i++ {
		if !IsNull(al.Jaw[i]) && !IsNull(al.Teeth[i]) {
			upper[i] = math.Abs(al.Jaw[i] - al.Teeth[i])
		}
		if !IsNull(al.Teeth[i]) && !IsNull(al.Lips[i]) {
			lower[i] = -math.Abs(al.Teeth[i] - al.Lips[i])
		}
	}
	return GatorResult{Upper: upper, Lower: lower}
}

func shiftForward(s Series, shift, n int) Series {
	out := NewSeries(n)
	for i := 0; i+shift < n; i++ {
		if !IsNull(s[i]) {
			out[i+shift] = s[i]
		}
	}
	return out
}
