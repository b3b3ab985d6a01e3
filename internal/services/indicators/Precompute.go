package indicators

import (
	"sort"
	"strconv"
	"strings"

	"CryptoBacktest/internal/models"
)

// Raw holds the price arrays every calculator reads from
type Raw struct {
	Opens   []float64
	Highs   []float64
	Lows    []float64
	Closes  []float64
	Volumes []float64
}

// Calculators exposes every calculator so decision functions can compute
// periods that are not part of the precomputed grid.
type Calculators struct {
	EMA        func(prices []float64, period int) Series
	SMA        func(prices []float64, period int) Series
	WMA        func(prices []float64, period int) Series
	DEMA       func(prices []float64, period int) Series
	TEMA       func(prices []float64, period int) Series
	HMA        func(prices []float64, period int) Series
	VWMA       func(prices, volumes []float64, period int) Series
	StdDev     func(prices []float64, period int) Series
	RSI        func(prices []float64, period int) Series
	StochRSI   func(prices []float64, rsiPeriod, stochPeriod, kSmooth, dSmooth int) StochResult
	Stoch      func(highs, lows, closes []float64, kPeriod, dPeriod int) StochResult
	KDJ        func(highs, lows, closes []float64, period, kSmooth, dSmooth int) KDJResult
	MACD       func(prices []float64, fastPeriod, slowPeriod, signalPeriod int) MACDResult
	TRIX       func(prices []float64, period int) Series
	BB         func(prices []float64, period int, deviation float64) BandResult
	Envelopes  func(prices []float64, period int, deviation float64) BandResult
	Keltner    func(highs, lows, closes []float64, period int, multiplier float64) BandResult
	Donchian   func(highs, lows []float64, period int) BandResult
	ATR        func(highs, lows, closes []float64, period int) Series
	CCI        func(highs, lows, closes []float64, period int) Series
	Momentum   func(prices []float64, period int) Series
	ROC        func(prices []float64, period int) Series
	WilliamsR  func(highs, lows, closes []float64, period int) Series
	ADX        func(highs, lows, closes []float64, period int) ADXResult
	SuperTrend func(highs, lows, closes []float64, period int, multiplier float64) SuperTrendResult
	SAR        func(highs, lows []float64, accelStart, accelMax float64) Series
	Aroon      func(highs, lows []float64, period int) AroonResult
	Vortex     func(highs, lows, closes []float64, period int) VortexResult
	Ichimoku   func(highs, lows, closes []float64, tenkanPeriod, kijunPeriod, senkouBPeriod int) IchimokuResult
	Alligator  func(highs, lows []float64) AlligatorResult
	Gator      func(highs, lows []float64) GatorResult
	AO         func(highs, lows []float64) Series
	AC         func(highs, lows []float64) Series
	Ultimate   func(highs, lows, closes []float64, short, medium, long int) Series
	Pivot      func(highs, lows, closes []float64) PivotResult
	OBV        func(closes, volumes []float64) Series
	MFI        func(highs, lows, closes, volumes []float64, period int) Series
	CMF        func(highs, lows, closes, volumes []float64, period int) Series
	ADLine     func(highs, lows, closes, volumes []float64) Series
	VWAP       func(highs, lows, closes, volumes []float64) Series
}

// DefaultCalculators wires every calculator in the package
var DefaultCalculators = Calculators{
	EMA:        CalculateEMA,
	SMA:        CalculateSMA,
	WMA:        CalculateWMA,
	DEMA:       CalculateDEMA,
	TEMA:       CalculateTEMA,
	HMA:        CalculateHMA,
	VWMA:       CalculateVWMA,
	StdDev:     CalculateStdDev,
	RSI:        CalculateRSI,
	StochRSI:   CalculateStochRSI,
	Stoch:      CalculateStochastic,
	KDJ:        CalculateKDJ,
	MACD:       CalculateMACD,
	TRIX:       CalculateTRIX,
	BB:         CalculateBB,
	Envelopes:  CalculateEnvelopes,
	Keltner:    CalculateKeltner,
	Donchian:   CalculateDonchian,
	ATR:        CalculateATR,
	CCI:        CalculateCCI,
	Momentum:   CalculateMomentum,
	ROC:        CalculateROC,
	WilliamsR:  CalculateWilliamsR,
	ADX:        CalculateADX,
	SuperTrend: CalculateSuperTrend,
	SAR:        CalculateSAR,
	Aroon:      CalculateAroon,
	Vortex:     CalculateVortex,
	Ichimoku:   CalculateIchimoku,
	Alligator:  CalculateAlligator,
	Gator:      CalculateGator,
	AO:         CalculateAO,
	AC:         CalculateAC,
	Ultimate:   CalculateUltimateOscillator,
	Pivot:      CalculatePivot,
	OBV:        CalculateOBV,
	MFI:        CalculateMFI,
	CMF:        CalculateCMF,
	ADLine:     CalculateADLine,
	VWAP:       CalculateVWAP,
}

// Set is the precomputed indicator battery for one candle series. It is
// read-only once built and safe to share between goroutines.
type Set struct {
	Raw  Raw
	Calc Calculators

	EMA        map[int]Series
	SMA        map[int]Series
	RSI        map[int]Series
	Stoch      map[string]StochResult
	MACD       map[string]MACDResult
	CCI        map[int]Series
	Momentum   map[int]Series
	WilliamsR  map[int]Series
	ADX        map[int]ADXResult
	AO         Series
	BB         map[string]BandResult
	Keltner    map[string]BandResult
	Donchian   map[int]BandResult
	Envelopes  map[string]BandResult
	SuperTrend map[string]SuperTrendResult
	ATR        map[int]Series
	SAR        Series
	Ichimoku   IchimokuResult
	Alligator  AlligatorResult
	Aroon      map[int]AroonResult
	OBV        Series
	MFI        map[int]Series

	WMA      map[int]Series
	DEMA     map[int]Series
	TEMA     map[int]Series
	HMA      map[int]Series
	VWMA     map[int]Series
	StdDev   map[int]Series
	ROC      map[int]Series
	TRIX     map[int]Series
	StochRSI map[string]StochResult
	KDJ      map[string]KDJResult
	Ultimate map[string]Series
	Vortex   map[int]VortexResult
	CMF      map[int]Series
	Gator    GatorResult
	AC       Series
	Pivot    PivotResult
	VWAP     Series
	ADLine   Series

	index map[string]map[string]Series
}

// Entry names one lookup-able indicator line and its precomputed keys
type Entry struct {
	Name string   `json:"name"`
	Keys []string `json:"keys"`
}

// Precalculate computes the whole indicator battery once for candles
func Precalculate(candles []models.Candle) *Set {
	raw := Raw{
		Opens:   make([]float64, len(candles)),
		Highs:   make([]float64, len(candles)),
		Lows:    make([]float64, len(candles)),
		Closes:  make([]float64, len(candles)),
		Volumes: make([]float64, len(candles)),
	}
	for i, c := range candles {
		raw.Opens[i] = c.Open
		raw.Highs[i] = c.High
		raw.Lows[i] = c.Low
		raw.Closes[i] = c.Close
		raw.Volumes[i] = c.Volume
	}
	h, l, c, v := raw.Highs, raw.Lows, raw.Closes, raw.Volumes

	s := &Set{
		Raw:   raw,
		Calc:  DefaultCalculators,
		index: make(map[string]map[string]Series),
	}

	s.EMA = byPeriod(func(p int) Series { return CalculateEMA(c, p) }, 5, 8, 10, 12, 20, 21, 26, 50, 100, 200)
	s.SMA = byPeriod(func(p int) Series { return CalculateSMA(c, p) }, 5, 10, 20, 50, 100, 200)
	s.RSI = byPeriod(func(p int) Series { return CalculateRSI(c, p) }, 7, 14, 21)
	s.Stoch = map[string]StochResult{
		"14_3": CalculateStochastic(h, l, c, 14, 3),
		"5_3":  CalculateStochastic(h, l, c, 5, 3),
		"21_7": CalculateStochastic(h, l, c, 21, 7),
	}
	s.MACD = map[string]MACDResult{"12_26_9": CalculateMACD(c, 12, 26, 9)}
	s.CCI = byPeriod(func(p int) Series { return CalculateCCI(h, l, c, p) }, 14, 20)
	s.Momentum = byPeriod(func(p int) Series { return CalculateMomentum(c, p) }, 10, 14)
	s.WilliamsR = byPeriod(func(p int) Series { return CalculateWilliamsR(h, l, c, p) }, 14)
	s.ADX = map[int]ADXResult{14: CalculateADX(h, l, c, 14)}
	s.AO = CalculateAO(h, l)

	s.BB = map[string]BandResult{"20_2": CalculateBB(c, 20, 2)}
	s.Keltner = map[string]BandResult{"20_1.5": CalculateKeltner(h, l, c, 20, 1.5)}
	s.Donchian = map[int]BandResult{20: CalculateDonchian(h, l, 20)}
	s.Envelopes = map[string]BandResult{"20_2.5": CalculateEnvelopes(c, 20, 2.5)}

	s.SuperTrend = map[string]SuperTrendResult{"10_3": CalculateSuperTrend(h, l, c, 10, 3)}
	s.ATR = byPeriod(func(p int) Series { return CalculateATR(h, l, c, p) }, 14)
	s.SAR = CalculateSAR(h, l, 0.02, 0.2)
	s.Ichimoku = CalculateIchimoku(h, l, c, 9, 26, 52)
	s.Alligator = CalculateAlligator(h, l)
	s.Aroon = map[int]AroonResult{25: CalculateAroon(h, l, 25)}

	s.OBV = CalculateOBV(c, v)
	s.MFI = byPeriod(func(p int) Series { return CalculateMFI(h, l, c, v, p) }, 14)

	s.WMA = byPeriod(func(p int) Series { return CalculateWMA(c, p) }, 20)
	s.DEMA = byPeriod(func(p int) Series { return CalculateDEMA(c, p) }, 20)
	s.TEMA = byPeriod(func(p int) Series { return CalculateTEMA(c, p) }, 20)
	s.HMA = byPeriod(func(p int) Series { return CalculateHMA(c, p) }, 20)
	s.VWMA = byPeriod(func(p int) Series { return CalculateVWMA(c, v, p) }, 20)
	s.StdDev = byPeriod(func(p int) Series { return CalculateStdDev(c, p) }, 20)
	s.ROC = byPeriod(func(p int) Series { return CalculateROC(c, p) }, 12)
	s.TRIX = byPeriod(func(p int) Series { return CalculateTRIX(c, p) }, 15)
	s.StochRSI = map[string]StochResult{"14_14_3_3": CalculateStochRSI(c, 14, 14, 3, 3)}
	s.KDJ = map[string]KDJResult{"9_3_3": CalculateKDJ(h, l, c, 9, 3, 3)}
	s.Ultimate = map[string]Series{"7_14_28": CalculateUltimateOscillator(h, l, c, 7, 14, 28)}
	s.Vortex = map[int]VortexResult{14: CalculateVortex(h, l, c, 14)}
	s.CMF = byPeriod(func(p int) Series { return CalculateCMF(h, l, c, v, p) }, 20)
	s.Gator = CalculateGator(h, l)
	s.AC = CalculateAC(h, l)
	s.Pivot = CalculatePivot(h, l, c)
	s.VWAP = CalculateVWAP(h, l, c, v)
	s.ADLine = CalculateADLine(h, l, c, v)

	s.buildIndex()
	return s
}

// Lookup returns a precomputed line by name and parameter key. Lines of
// multi-output indicators are named "<indicator>.<field>", e.g. "macd.signal"
// with key "12_26_9". Indicators without parameters use the empty key.
func (s *Set) Lookup(name, key string) (Series, bool) {
	if s == nil {
		return nil, false
	}
	keys, ok := s.index[name]
	if !ok {
		return nil, false
	}
	line, ok := keys[key]
	return line, ok
}

// Available lists every lookup-able line with its keys, sorted by name
func (s *Set) Available() []Entry {
	entries := make([]Entry, 0, len(s.index))
	for name, keys := range s.index {
		e := Entry{Name: name, Keys: make([]string, 0, len(keys))}
		for k := range keys {
			e.Keys = append(e.Keys, k)
		}
		sort.Strings(e.Keys)
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

// ParamKey formats parameters the way precomputed keys are written:
// ParamKey(20, 1.5) == "20_1.5".
func ParamKey(params ...float64) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = strconv.FormatFloat(p, 'f', -1, 64)
	}
	return strings.Join(parts, "_")
}

func (s *Set) buildIndex() {
	for p, line := range s.EMA {
		s.add("ema", strconv.Itoa(p), line)
	}
	for p, line := range s.SMA {
		s.add("sma", strconv.Itoa(p), line)
	}
	for p, line := range s.RSI {
		s.add("rsi", strconv.Itoa(p), line)
	}
	for k, r := range s.Stoch {
		s.add("stoch.k", k, r.K)
		s.add("stoch.d", k, r.D)
	}
	for k, r := range s.MACD {
		s.add("macd.macd", k, r.MACD)
		s.add("macd.signal", k, r.Signal)
		s.add("macd.histogram", k, r.Histogram)
	}
	for p, line := range s.CCI {
		s.add("cci", strconv.Itoa(p), line)
	}
	for p, line := range s.Momentum {
		s.add("momentum", strconv.Itoa(p), line)
	}
	for p, line := range s.WilliamsR {
		s.add("williamsR", strconv.Itoa(p), line)
	}
	for p, r := range s.ADX {
		k := strconv.Itoa(p)
		s.add("adx.adx", k, r.ADX)
		s.add("adx.plusDI", k, r.PlusDI)
		s.add("adx.minusDI", k, r.MinusDI)
	}
	s.add("ao", "", s.AO)
	s.addBands("bb", s.BB)
	s.addBands("keltner", s.Keltner)
	s.addBands("envelopes", s.Envelopes)
	for p, r := range s.Donchian {
		s.addBands("donchian", map[string]BandResult{strconv.Itoa(p): r})
	}
	for k, r := range s.SuperTrend {
		s.add("supertrend.supertrend", k, r.SuperTrend)
		s.add("supertrend.direction", k, r.Direction)
	}
	for p, line := range s.ATR {
		s.add("atr", strconv.Itoa(p), line)
	}
	s.add("sar", "", s.SAR)
	s.add("ichimoku.tenkan", "", s.Ichimoku.Tenkan)
	s.add("ichimoku.kijun", "", s.Ichimoku.Kijun)
	s.add("ichimoku.senkouA", "", s.Ichimoku.SenkouA)
	s.add("ichimoku.senkouB", "", s.Ichimoku.SenkouB)
	s.add("ichimoku.chikou", "", s.Ichimoku.Chikou)
	s.add("ichimoku.chikou_shifted", "", s.Ichimoku.ChikouShifted)
	s.add("alligator.jaw", "", s.Alligator.Jaw)
	s.add("alligator.teeth", "", s.Alligator.Teeth)
	s.add("alligator.lips", "", s.Alligator.Lips)
	for p, r := range s.Aroon {
		k := strconv.Itoa(p)
		s.add("aroon.up", k, r.Up)
		s.add("aroon.down", k, r.Down)
	}
	s.add("obv", "", s.OBV)
	for p, line := range s.MFI {
		s.add("mfi", strconv.Itoa(p), line)
	}

	single := map[string]map[int]Series{
		"wma": s.WMA, "dema": s.DEMA, "tema": s.TEMA, "hma": s.HMA, "vwma": s.VWMA,
		"stddev": s.StdDev, "roc": s.ROC, "trix": s.TRIX, "cmf": s.CMF,
	}
	for name, lines := range single {
		for p, line := range lines {
			s.add(name, strconv.Itoa(p), line)
		}
	}
	for k, r := range s.StochRSI {
		s.add("stochRsi.k", k, r.K)
		s.add("stochRsi.d", k, r.D)
	}
	for k, r := range s.KDJ {
		s.add("kdj.k", k, r.K)
		s.add("kdj.d", k, r.D)
		s.add("kdj.j", k, r.J)
	}
	for k, line := range s.Ultimate {
		s.add("ultimate", k, line)
	}
	for p, r := range s.Vortex {
		k := strconv.Itoa(p)
		s.add("vortex.plus", k, r.Plus)
		s.add("vortex.minus", k, r.Minus)
	}
	s.add("gator.upper", "", s.Gator.Upper)
	s.add("gator.lower", "", s.Gator.Lower)
	s.add("ac", "", s.AC)
	s.add("pivot.pp", "", s.Pivot.PP)
	s.add("pivot.r1", "", s.Pivot.R1)
	s.add("pivot.r2", "", s.Pivot.R2)
	s.add("pivot.r3", "", s.Pivot.R3)
	s.add("pivot.s1", "", s.Pivot.S1)
	s.add("pivot.s2", "", s.Pivot.S2)
	s.add("pivot.s3", "", s.Pivot.S3)
	s.add("vwap", "", s.VWAP)
	s.add("adLine", "", s.ADLine)
}

func (s *Set) addBands(name string, bands map[string]BandResult) {
	for k, r := range bands {
		s.add(name+".upper", k, r.Upper)
		s.add(name+".middle", k, r.Middle)
		s.add(name+".lower", k, r.Lower)
	}
}

func (s *Set) add(name, key string, line Series) {
	keys, ok := s.index[name]
	if !ok {
		keys = make(map[string]Series)
		s.index[name] = keys
	}
	keys[key] = line
}

func byPeriod(fn func(period int) Series, periods ...int) map[int]Series {
	out := make(map[int]Series, len(periods))
	for _, p := range periods {
		out[p] = fn(p)
	}
	return out
}
