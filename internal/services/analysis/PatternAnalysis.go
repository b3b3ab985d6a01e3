package analysis

import (
	"math"

	"CryptoBacktest/internal/models"
)

// PatternResult is a candle pattern completed on a bar. Signal is 1 for
// bullish and -1 for bearish; Strength lies in [0, 1].
type PatternResult struct {
	Type     string  `json:"type"`
	Signal   int     `json:"signal"`
	Strength float64 `json:"strength"`
}

const (
	PatternHigherLows       = "HigherLows"
	PatternLowerHighs       = "LowerHighs"
	PatternBullishEngulfing = "BullishEngulfing"
	PatternBearishEngulfing = "BearishEngulfing"
	PatternBullishPinbar    = "BullishPinbar"
	PatternBearishPinbar    = "BearishPinbar"
)

type PatternAnalyzer struct {
	// minHeight is the smallest body or range that counts, as a fraction of
	// the close
	minHeight float64
}

func NewPatternAnalyzer(minHeight float64) *PatternAnalyzer {
	if minHeight <= 0 {
		minHeight = 0.001
	}
	return &PatternAnalyzer{minHeight: minHeight}
}

// Analyze reports the pattern completed on bar i, nil if none. Three-bar
// patterns win over engulfing, engulfing over pinbars.
func (a *PatternAnalyzer) Analyze(candles []models.Candle, i int) *PatternResult {
	if i < 2 || i >= len(candles) {
		return nil
	}

	c2 := candles[i-2]
	c1 := candles[i-1]
	c0 := candles[i]

	if pattern := a.checkThreeBar(c2, c1, c0); pattern != nil {
		return pattern
	}
	if pattern := a.checkEngulfing(c1, c0); pattern != nil {
		return pattern
	}
	return a.checkPinbar(c0)
}

func (a *PatternAnalyzer) checkThreeBar(c2, c1, c0 models.Candle) *PatternResult {
	if c0.Low > c1.Low && c1.Low > c2.Low && c2.Low > 0 {
		strength := (c0.Low - c2.Low) / c2.Low
		return &PatternResult{
			Type:     PatternHigherLows,
			Signal:   1,
			Strength: math.Min(strength*10, 1.0),
		}
	}

	if c0.High < c1.High && c1.High < c2.High && c2.High > 0 {
		strength := (c2.High - c0.High) / c2.High
		return &PatternResult{
			Type:     PatternLowerHighs,
			Signal:   -1,
			Strength: math.Min(strength*10, 1.0),
		}
	}

	return nil
}

func (a *PatternAnalyzer) checkEngulfing(prev, curr models.Candle) *PatternResult {
	prevSize := math.Abs(prev.Close - prev.Open)
	currSize := math.Abs(curr.Close - curr.Open)

	if currSize < a.minHeight*curr.Close {
		return nil
	}

	strength := 1.0
	if prevSize > 0 {
		strength = math.Min(currSize/prevSize, 1.0)
	}

	// the body opens beyond the previous close and closes beyond its open
	if curr.Open < prev.Close && curr.Close > prev.Open {
		return &PatternResult{Type: PatternBullishEngulfing, Signal: 1, Strength: strength}
	}
	if curr.Open > prev.Close && curr.Close < prev.Open {
		return &PatternResult{Type: PatternBearishEngulfing, Signal: -1, Strength: strength}
	}

	return nil
}

func (a *PatternAnalyzer) checkPinbar(candle models.Candle) *PatternResult {
	bodySize := math.Abs(candle.Close - candle.Open)
	upperWick := candle.High - math.Max(candle.Open, candle.Close)
	lowerWick := math.Min(candle.Open, candle.Close) - candle.Low
	totalSize := candle.High - candle.Low

	if totalSize < a.minHeight*candle.Close || totalSize <= 0 {
		return nil
	}

	if lowerWick > totalSize*0.6 && bodySize < totalSize*0.3 {
		return &PatternResult{Type: PatternBullishPinbar, Signal: 1, Strength: lowerWick / totalSize}
	}
	if upperWick > totalSize*0.6 && bodySize < totalSize*0.3 {
		return &PatternResult{Type: PatternBearishPinbar, Signal: -1, Strength: upperWick / totalSize}
	}

	return nil
}
