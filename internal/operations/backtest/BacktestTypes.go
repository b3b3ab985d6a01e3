package backtest

import (
	"strings"
)

const (
	// WarmupBars is the first bar index the simulation evaluates
	WarmupBars = 200
	// MinimumCandles is what callers should require before starting a run
	MinimumCandles = 300
	// MinimumTicket is the smallest notional a position may open with
	MinimumTicket = 100.0

	MarketFutures = "futures"
	MarketSpot    = "spot"

	largeCapMaxPosition = 10_000_000.0
	smallCapMaxPosition = 1_000_000.0
)

// Default settings
const (
	InitialBalance      = 10000.0
	EquityPercent       = 10.0
	Leverage            = 1.0
	MaxPositionUSDT     = 10_000_000.0
	MaxConcurrentOrders = 1
	DefaultSymbol       = "BTCUSDT"
	DefaultTimeframe    = "1h"
)

// Settings configures one run. Zero values fall back to the defaults above;
// the three pointer flags default to true when nil.
//
// A plain numeric field cannot tell "unset" from an explicit 0, so a 0 for
// InitialBalance, EquityPercent, Leverage, MaxPositionUSDT or
// MaxConcurrentOrders also takes the default rather than disabling trading.
// FeePercent is a pointer so a zero fee is kept.
type Settings struct {
	InitialBalance      float64  `json:"initialBalance" yaml:"initial_balance"`
	EquityPercent       float64  `json:"equityPercent" yaml:"equity_percent"`
	Leverage            float64  `json:"leverage" yaml:"leverage"`
	MarketType          string   `json:"market_type" yaml:"market_type"`
	FeePercent          *float64 `json:"feePercent,omitempty" yaml:"fee_percent"`
	MaxPositionUSDT     float64  `json:"maxPositionUSDT" yaml:"max_position_usdt"`
	MaxConcurrentOrders int      `json:"maxConcurrentOrders" yaml:"max_concurrent_orders"`
	Compound            *bool    `json:"compound,omitempty" yaml:"compound"`
	Reverse             bool     `json:"reverse" yaml:"reverse"`
	AllowLong           *bool    `json:"allowLong,omitempty" yaml:"allow_long"`
	AllowShort          *bool    `json:"allowShort,omitempty" yaml:"allow_short"`
	Symbol              string   `json:"symbol" yaml:"symbol"`
	Timeframe           string   `json:"timeframe" yaml:"timeframe"`
	VolumeFilter        float64  `json:"volumeFilter" yaml:"volume_filter"`
	Params              Params   `json:"params,omitempty" yaml:"params"`
}

// NewSettings returns settings with every default filled in
func NewSettings() Settings {
	return Settings{}.WithDefaults()
}

// WithDefaults fills unset fields. Numeric fields count as unset when 0.
func (s Settings) WithDefaults() Settings {
	if s.InitialBalance == 0 {
		s.InitialBalance = InitialBalance
	}
	if s.EquityPercent == 0 {
		s.EquityPercent = EquityPercent
	}
	if s.Leverage == 0 {
		s.Leverage = Leverage
	}
	if s.MarketType == "" {
		s.MarketType = MarketFutures
	}
	if s.MaxPositionUSDT == 0 {
		s.MaxPositionUSDT = MaxPositionUSDT
	}
	if s.MaxConcurrentOrders == 0 {
		s.MaxConcurrentOrders = MaxConcurrentOrders
	}
	if s.Compound == nil {
		s.Compound = boolPtr(true)
	}
	if s.AllowLong == nil {
		s.AllowLong = boolPtr(true)
	}
	if s.AllowShort == nil {
		s.AllowShort = boolPtr(true)
	}
	if s.Symbol == "" {
		s.Symbol = DefaultSymbol
	}
	if s.Timeframe == "" {
		s.Timeframe = DefaultTimeframe
	}
	if s.Params == nil {
		s.Params = Params{}
	}
	return s
}

// Merge fills the fields s leaves unset from defaults. Reverse, VolumeFilter
// and Params always come from s.
func (s Settings) Merge(defaults Settings) Settings {
	if s.InitialBalance == 0 {
		s.InitialBalance = defaults.InitialBalance
	}
	if s.EquityPercent == 0 {
		s.EquityPercent = defaults.EquityPercent
	}
	if s.Leverage == 0 {
		s.Leverage = defaults.Leverage
	}
	if s.MarketType == "" {
		s.MarketType = defaults.MarketType
	}
	if s.FeePercent == nil {
		s.FeePercent = defaults.FeePercent
	}
	if s.MaxPositionUSDT == 0 {
		s.MaxPositionUSDT = defaults.MaxPositionUSDT
	}
	if s.MaxConcurrentOrders == 0 {
		s.MaxConcurrentOrders = defaults.MaxConcurrentOrders
	}
	if s.Compound == nil {
		s.Compound = defaults.Compound
	}
	if s.AllowLong == nil {
		s.AllowLong = defaults.AllowLong
	}
	if s.AllowShort == nil {
		s.AllowShort = defaults.AllowShort
	}
	if s.Symbol == "" {
		s.Symbol = defaults.Symbol
	}
	if s.Timeframe == "" {
		s.Timeframe = defaults.Timeframe
	}
	return s.WithDefaults()
}

// FeeRate is the per-side fee as a fraction of notional
func (s Settings) FeeRate() float64 {
	if s.FeePercent != nil {
		return *s.FeePercent / 100
	}
	if s.MarketType == MarketFutures {
		return 0.0005
	}
	return 0.001
}

// EffectiveMaxPosition caps notional at 10M for BTC and ETH pairs and 1M
// for everything else.
func (s Settings) EffectiveMaxPosition() float64 {
	limit := smallCapMaxPosition
	if strings.Contains(s.Symbol, "BTC") || strings.Contains(s.Symbol, "ETH") {
		limit = largeCapMaxPosition
	}
	return min(s.MaxPositionUSDT, limit)
}

func boolPtr(v bool) *bool {
	return &v
}

// Params is the strategy parameter bag passed through to decision functions
// untouched. Values decoded from JSON arrive as float64.
type Params map[string]any

// Float returns a numeric parameter or def
func (p Params) Float(key string, def float64) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return def
}

// Int returns a numeric parameter truncated to int, or def
func (p Params) Int(key string, def int) int {
	if _, ok := p[key]; !ok {
		return def
	}
	return int(p.Float(key, float64(def)))
}

// String returns a string parameter or def
func (p Params) String(key, def string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return def
}

// PositionSnapshot is the read-only view of an open position handed to
// decision functions.
type PositionSnapshot struct {
	Side          string  `json:"side"` // "long" or "short"
	SideUpper     string  `json:"SIDE"` // "LONG" or "SHORT"
	EntryPrice    float64 `json:"entry_price"`
	CoinSize      float64 `json:"coin_size"`
	UsdtSize      float64 `json:"usdt_size"`
	UnrealizedPnl float64 `json:"unrealizedPnl"`
	Duration      int     `json:"duration"`
}

// Core trade record
type Trade struct {
	EntryTime  int64   `json:"entry_time"`
	EntryPrice float64 `json:"entry_price"`
	ExitTime   int64   `json:"exit_time"`
	ExitPrice  float64 `json:"exit_price"`
	Side       string  `json:"side"` // "LONG" or "SHORT"
	PnL        float64 `json:"pnl"`
	Fee        float64 `json:"fee"` // entry + exit
	CoinSize   float64 `json:"coin_size"`
	UsdtSize   float64 `json:"usdt_size"`
	Size       float64 `json:"size"`
	Duration   int     `json:"duration"` // bars
	OrderType  string  `json:"order_type"`
	Balance    float64 `json:"balance"`
}

// For tracking equity changes
type EquityPoint struct {
	Timestamp int64   `json:"timestamp"`
	Balance   float64 `json:"balance"`
	Equity    float64 `json:"equity"`
	Drawdown  float64 `json:"drawdown"`
}

// Report is the final result of one run
type Report struct {
	Trades      []Trade       `json:"trades"`
	EquityCurve []EquityPoint `json:"equity_curve"`

	// Performance metrics
	ROI          float64 `json:"roi"`
	MDD          float64 `json:"mdd"`
	WinRate      float64 `json:"win_rate"`
	FinalBalance float64 `json:"final_balance"`

	// Trade metrics
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	LongTrades    int     `json:"long_trades"`
	ShortTrades   int     `json:"short_trades"`
	MaxProfit     float64 `json:"max_profit"`
	MaxLoss       float64 `json:"max_loss"`
	AvgProfit     float64 `json:"avg_profit"`
	AvgLoss       float64 `json:"avg_loss"`
	AvgDuration   float64 `json:"avg_duration"`
	MaxDuration   int     `json:"max_duration"`
	TotalFee      float64 `json:"total_fee"`

	InitialBalance float64 `json:"initial_balance"`
	Symbol         string  `json:"symbol"`
	Timeframe      string  `json:"timeframe"`
	MarketType     string  `json:"market_type"`
}
