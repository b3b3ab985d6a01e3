package strategy

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"CryptoBacktest/internal/models"
	"CryptoBacktest/internal/operations/backtest"
	"CryptoBacktest/internal/services/indicators"
)

// Condition compares two operands on the current bar. An operand is a price
// field (close, open, high, low, volume), a numeric literal, or an indicator
// path "name/key[/field]" such as "ema/20", "macd/12_26_9/signal" or
// "ichimoku/tenkan".
type Condition struct {
	Left  string `json:"left" yaml:"left"`
	Op    string `json:"op" yaml:"op"`
	Right string `json:"right" yaml:"right"`
}

// RuleSet enters long when every Long condition holds, otherwise short when
// every Short condition holds, and exits when every Exit condition holds.
// An empty group never fires.
type RuleSet struct {
	Long      []Condition        `json:"long" yaml:"long"`
	Short     []Condition        `json:"short" yaml:"short"`
	Exit      []Condition        `json:"exit" yaml:"exit"`
	OrderType backtest.OrderType `json:"order_type,omitempty" yaml:"order_type"`
}

const (
	OpGreater      = ">"
	OpGreaterEqual = ">="
	OpLess         = "<"
	OpLessEqual    = "<="
	OpCrossAbove   = "cross_above"
	OpCrossBelow   = "cross_below"
)

var rulesDefinition = Definition{
	Name:        "rules",
	Description: "Declarative strategy built from indicator comparisons passed in params.rules",
	Defaults: backtest.Params{"rules": map[string]any{
		"long":  []any{map[string]any{"left": "ema/12", "op": OpCrossAbove, "right": "ema/26"}},
		"short": []any{},
		"exit":  []any{map[string]any{"left": "ema/12", "op": OpCrossBelow, "right": "ema/26"}},
	}},
}

// periodCalculators back operands whose key is outside the precomputed grid
var periodCalculators = map[string]func(ind *indicators.Set, period int) indicators.Series{
	"ema":       func(ind *indicators.Set, p int) indicators.Series { return ind.Calc.EMA(ind.Raw.Closes, p) },
	"sma":       func(ind *indicators.Set, p int) indicators.Series { return ind.Calc.SMA(ind.Raw.Closes, p) },
	"wma":       func(ind *indicators.Set, p int) indicators.Series { return ind.Calc.WMA(ind.Raw.Closes, p) },
	"dema":      func(ind *indicators.Set, p int) indicators.Series { return ind.Calc.DEMA(ind.Raw.Closes, p) },
	"tema":      func(ind *indicators.Set, p int) indicators.Series { return ind.Calc.TEMA(ind.Raw.Closes, p) },
	"hma":       func(ind *indicators.Set, p int) indicators.Series { return ind.Calc.HMA(ind.Raw.Closes, p) },
	"stddev":    func(ind *indicators.Set, p int) indicators.Series { return ind.Calc.StdDev(ind.Raw.Closes, p) },
	"rsi":       func(ind *indicators.Set, p int) indicators.Series { return ind.Calc.RSI(ind.Raw.Closes, p) },
	"roc":       func(ind *indicators.Set, p int) indicators.Series { return ind.Calc.ROC(ind.Raw.Closes, p) },
	"momentum":  func(ind *indicators.Set, p int) indicators.Series { return ind.Calc.Momentum(ind.Raw.Closes, p) },
	"trix":      func(ind *indicators.Set, p int) indicators.Series { return ind.Calc.TRIX(ind.Raw.Closes, p) },
	"vwma":      func(ind *indicators.Set, p int) indicators.Series { return ind.Calc.VWMA(ind.Raw.Closes, ind.Raw.Volumes, p) },
	"cci":       func(ind *indicators.Set, p int) indicators.Series { return ind.Calc.CCI(ind.Raw.Highs, ind.Raw.Lows, ind.Raw.Closes, p) },
	"williamsR": func(ind *indicators.Set, p int) indicators.Series { return ind.Calc.WilliamsR(ind.Raw.Highs, ind.Raw.Lows, ind.Raw.Closes, p) },
	"atr":       func(ind *indicators.Set, p int) indicators.Series { return ind.Calc.ATR(ind.Raw.Highs, ind.Raw.Lows, ind.Raw.Closes, p) },
	"mfi": func(ind *indicators.Set, p int) indicators.Series {
		return ind.Calc.MFI(ind.Raw.Highs, ind.Raw.Lows, ind.Raw.Closes, ind.Raw.Volumes, p)
	},
	"cmf": func(ind *indicators.Set, p int) indicators.Series {
		return ind.Calc.CMF(ind.Raw.Highs, ind.Raw.Lows, ind.Raw.Closes, ind.Raw.Volumes, p)
	},
}

var priceFields = map[string]bool{"open": true, "high": true, "low": true, "close": true, "volume": true}

type operand struct {
	raw      string
	constant *float64
	price    string

	// lookup name, field already folded in
	name string
	key  string

	// > 0 when the operand can be computed on demand
	period int
}

type compiledCondition struct {
	left, right operand
	op          string
}

type compiledRules struct {
	long, short, exit []compiledCondition
	orderType         backtest.OrderType
	cache             *lineCache
}

// ParseRules decodes a rule set from the params bag value, which arrives
// either as a RuleSet or as decoded JSON.
func ParseRules(v any) (RuleSet, error) {
	switch rs := v.(type) {
	case RuleSet:
		return rs, nil
	case *RuleSet:
		if rs == nil {
			return RuleSet{}, errors.New("rules cannot be nil")
		}
		return *rs, nil
	case nil:
		return RuleSet{}, errors.New("rules cannot be nil")
	}

	data, err := json.Marshal(v)
	if err != nil {
		return RuleSet{}, fmt.Errorf("encode rules: %w", err)
	}
	var rs RuleSet
	if err := json.Unmarshal(data, &rs); err != nil {
		return RuleSet{}, fmt.Errorf("decode rules: %w", err)
	}
	return rs, nil
}

// Validate checks operators and that every operand resolves
func (rs RuleSet) Validate() error {
	_, err := compileRules(rs)
	return err
}

// NewRuleDecider compiles rs into a decision function
func NewRuleDecider(rs RuleSet) (backtest.DecisionFunc, error) {
	compiled, err := compileRules(rs)
	if err != nil {
		return nil, err
	}
	return compiled.decide, nil
}

func newRules(params backtest.Params) (backtest.DecisionFunc, error) {
	raw, ok := params["rules"]
	if !ok {
		return nil, errors.New("rules: params.rules is required")
	}
	rs, err := ParseRules(raw)
	if err != nil {
		return nil, fmt.Errorf("rules: %w", err)
	}
	return NewRuleDecider(rs)
}

func compileRules(rs RuleSet) (*compiledRules, error) {
	if len(rs.Long) == 0 && len(rs.Short) == 0 {
		return nil, errors.New("rules: at least one long or short condition is required")
	}
	switch rs.OrderType {
	case "", backtest.OrderMarket:
	default:
		return nil, fmt.Errorf("rules: unsupported order type %q", rs.OrderType)
	}

	// an empty set knows every lookup-able name
	probe := indicators.Precalculate(nil)

	out := &compiledRules{orderType: backtest.OrderMarket, cache: &lineCache{}}
	groups := []struct {
		name string
		in   []Condition
		out  *[]compiledCondition
	}{
		{"long", rs.Long, &out.long},
		{"short", rs.Short, &out.short},
		{"exit", rs.Exit, &out.exit},
	}
	for _, g := range groups {
		for n, c := range g.in {
			cc, err := compileCondition(c, probe)
			if err != nil {
				return nil, fmt.Errorf("rules: %s[%d]: %w", g.name, n, err)
			}
			*g.out = append(*g.out, cc)
		}
	}
	return out, nil
}

func compileCondition(c Condition, probe *indicators.Set) (compiledCondition, error) {
	switch c.Op {
	case OpGreater, OpGreaterEqual, OpLess, OpLessEqual, OpCrossAbove, OpCrossBelow:
	default:
		return compiledCondition{}, fmt.Errorf("unknown operator %q", c.Op)
	}
	left, err := parseOperand(c.Left, probe)
	if err != nil {
		return compiledCondition{}, err
	}
	right, err := parseOperand(c.Right, probe)
	if err != nil {
		return compiledCondition{}, err
	}
	return compiledCondition{left: left, right: right, op: c.Op}, nil
}

func parseOperand(s string, probe *indicators.Set) (operand, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return operand{}, errors.New("empty operand")
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return operand{raw: s, constant: &v}, nil
	}
	if priceFields[s] {
		return operand{raw: s, price: s}, nil
	}

	parts := strings.Split(s, "/")
	var candidates [][2]string
	switch len(parts) {
	case 1:
		candidates = [][2]string{{parts[0], ""}}
	case 2:
		candidates = [][2]string{{parts[0], parts[1]}, {parts[0] + "." + parts[1], ""}}
	case 3:
		candidates = [][2]string{{parts[0] + "." + parts[2], parts[1]}}
	default:
		return operand{}, fmt.Errorf("malformed operand %q", s)
	}

	for _, c := range candidates {
		if _, ok := probe.Lookup(c[0], c[1]); ok {
			return operand{raw: s, name: c[0], key: c[1]}, nil
		}
	}

	if len(parts) == 2 {
		if _, ok := periodCalculators[parts[0]]; ok {
			if p, err := strconv.Atoi(parts[1]); err == nil && p > 0 {
				return operand{raw: s, name: parts[0], key: parts[1], period: p}, nil
			}
		}
	}
	return operand{}, fmt.Errorf("unknown operand %q", s)
}

// value returns the operand at bar i; ok is false on a null or missing bar
func (r *compiledRules) value(o operand, ind *indicators.Set, candles []models.Candle, i int) (float64, bool) {
	if i < 0 || i >= len(candles) {
		return 0, false
	}
	if o.constant != nil {
		return *o.constant, true
	}
	if o.price != "" {
		c := candles[i]
		switch o.price {
		case "open":
			return c.Open, true
		case "high":
			return c.High, true
		case "low":
			return c.Low, true
		case "volume":
			return c.Volume, true
		}
		return c.Close, true
	}

	line, ok := ind.Lookup(o.name, o.key)
	if !ok && o.period > 0 {
		calc := periodCalculators[o.name]
		line = r.cache.get(ind, o.raw, func() indicators.Series { return calc(ind, o.period) })
		ok = true
	}
	if !ok {
		return 0, false
	}
	return line.At(i)
}

func (r *compiledRules) holds(c compiledCondition, ind *indicators.Set, candles []models.Candle, i int) bool {
	l, ok1 := r.value(c.left, ind, candles, i)
	rv, ok2 := r.value(c.right, ind, candles, i)
	if !ok1 || !ok2 {
		return false
	}

	switch c.op {
	case OpGreater:
		return l > rv
	case OpGreaterEqual:
		return l >= rv
	case OpLess:
		return l < rv
	case OpLessEqual:
		return l <= rv
	}

	pl, ok1 := r.value(c.left, ind, candles, i-1)
	pr, ok2 := r.value(c.right, ind, candles, i-1)
	if !ok1 || !ok2 {
		return false
	}
	if c.op == OpCrossAbove {
		return pl <= pr && l > rv
	}
	return pl >= pr && l < rv
}

func (r *compiledRules) all(group []compiledCondition, ind *indicators.Set, candles []models.Candle, i int) bool {
	if len(group) == 0 {
		return false
	}
	for _, c := range group {
		if !r.holds(c, ind, candles, i) {
			return false
		}
	}
	return true
}

func (r *compiledRules) decide(candles []models.Candle, i int, ind *indicators.Set, _ backtest.Params, open []backtest.PositionSnapshot) (backtest.Action, error) {
	if ind == nil {
		return backtest.Hold{}, nil
	}

	if len(open) > 0 {
		if r.all(r.exit, ind, candles, i) {
			return backtest.Exit{}, nil
		}
		return backtest.Hold{}, nil
	}

	if r.all(r.long, ind, candles, i) {
		return backtest.EntryLong{Type: r.orderType}, nil
	}
	if r.all(r.short, ind, candles, i) {
		return backtest.EntryShort{Type: r.orderType}, nil
	}
	return backtest.Hold{}, nil
}
