package backtest

import (
	"encoding/json"
	"math"

	"CryptoBacktest/internal/models"
	"CryptoBacktest/internal/services/indicators"
)

// DecisionFunc is the strategy boundary. It is called once per evaluated bar
// and must not mutate candles. A returned error or a panic counts as Hold.
type DecisionFunc func(candles []models.Candle, index int, ind *indicators.Set, params Params, open []PositionSnapshot) (Action, error)

// Action is what a decision function asks the engine to do on a bar
type Action interface {
	isAction()
}

type OrderType string

const (
	OrderMarket OrderType = "market"
	OrderStop   OrderType = "stop"
	OrderLimit  OrderType = "limit"
)

// EntryLong opens a long position at market or registers a pending order.
// A zero Price means the bar's close.
type EntryLong struct {
	Type  OrderType
	Price float64
}

// EntryShort mirrors EntryLong
type EntryShort struct {
	Type  OrderType
	Price float64
}

// Exit closes the position at Index, or every position when Index is nil or
// out of range.
type Exit struct {
	Index *int
	Price float64
}

// Cancel removes the pending order at Index, or every pending order when
// Index is nil or out of range.
type Cancel struct {
	Index *int
}

type Hold struct{}

func (EntryLong) isAction()  {}
func (EntryShort) isAction() {}
func (Exit) isAction()       {}
func (Cancel) isAction()     {}
func (Hold) isAction()       {}

// Action names on the wire
const (
	ActionEntryLong  = "entry_long"
	ActionEntryShort = "entry_short"
	ActionExit       = "exit"
	ActionCancel     = "cancel"
	ActionHold       = "hold"
)

// ParseAction decodes the wire shape {action, type?, price?, index?}.
// Anything without a recognized action is Hold.
func ParseAction(m map[string]any) Action {
	if m == nil {
		return Hold{}
	}
	name, _ := m["action"].(string)

	switch name {
	case ActionEntryLong:
		return EntryLong{Type: orderTypeOf(m["type"]), Price: numberOf(m["price"])}
	case ActionEntryShort:
		return EntryShort{Type: orderTypeOf(m["type"]), Price: numberOf(m["price"])}
	case ActionExit:
		return Exit{Index: indexOf(m["index"]), Price: numberOf(m["price"])}
	case ActionCancel:
		return Cancel{Index: indexOf(m["index"])}
	}
	return Hold{}
}

// WireDecisionFunc is a strategy that answers in the wire shape of an action
type WireDecisionFunc func(candles []models.Candle, index int, ind *indicators.Set, params Params, open []PositionSnapshot) (map[string]any, error)

// FromWire adapts a wire-shaped strategy. Every answer goes through
// ParseAction, so an unrecognized shape is Hold.
func FromWire(decide WireDecisionFunc) DecisionFunc {
	return func(candles []models.Candle, index int, ind *indicators.Set, params Params, open []PositionSnapshot) (Action, error) {
		m, err := decide(candles, index, ind, params, open)
		if err != nil {
			return Hold{}, err
		}
		return ParseAction(m), nil
	}
}

// IntPtr is a convenience for building Exit and Cancel actions
func IntPtr(v int) *int {
	return &v
}

func orderTypeOf(v any) OrderType {
	s, _ := v.(string)
	if s == "" {
		return OrderMarket
	}
	return OrderType(s)
}

func numberOf(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	}
	return 0
}

// indexOf accepts integral numbers only; anything else is treated as absent
func indexOf(v any) *int {
	switch n := v.(type) {
	case int:
		return &n
	case int64:
		i := int(n)
		return &i
	case float64:
		if n == math.Trunc(n) && !math.IsInf(n, 0) {
			i := int(n)
			return &i
		}
	case json.Number:
		if i, err := n.Int64(); err == nil {
			idx := int(i)
			return &idx
		}
	}
	return nil
}
