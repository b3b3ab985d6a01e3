package strategy

import (
	"encoding/json"
	"reflect"
	"testing"

	"CryptoBacktest/internal/models"
	"CryptoBacktest/internal/operations/backtest"
	"CryptoBacktest/internal/services/indicators"
)

// vShape falls until bar 219, rises until bar 299 and falls again to the end
func vShape() []models.Candle {
	candles := make([]models.Candle, 400)
	for i := range candles {
		var price float64
		switch {
		case i < 220:
			price = float64(400 - i)
		case i < 300:
			price = float64(181 + (i - 219))
		default:
			price = float64(261 - (i - 299))
		}
		candles[i] = models.Candle{
			Timestamp: int64(i) * 3600_000,
			Open:      price,
			High:      price + 1,
			Low:       price - 1,
			Close:     price,
			Volume:    1000,
		}
	}
	return candles
}

func run(t *testing.T, m *StrategyManager, name string, params backtest.Params, candles []models.Candle) *backtest.Report {
	t.Helper()
	decide, err := m.Decider(name, params)
	if err != nil {
		t.Fatalf("Decider(%s): %v", name, err)
	}
	return backtest.RunBacktest(decide, candles, backtest.NewSettings())
}

func TestBuiltInStrategies(t *testing.T) {
	m := NewStrategyManager()
	var names []string
	for _, def := range m.GetStrategies() {
		names = append(names, def.Name)
	}
	want := []string{"candle_pattern", "donchian_breakout", "ema_cross", "rsi_reversion", "rules", "scripted", "supertrend"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("strategies = %v, want %v", names, want)
	}
}

func TestRegistryErrors(t *testing.T) {
	m := NewStrategyManager()
	if _, err := m.Decider("nope", nil); err == nil {
		t.Fatalf("expected an error for an unknown strategy")
	}
	if err := m.Register(emaCrossDefinition, newEMACross); err == nil {
		t.Fatalf("expected a duplicate registration error")
	}
	if err := m.Register(Definition{Name: "x"}, nil); err == nil {
		t.Fatalf("expected an error for a nil factory")
	}
	if _, err := m.Decider("ema_cross", backtest.Params{"fast": 30.0, "slow": 10.0}); err == nil {
		t.Fatalf("expected an error for fast >= slow")
	}
	if _, err := m.Decider("rsi_reversion", backtest.Params{"oversold": 80.0}); err == nil {
		t.Fatalf("expected an error for oversold above overbought")
	}
}

func TestEMACross(t *testing.T) {
	candles := vShape()
	m := NewStrategyManager()

	for _, params := range []backtest.Params{nil, {"fast": 13.0, "slow": 30.0}} {
		report := run(t, m, "ema_cross", params, candles)
		if report.TotalTrades != 1 || report.LongTrades != 1 {
			t.Fatalf("params %v: total=%d long=%d, want one long trade", params, report.TotalTrades, report.LongTrades)
		}
		trade := report.Trades[0]
		if trade.EntryTime <= candles[220].Timestamp || trade.EntryTime >= candles[300].Timestamp {
			t.Errorf("entry at %d, want inside the rally", trade.EntryTime)
		}
		if trade.ExitTime <= candles[300].Timestamp || trade.ExitTime >= candles[399].Timestamp {
			t.Errorf("exit at %d, want after the top and before the last bar", trade.ExitTime)
		}
	}
}

func TestRSIReversion(t *testing.T) {
	candles := make([]models.Candle, 320)
	for i := range candles {
		price := float64(100 + i)
		if i >= 240 {
			price = float64(339 - (i - 240))
		}
		candles[i] = models.Candle{Timestamp: int64(i) * 60_000, Open: price, High: price + 1, Low: price - 1, Close: price, Volume: 10}
	}

	report := run(t, NewStrategyManager(), "rsi_reversion", nil, candles)
	if report.TotalTrades < 1 {
		t.Fatalf("expected trades")
	}
	first := report.Trades[0]
	if first.Side != models.PositionSideShort || first.EntryTime != candles[200].Timestamp {
		t.Fatalf("first trade = %+v, want a short opened on bar 200", first)
	}
	if first.ExitTime <= candles[240].Timestamp {
		t.Fatalf("short should be held into the decline, exited at %d", first.ExitTime)
	}
}

func TestSuperTrend(t *testing.T) {
	candles := vShape()
	report := run(t, NewStrategyManager(), "supertrend", nil, candles)
	if report.TotalTrades < 2 {
		t.Fatalf("total_trades = %d, want a flip", report.TotalTrades)
	}
	if report.Trades[0].Side != models.PositionSideShort || report.Trades[0].EntryTime != candles[200].Timestamp {
		t.Fatalf("first trade = %+v, want a short from bar 200", report.Trades[0])
	}
}

func TestDonchianCycle(t *testing.T) {
	candles := vShape()
	ind := indicators.Precalculate(candles)
	decide, err := NewStrategyManager().Decider("donchian_breakout", nil)
	if err != nil {
		t.Fatalf("Decider: %v", err)
	}

	if a, _ := decide(candles, 201, ind, nil, nil); !reflect.DeepEqual(a, backtest.Cancel{}) {
		t.Errorf("bar 201 = %#v, want cancel", a)
	}
	a, _ := decide(candles, 202, ind, nil, nil)
	long, ok := a.(backtest.EntryLong)
	if !ok || long.Type != backtest.OrderStop || long.Price != ind.Donchian[20].Upper[202] {
		t.Errorf("bar 202 = %#v, want buy stop at the upper band", a)
	}
	a, _ = decide(candles, 203, ind, nil, nil)
	short, ok := a.(backtest.EntryShort)
	if !ok || short.Type != backtest.OrderStop || short.Price != ind.Donchian[20].Lower[203] {
		t.Errorf("bar 203 = %#v, want sell stop at the lower band", a)
	}

	// falling market, long held: close under the midline exits
	open := []backtest.PositionSnapshot{{Side: "long", SideUpper: "LONG"}}
	if a, _ := decide(candles, 210, ind, nil, open); !reflect.DeepEqual(a, backtest.Exit{}) {
		t.Errorf("long in a decline = %#v, want exit", a)
	}
}

func TestDonchianRuns(t *testing.T) {
	report := run(t, NewStrategyManager(), "donchian_breakout", backtest.Params{"period": 15.0}, vShape())
	for _, tr := range report.Trades {
		if tr.OrderType != "BUY STOP" && tr.OrderType != "SELL STOP" {
			t.Fatalf("unexpected order type %q", tr.OrderType)
		}
	}
	if report.TotalTrades == 0 {
		t.Fatalf("expected breakout trades")
	}
}

func TestRulesMatchEMACross(t *testing.T) {
	candles := vShape()
	m := NewStrategyManager()

	viaRules := run(t, m, "rules", nil, candles)
	viaCross := run(t, m, "ema_cross", nil, candles)
	if !reflect.DeepEqual(viaRules, viaCross) {
		t.Fatalf("default rules should trade exactly like ema_cross")
	}
}

func TestRulesFromJSON(t *testing.T) {
	raw := `{"long":[{"left":"close","op":">","right":"250"}],"exit":[{"left":"close","op":"<","right":"200"}]}`
	var decoded map[string]any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	candles := vShape()
	report := run(t, NewStrategyManager(), "rules", backtest.Params{"rules": decoded}, candles)
	if report.TotalTrades != 1 {
		t.Fatalf("total_trades = %d, want 1", report.TotalTrades)
	}
	trade := report.Trades[0]
	if trade.EntryTime != candles[289].Timestamp {
		t.Errorf("entry at bar %d, want 289", trade.EntryTime/3600_000)
	}
	if trade.ExitTime != candles[361].Timestamp {
		t.Errorf("exit at bar %d, want 361", trade.ExitTime/3600_000)
	}
}

func TestRuleOperands(t *testing.T) {
	probe := indicators.Precalculate(nil)
	valid := []string{
		"close", "volume", "30", "-1.5", "ema/20", "ema/13", "macd/12_26_9/signal",
		"bb/20_2/upper", "ichimoku/tenkan", "ao", "stoch/14_3/k", "supertrend/10_3/direction",
	}
	for _, s := range valid {
		if _, err := parseOperand(s, probe); err != nil {
			t.Errorf("parseOperand(%q): %v", s, err)
		}
	}

	invalid := []string{"", "nope", "nope/14", "ema/x", "ema/-3", "a/b/c/d", "macd/12_26_9/nope"}
	for _, s := range invalid {
		if _, err := parseOperand(s, probe); err == nil {
			t.Errorf("parseOperand(%q) should fail", s)
		}
	}
}

func TestRuleSetValidate(t *testing.T) {
	tests := []struct {
		name    string
		rules   RuleSet
		wantErr bool
	}{
		{"valid", RuleSet{Long: []Condition{{Left: "rsi/14", Op: "<", Right: "30"}}}, false},
		{"empty", RuleSet{}, true},
		{"bad operator", RuleSet{Long: []Condition{{Left: "rsi/14", Op: "==", Right: "30"}}}, true},
		{"bad operand", RuleSet{Short: []Condition{{Left: "foo/1", Op: ">", Right: "1"}}}, true},
		{"stop orders need a price", RuleSet{Long: []Condition{{Left: "close", Op: ">", Right: "1"}}, OrderType: backtest.OrderStop}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rules.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRulesRequireParams(t *testing.T) {
	if _, err := newRules(backtest.Params{}); err == nil {
		t.Fatalf("expected an error without params.rules")
	}
	if _, err := ParseRules(nil); err == nil {
		t.Fatalf("expected an error for nil rules")
	}
	rs, err := ParseRules(RuleSet{Long: []Condition{{Left: "close", Op: ">", Right: "1"}}})
	if err != nil || len(rs.Long) != 1 {
		t.Fatalf("ParseRules(RuleSet) = %+v, %v", rs, err)
	}
}

func TestCandlePattern(t *testing.T) {
	candles := vShape()
	report := run(t, NewStrategyManager(), "candle_pattern", nil, candles)
	if report.TotalTrades < 2 {
		t.Fatalf("total_trades = %d, want at least 2", report.TotalTrades)
	}

	// lower highs short the decline, the first higher lows on bar 221 close it
	first := report.Trades[0]
	if first.Side != models.PositionSideShort || first.EntryTime != candles[200].Timestamp || first.ExitTime != candles[221].Timestamp {
		t.Fatalf("first trade = %+v", first)
	}
	second := report.Trades[1]
	if second.Side != models.PositionSideLong || second.EntryTime != candles[222].Timestamp {
		t.Fatalf("second trade = %+v", second)
	}

	strict := run(t, NewStrategyManager(), "candle_pattern", backtest.Params{"min_strength": 0.5}, candles)
	if strict.TotalTrades != 0 {
		t.Errorf("min_strength 0.5 traded %d times on shallow steps", strict.TotalTrades)
	}

	if _, err := NewStrategyManager().Decider("candle_pattern", backtest.Params{"min_strength": 2.0}); err == nil {
		t.Error("expected error for min_strength above 1")
	}
}

func TestScriptedReplaysWireActions(t *testing.T) {
	var actions []any
	if err := json.Unmarshal([]byte(`[
		{"bar": 200, "action": "entry_long"},
		{"bar": 205, "action": "entry_short", "type": "limit", "price": 240},
		{"bar": 210, "action": "teleport"},
		{"bar": 215, "action": "cancel"},
		{"bar": 230, "action": "exit", "index": 0},
		{"bar": 240, "action": "entry_short"},
		{"bar": 250, "action": "exit"}
	]`), &actions); err != nil {
		t.Fatal(err)
	}

	settings := backtest.NewSettings()
	settings.MaxConcurrentOrders = 2
	decide, err := NewStrategyManager().Decider("scripted", backtest.Params{"actions": actions})
	if err != nil {
		t.Fatalf("Decider: %v", err)
	}
	report := backtest.RunBacktest(decide, vShape(), settings)

	if report.TotalTrades != 2 {
		t.Fatalf("trades = %d, want 2", report.TotalTrades)
	}
	long, short := report.Trades[0], report.Trades[1]
	if long.Side != "LONG" || long.Duration != 30 {
		t.Errorf("first trade = %+v", long)
	}
	if short.Side != "SHORT" || short.Duration != 10 || short.OrderType != "MARKET" {
		t.Errorf("second trade = %+v", short)
	}
}

func TestScriptedRejectsBadScripts(t *testing.T) {
	m := NewStrategyManager()
	cases := map[string]any{
		"missing":   nil,
		"not list":  "entry_long at 200",
		"not maps":  []any{"entry_long"},
		"no bar":    []any{map[string]any{"action": "exit"}},
		"float bar": []any{map[string]any{"bar": 200.5, "action": "exit"}},
		"negative":  []any{map[string]any{"bar": -1, "action": "exit"}},
		"duplicate": []any{map[string]any{"bar": 200, "action": "exit"}, map[string]any{"bar": 200.0, "action": "cancel"}},
	}
	for name, actions := range cases {
		params := backtest.Params{}
		if actions != nil {
			params["actions"] = actions
		}
		if _, err := m.Decider("scripted", params); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}
