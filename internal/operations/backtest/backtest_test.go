package backtest

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"CryptoBacktest/internal/models"
	"CryptoBacktest/internal/services/indicators"
)

func flatCandles(n int, price float64) []models.Candle {
	candles := make([]models.Candle, n)
	for i := range candles {
		candles[i] = models.Candle{
			Timestamp: int64(i) * 3600_000,
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			Volume:    1000,
		}
	}
	return candles
}

func hold(_ []models.Candle, _ int, _ *indicators.Set, _ Params, _ []PositionSnapshot) (Action, error) {
	return Hold{}, nil
}

// script returns a decision function answering from a per-index table
func script(actions map[int]Action) DecisionFunc {
	return func(_ []models.Candle, i int, _ *indicators.Set, _ Params, _ []PositionSnapshot) (Action, error) {
		if a, ok := actions[i]; ok {
			return a, nil
		}
		return Hold{}, nil
	}
}

func feePercent(v float64) *float64 {
	return &v
}

func TestFlatMarketHoldScenario(t *testing.T) {
	report := RunBacktest(hold, flatCandles(500, 100), NewSettings())

	if report.TotalTrades != 0 {
		t.Errorf("total_trades = %d, want 0", report.TotalTrades)
	}
	if report.ROI != 0 {
		t.Errorf("roi = %v, want 0", report.ROI)
	}
	if report.FinalBalance != InitialBalance {
		t.Errorf("final_balance = %v, want %v", report.FinalBalance, InitialBalance)
	}
	if len(report.EquityCurve) != 300 {
		t.Errorf("equity curve length = %d, want 300", len(report.EquityCurve))
	}
	if report.Symbol != DefaultSymbol || report.Timeframe != DefaultTimeframe || report.MarketType != MarketFutures {
		t.Errorf("unexpected identity fields: %s %s %s", report.Symbol, report.Timeframe, report.MarketType)
	}
}

func TestTooFewCandlesGivesEmptyReport(t *testing.T) {
	report := RunBacktest(hold, flatCandles(150, 100), NewSettings())
	if len(report.EquityCurve) != 0 || report.TotalTrades != 0 {
		t.Fatalf("expected an empty run, got %d points %d trades", len(report.EquityCurve), report.TotalTrades)
	}
	if report.FinalBalance != InitialBalance {
		t.Fatalf("final_balance = %v", report.FinalBalance)
	}
}

func TestPositionSizing(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		price    float64
		wantUSDT float64
	}{
		{"default ten percent", Settings{}, 100, 1000},
		{"floored to hundreds", Settings{InitialBalance: 12345}, 100, 1200},
		{"below minimum ticket", Settings{InitialBalance: 149}, 100, 0},
		{"leverage", Settings{Leverage: 3}, 50, 3000},
		{"small cap limit", Settings{InitialBalance: 1e9, EquityPercent: 100, Symbol: "SOLUSDT"}, 10, 1_000_000},
		{"large cap limit", Settings{InitialBalance: 1e9, EquityPercent: 100, Symbol: "ETHUSDT"}, 10, 10_000_000},
		{"user cap", Settings{MaxPositionUSDT: 500}, 100, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSimulator(flatCandles(10, tt.price), tt.settings)
			usdt, coins := s.positionSize(tt.price)
			if usdt != tt.wantUSDT {
				t.Fatalf("usdt = %v, want %v", usdt, tt.wantUSDT)
			}
			if usdt > 0 && coins != usdt/tt.price {
				t.Fatalf("coins = %v, want %v", coins, usdt/tt.price)
			}
		})
	}
}

func TestFixedSizingIgnoresEquity(t *testing.T) {
	compound := false
	s := NewSimulator(flatCandles(10, 100), Settings{Compound: &compound})
	s.equity = 50_000
	if usdt, _ := s.positionSize(100); usdt != 1000 {
		t.Fatalf("usdt = %v, want 1000 from the initial balance", usdt)
	}
}

func TestBelowMinimumTicketOpensNothing(t *testing.T) {
	always := func(_ []models.Candle, _ int, _ *indicators.Set, _ Params, _ []PositionSnapshot) (Action, error) {
		return EntryLong{}, nil
	}
	report := RunBacktest(always, flatCandles(300, 100), Settings{InitialBalance: 149})
	if report.TotalTrades != 0 {
		t.Fatalf("total_trades = %d, want 0", report.TotalTrades)
	}
}

func TestFeeRoundTrip(t *testing.T) {
	decide := script(map[int]Action{
		200: EntryLong{Type: OrderMarket},
		201: Exit{},
	})
	report := RunBacktest(decide, flatCandles(300, 100), NewSettings())

	if report.TotalTrades != 1 {
		t.Fatalf("total_trades = %d, want 1", report.TotalTrades)
	}
	trade := report.Trades[0]
	if trade.PnL != 0 {
		t.Errorf("pnl = %v, want 0", trade.PnL)
	}
	if want := 2 * 1000 * 0.0005; trade.Fee != want {
		t.Errorf("fee = %v, want %v", trade.Fee, want)
	}
	if trade.OrderType != "MARKET" || trade.Side != models.PositionSideLong {
		t.Errorf("trade = %+v", trade)
	}
	if trade.Duration != 1 {
		t.Errorf("duration = %d, want 1", trade.Duration)
	}
	if report.FinalBalance != 9999 || report.TotalFee != 1 {
		t.Errorf("final_balance = %v total_fee = %v", report.FinalBalance, report.TotalFee)
	}
}

func TestSpotFeeDefault(t *testing.T) {
	if got := (Settings{MarketType: MarketSpot}).FeeRate(); got != 0.001 {
		t.Fatalf("spot fee = %v", got)
	}
	if got := NewSettings().FeeRate(); got != 0.0005 {
		t.Fatalf("futures fee = %v", got)
	}
	if got := (Settings{FeePercent: feePercent(0)}).FeeRate(); got != 0 {
		t.Fatalf("explicit zero fee = %v", got)
	}
}

func TestBankruptcyIsTerminal(t *testing.T) {
	candles := flatCandles(300, 100)
	candles[250].Low = 50
	candles[250].Close = 50

	lastSeen := 0
	decide := func(_ []models.Candle, i int, _ *indicators.Set, _ Params, open []PositionSnapshot) (Action, error) {
		lastSeen = i
		if i == 200 && len(open) == 0 {
			return EntryLong{}, nil
		}
		return Hold{}, nil
	}

	settings := Settings{EquityPercent: 100, Leverage: 2, FeePercent: feePercent(0)}
	report := RunBacktest(decide, candles, settings)

	if len(report.EquityCurve) != 51 {
		t.Fatalf("equity curve length = %d, want 51", len(report.EquityCurve))
	}
	last := report.EquityCurve[len(report.EquityCurve)-1]
	if last.Balance != 0 || last.Equity != 0 || last.Drawdown != 100 {
		t.Fatalf("terminal point = %+v", last)
	}
	if last.Timestamp != candles[250].Timestamp {
		t.Fatalf("terminal point at %d, want bar 250", last.Timestamp)
	}
	if lastSeen != 249 {
		t.Fatalf("decision called up to bar %d, want 249", lastSeen)
	}
	if report.TotalTrades != 1 || report.FinalBalance != 0 || report.ROI != -100 {
		t.Fatalf("trades=%d final=%v roi=%v", report.TotalTrades, report.FinalBalance, report.ROI)
	}
	if report.MDD != 0 {
		// mdd only tracks evaluated bars; the terminal point is recorded separately
		t.Fatalf("mdd = %v, want 0", report.MDD)
	}
}

func TestConcurrentPositionCap(t *testing.T) {
	maxOpen := 0
	decide := func(_ []models.Candle, _ int, _ *indicators.Set, _ Params, open []PositionSnapshot) (Action, error) {
		maxOpen = max(maxOpen, len(open))
		return EntryLong{}, nil
	}
	report := RunBacktest(decide, flatCandles(300, 100), NewSettings())

	if maxOpen != 1 {
		t.Fatalf("max open positions = %d, want 1", maxOpen)
	}
	if report.TotalTrades != 1 || report.LongTrades != 1 {
		t.Fatalf("total=%d long=%d, want 1 and 1", report.TotalTrades, report.LongTrades)
	}
}

func TestStopOrderFillsAtStopPrice(t *testing.T) {
	candles := flatCandles(300, 100)
	candles[210].High = 106

	decide := script(map[int]Action{200: EntryLong{Type: OrderStop, Price: 105}})
	report := RunBacktest(decide, candles, NewSettings())

	if report.TotalTrades != 1 {
		t.Fatalf("total_trades = %d, want 1", report.TotalTrades)
	}
	trade := report.Trades[0]
	if trade.EntryPrice != 105 {
		t.Errorf("entry price = %v, want 105", trade.EntryPrice)
	}
	if trade.EntryTime != candles[210].Timestamp {
		t.Errorf("entry time = %d, want bar 210", trade.EntryTime)
	}
	if trade.OrderType != "BUY STOP" {
		t.Errorf("order type = %q", trade.OrderType)
	}
	if trade.ExitPrice != 100 || trade.ExitTime != candles[299].Timestamp {
		t.Errorf("forced close = %v at %d", trade.ExitPrice, trade.ExitTime)
	}
	if trade.PnL != -47.62 {
		t.Errorf("pnl = %v, want -47.62", trade.PnL)
	}
}

func TestLimitShortFill(t *testing.T) {
	candles := flatCandles(300, 100)
	candles[205].High = 111

	decide := script(map[int]Action{200: EntryShort{Type: OrderLimit, Price: 110}})
	report := RunBacktest(decide, candles, NewSettings())

	if report.TotalTrades != 1 {
		t.Fatalf("total_trades = %d, want 1", report.TotalTrades)
	}
	trade := report.Trades[0]
	if trade.OrderType != "SELL LIMIT" || trade.Side != models.PositionSideShort || trade.EntryPrice != 110 {
		t.Fatalf("trade = %+v", trade)
	}
	if report.ShortTrades != 1 || report.WinningTrades != 1 {
		t.Fatalf("short=%d wins=%d", report.ShortTrades, report.WinningTrades)
	}
}

func TestPendingOrderWithoutPriceUsesClose(t *testing.T) {
	candles := flatCandles(300, 100)
	decide := script(map[int]Action{200: EntryLong{Type: OrderLimit}})
	report := RunBacktest(decide, candles, NewSettings())

	// a limit at the close fills on the next bar whose low touches it
	if report.TotalTrades != 1 || report.Trades[0].EntryTime != candles[201].Timestamp {
		t.Fatalf("trades = %+v", report.Trades)
	}
}

func TestFailingDecisionsEqualHold(t *testing.T) {
	candles := flatCandles(320, 100)
	for i := range candles {
		candles[i].Close = 100 + float64(i%7)
		candles[i].High = candles[i].Close + 1
	}
	want := RunBacktest(hold, candles, NewSettings())

	failing := map[string]DecisionFunc{
		"panic": func(_ []models.Candle, _ int, _ *indicators.Set, _ Params, _ []PositionSnapshot) (Action, error) {
			panic("strategy bug")
		},
		"error": func(_ []models.Candle, _ int, _ *indicators.Set, _ Params, _ []PositionSnapshot) (Action, error) {
			return EntryLong{}, errors.New("boom")
		},
		"nil action": func(_ []models.Candle, _ int, _ *indicators.Set, _ Params, _ []PositionSnapshot) (Action, error) {
			return nil, nil
		},
		"index out of range": func(c []models.Candle, i int, _ *indicators.Set, _ Params, _ []PositionSnapshot) (Action, error) {
			_ = c[i+1000]
			return EntryLong{}, nil
		},
		"nil func": nil,
	}

	for name, fn := range failing {
		t.Run(name, func(t *testing.T) {
			got := RunBacktest(fn, candles, NewSettings())
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("report differs from hold run")
			}
		})
	}
}

func TestDirectionFilters(t *testing.T) {
	candles := flatCandles(300, 100)
	off := false

	tests := []struct {
		name     string
		action   Action
		settings Settings
		want     int
		side     string
	}{
		{"reverse flips long", EntryLong{}, Settings{Reverse: true}, 1, models.PositionSideShort},
		{"reverse flips short", EntryShort{}, Settings{Reverse: true}, 1, models.PositionSideLong},
		{"longs disabled", EntryLong{}, Settings{AllowLong: &off}, 0, ""},
		{"shorts disabled", EntryShort{}, Settings{AllowShort: &off}, 0, ""},
		{"spot rejects short", EntryShort{}, Settings{MarketType: MarketSpot}, 0, ""},
		{"spot rejects reversed long", EntryLong{}, Settings{MarketType: MarketSpot, Reverse: true}, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := RunBacktest(script(map[int]Action{200: tt.action}), candles, tt.settings)
			if report.TotalTrades != tt.want {
				t.Fatalf("total_trades = %d, want %d", report.TotalTrades, tt.want)
			}
			if tt.want > 0 && report.Trades[0].Side != tt.side {
				t.Fatalf("side = %s, want %s", report.Trades[0].Side, tt.side)
			}
		})
	}
}

func TestVolumeFilterSkipsDecisions(t *testing.T) {
	calls := 0
	decide := func(_ []models.Candle, _ int, _ *indicators.Set, _ Params, _ []PositionSnapshot) (Action, error) {
		calls++
		return Hold{}, nil
	}
	candles := flatCandles(300, 100)
	candles[260].Volume = 5000

	report := RunBacktest(decide, candles, Settings{VolumeFilter: 2000})
	if calls != 1 {
		t.Fatalf("decision called %d times, want 1", calls)
	}
	if len(report.EquityCurve) != 1 {
		t.Fatalf("equity curve length = %d, want 1", len(report.EquityCurve))
	}
}

func TestExitByIndex(t *testing.T) {
	candles := flatCandles(300, 100)
	settings := Settings{MaxConcurrentOrders: 2}

	decide := script(map[int]Action{
		200: EntryLong{},
		201: EntryLong{},
		202: Exit{Index: IntPtr(1)},
	})
	report := RunBacktest(decide, candles, settings)
	if report.TotalTrades != 2 {
		t.Fatalf("total_trades = %d, want 2", report.TotalTrades)
	}
	if report.Trades[0].EntryTime != candles[201].Timestamp || report.Trades[0].ExitTime != candles[202].Timestamp {
		t.Fatalf("first closed trade = %+v", report.Trades[0])
	}
	if report.Trades[1].ExitTime != candles[299].Timestamp {
		t.Fatalf("remaining position should close on the last bar")
	}

	decide = script(map[int]Action{
		200: EntryLong{},
		201: EntryLong{},
		202: Exit{Index: IntPtr(5)},
	})
	report = RunBacktest(decide, candles, settings)
	for _, tr := range report.Trades {
		if tr.ExitTime != candles[202].Timestamp {
			t.Fatalf("out of range exit should close everything on bar 202, got %+v", tr)
		}
	}
}

func TestExitPriceOverride(t *testing.T) {
	decide := script(map[int]Action{
		200: EntryLong{},
		201: Exit{Price: 110},
	})
	report := RunBacktest(decide, flatCandles(300, 100), Settings{FeePercent: feePercent(0)})
	if report.Trades[0].ExitPrice != 110 || report.Trades[0].PnL != 100 {
		t.Fatalf("trade = %+v", report.Trades[0])
	}
	if report.ROI != 1 || report.WinRate != 100 || report.MaxProfit != 100 {
		t.Fatalf("roi=%v win_rate=%v max_profit=%v", report.ROI, report.WinRate, report.MaxProfit)
	}
}

func TestCancel(t *testing.T) {
	candles := flatCandles(300, 100)
	s := NewSimulator(candles, NewSettings())
	order := EntryLong{Type: OrderStop, Price: 1000}

	for i := 0; i < 3; i++ {
		s.apply(order, candles[200], 200)
	}
	s.apply(Cancel{Index: IntPtr(1)}, candles[200], 200)
	if len(s.pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(s.pending))
	}

	s.apply(Cancel{Index: IntPtr(9)}, candles[200], 200)
	if len(s.pending) != 0 {
		t.Fatalf("out of range cancel should clear all, pending = %d", len(s.pending))
	}

	s.apply(order, candles[200], 200)
	s.apply(Cancel{}, candles[200], 200)
	if len(s.pending) != 0 {
		t.Fatalf("cancel without index should clear all, pending = %d", len(s.pending))
	}
}

func TestCancelledOrderNeverFills(t *testing.T) {
	candles := flatCandles(300, 100)
	candles[220].High = 200

	decide := script(map[int]Action{
		200: EntryLong{Type: OrderStop, Price: 150},
		201: Cancel{},
	})
	if report := RunBacktest(decide, candles, NewSettings()); report.TotalTrades != 0 {
		t.Fatalf("total_trades = %d, want 0", report.TotalTrades)
	}
}

func TestSnapshotFields(t *testing.T) {
	candles := flatCandles(300, 100)
	candles[203].Close = 110

	var seen PositionSnapshot
	decide := func(_ []models.Candle, i int, _ *indicators.Set, _ Params, open []PositionSnapshot) (Action, error) {
		if i == 200 {
			return EntryLong{}, nil
		}
		if i == 203 {
			seen = open[0]
		}
		return Hold{}, nil
	}
	RunBacktest(decide, candles, NewSettings())

	if seen.Side != "long" || seen.SideUpper != "LONG" {
		t.Fatalf("sides = %q/%q", seen.Side, seen.SideUpper)
	}
	if seen.Duration != 3 || seen.UsdtSize != 1000 || seen.CoinSize != 10 {
		t.Fatalf("snapshot = %+v", seen)
	}
	if seen.UnrealizedPnl != 100 {
		t.Fatalf("unrealizedPnl = %v, want 100", seen.UnrealizedPnl)
	}
}

func TestParamsReachDecision(t *testing.T) {
	var got Params
	decide := func(_ []models.Candle, _ int, _ *indicators.Set, p Params, _ []PositionSnapshot) (Action, error) {
		got = p
		return Hold{}, nil
	}
	RunBacktest(decide, flatCandles(300, 100), Settings{Params: Params{"fast": 9.0}})
	if got.Int("fast", 0) != 9 || got.Int("slow", 21) != 21 {
		t.Fatalf("params = %v", got)
	}
}

func TestCandlesAreNotMutated(t *testing.T) {
	candles := flatCandles(320, 100)
	candles[250].Low = 10
	before := append([]models.Candle(nil), candles...)

	RunBacktest(func(_ []models.Candle, _ int, _ *indicators.Set, _ Params, _ []PositionSnapshot) (Action, error) {
		return EntryShort{}, nil
	}, candles, NewSettings())

	if !reflect.DeepEqual(before, candles) {
		t.Fatalf("candles were mutated")
	}
}

func TestReportJSONFieldNames(t *testing.T) {
	data, err := json.Marshal(RunBacktest(hold, flatCandles(210, 100), NewSettings()))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{
		"trades", "equity_curve", "roi", "mdd", "win_rate", "total_trades", "winning_trades",
		"losing_trades", "long_trades", "short_trades", "max_profit", "max_loss", "avg_profit",
		"avg_loss", "avg_duration", "max_duration", "total_fee", "final_balance",
		"initial_balance", "symbol", "timeframe", "market_type",
	} {
		if _, ok := fields[key]; !ok {
			t.Errorf("missing field %q", key)
		}
	}
}

func TestRunManyMatchesSequentialRuns(t *testing.T) {
	candles := flatCandles(320, 100)
	decide := script(map[int]Action{205: EntryLong{}, 230: Exit{}})

	jobs := make([]Job, 6)
	for i := range jobs {
		jobs[i] = Job{Name: string(rune('a' + i)), Decide: decide, Candles: candles, Settings: Settings{Leverage: float64(i + 1)}}
	}

	results, err := NewRunner(3).RunMany(context.Background(), jobs)
	if err != nil {
		t.Fatalf("RunMany: %v", err)
	}
	for i, res := range results {
		want := RunBacktest(decide, candles, jobs[i].Settings)
		if res.Name != jobs[i].Name || !reflect.DeepEqual(res.Report, want) {
			t.Fatalf("result %d differs from a sequential run", i)
		}
	}
}

func TestRunManyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRunner(2).RunMany(ctx, []Job{{Name: "x", Decide: hold, Candles: flatCandles(300, 100)}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestRounding(t *testing.T) {
	cases := map[float64]float64{
		1.234:    1.23,
		1.235:    1.24,
		-47.6190: -47.62,
		0:        0,
	}
	for in, want := range cases {
		if got := round2(in); got != want {
			t.Errorf("round2(%v) = %v, want %v", in, got, want)
		}
	}
	if got := round1(2.25); got != 2.3 {
		t.Errorf("round1(2.25) = %v", got)
	}
}

func TestSettingsMerge(t *testing.T) {
	fee := 0.02
	defaults := Settings{InitialBalance: 5000, Leverage: 3, FeePercent: &fee, AllowShort: boolPtr(false), Symbol: "ETHUSDT"}.WithDefaults()

	merged := Settings{Leverage: 5, VolumeFilter: 2}.Merge(defaults)
	if merged.InitialBalance != 5000 || merged.Leverage != 5 || merged.Symbol != "ETHUSDT" {
		t.Errorf("merged = %+v", merged)
	}
	if merged.FeeRate() != 0.0002 {
		t.Errorf("fee rate = %v, want 0.0002", merged.FeeRate())
	}
	if *merged.AllowShort || !*merged.AllowLong {
		t.Error("direction flags not taken from defaults")
	}
	if merged.VolumeFilter != 2 || merged.Params == nil {
		t.Errorf("request-only fields lost: %+v", merged)
	}

	own := Settings{AllowShort: boolPtr(true)}.Merge(defaults)
	if !*own.AllowShort {
		t.Error("explicit flag overridden by defaults")
	}
}

func TestSettingsZeroMeansDefault(t *testing.T) {
	zero := 0.0
	s := Settings{
		InitialBalance:      0,
		EquityPercent:       0,
		Leverage:            0,
		MaxPositionUSDT:     0,
		MaxConcurrentOrders: 0,
		FeePercent:          &zero,
	}.WithDefaults()

	if s.InitialBalance != InitialBalance || s.EquityPercent != EquityPercent || s.Leverage != Leverage {
		t.Errorf("numeric defaults = %v %v %v", s.InitialBalance, s.EquityPercent, s.Leverage)
	}
	if s.MaxPositionUSDT != MaxPositionUSDT || s.MaxConcurrentOrders != MaxConcurrentOrders {
		t.Errorf("caps = %v %v", s.MaxPositionUSDT, s.MaxConcurrentOrders)
	}
	if s.FeeRate() != 0 {
		t.Errorf("explicit zero fee = %v, want 0", s.FeeRate())
	}
}

func TestParseAction(t *testing.T) {
	cases := []struct {
		name string
		in   map[string]any
		want Action
	}{
		{"market long", map[string]any{"action": "entry_long"}, EntryLong{Type: OrderMarket}},
		{"stop long", map[string]any{"action": "entry_long", "type": "stop", "price": 101.5}, EntryLong{Type: OrderStop, Price: 101.5}},
		{"limit short", map[string]any{"action": "entry_short", "type": "limit", "price": json.Number("99")}, EntryShort{Type: OrderLimit, Price: 99}},
		{"exit all", map[string]any{"action": "exit"}, Exit{}},
		{"exit index", map[string]any{"action": "exit", "index": 1.0, "price": 120}, Exit{Index: IntPtr(1), Price: 120}},
		{"exit fractional index", map[string]any{"action": "exit", "index": 1.5}, Exit{}},
		{"exit string index", map[string]any{"action": "exit", "index": "1"}, Exit{}},
		{"cancel index", map[string]any{"action": "cancel", "index": int64(2)}, Cancel{Index: IntPtr(2)}},
		{"cancel all", map[string]any{"action": "cancel"}, Cancel{}},
		{"hold", map[string]any{"action": "hold"}, Hold{}},
		{"unknown action", map[string]any{"action": "buy"}, Hold{}},
		{"action not a string", map[string]any{"action": 1}, Hold{}},
		{"no action", map[string]any{"price": 100.0}, Hold{}},
		{"nil", nil, Hold{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ParseAction(tc.in); !reflect.DeepEqual(got, tc.want) {
				t.Errorf("ParseAction(%v) = %#v, want %#v", tc.in, got, tc.want)
			}
		})
	}
}

func TestFromWire(t *testing.T) {
	candles := flatCandles(300, 100)
	decide := FromWire(func(_ []models.Candle, i int, _ *indicators.Set, _ Params, _ []PositionSnapshot) (map[string]any, error) {
		switch i {
		case 200:
			return map[string]any{"action": "entry_long"}, nil
		case 205:
			return map[string]any{"action": "close_everything"}, nil
		case 210:
			return nil, errors.New("bad bar")
		case 220:
			return map[string]any{"action": "exit"}, nil
		}
		return nil, nil
	})

	action, err := decide(candles, 210, nil, nil, nil)
	if err == nil || action != (Hold{}) {
		t.Errorf("failing bar = %#v, %v", action, err)
	}

	report := RunBacktest(decide, candles, NewSettings())
	if report.TotalTrades != 1 {
		t.Fatalf("trades = %d, want 1", report.TotalTrades)
	}
	if d := report.Trades[0].Duration; d != 20 {
		t.Errorf("duration = %d, want 20", d)
	}
}
