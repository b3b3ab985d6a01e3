package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadReadsBacktestOverrides(t *testing.T) {
	t.Setenv("BACKTEST_INITIAL_BALANCE", "5000")
	t.Setenv("BACKTEST_LEVERAGE", "3")
	t.Setenv("BACKTEST_FEE_PERCENT", "0")
	t.Setenv("BACKTEST_COMPOUND", "false")
	t.Setenv("TRADING_SYMBOLS", "SOLUSDT, BNBUSDT,")
	t.Setenv("SERVER_PORT", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	s := cfg.Backtest.Settings
	if s.InitialBalance != 5000 || s.Leverage != 3 {
		t.Errorf("settings = %+v", s)
	}
	if s.EquityPercent != 10 || s.MarketType != "futures" {
		t.Errorf("defaults not applied: %+v", s)
	}
	if s.FeePercent == nil || *s.FeePercent != 0 || s.FeeRate() != 0 {
		t.Errorf("fee override lost: %v", s.FeePercent)
	}
	if s.Compound == nil || *s.Compound {
		t.Error("compound should be false")
	}
	if len(cfg.Symbols) != 2 || cfg.Symbols[0] != "SOLUSDT" || cfg.Symbols[1] != "BNBUSDT" {
		t.Errorf("symbols = %q", cfg.Symbols)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("bad port should fall back to 8080, got %d", cfg.Server.Port)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("BACKTEST_CANDLE_LIMIT", "100")
	if _, err := Load(); err == nil {
		t.Error("expected error for candle limit below minimum")
	}

	t.Setenv("BACKTEST_CANDLE_LIMIT", "500")
	t.Setenv("BINANCE_MARKET", "options")
	if _, err := Load(); err == nil {
		t.Error("expected error for unknown market")
	}
}

func TestLoadPresets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yaml")
	content := `presets:
  - name: btc-ema
    strategy: ema_cross
    limit: 1500
    settings:
      symbol: BTCUSDT
      timeframe: 4h
      leverage: 2
      allow_short: false
      params:
        fast: 9
        slow: 21
  - name: eth-rules
    strategy: rules
    settings:
      symbol: ETHUSDT
      params:
        rules:
          long:
            - {left: rsi/14, op: "<", right: "30"}
          exit:
            - {left: rsi/14, op: ">", right: "50"}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	presets, err := LoadPresets(path)
	if err != nil {
		t.Fatalf("LoadPresets: %v", err)
	}
	if len(presets) != 2 {
		t.Fatalf("got %d presets, want 2", len(presets))
	}

	p := presets[0]
	if p.Limit != 1500 || p.Settings.Timeframe != "4h" || p.Settings.Leverage != 2 {
		t.Errorf("preset = %+v", p)
	}
	if p.Settings.AllowShort == nil || *p.Settings.AllowShort {
		t.Error("allow_short should decode to false")
	}
	if p.Settings.AllowLong != nil {
		t.Error("allow_long should stay unset")
	}
	if p.Settings.Params.Int("fast", 0) != 9 {
		t.Errorf("params = %v", p.Settings.Params)
	}
	if _, ok := presets[1].Settings.Params["rules"].(map[string]any); !ok {
		t.Errorf("rules param = %T", presets[1].Settings.Params["rules"])
	}
}

func TestLoadPresetsErrors(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"empty":     "presets: []\n",
		"unnamed":   "presets:\n  - strategy: ema_cross\n",
		"duplicate": "presets:\n  - {name: a, strategy: ema_cross}\n  - {name: a, strategy: rules}\n",
		"invalid":   "presets: [\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".yaml")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadPresets(path); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := LoadPresets(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
