package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"CryptoBacktest/internal/operations/backtest"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

func Load() (*config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded, using environment only: %v", err)
	}

	cfg := &config{
		Exchange: ExchangeConfig{
			APIKey:    os.Getenv("BINANCE_API_KEY"),
			SecretKey: os.Getenv("BINANCE_SECRET_KEY"),
			Market:    envString("BINANCE_MARKET", backtest.MarketFutures),
		},
		Database: DatabaseConfig{
			Host:     os.Getenv("DB_HOST"),
			Port:     EnvtoInt(os.Getenv("DB_PORT")),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			DBName:   os.Getenv("DB_NAME"),
		},
		Server: ServerConfig{
			Port:         envInt("SERVER_PORT", 8080),
			RecordPrices: envBool("RECORD_PRICES", false),
			HistoryDays:  envInt("HISTORY_DAYS", 30),
		},
		Backtest: BacktestConfig{
			Settings:    backtestDefaults(),
			Concurrency: envInt("BACKTEST_CONCURRENCY", 0),
			CandleLimit: envInt("BACKTEST_CANDLE_LIMIT", 2000),
			PresetsFile: os.Getenv("BACKTEST_PRESETS"),
		},
		Symbols:    getList("TRADING_SYMBOLS", []string{"BTCUSDT", "ETHUSDT"}),
		TimeFrames: getList("TRADING_TIMEFRAMES", []string{"15m", "1h", "4h"}),
		CandleDir:  envString("CANDLE_DIR", "data/candles"),
	}

	if cfg.Backtest.CandleLimit < backtest.MinimumCandles {
		return nil, fmt.Errorf("BACKTEST_CANDLE_LIMIT must be at least %d", backtest.MinimumCandles)
	}
	if m := cfg.Exchange.Market; m != backtest.MarketFutures && m != backtest.MarketSpot {
		return nil, fmt.Errorf("BINANCE_MARKET must be %s or %s, got %q", backtest.MarketFutures, backtest.MarketSpot, m)
	}
	return cfg, nil
}

// backtestDefaults reads BACKTEST_* overrides on top of the engine defaults
func backtestDefaults() backtest.Settings {
	s := backtest.Settings{
		InitialBalance:      envFloat("BACKTEST_INITIAL_BALANCE", 0),
		EquityPercent:       envFloat("BACKTEST_EQUITY_PERCENT", 0),
		Leverage:            envFloat("BACKTEST_LEVERAGE", 0),
		MarketType:          os.Getenv("BACKTEST_MARKET_TYPE"),
		MaxPositionUSDT:     envFloat("BACKTEST_MAX_POSITION_USDT", 0),
		MaxConcurrentOrders: envInt("BACKTEST_MAX_CONCURRENT_ORDERS", 0),
	}
	if v, ok := os.LookupEnv("BACKTEST_FEE_PERCENT"); ok {
		if fee, err := strconv.ParseFloat(v, 64); err == nil {
			s.FeePercent = &fee
		}
	}
	if v, ok := os.LookupEnv("BACKTEST_COMPOUND"); ok {
		compound := parseBool(v, true)
		s.Compound = &compound
	}
	return s.WithDefaults()
}

// LoadPresets reads a YAML batch file. Every preset needs a name and a
// strategy, and names must be unique.
func LoadPresets(path string) ([]Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}

	var file presetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse presets %s: %w", path, err)
	}
	if len(file.Presets) == 0 {
		return nil, errors.New("presets file has no presets")
	}

	seen := make(map[string]bool, len(file.Presets))
	for i, p := range file.Presets {
		if p.Name == "" || p.Strategy == "" {
			return nil, fmt.Errorf("preset %d: name and strategy are required", i)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("preset %s defined twice", p.Name)
		}
		seen[p.Name] = true
	}
	return file.Presets, nil
}

// helper env(string) to int
func EnvtoInt(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return i
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Invalid %s=%q, using %d", key, v, def)
		return def
	}
	return i
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("Invalid %s=%q, using %v", key, v, def)
		return def
	}
	return f
}

func envBool(key string, def bool) bool {
	return parseBool(os.Getenv(key), def)
}

func parseBool(v string, def bool) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// helper to get comma separated lists
func getList(key string, def []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
