package config

import "CryptoBacktest/internal/operations/backtest"

type config struct {
	Exchange   ExchangeConfig
	Database   DatabaseConfig
	Server     ServerConfig
	Backtest   BacktestConfig
	Symbols    []string
	TimeFrames []string
	CandleDir  string
}

type ExchangeConfig struct {
	APIKey    string
	SecretKey string
	Market    string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

type ServerConfig struct {
	Port         int
	RecordPrices bool
	HistoryDays  int
}

// BacktestConfig holds the defaults applied to requests that leave a
// setting unset.
type BacktestConfig struct {
	Settings    backtest.Settings
	Concurrency int
	CandleLimit int
	PresetsFile string
}

// Preset is one named run in a batch file
type Preset struct {
	Name     string            `yaml:"name"`
	Strategy string            `yaml:"strategy"`
	Limit    int               `yaml:"limit"`
	Settings backtest.Settings `yaml:"settings"`
}

type presetFile struct {
	Presets []Preset `yaml:"presets"`
}
