package repositories

import (
	"CryptoBacktest/internal/models"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// candleRow is the on-disk schema of a candle file
type candleRow struct {
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"`
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    float64 `parquet:"volume"`
}

// tradeRow is the on-disk schema of an exported run's trades
type tradeRow struct {
	RunID      string  `parquet:"run_id"`
	Seq        int64   `parquet:"seq"`
	Side       string  `parquet:"side"`
	OrderType  string  `parquet:"order_type"`
	EntryTime  int64   `parquet:"entry_time,timestamp(millisecond)"`
	EntryPrice float64 `parquet:"entry_price"`
	ExitTime   int64   `parquet:"exit_time,timestamp(millisecond)"`
	ExitPrice  float64 `parquet:"exit_price"`
	PnL        float64 `parquet:"pnl"`
	Fee        float64 `parquet:"fee"`
	CoinSize   float64 `parquet:"coin_size"`
	UsdtSize   float64 `parquet:"usdt_size"`
	Duration   int64   `parquet:"duration"`
	Balance    float64 `parquet:"balance"`
}

// CandleFileRepository keeps candle series as parquet files for offline runs.
// Layout: <dir>/<SYMBOL>/<timeframe>.parquet
type CandleFileRepository struct {
	dir string
}

func NewCandleFileRepository(dir string) *CandleFileRepository {
	return &CandleFileRepository{dir: dir}
}

func (r *CandleFileRepository) path(symbol, timeFrame string) string {
	return filepath.Join(r.dir, strings.ToUpper(symbol), timeFrame+".parquet")
}

// Save merges candles into the stored series. Incoming bars replace stored
// bars with the same timestamp and the file stays sorted by time.
func (r *CandleFileRepository) Save(symbol, timeFrame string, candles []models.Candle) error {
	if symbol == "" || timeFrame == "" {
		return errors.New("invalid symbol or timeframe")
	}

	existing, err := r.Load(symbol, timeFrame)
	if err != nil {
		return err
	}
	merged := mergeCandles(existing, candles)

	rows := make([]candleRow, len(merged))
	for i, c := range merged {
		rows[i] = candleRow(c)
	}

	path := r.path(symbol, timeFrame)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Load reads a stored series. A missing file is an empty series.
func (r *CandleFileRepository) Load(symbol, timeFrame string) ([]models.Candle, error) {
	path := r.path(symbol, timeFrame)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	rows, err := parquet.ReadFile[candleRow](path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	candles := make([]models.Candle, len(rows))
	for i, row := range rows {
		candles[i] = models.Candle(row)
	}
	return candles, nil
}

// Symbols lists the symbols with at least one stored series
func (r *CandleFileRepository) Symbols() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var symbols []string
	for _, e := range entries {
		if e.IsDir() {
			symbols = append(symbols, e.Name())
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

// ExportTrades writes the trades of a stored run to path
func (r *CandleFileRepository) ExportTrades(path string, run *models.BacktestRun) error {
	if run == nil {
		return errors.New("run cannot be nil")
	}

	rows := make([]tradeRow, len(run.Trades))
	for i, t := range run.Trades {
		rows[i] = tradeRow{
			RunID:      run.RunID,
			Seq:        int64(t.Seq),
			Side:       t.Side,
			OrderType:  t.OrderType,
			EntryTime:  t.EntryTime.UnixMilli(),
			EntryPrice: t.EntryPrice,
			ExitTime:   t.ExitTime.UnixMilli(),
			ExitPrice:  t.ExitPrice,
			PnL:        t.PnL,
			Fee:        t.Fee,
			CoinSize:   t.CoinSize,
			UsdtSize:   t.UsdtSize,
			Duration:   int64(t.Duration),
			Balance:    t.Balance,
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, rows)
}

func mergeCandles(existing, incoming []models.Candle) []models.Candle {
	seen := make(map[int64]models.Candle, len(existing)+len(incoming))
	for _, c := range existing {
		seen[c.Timestamp] = c
	}
	for _, c := range incoming {
		seen[c.Timestamp] = c
	}

	merged := make([]models.Candle, 0, len(seen))
	for _, c := range seen {
		merged = append(merged, c)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}
