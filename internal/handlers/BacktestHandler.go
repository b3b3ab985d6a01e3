package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"CryptoBacktest/config"
	"CryptoBacktest/internal/backtesting"
	"CryptoBacktest/internal/models"
	"CryptoBacktest/internal/operations/backtest"
	"CryptoBacktest/internal/repositories"
	"CryptoBacktest/internal/services/strategy"

	"github.com/google/uuid"
)

var (
	// ErrInvalidRequest marks input the caller has to fix
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotEnoughCandles is returned when a run would have fewer bars than
	// backtest.MinimumCandles
	ErrNotEnoughCandles = errors.New("not enough candles")
)

// BacktestRequest selects a strategy by name, or passes Rules to run the
// rule strategy. Candles are used as given; without them the newest Limit
// stored bars of Settings.Symbol and Settings.Timeframe are loaded. With
// Start or End set, the stored bars opening in that range are loaded
// instead, oldest first, up to Limit.
type BacktestRequest struct {
	Strategy string            `json:"strategy"`
	Rules    *strategy.RuleSet `json:"rules,omitempty"`
	Settings backtest.Settings `json:"settings"`
	Candles  []models.Candle   `json:"candles,omitempty"`
	Limit    int               `json:"limit,omitempty"`
	Start    time.Time         `json:"start"`
	End      time.Time         `json:"end"`
}

// RunTrades is a filtered view of a stored run's trades. TotalPnL covers the
// whole run.
type RunTrades struct {
	Trades   []models.TradeRecord `json:"trades"`
	TotalPnL float64              `json:"total_pnl"`
}

// RunEquity is a window of a stored run's equity curve. MaxDrawdown covers
// the whole run.
type RunEquity struct {
	Points      []models.EquitySnapshot `json:"points"`
	MaxDrawdown float64                 `json:"max_drawdown"`
}

type BacktestResult struct {
	RunID    string            `json:"run_id,omitempty"`
	Name     string            `json:"name,omitempty"`
	Strategy string            `json:"strategy"`
	Candles  int               `json:"candles"`
	Elapsed  string            `json:"elapsed"`
	Stats    backtesting.Stats `json:"stats"`
	Report   *backtest.Report  `json:"report"`
}

type BacktestHandler struct {
	priceRepo       *repositories.PriceRepository
	runRepo         *repositories.RunRepository
	tradeRepo       *repositories.TradeRepository
	equityRepo      *repositories.EquityRepository
	candleFiles     *repositories.CandleFileRepository
	strategyManager *strategy.StrategyManager
	runner          *backtest.Runner
	defaults        backtest.Settings
	candleLimit     int
}

// NewBacktestHandler wires the run pipeline. A nil runRepo disables
// persistence; a nil priceRepo limits runs to inline candles and files.
// Trade and equity queries need tradeRepo and equityRepo.
func NewBacktestHandler(
	priceRepo *repositories.PriceRepository,
	runRepo *repositories.RunRepository,
	tradeRepo *repositories.TradeRepository,
	equityRepo *repositories.EquityRepository,
	strategyManager *strategy.StrategyManager,
	cfg config.BacktestConfig,
) *BacktestHandler {
	limit := cfg.CandleLimit
	if limit < backtest.MinimumCandles {
		limit = backtest.MinimumCandles
	}
	return &BacktestHandler{
		priceRepo:       priceRepo,
		runRepo:         runRepo,
		tradeRepo:       tradeRepo,
		equityRepo:      equityRepo,
		strategyManager: strategyManager,
		runner:          backtest.NewRunner(cfg.Concurrency),
		defaults:        cfg.Settings.WithDefaults(),
		candleLimit:     limit,
	}
}

// WithCandleFiles adds parquet files as a fallback candle source
func (h *BacktestHandler) WithCandleFiles(files *repositories.CandleFileRepository) *BacktestHandler {
	h.candleFiles = files
	return h
}

func (h *BacktestHandler) Strategies() []strategy.Definition {
	return h.strategyManager.GetStrategies()
}

// Symbols lists the symbols that have candle files
func (h *BacktestHandler) Symbols() ([]string, error) {
	if h.candleFiles == nil {
		return nil, nil
	}
	return h.candleFiles.Symbols()
}

// Run executes one backtest and stores it when persistence is enabled
func (h *BacktestHandler) Run(ctx context.Context, req BacktestRequest) (*BacktestResult, error) {
	job, name, err := h.prepare(req)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Printf("Running %s on %d %s %s candles", name, len(job.Candles), job.Settings.Symbol, job.Settings.Timeframe)

	start := time.Now()
	report := backtest.RunBacktest(job.Decide, job.Candles, job.Settings)
	result := &BacktestResult{
		Strategy: name,
		Candles:  len(job.Candles),
		Elapsed:  time.Since(start).String(),
		Stats:    backtesting.Summarize(report),
		Report:   report,
	}

	if err := h.persist(result, job); err != nil {
		return nil, err
	}
	return result, nil
}

// RunPresets runs a batch in parallel. A preset that cannot be prepared
// fails the whole batch before anything runs.
func (h *BacktestHandler) RunPresets(ctx context.Context, presets []config.Preset) ([]BacktestResult, error) {
	for _, p := range presets {
		if !h.strategyManager.Has(p.Strategy) {
			return nil, fmt.Errorf("preset %s: %w %q", p.Name, strategy.ErrUnknownStrategy, p.Strategy)
		}
	}

	jobs := make([]backtest.Job, len(presets))
	for i, p := range presets {
		job, _, err := h.prepare(BacktestRequest{Strategy: p.Strategy, Settings: p.Settings, Limit: p.Limit})
		if err != nil {
			return nil, fmt.Errorf("preset %s: %w", p.Name, err)
		}
		job.Name = p.Name
		jobs[i] = job
	}

	done, err := h.runner.RunMany(ctx, jobs)
	if err != nil {
		return nil, err
	}

	results := make([]BacktestResult, len(done))
	for i, d := range done {
		results[i] = BacktestResult{
			Name:     d.Name,
			Strategy: presets[i].Strategy,
			Candles:  len(jobs[i].Candles),
			Elapsed:  d.Duration.String(),
			Stats:    backtesting.Summarize(d.Report),
			Report:   d.Report,
		}
		if err := h.persist(&results[i], jobs[i]); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// Get loads a stored run, nil when it does not exist
func (h *BacktestHandler) Get(runID string) (*models.BacktestRun, error) {
	if h.runRepo == nil {
		return nil, nil
	}
	return h.runRepo.FindByRunID(runID)
}

func (h *BacktestHandler) List(limit int, strategyName, symbol string) ([]models.BacktestRun, error) {
	if h.runRepo == nil {
		return nil, nil
	}
	return h.runRepo.ListRecent(limit, strategyName, symbol)
}

// Delete removes a stored run, reporting whether it existed
func (h *BacktestHandler) Delete(runID string) (bool, error) {
	if h.runRepo == nil {
		return false, nil
	}
	return h.runRepo.Delete(runID)
}

// Trades returns the trades of a stored run, optionally narrowed to one side
// and to trades closing within [from, to]. It returns nil when the run does
// not exist.
func (h *BacktestHandler) Trades(runID, side string, from, to time.Time) (*RunTrades, error) {
	if found, err := h.exists(runID); err != nil || !found {
		return nil, err
	}
	if side != "" && side != models.PositionSideLong && side != models.PositionSideShort {
		return nil, fmt.Errorf("%w: side must be %s or %s", ErrInvalidRequest, models.PositionSideLong, models.PositionSideShort)
	}

	var trades []models.TradeRecord
	var err error
	switch {
	case !from.IsZero() || !to.IsZero():
		from, to = openRange(from, to)
		trades, err = h.tradeRepo.GetTradesByTimeRange(runID, from, to)
		if side != "" {
			trades = filterSide(trades, side)
		}
	case side != "":
		trades, err = h.tradeRepo.FindBySide(runID, side)
	default:
		trades, err = h.tradeRepo.FindByRunID(runID)
	}
	if err != nil {
		return nil, err
	}

	total, err := h.tradeRepo.GetTotalPnL(runID)
	if err != nil {
		return nil, err
	}
	if trades == nil {
		trades = []models.TradeRecord{}
	}
	return &RunTrades{Trades: trades, TotalPnL: total}, nil
}

// Equity returns the equity curve of a stored run, optionally limited to
// [from, to]. It returns nil when the run does not exist.
func (h *BacktestHandler) Equity(runID string, from, to time.Time) (*RunEquity, error) {
	if found, err := h.exists(runID); err != nil || !found {
		return nil, err
	}

	var points []models.EquitySnapshot
	var err error
	if !from.IsZero() || !to.IsZero() {
		from, to = openRange(from, to)
		points, err = h.equityRepo.GetEquityByTimeRange(runID, from, to)
	} else {
		points, err = h.equityRepo.FindByRunID(runID)
	}
	if err != nil {
		return nil, err
	}

	mdd, err := h.equityRepo.GetMaxDrawdown(runID)
	if err != nil {
		return nil, err
	}
	if points == nil {
		points = []models.EquitySnapshot{}
	}
	return &RunEquity{Points: points, MaxDrawdown: mdd}, nil
}

func (h *BacktestHandler) exists(runID string) (bool, error) {
	if h.runRepo == nil || h.tradeRepo == nil || h.equityRepo == nil {
		return false, nil
	}
	return h.runRepo.Exists(runID)
}

// ExportTrades writes the trades of a stored run as parquet to path. It
// returns false when the run does not exist.
func (h *BacktestHandler) ExportTrades(runID, path string) (bool, error) {
	run, err := h.Get(runID)
	if err != nil || run == nil {
		return false, err
	}
	files := h.candleFiles
	if files == nil {
		files = repositories.NewCandleFileRepository("")
	}
	return true, files.ExportTrades(path, run)
}

// prepare resolves the decision function, settings and candles of a request
func (h *BacktestHandler) prepare(req BacktestRequest) (backtest.Job, string, error) {
	name := req.Strategy
	settings := req.Settings.Merge(h.defaults)

	if req.Rules != nil {
		name = "rules"
		params := backtest.Params{}
		for k, v := range settings.Params {
			params[k] = v
		}
		params["rules"] = *req.Rules
		settings.Params = params
	}
	if name == "" {
		return backtest.Job{}, "", fmt.Errorf("%w: strategy or rules is required", ErrInvalidRequest)
	}

	decide, err := h.strategyManager.Decider(name, settings.Params)
	if err != nil {
		if errors.Is(err, strategy.ErrUnknownStrategy) {
			return backtest.Job{}, "", err
		}
		return backtest.Job{}, "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	candles := req.Candles
	if len(candles) == 0 {
		limit := req.Limit
		if limit <= 0 {
			limit = h.candleLimit
		}
		candles, err = h.loadCandles(settings.Symbol, settings.Timeframe, limit, req.Start, req.End)
		if err != nil {
			return backtest.Job{}, "", err
		}
	}
	if len(candles) < backtest.MinimumCandles {
		return backtest.Job{}, "", fmt.Errorf("%w: have %d, need at least %d",
			ErrNotEnoughCandles, len(candles), backtest.MinimumCandles)
	}

	return backtest.Job{Name: name, Decide: decide, Candles: candles, Settings: settings}, name, nil
}

// loadCandles prefers the database and falls back to candle files when the
// database holds too little history.
func (h *BacktestHandler) loadCandles(symbol, timeframe string, limit int, start, end time.Time) ([]models.Candle, error) {
	ranged := !start.IsZero() || !end.IsZero()
	if ranged {
		start, end = openRange(start, end)
		if end.Before(start) {
			return nil, fmt.Errorf("%w: end %s is before start %s", ErrInvalidRequest, end, start)
		}
	}

	var candles []models.Candle
	if h.priceRepo != nil {
		count, err := h.priceRepo.CountByTimeFrame(symbol, timeframe)
		if err != nil {
			return nil, fmt.Errorf("count candles for %s %s: %w", symbol, timeframe, err)
		}
		if count >= backtest.MinimumCandles {
			if ranged {
				prices, err := h.priceRepo.GetPricesByTimeFrame(symbol, timeframe, start, end)
				if err != nil {
					return nil, fmt.Errorf("load candles for %s %s: %w", symbol, timeframe, err)
				}
				candles = models.CandlesFromPrices(prices)
			} else {
				stored, err := h.priceRepo.GetRecentCandles(symbol, timeframe, limit)
				if err != nil {
					return nil, fmt.Errorf("load candles for %s %s: %w", symbol, timeframe, err)
				}
				candles = stored
			}
		}
	}

	if len(candles) < backtest.MinimumCandles && h.candleFiles != nil {
		stored, err := h.candleFiles.Load(symbol, timeframe)
		if err != nil {
			return nil, err
		}
		if ranged {
			stored = candlesBetween(stored, start, end)
		}
		if len(stored) > len(candles) {
			candles = stored
		}
	}

	if len(candles) > limit {
		if ranged {
			candles = candles[:limit]
		} else {
			candles = candles[len(candles)-limit:]
		}
	}
	return candles, nil
}

// openRange fills a missing bound: the epoch for from, now for to
func openRange(from, to time.Time) (time.Time, time.Time) {
	if from.IsZero() {
		from = time.Unix(0, 0).UTC()
	}
	if to.IsZero() {
		to = time.Now().UTC()
	}
	return from, to
}

func candlesBetween(candles []models.Candle, start, end time.Time) []models.Candle {
	lo, hi := start.UnixMilli(), end.UnixMilli()
	var out []models.Candle
	for _, c := range candles {
		if c.Timestamp >= lo && c.Timestamp <= hi {
			out = append(out, c)
		}
	}
	return out
}

func filterSide(trades []models.TradeRecord, side string) []models.TradeRecord {
	out := trades[:0]
	for _, t := range trades {
		if t.Side == side {
			out = append(out, t)
		}
	}
	return out
}

func (h *BacktestHandler) persist(result *BacktestResult, job backtest.Job) error {
	if h.runRepo == nil {
		return nil
	}

	result.RunID = uuid.NewString()
	run, err := NewRunRecord(result.RunID, result.Strategy, job.Settings, result.Report, job.Candles)
	if err != nil {
		return err
	}
	if err := h.runRepo.Save(run); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	log.Printf("Saved backtest %s (%s): %d trades, roi %.2f%%", result.RunID, result.Strategy, result.Report.TotalTrades, result.Report.ROI)
	return nil
}

// NewRunRecord converts a report into its stored form
func NewRunRecord(runID, strategyName string, settings backtest.Settings, report *backtest.Report, candles []models.Candle) (*models.BacktestRun, error) {
	if report == nil {
		return nil, errors.New("report cannot be nil")
	}

	encoded, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	stats := backtesting.Summarize(report)

	run := &models.BacktestRun{
		RunID:          runID,
		Strategy:       strategyName,
		Symbol:         report.Symbol,
		TimeFrame:      report.Timeframe,
		MarketType:     report.MarketType,
		InitialBalance: report.InitialBalance,
		FinalBalance:   report.FinalBalance,
		ROI:            report.ROI,
		MDD:            report.MDD,
		WinRate:        report.WinRate,
		TotalTrades:    report.TotalTrades,
		WinningTrades:  report.WinningTrades,
		LosingTrades:   report.LosingTrades,
		LongTrades:     report.LongTrades,
		ShortTrades:    report.ShortTrades,
		MaxProfit:      report.MaxProfit,
		MaxLoss:        report.MaxLoss,
		AvgProfit:      report.AvgProfit,
		AvgLoss:        report.AvgLoss,
		AvgDuration:    report.AvgDuration,
		MaxDuration:    report.MaxDuration,
		TotalFee:       report.TotalFee,
		SharpeRatio:    stats.SharpeRatio,
		ProfitFactor:   stats.ProfitFactor,
		Expectancy:     stats.Expectancy,
		Settings:       string(encoded),
	}
	if len(candles) > 0 {
		run.StartTime = time.UnixMilli(candles[0].Timestamp).UTC()
		run.EndTime = time.UnixMilli(candles[len(candles)-1].Timestamp).UTC()
	}

	run.Trades = make([]models.TradeRecord, len(report.Trades))
	for i, t := range report.Trades {
		run.Trades[i] = models.TradeRecord{
			RunID:      runID,
			Seq:        i,
			Side:       t.Side,
			Symbol:     report.Symbol,
			EntryTime:  time.UnixMilli(t.EntryTime).UTC(),
			EntryPrice: t.EntryPrice,
			ExitTime:   time.UnixMilli(t.ExitTime).UTC(),
			ExitPrice:  t.ExitPrice,
			PnL:        t.PnL,
			Fee:        t.Fee,
			CoinSize:   t.CoinSize,
			UsdtSize:   t.UsdtSize,
			Duration:   t.Duration,
			Balance:    t.Balance,
			OrderType:  t.OrderType,
		}
	}

	run.EquityCurve = make([]models.EquitySnapshot, len(report.EquityCurve))
	for i, p := range report.EquityCurve {
		run.EquityCurve[i] = models.EquitySnapshot{
			RunID:     runID,
			Timestamp: time.UnixMilli(p.Timestamp).UTC(),
			Balance:   p.Balance,
			Equity:    p.Equity,
			Drawdown:  p.Drawdown,
		}
	}
	return run, nil
}
