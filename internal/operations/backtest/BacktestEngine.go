package backtest

import (
	"context"
	"fmt"
	"log"
	"math"
	"runtime"
	"time"

	"CryptoBacktest/internal/models"
	"CryptoBacktest/internal/services/indicators"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// RunBacktest precomputes indicators for candles and simulates decide over
// them. It never fails: bad decisions degrade to hold and too few candles
// produce an empty report.
func RunBacktest(decide DecisionFunc, candles []models.Candle, settings Settings) *Report {
	ind := indicators.Precalculate(candles)
	return NewSimulator(candles, settings).Run(decide, ind)
}

// Job is one independent run for the Runner
type Job struct {
	Name     string
	Decide   DecisionFunc
	Candles  []models.Candle
	Settings Settings
}

// Result pairs a job name with its report
type Result struct {
	Name     string
	Report   *Report
	Duration time.Duration
}

// Runner executes independent runs in parallel. Runs share nothing but the
// read-only candle slices they were given.
type Runner struct {
	concurrency int
}

func NewRunner(concurrency int) *Runner {
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	return &Runner{concurrency: concurrency}
}

// RunMany runs every job and returns results in job order. Cancelling ctx
// stops jobs that have not started; a started run always completes.
func (r *Runner) RunMany(ctx context.Context, jobs []Job) ([]Result, error) {
	log.Printf("Running %d backtests with concurrency %d", len(jobs), r.concurrency)

	results := make([]Result, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, job := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("backtest %s not started: %w", job.Name, err)
			}
			start := time.Now()
			report := RunBacktest(job.Decide, job.Candles, job.Settings)
			results[i] = Result{Name: job.Name, Report: report, Duration: time.Since(start)}
			log.Printf("Backtest %s done: %d trades, roi %.2f%%", job.Name, report.TotalTrades, report.ROI)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func round2(v float64) float64 {
	return roundTo(v, 2)
}

func round1(v float64) float64 {
	return roundTo(v, 1)
}

func roundTo(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// floorTo floors v to a multiple of step
func floorTo(v, step float64) float64 {
	return math.Floor(v/step) * step
}
