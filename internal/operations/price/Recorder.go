package price

import (
	"context"
	"fmt"
	"log"
	"time"

	"CryptoBacktest/internal/models"
)

// PriceStore is the storage side of the recorder, satisfied by
// *repositories.PriceRepository.
type PriceStore interface {
	CreateBatch(prices []models.Price) (int64, error)
	GetLatestPriceByTimeFrame(symbol, timeFrame string) (*models.Price, error)
}

type PriceRecorder struct {
	fetcher    *PriceFetcher
	priceRepo  PriceStore
	symbols    []string
	timeframes []string
	backfill   int
	now        func() time.Time
}

// NewPriceRecorder keeps stored series current. A series with nothing stored
// starts backfill bars in the past.
func NewPriceRecorder(fetcher *PriceFetcher, priceRepo PriceStore, symbols, timeframes []string, backfill int) *PriceRecorder {
	return &PriceRecorder{
		fetcher:    fetcher,
		priceRepo:  priceRepo,
		symbols:    symbols,
		timeframes: timeframes,
		backfill:   backfill,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (r *PriceRecorder) StartRecording(ctx context.Context) {
	for _, timeframe := range r.timeframes {
		interval := models.TimeFrameDuration(timeframe)
		if interval == 0 {
			log.Printf("Skipping unsupported timeframe %s", timeframe)
			continue
		}
		go r.recordTimeframe(ctx, timeframe, interval)
	}
}

func (r *PriceRecorder) recordTimeframe(ctx context.Context, timeframe string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("Starting %s price recording...", timeframe)
	r.recordPrices(ctx, timeframe)

	for {
		select {
		case <-ctx.Done():
			log.Printf("Stopping %s price recording...", timeframe)
			return
		case <-ticker.C:
			r.recordPrices(ctx, timeframe)
		}
	}
}

func (r *PriceRecorder) recordPrices(ctx context.Context, timeframe string) {
	for _, symbol := range r.symbols {
		n, err := r.Sync(ctx, symbol, timeframe)
		if err != nil {
			log.Printf("Error recording %s-%s: %v", symbol, timeframe, err)
			continue
		}
		if n > 0 {
			log.Printf("Recorded %d %s candles for %s", n, timeframe, symbol)
		}
	}
}

// Sync stores every closed bar after the newest stored one and returns how
// many rows were added. The still-forming bar is never stored.
func (r *PriceRecorder) Sync(ctx context.Context, symbol, timeframe string) (int64, error) {
	interval := models.TimeFrameDuration(timeframe)
	if interval == 0 {
		return 0, fmt.Errorf("unsupported timeframe %q", timeframe)
	}

	now := r.now()
	start := now.Add(-time.Duration(r.backfill) * interval)

	latest, err := r.priceRepo.GetLatestPriceByTimeFrame(symbol, timeframe)
	if err != nil {
		return 0, fmt.Errorf("latest stored price: %w", err)
	}
	if latest != nil {
		start = latest.OpenTime.Add(interval)
	}
	if !start.Before(now) {
		return 0, nil
	}

	prices, err := r.fetcher.FetchRange(ctx, symbol, timeframe, start, now)
	if err != nil {
		return 0, err
	}

	closed := prices[:0]
	for _, p := range prices {
		if p.CloseTime.Before(now) {
			closed = append(closed, p)
		}
	}
	return r.priceRepo.CreateBatch(closed)
}
