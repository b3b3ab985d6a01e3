package handlers

import (
	"context"
	"fmt"
	"log"
	"time"

	"CryptoBacktest/internal/models"
	"CryptoBacktest/internal/operations/binance"
	"CryptoBacktest/internal/operations/price"
	"CryptoBacktest/internal/repositories"
)

type PriceHandler struct {
	priceRepo     *repositories.PriceRepository
	candleFiles   *repositories.CandleFileRepository
	priceRecorder *price.PriceRecorder
	priceFetcher  *price.PriceFetcher
	symbols       []string
	timeframes    []string
}

func NewPriceHandler(source price.KlineSource, priceRepo *repositories.PriceRepository, market string, symbols, timeframes []string) *PriceHandler {
	fetcher := price.NewPriceFetcher(source, market, symbols)
	return &PriceHandler{
		priceRepo:     priceRepo,
		priceFetcher:  fetcher,
		priceRecorder: price.NewPriceRecorder(fetcher, priceRepo, symbols, timeframes, binance.MaxKlinesPerRequest),
		symbols:       symbols,
		timeframes:    timeframes,
	}
}

// WithCandleFiles mirrors every import into parquet candle files
func (h *PriceHandler) WithCandleFiles(files *repositories.CandleFileRepository) *PriceHandler {
	h.candleFiles = files
	return h
}

// Start loads days of history for every configured series, then keeps
// them current in the background until ctx is done.
func (h *PriceHandler) Start(ctx context.Context, days int) error {
	for _, timeframe := range h.timeframes {
		log.Printf("Fetching %s historical data for %d days", timeframe, days)

		for _, symbol := range h.symbols {
			if _, err := h.Import(ctx, symbol, timeframe, days); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Printf("Error importing %s %s: %v", symbol, timeframe, err)
			}
		}
	}

	h.priceRecorder.StartRecording(ctx)
	return nil
}

// Import fetches the last days of one series and stores the bars that are
// not stored yet. It returns how many rows were added.
func (h *PriceHandler) Import(ctx context.Context, symbol, timeframe string, days int) (int64, error) {
	if days <= 0 {
		return 0, fmt.Errorf("%w: days must be positive", ErrInvalidRequest)
	}
	if models.TimeFrameDuration(timeframe) == 0 {
		return 0, fmt.Errorf("%w: unsupported timeframe %q", ErrInvalidRequest, timeframe)
	}

	end := time.Now().UTC()
	prices, err := h.priceFetcher.FetchRange(ctx, symbol, timeframe, end.AddDate(0, 0, -days), end)
	if err != nil {
		return 0, err
	}

	// the forming bar would never be corrected once stored
	closed := prices[:0]
	for _, p := range prices {
		if p.CloseTime.Before(end) {
			closed = append(closed, p)
		}
	}
	prices = closed

	inserted, err := h.priceRepo.CreateBatch(prices)
	if err != nil {
		return 0, fmt.Errorf("store %s %s: %w", symbol, timeframe, err)
	}

	if h.candleFiles != nil {
		if err := h.candleFiles.Save(symbol, timeframe, models.CandlesFromPrices(prices)); err != nil {
			log.Printf("Error writing candle file for %s %s: %v", symbol, timeframe, err)
		}
	}

	log.Printf("Imported %d new %s candles for %s", inserted, timeframe, symbol)
	return inserted, nil
}
