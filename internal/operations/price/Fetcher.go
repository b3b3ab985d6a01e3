package price

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"CryptoBacktest/internal/models"
	"CryptoBacktest/internal/operations/binance"
)

// KlineSource is the exchange side of the fetcher, satisfied by
// *binance.BinanceClient.
type KlineSource interface {
	GetKlines(ctx context.Context, market, symbol, interval string, startTime, endTime int64, limit int) ([]models.Price, error)
}

type PriceFetcher struct {
	source  KlineSource
	market  string
	symbols []string
	pause   time.Duration
}

func NewPriceFetcher(source KlineSource, market string, symbols []string) *PriceFetcher {
	if market == "" {
		market = binance.MarketFutures
	}
	return &PriceFetcher{
		source:  source,
		market:  market,
		symbols: symbols,
		pause:   100 * time.Millisecond,
	}
}

// FetchRange pages [start, end] for one series in windows of
// MaxKlinesPerRequest bars. Windows never overlap so every bar appears once.
func (f *PriceFetcher) FetchRange(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]models.Price, error) {
	interval := models.TimeFrameDuration(timeframe)
	if interval == 0 {
		return nil, fmt.Errorf("unsupported timeframe %q", timeframe)
	}
	if symbol == "" {
		return nil, errors.New("symbol cannot be empty")
	}

	chunkDuration := interval * binance.MaxKlinesPerRequest
	var allPrices []models.Price

	for currentStart := start; !currentStart.After(end); currentStart = currentStart.Add(chunkDuration) {
		currentEnd := currentStart.Add(chunkDuration - time.Millisecond)
		if currentEnd.After(end) {
			currentEnd = end
		}

		prices, err := f.source.GetKlines(ctx, f.market, symbol, timeframe,
			currentStart.UnixMilli(), currentEnd.UnixMilli(), binance.MaxKlinesPerRequest)
		if err != nil {
			return allPrices, fmt.Errorf("fetch %s %s: %w", symbol, timeframe, err)
		}
		allPrices = append(allPrices, prices...)

		log.Printf("Fetched %d %s candles for %s from %s to %s",
			len(prices),
			timeframe,
			symbol,
			currentStart.Format("2006-01-02 15:04:05"),
			currentEnd.Format("2006-01-02 15:04:05"))

		if f.pause > 0 {
			select {
			case <-ctx.Done():
				return allPrices, ctx.Err()
			case <-time.After(f.pause):
			}
		}
	}

	return allPrices, nil
}

// FetchPrices fetches the last days of every configured symbol. A symbol
// that fails is logged and skipped.
func (f *PriceFetcher) FetchPrices(ctx context.Context, timeframe string, days int) ([]models.Price, error) {
	endTime := time.Now().UTC()
	startTime := endTime.AddDate(0, 0, -days)
	var allPrices []models.Price

	for _, symbol := range f.symbols {
		prices, err := f.FetchRange(ctx, symbol, timeframe, startTime, endTime)
		if err != nil {
			if ctx.Err() != nil {
				return allPrices, ctx.Err()
			}
			log.Printf("Error fetching prices for %s: %v", symbol, err)
			continue
		}
		allPrices = append(allPrices, prices...)
	}

	return allPrices, nil
}
