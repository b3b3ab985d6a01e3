package binance

import (
	"context"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"CryptoBacktest/internal/models"

	gobinance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"
	"golang.org/x/time/rate"
)

const (
	MarketFutures = "futures"
	MarketSpot    = "spot"

	// MaxKlinesPerRequest is the page size both markets accept
	MaxKlinesPerRequest = 500
)

type BinanceClient struct {
	futures     *futures.Client
	spot        *gobinance.Client
	rateLimiter *rate.Limiter
	httpClient  *http.Client
	maxRetries  int
	backoff     time.Duration
}

func NewBinanceClient(apiKey, secretKey string) *BinanceClient {
	// Create custom HTTP client with timeouts
	httpClient := &http.Client{
		Timeout: time.Second * 10,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	futuresClient := futures.NewClient(apiKey, secretKey)
	futuresClient.HTTPClient = httpClient

	spotClient := gobinance.NewClient(apiKey, secretKey)
	spotClient.HTTPClient = httpClient

	// Create rate limiter: 10 requests per second with burst of 20
	limiter := rate.NewLimiter(rate.Limit(10), 20)

	return &BinanceClient{
		futures:     futuresClient,
		spot:        spotClient,
		rateLimiter: limiter,
		httpClient:  httpClient,
		maxRetries:  3,
		backoff:     100 * time.Millisecond,
	}
}

// GetKlines fetches up to limit bars of symbol opening within [startTime,
// endTime] (unix ms) and converts them to price rows. Failed calls are
// retried with exponential backoff.
func (c *BinanceClient) GetKlines(ctx context.Context, market, symbol, interval string, startTime, endTime int64, limit int) ([]models.Price, error) {
	if market != MarketFutures && market != MarketSpot {
		return nil, fmt.Errorf("unknown market type %q", market)
	}
	if limit <= 0 || limit > MaxKlinesPerRequest {
		limit = MaxKlinesPerRequest
	}

	for attempt := 0; ; attempt++ {
		// Wait for rate limiter
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}

		prices, err := c.fetch(ctx, market, symbol, interval, startTime, endTime, limit)
		if err == nil {
			return prices, nil
		}

		if attempt == c.maxRetries {
			return nil, fmt.Errorf("klines %s %s after %d attempts: %w", symbol, interval, attempt+1, err)
		}

		waitTime := time.Duration(math.Pow(2, float64(attempt))) * c.backoff
		log.Printf("Kline request for %s %s failed (%v), retrying in %s", symbol, interval, err, waitTime)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(waitTime):
		}
	}
}

func (c *BinanceClient) fetch(ctx context.Context, market, symbol, interval string, startTime, endTime int64, limit int) ([]models.Price, error) {
	if market == MarketSpot {
		klines, err := c.spot.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			StartTime(startTime).
			EndTime(endTime).
			Limit(limit).
			Do(ctx)
		if err != nil {
			return nil, err
		}
		prices := make([]models.Price, len(klines))
		for i, k := range klines {
			prices[i] = toPrice(symbol, interval, k.OpenTime, k.CloseTime, k.Open, k.High, k.Low, k.Close, k.Volume, k.TradeNum)
		}
		return prices, nil
	}

	klines, err := c.futures.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		StartTime(startTime).
		EndTime(endTime).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	prices := make([]models.Price, len(klines))
	for i, k := range klines {
		prices[i] = toPrice(symbol, interval, k.OpenTime, k.CloseTime, k.Open, k.High, k.Low, k.Close, k.Volume, k.TradeNum)
	}
	return prices, nil
}

func toPrice(symbol, interval string, openTime, closeTime int64, open, high, low, closePrice, volume string, trades int64) models.Price {
	return models.Price{
		Symbol:     symbol,
		TimeFrame:  interval,
		OpenTime:   time.UnixMilli(openTime).UTC(),
		CloseTime:  time.UnixMilli(closeTime).UTC(),
		Open:       parseFloat(open),
		High:       parseFloat(high),
		Low:        parseFloat(low),
		Close:      parseFloat(closePrice),
		Volume:     parseFloat(volume),
		TradeCount: trades,
	}
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		log.Printf("Error parsing float: %v", err)
		return 0
	}
	return f
}
