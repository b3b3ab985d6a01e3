package models

import (
	"time"
)

type Price struct {
	ID         uint      `gorm:"primaryKey"`
	Symbol     string    `gorm:"uniqueIndex:idx_price_series;not null"`
	TimeFrame  string    `gorm:"uniqueIndex:idx_price_series;not null"`
	OpenTime   time.Time `gorm:"uniqueIndex:idx_price_series;not null"`
	CloseTime  time.Time `gorm:"index"`
	Open       float64   `gorm:"type:decimal(20,8)"`
	Close      float64   `gorm:"type:decimal(20,8)"`
	High       float64   `gorm:"type:decimal(20,8)"`
	Low        float64   `gorm:"type:decimal(20,8)"`
	Volume     float64   `gorm:"type:decimal(20,8)"`
	TradeCount int64
}

const (
	PriceTimeFrame1m  = "1m"
	PriceTimeFrame5m  = "5m"
	PriceTimeFrame15m = "15m"
	PriceTimeFrame1h  = "1h"
	PriceTimeFrame4h  = "4h"
	PriceTimeFrame1d  = "1d"
)

// TableName sets the table name for Price model
func (Price) TableName() string {
	return "prices"
}

// Candle is one OHLCV bar as the backtest engine sees it. Timestamp is the
// bar open time in unix milliseconds.
type Candle struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// ToCandle converts a stored price row into an engine candle
func (p Price) ToCandle() Candle {
	return Candle{
		Timestamp: p.OpenTime.UnixMilli(),
		Open:      p.Open,
		High:      p.High,
		Low:       p.Low,
		Close:     p.Close,
		Volume:    p.Volume,
	}
}

// CandlesFromPrices converts price rows, keeping their order
func CandlesFromPrices(prices []Price) []Candle {
	candles := make([]Candle, len(prices))
	for i, p := range prices {
		candles[i] = p.ToCandle()
	}
	return candles
}

// TimeFrameDuration returns the bar length of a binance interval string,
// zero when the interval is unknown.
func TimeFrameDuration(timeFrame string) time.Duration {
	durations := map[string]time.Duration{
		PriceTimeFrame1m:  time.Minute,
		PriceTimeFrame5m:  5 * time.Minute,
		PriceTimeFrame15m: 15 * time.Minute,
		PriceTimeFrame1h:  time.Hour,
		PriceTimeFrame4h:  4 * time.Hour,
		PriceTimeFrame1d:  24 * time.Hour,
	}
	return durations[timeFrame]
}
