package repositories

import (
	"CryptoBacktest/internal/models"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const priceBatchSize = 500

type PriceRepository struct {
	db *gorm.DB
}

// NewPriceRepository creates a new instance of PriceRepository
func NewPriceRepository(db *gorm.DB) *PriceRepository {
	return &PriceRepository{db: db}
}

// CreateBatch inserts prices in chunks, skipping bars already stored for the
// same symbol, timeframe and open time. It returns the number of new rows.
func (r *PriceRepository) CreateBatch(prices []models.Price) (int64, error) {
	if len(prices) == 0 {
		return 0, nil
	}
	result := r.db.Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&prices, priceBatchSize)
	return result.RowsAffected, result.Error
}

// GetPricesByTimeFrame gets price data for a specific symbol and timeframe
func (r *PriceRepository) GetPricesByTimeFrame(symbol string, timeFrame string, start, end time.Time) ([]models.Price, error) {
	if symbol == "" || timeFrame == "" {
		return nil, errors.New("invalid symbol or timeframe")
	}

	var prices []models.Price
	err := r.db.Where("symbol = ? AND time_frame = ? AND open_time BETWEEN ? AND ?",
		symbol, timeFrame, start, end).
		Order("open_time ASC").
		Find(&prices).Error

	log.Printf("Got %d prices for %s %s from %s to %s",
		len(prices),
		symbol,
		timeFrame,
		start.Format("2006-01-02 15:04:05"),
		end.Format("2006-01-02 15:04:05"))

	return prices, err
}

// GetRecentCandles returns the newest limit bars for a series in ascending
// time order, ready for the backtest engine.
func (r *PriceRepository) GetRecentCandles(symbol, timeFrame string, limit int) ([]models.Candle, error) {
	if symbol == "" || timeFrame == "" {
		return nil, errors.New("invalid symbol or timeframe")
	}
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}

	var prices []models.Price
	err := r.db.Where("symbol = ? AND time_frame = ?", symbol, timeFrame).
		Order("open_time DESC").
		Limit(limit).
		Find(&prices).Error
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(prices)-1; i < j; i, j = i+1, j-1 {
		prices[i], prices[j] = prices[j], prices[i]
	}
	return models.CandlesFromPrices(prices), nil
}

// GetLatestPriceByTimeFrame gets the most recent price for a symbol and timeframe
func (r *PriceRepository) GetLatestPriceByTimeFrame(symbol, timeFrame string) (*models.Price, error) {
	if symbol == "" || timeFrame == "" {
		return nil, errors.New("invalid symbol or timeframe")
	}

	var price models.Price
	err := r.db.Where("symbol = ? AND time_frame = ?", symbol, timeFrame).
		Order("open_time DESC").
		First(&price).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	return &price, err
}

// CountByTimeFrame counts stored bars for a series
func (r *PriceRepository) CountByTimeFrame(symbol, timeFrame string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Price{}).
		Where("symbol = ? AND time_frame = ?", symbol, timeFrame).
		Count(&count).Error
	return count, err
}
