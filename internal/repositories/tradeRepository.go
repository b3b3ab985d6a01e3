package repositories

import (
	"CryptoBacktest/internal/models"
	"errors"
	"time"

	"gorm.io/gorm"
)

type TradeRepository struct {
	db *gorm.DB
}

// NewTradeRepository creates a new instance of TradeRepository
func NewTradeRepository(db *gorm.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// FindByRunID retrieves the trades of a run in the order they closed
func (r *TradeRepository) FindByRunID(runID string) ([]models.TradeRecord, error) {
	if runID == "" {
		return nil, errors.New("invalid run id")
	}
	var trades []models.TradeRecord
	err := r.db.Where("run_id = ?", runID).Order("seq ASC").Find(&trades).Error
	return trades, err
}

// FindBySide retrieves the LONG or SHORT trades of a run
func (r *TradeRepository) FindBySide(runID, side string) ([]models.TradeRecord, error) {
	if side != models.PositionSideLong && side != models.PositionSideShort {
		return nil, errors.New("invalid side")
	}
	var trades []models.TradeRecord
	err := r.db.Where("run_id = ? AND side = ?", runID, side).Order("seq ASC").Find(&trades).Error
	return trades, err
}

// GetTradesByTimeRange retrieves trades of a run that closed within a time range
func (r *TradeRepository) GetTradesByTimeRange(runID string, start, end time.Time) ([]models.TradeRecord, error) {
	var trades []models.TradeRecord
	err := r.db.Where("run_id = ? AND exit_time BETWEEN ? AND ?", runID, start, end).
		Order("seq ASC").
		Find(&trades).Error
	return trades, err
}

// GetTotalPnL sums the net pnl of every trade in a run
func (r *TradeRepository) GetTotalPnL(runID string) (float64, error) {
	var totalPnL float64
	err := r.db.Model(&models.TradeRecord{}).
		Where("run_id = ?", runID).
		Select("COALESCE(SUM(pnl), 0)").
		Scan(&totalPnL).Error
	return totalPnL, err
}
