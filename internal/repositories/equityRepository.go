package repositories

import (
	"CryptoBacktest/internal/models"
	"errors"
	"time"

	"gorm.io/gorm"
)

type EquityRepository struct {
	db *gorm.DB
}

// NewEquityRepository creates a new instance of EquityRepository
func NewEquityRepository(db *gorm.DB) *EquityRepository {
	return &EquityRepository{db: db}
}

// FindByRunID retrieves the equity curve of a run
func (r *EquityRepository) FindByRunID(runID string) ([]models.EquitySnapshot, error) {
	if runID == "" {
		return nil, errors.New("invalid run id")
	}
	var points []models.EquitySnapshot
	err := r.db.Where("run_id = ?", runID).Order("timestamp ASC").Find(&points).Error
	return points, err
}

// GetEquityByTimeRange retrieves the part of a run's curve within a time range
func (r *EquityRepository) GetEquityByTimeRange(runID string, start, end time.Time) ([]models.EquitySnapshot, error) {
	var points []models.EquitySnapshot
	err := r.db.Where("run_id = ? AND timestamp BETWEEN ? AND ?", runID, start, end).
		Order("timestamp ASC").
		Find(&points).Error
	return points, err
}

// GetMaxDrawdown returns the deepest drawdown recorded on a run's curve
func (r *EquityRepository) GetMaxDrawdown(runID string) (float64, error) {
	var mdd float64
	err := r.db.Model(&models.EquitySnapshot{}).
		Where("run_id = ?", runID).
		Select("COALESCE(MAX(drawdown), 0)").
		Scan(&mdd).Error
	return mdd, err
}
