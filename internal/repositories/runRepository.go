package repositories

import (
	"CryptoBacktest/internal/models"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const recordBatchSize = 500

type RunRepository struct {
	db *gorm.DB
}

// NewRunRepository creates a new instance of RunRepository
func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Save stores a run together with its trades and equity curve. Either all
// rows land or none do.
func (r *RunRepository) Save(run *models.BacktestRun) error {
	if run == nil {
		return errors.New("run cannot be nil")
	}
	if run.RunID == "" {
		return errors.New("run id cannot be empty")
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(run).Error; err != nil {
			return fmt.Errorf("create run %s: %w", run.RunID, err)
		}

		if len(run.Trades) > 0 {
			for i := range run.Trades {
				run.Trades[i].RunID = run.RunID
			}
			if err := tx.CreateInBatches(&run.Trades, recordBatchSize).Error; err != nil {
				return fmt.Errorf("create trades for %s: %w", run.RunID, err)
			}
		}

		if len(run.EquityCurve) > 0 {
			for i := range run.EquityCurve {
				run.EquityCurve[i].RunID = run.RunID
			}
			if err := tx.CreateInBatches(&run.EquityCurve, recordBatchSize).Error; err != nil {
				return fmt.Errorf("create equity curve for %s: %w", run.RunID, err)
			}
		}
		return nil
	})
}

// FindByRunID loads a run with its trades and equity curve in order
func (r *RunRepository) FindByRunID(runID string) (*models.BacktestRun, error) {
	if runID == "" {
		return nil, errors.New("invalid run id")
	}

	var run models.BacktestRun
	err := r.db.
		Preload("Trades", func(db *gorm.DB) *gorm.DB {
			return db.Order("seq ASC")
		}).
		Preload("EquityCurve", func(db *gorm.DB) *gorm.DB {
			return db.Order("timestamp ASC")
		}).
		Where("run_id = ?", runID).
		First(&run).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	return &run, err
}

// Exists reports whether a run is stored without loading its children
func (r *RunRepository) Exists(runID string) (bool, error) {
	if runID == "" {
		return false, nil
	}
	var count int64
	err := r.db.Model(&models.BacktestRun{}).Where("run_id = ?", runID).Count(&count).Error
	return count > 0, err
}

// ListRecent returns run summaries newest first without trades or equity.
// Empty filters match everything.
func (r *RunRepository) ListRecent(limit int, strategy, symbol string) ([]models.BacktestRun, error) {
	if limit <= 0 {
		limit = 50
	}

	query := r.db.Model(&models.BacktestRun{})
	if strategy != "" {
		query = query.Where("strategy = ?", strategy)
	}
	if symbol != "" {
		query = query.Where("symbol = ?", symbol)
	}

	var runs []models.BacktestRun
	err := query.Order("id DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}

// Delete removes a run and everything attached to it. It reports whether the
// run existed.
func (r *RunRepository) Delete(runID string) (bool, error) {
	if runID == "" {
		return false, errors.New("invalid run id")
	}

	var deleted int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", runID).Delete(&models.TradeRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("run_id = ?", runID).Delete(&models.EquitySnapshot{}).Error; err != nil {
			return err
		}
		result := tx.Where("run_id = ?", runID).Delete(&models.BacktestRun{})
		deleted = result.RowsAffected
		return result.Error
	})
	return deleted > 0, err
}
