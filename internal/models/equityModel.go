package models

import (
	"time"
)

// EquitySnapshot is one point of a run's equity curve
type EquitySnapshot struct {
	ID        uint      `gorm:"primaryKey"`
	RunID     string    `gorm:"index;size:36;not null"`
	Timestamp time.Time `gorm:"not null"`
	Balance   float64   `gorm:"type:decimal(20,8);not null"`
	Equity    float64   `gorm:"type:decimal(20,8);not null"`
	Drawdown  float64   `gorm:"type:decimal(10,4)"`
}
