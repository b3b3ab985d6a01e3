package models

import (
	"time"
)

// BacktestRun is the persisted summary of one backtest report. Trades and
// the equity curve hang off it by RunID.
type BacktestRun struct {
	ID         uint   `gorm:"primaryKey"`
	RunID      string `gorm:"uniqueIndex;size:36;not null"`
	Strategy   string `gorm:"index;not null"`
	Symbol     string `gorm:"index;not null"`
	TimeFrame  string `gorm:"not null"`
	MarketType string `gorm:"not null"`

	InitialBalance float64 `gorm:"type:decimal(20,8);not null"`
	FinalBalance   float64 `gorm:"type:decimal(20,8);not null"`
	ROI            float64 `gorm:"type:decimal(20,8)"`
	MDD            float64 `gorm:"type:decimal(20,8)"`
	WinRate        float64 `gorm:"type:decimal(20,8)"`

	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	LongTrades    int
	ShortTrades   int

	MaxProfit   float64 `gorm:"type:decimal(20,8)"`
	MaxLoss     float64 `gorm:"type:decimal(20,8)"`
	AvgProfit   float64 `gorm:"type:decimal(20,8)"`
	AvgLoss     float64 `gorm:"type:decimal(20,8)"`
	AvgDuration float64 `gorm:"type:decimal(20,8)"`
	MaxDuration int
	TotalFee    float64 `gorm:"type:decimal(20,8)"`

	SharpeRatio  float64 `gorm:"type:decimal(20,8)"`
	ProfitFactor float64 `gorm:"type:decimal(20,8)"`
	Expectancy   float64 `gorm:"type:decimal(20,8)"`

	// Settings is the JSON encoded settings the run was started with
	Settings string `gorm:"type:text"`

	StartTime time.Time `gorm:"index"`
	EndTime   time.Time
	CreatedAt time.Time `gorm:"autoCreateTime"`

	Trades      []TradeRecord    `gorm:"foreignKey:RunID;references:RunID"`
	EquityCurve []EquitySnapshot `gorm:"foreignKey:RunID;references:RunID"`
}
