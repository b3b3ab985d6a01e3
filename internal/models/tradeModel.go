package models

import "time"

// TradeRecord is one closed position of a backtest run
type TradeRecord struct {
	ID     uint   `gorm:"primaryKey"`
	RunID  string `gorm:"index;size:36;not null"`
	Seq    int    `gorm:"not null"`
	Side   string `gorm:"not null"`
	Symbol string `gorm:"index;not null"`

	EntryTime  time.Time `gorm:"not null"`
	EntryPrice float64   `gorm:"type:decimal(20,8);not null"`
	ExitTime   time.Time `gorm:"not null"`
	ExitPrice  float64   `gorm:"type:decimal(20,8);not null"`

	PnL      float64 `gorm:"column:pnl;type:decimal(20,8)"`
	Fee      float64 `gorm:"type:decimal(20,8)"`
	CoinSize float64 `gorm:"type:decimal(28,12)"`
	UsdtSize float64 `gorm:"type:decimal(20,8)"`
	Duration int
	Balance  float64 `gorm:"type:decimal(20,8)"`

	OrderType string `gorm:"not null"`
}

const (
	PositionSideLong  = "LONG"
	PositionSideShort = "SHORT"
)
