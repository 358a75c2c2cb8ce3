package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot statuses. Terminal rows are kept for audit, never deleted.
const (
	StatusPending         = "pending"
	StatusPartiallyFilled = "partially_filled"
	StatusFilled          = "filled"
	StatusCancelled       = "cancelled"
	StatusExpired         = "expired"
	StatusRejected        = "rejected"
)

// OrderSnapshot is the derived current state of one order, keyed by
// (market_id, order_id). FilledQuantity is accumulated so that reordered or
// replayed fills converge to the same value.
type OrderSnapshot struct {
	MarketID string          `gorm:"primaryKey;type:varchar(66)"`
	OrderID  decimal.Decimal `gorm:"primaryKey;type:numeric(78,0)"`

	Trader    string `gorm:"type:varchar(42);index"`
	Side      string `gorm:"type:varchar(4)"`
	OrderType string `gorm:"type:varchar(10)"`

	Quantity       decimal.Decimal `gorm:"type:numeric(78,0);not null;default:0"`
	Price          decimal.Decimal `gorm:"type:numeric(78,0);not null;default:0"`
	FilledQuantity decimal.Decimal `gorm:"type:numeric(78,0);not null;default:0"`

	Status string `gorm:"type:varchar(20);not null;default:'pending';index"`

	PlacedAt     *time.Time `gorm:"type:timestamptz"`
	ExpiresAt    *time.Time `gorm:"type:timestamptz;index"`
	LastUpdateAt time.Time  `gorm:"type:timestamptz;not null"`
}

func (OrderSnapshot) TableName() string {
	return "order_snapshots"
}
