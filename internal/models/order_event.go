package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types carried by order_events rows.
const (
	EventTypePlaced    = "placed"
	EventTypeCancelled = "cancelled"
	EventTypeExecuted  = "executed"
	EventTypeMatched   = "matched"
)

const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// OrderEvent is one decoded order-book log, append-only.
// (tx_hash, log_index) is the dedup key: at-least-once webhook delivery must
// never produce two rows for the same emitted log.
type OrderEvent struct {
	ID       uint64          `gorm:"primaryKey;autoIncrement"`
	MarketID string          `gorm:"type:varchar(66);not null;index:idx_order_events_order,priority:1"`
	OrderID  decimal.Decimal `gorm:"type:numeric(78,0);not null;index:idx_order_events_order,priority:2"`

	EventType string  `gorm:"type:varchar(20);not null;index"`
	Trader    string  `gorm:"type:varchar(42);not null;index"`
	// Counterparty is the opposite side's address for matched events.
	Counterparty *string `gorm:"type:varchar(42)"`
	Side         string  `gorm:"type:varchar(4)"`
	OrderType    string  `gorm:"type:varchar(10)"`

	// Chain-native integer units, never floats.
	Quantity decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	Price    decimal.Decimal `gorm:"type:numeric(78,0);not null"`

	TxHash      string `gorm:"type:varchar(66);not null;uniqueIndex:idx_order_events_dedup,priority:1"`
	LogIndex    uint   `gorm:"not null;uniqueIndex:idx_order_events_dedup,priority:2"`
	BlockNumber uint64 `gorm:"not null;index"`

	ExpiresAt  *time.Time `gorm:"type:timestamptz"`
	OccurredAt time.Time  `gorm:"type:timestamptz;not null"`
	CreatedAt  time.Time  `gorm:"type:timestamptz;autoCreateTime"`
}

func (OrderEvent) TableName() string {
	return "order_events"
}
