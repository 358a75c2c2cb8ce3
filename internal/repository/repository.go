package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"dexingest/internal/models"
)

// RecordOutcome reports what RecordEvent did with a fact.
type RecordOutcome struct {
	// Duplicate means the (tx_hash, log_index) fact already existed; the
	// snapshot was left untouched.
	Duplicate bool
}

type ListSnapshotsParams struct {
	Limit    int
	Offset   int
	MarketID *string
	Trader   *string
	Status   *string
	OrderBy  string
	Asc      *bool
}

type ListEventsParams struct {
	Limit     int
	Offset    int
	MarketID  *string
	EventType *string
	Trader    *string
	TxHash    *string
}

// Repository is the single write surface into order_events/order_snapshots.
// The webhook processor is the only writer; API handlers only read.
type Repository interface {
	// RecordEvent persists the fact exactly once and applies its snapshot
	// mutation in the same transaction. Redelivery of an already-recorded
	// (tx_hash, log_index) is a successful no-op.
	RecordEvent(ctx context.Context, ev *models.OrderEvent) (RecordOutcome, error)

	InsertRawDelivery(ctx context.Context, item *models.RawWebhookDelivery) error

	GetSnapshot(ctx context.Context, marketID string, orderID decimal.Decimal) (*models.OrderSnapshot, error)
	ListSnapshots(ctx context.Context, params ListSnapshotsParams) ([]models.OrderSnapshot, error)
	CountSnapshots(ctx context.Context, params ListSnapshotsParams) (int64, error)

	ListEvents(ctx context.Context, params ListEventsParams) ([]models.OrderEvent, error)
	ListEventsByOrder(ctx context.Context, marketID string, orderID decimal.Decimal) ([]models.OrderEvent, error)

	// ExpireDueOrders marks open snapshots whose expiry has passed as expired.
	ExpireDueOrders(ctx context.Context, now time.Time, limit int) (int64, error)
}
