package gormrepository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dexingest/internal/models"
	"dexingest/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

var snapshotPK = []clause.Column{{Name: "market_id"}, {Name: "order_id"}}

// RecordEvent inserts the fact row and applies the snapshot mutation in one
// transaction. The insert uses ON CONFLICT DO NOTHING on the dedup key, so a
// redelivered log is detected by RowsAffected == 0 and applies nothing.
func (s *Store) RecordEvent(ctx context.Context, ev *models.OrderEvent) (repository.RecordOutcome, error) {
	var out repository.RecordOutcome
	if s == nil || s.db == nil || ev == nil {
		return out, nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tx_hash"}, {Name: "log_index"}},
			DoNothing: true,
		}).Create(ev)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			out.Duplicate = true
			return nil
		}
		return applySnapshot(tx, ev)
	})
	return out, err
}

func applySnapshot(tx *gorm.DB, ev *models.OrderEvent) error {
	switch ev.EventType {
	case models.EventTypePlaced:
		return applyPlaced(tx, ev)
	case models.EventTypeCancelled:
		return applyCancelled(tx, ev)
	case models.EventTypeExecuted, models.EventTypeMatched:
		return applyFill(tx, ev)
	default:
		return fmt.Errorf("unsupported event type %q", ev.EventType)
	}
}

func applyPlaced(tx *gorm.DB, ev *models.OrderEvent) error {
	occurred := ev.OccurredAt
	snap := &models.OrderSnapshot{
		MarketID:       ev.MarketID,
		OrderID:        ev.OrderID,
		Trader:         ev.Trader,
		Side:           ev.Side,
		OrderType:      ev.OrderType,
		Quantity:       ev.Quantity,
		Price:          ev.Price,
		FilledQuantity: decimal.Zero,
		Status:         models.StatusPending,
		PlacedAt:       &occurred,
		ExpiresAt:      ev.ExpiresAt,
		LastUpdateAt:   occurred,
	}
	res := tx.Clauses(clause.OnConflict{
		Columns:   snapshotPK,
		DoNothing: true,
	}).Create(snap)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	// A fill for this order arrived first and created the row. Backfill the
	// descriptive fields it could not know and settle the status now that the
	// total quantity is known; never touch filled_quantity.
	return tx.Model(&models.OrderSnapshot{}).
		Where("market_id = ? AND order_id = ? AND trader = ''", ev.MarketID, ev.OrderID).
		Updates(map[string]interface{}{
			"trader":     ev.Trader,
			"side":       ev.Side,
			"order_type": ev.OrderType,
			"quantity":   ev.Quantity,
			"price":      ev.Price,
			"placed_at":  occurred,
			"expires_at": ev.ExpiresAt,
			"status": gorm.Expr(
				"CASE WHEN ? > 0 AND filled_quantity >= ? THEN ? ELSE status END",
				ev.Quantity, ev.Quantity, models.StatusFilled,
			),
		}).Error
}

func applyCancelled(tx *gorm.DB, ev *models.OrderEvent) error {
	snap := &models.OrderSnapshot{
		MarketID:       ev.MarketID,
		OrderID:        ev.OrderID,
		Trader:         ev.Trader,
		FilledQuantity: decimal.Zero,
		Status:         models.StatusCancelled,
		LastUpdateAt:   ev.OccurredAt,
	}
	return tx.Clauses(clause.OnConflict{
		Columns: snapshotPK,
		DoUpdates: clause.Assignments(map[string]interface{}{
			"status":         models.StatusCancelled,
			"last_update_at": ev.OccurredAt,
		}),
	}).Create(snap).Error
}

// applyFill accumulates filled_quantity instead of assigning it, so two
// fills for the same order converge to the same total in either arrival
// order. The trader column is left empty on rows a fill creates: the fill
// log names the taker, not the order's owner, and the Placed backfill keys
// on the empty trader.
func applyFill(tx *gorm.DB, ev *models.OrderEvent) error {
	snap := &models.OrderSnapshot{
		MarketID:       ev.MarketID,
		OrderID:        ev.OrderID,
		FilledQuantity: ev.Quantity,
		Status:         models.StatusPartiallyFilled,
		LastUpdateAt:   ev.OccurredAt,
	}
	return tx.Clauses(clause.OnConflict{
		Columns: snapshotPK,
		DoUpdates: clause.Assignments(map[string]interface{}{
			"filled_quantity": gorm.Expr("order_snapshots.filled_quantity + excluded.filled_quantity"),
			"status": gorm.Expr(
				"CASE WHEN order_snapshots.quantity > 0 AND order_snapshots.filled_quantity + excluded.filled_quantity >= order_snapshots.quantity THEN ? ELSE ? END",
				models.StatusFilled, models.StatusPartiallyFilled,
			),
			"last_update_at": gorm.Expr("GREATEST(order_snapshots.last_update_at, excluded.last_update_at)"),
		}),
	}).Create(snap).Error
}

func (s *Store) InsertRawDelivery(ctx context.Context, item *models.RawWebhookDelivery) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetSnapshot(ctx context.Context, marketID string, orderID decimal.Decimal) (*models.OrderSnapshot, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.OrderSnapshot
	err := s.db.WithContext(ctx).
		Where("market_id = ? AND order_id = ?", marketID, orderID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListSnapshots(ctx context.Context, params repository.ListSnapshotsParams) ([]models.OrderSnapshot, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := snapshotQuery(s.db.WithContext(ctx), params)

	orderBy := strings.TrimSpace(params.OrderBy)
	switch orderBy {
	case "", "last_update_at", "placed_at", "order_id":
		if orderBy == "" {
			orderBy = "last_update_at"
		}
	default:
		orderBy = "last_update_at"
	}
	dir := "DESC"
	if params.Asc != nil && *params.Asc {
		dir = "ASC"
	}
	query = query.Order(orderBy + " " + dir)

	if params.Limit > 0 {
		query = query.Limit(params.Limit)
	}
	if params.Offset > 0 {
		query = query.Offset(params.Offset)
	}

	var items []models.OrderSnapshot
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountSnapshots(ctx context.Context, params repository.ListSnapshotsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	err := snapshotQuery(s.db.WithContext(ctx), params).Count(&count).Error
	return count, err
}

func snapshotQuery(db *gorm.DB, params repository.ListSnapshotsParams) *gorm.DB {
	query := db.Model(&models.OrderSnapshot{})
	if params.MarketID != nil && strings.TrimSpace(*params.MarketID) != "" {
		query = query.Where("market_id = ?", strings.TrimSpace(*params.MarketID))
	}
	if params.Trader != nil && strings.TrimSpace(*params.Trader) != "" {
		query = query.Where("trader = ?", strings.ToLower(strings.TrimSpace(*params.Trader)))
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	return query
}

func (s *Store) ListEvents(ctx context.Context, params repository.ListEventsParams) ([]models.OrderEvent, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.OrderEvent{})
	if params.MarketID != nil && strings.TrimSpace(*params.MarketID) != "" {
		query = query.Where("market_id = ?", strings.TrimSpace(*params.MarketID))
	}
	if params.EventType != nil && strings.TrimSpace(*params.EventType) != "" {
		query = query.Where("event_type = ?", strings.TrimSpace(*params.EventType))
	}
	if params.Trader != nil && strings.TrimSpace(*params.Trader) != "" {
		query = query.Where("trader = ?", strings.ToLower(strings.TrimSpace(*params.Trader)))
	}
	if params.TxHash != nil && strings.TrimSpace(*params.TxHash) != "" {
		query = query.Where("tx_hash = ?", strings.ToLower(strings.TrimSpace(*params.TxHash)))
	}
	query = query.Order("block_number DESC, log_index DESC")
	if params.Limit > 0 {
		query = query.Limit(params.Limit)
	}
	if params.Offset > 0 {
		query = query.Offset(params.Offset)
	}
	var items []models.OrderEvent
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListEventsByOrder(ctx context.Context, marketID string, orderID decimal.Decimal) ([]models.OrderEvent, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.OrderEvent
	err := s.db.WithContext(ctx).
		Where("market_id = ? AND order_id = ?", marketID, orderID).
		Order("block_number ASC, log_index ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ExpireDueOrders(ctx context.Context, now time.Time, limit int) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	if limit <= 0 {
		limit = 500
	}
	res := s.db.WithContext(ctx).Exec(`
		UPDATE order_snapshots SET status = ?, last_update_at = ?
		WHERE (market_id, order_id) IN (
			SELECT market_id, order_id FROM order_snapshots
			WHERE status IN (?, ?) AND expires_at IS NOT NULL AND expires_at <= ?
			LIMIT ?
		)`,
		models.StatusExpired, now,
		models.StatusPending, models.StatusPartiallyFilled, now, limit,
	)
	return res.RowsAffected, res.Error
}
