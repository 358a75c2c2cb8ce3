package db

import (
	"dexingest/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.OrderEvent{},
		&models.OrderSnapshot{},
		&models.RawWebhookDelivery{},
	)
}
