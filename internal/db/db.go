package db

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"device-lending-backend/config"
	"device-lending-backend/internal/model"
)

// Init initializes the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	log.Println("Running database migrations...")
	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Println("Database initialization complete.")
	return db, nil
}

// Migrate creates the schema plus the partial indexes that back the
// lending uniqueness rules.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Category{},
		&model.Visitor{},
		&model.Resource{},
		&model.Record{},
		&model.PushSubscription{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}

	// At most one active take record per resource. The engine checks
	// inside the transaction as well; this index is the backstop that
	// keeps the check race-free regardless of isolation level.
	if err := db.Exec(`
	  CREATE UNIQUE INDEX IF NOT EXISTS records_one_take_per_resource
	  ON records (resource_id)
	  WHERE take_date IS NOT NULL AND NOT finished;
	`).Error; err != nil {
		return fmt.Errorf("failed to create take uniqueness index: %w", err)
	}

	// One queue entry per (resource, visitor) pair.
	if err := db.Exec(`
	  CREATE UNIQUE INDEX IF NOT EXISTS records_one_queue_per_visitor
	  ON records (resource_id, user_email)
	  WHERE enqueue_date IS NOT NULL AND NOT finished;
	`).Error; err != nil {
		return fmt.Errorf("failed to create queue uniqueness index: %w", err)
	}

	// FIFO promotion scans the queue oldest-first.
	if err := db.Exec(`
	  CREATE INDEX IF NOT EXISTS records_queue_order
	  ON records (resource_id, enqueue_date)
	  WHERE enqueue_date IS NOT NULL AND NOT finished;
	`).Error; err != nil {
		return fmt.Errorf("failed to create queue order index: %w", err)
	}

	return nil
}
