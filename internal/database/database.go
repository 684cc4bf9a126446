package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/atelier-dz/cnc-marketplace-api/internal/config"
	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewDatabase creates a new database connection
func NewDatabase(cfg *config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.ConnectionString()), GormConfig(log))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// GormConfig is the gorm configuration shared by the API and the tests.
// TranslateError lets repositories detect unique violations as gorm.ErrDuplicatedKey.
func GormConfig(log *zap.Logger) *gorm.Config {
	return &gorm.Config{
		Logger:         NewGormLogger(log, 500*time.Millisecond),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Models lists every persisted entity, in dependency order
func Models() []interface{} {
	return []interface{}{
		&domain.Profile{},
		&domain.Partner{},
		&domain.Quote{},
		&domain.QuoteFile{},
		&domain.Bid{},
		&domain.Order{},
		&domain.Payment{},
		&domain.Message{},
		&domain.Notification{},
		&domain.Document{},
		&domain.NumberSequence{},
	}
}

// AutoMigrate runs automatic migrations (for development and tests only;
// deployed databases are migrated with cmd/migrate).
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return err
	}
	// Partial unique indexes are not expressible in struct tags.
	// Both PostgreSQL and SQLite accept this syntax.
	for _, stmt := range partialIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

var partialIndexes = []string{
	"CREATE UNIQUE INDEX IF NOT EXISTS idx_bids_one_accepted_per_quote ON bids (quote_id) WHERE status = 'accepted'",
	"CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_one_active_per_order ON payments (order_id) WHERE status IN ('pending', 'held', 'released')",
}

// HealthCheck pings the database with a short timeout
func HealthCheck(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

// HealthCheckWithStats pings the database and returns pool statistics
func HealthCheckWithStats(db *gorm.DB) (sql.DBStats, error) {
	if err := HealthCheck(db); err != nil {
		return sql.DBStats{}, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return sql.DBStats{}, err
	}
	return sqlDB.Stats(), nil
}
