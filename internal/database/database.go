// Package database handles database connections and migrations.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"snapfeed/internal/config"
	"snapfeed/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Models lists every persisted model in migration order.
func Models() []any {
	return []any{
		&models.User{},
		&models.Post{},
		&models.PostImage{},
		&models.Like{},
	}
}

// Connect opens the Postgres pool described by cfg.
//
// A database that is unreachable at startup is logged and the handle is still
// returned: requests fail until the server comes up, but the process keeps
// running. Only an unusable DSN is returned as an error.
func Connect(cfg *config.Config, log *slog.Logger) (*gorm.DB, error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, building connection string from DB_* settings",
			slog.String("host", cfg.DBHost), slog.String("db", cfg.DBName))
	}
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:               NewGormLogger(log, logger.Warn),
		DisableAutomaticPing: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		log.Error("Error connecting to database, continuing without it", slog.String("error", err.Error()))
		return db, nil
	}
	log.Info("Database connected successfully")

	if !cfg.IsProduction() {
		// AutoMigrate outside production for developer/test ergonomics.
		if err := Migrate(db); err != nil {
			log.Error("Database migration failed", slog.String("error", err.Error()))
		} else {
			log.Info("Database migration completed")
		}
	}

	return db, nil
}

// Migrate creates or updates the schema for all models.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Ping checks connectivity of the underlying pool.
func Ping(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database not configured")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying pool.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
