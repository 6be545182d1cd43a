package database

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/sandeepkv93/edupro-device-guard/internal/config"
	"github.com/sandeepkv93/edupro-device-guard/internal/domain"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DatabaseDriver {
	case "postgres":
		dialector = postgres.Open(cfg.DatabaseURL)
	case "sqlite":
		dialector = sqlite.Open(cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.DatabaseDriver, err)
	}
	return db, nil
}

// Migrate creates or updates every table this service owns, plus the relational user and
// course directory tables.
func Migrate(db *gorm.DB, logger *slog.Logger) error {
	if err := db.AutoMigrate(
		&domain.User{},
		&domain.Course{},
		&domain.DeviceRecord{},
		&domain.ViolationCase{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if logger != nil {
		logger.Info("database migrated")
	}
	return nil
}
