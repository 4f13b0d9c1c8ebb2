package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/justsurfingit/applytrail/internal/config"
	"github.com/justsurfingit/applytrail/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the record store selected by database.driver and migrates the schema.
func Connect(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	dbCfg := cfg.GetDatabase()

	dialector, err := dialectorFor(dbCfg)
	if err != nil {
		return nil, err
	}

	db, err := Open(dialector)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", dbCfg.Driver, err)
	}
	log.Info("Database connection established", zap.String("driver", dbCfg.Driver))

	log.Info("Running migrations")
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Open opens a gorm handle with duplicate-key errors translated to gorm.ErrDuplicatedKey.
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	return gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
}

// Migrate creates or updates the tables, including the dedup unique index on jobs.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.JobApplication{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

func dialectorFor(dbCfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch dbCfg.Driver {
	case "postgres":
		return postgres.Open(dbCfg.DSN), nil
	case "mysql":
		return mysql.Open(dbCfg.DSN), nil
	case "sqlite":
		if dir := filepath.Dir(dbCfg.DSN); !strings.HasPrefix(dbCfg.DSN, "file:") && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
			}
		}
		return sqlite.Open(dbCfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", dbCfg.Driver)
	}
}
