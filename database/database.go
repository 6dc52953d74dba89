package database

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/QQ008/shunying-image-processing-preview/models"
)

// InitDB opens the single-file catalog database, switches it to write-ahead
// logging so readers are never blocked by the single writer, and migrates
// the schema. Columns are only ever added, never altered, so AutoMigrate is
// safe to run on every open.
func InitDB(dataSourceName string, logger zerolog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dataSourceName), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// single local writer; a handful of connections is plenty
	sqlDB.SetMaxIdleConns(4)
	sqlDB.SetMaxOpenConns(8)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.Exec("PRAGMA journal_mode=WAL;").Error; err != nil {
		logger.Warn().Err(err).Msg("failed to set WAL mode")
	}

	if err := db.AutoMigrate(&models.Image{}, &models.ProcessedImage{}); err != nil {
		return nil, fmt.Errorf("catalog schema migration failed: %w", err)
	}

	logger.Info().Str("path", dataSourceName).Msg("catalog database initialized")
	return db, nil
}
