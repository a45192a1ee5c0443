package database

import (
	"fmt"
	"strings"

	"linkvault/internal/config"
	"linkvault/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Initialize opens the sqlite database and runs migrations
func Initialize(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(cfg.DatabasePath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	// Every new connection to ":memory:" is a fresh empty database.
	if strings.Contains(cfg.DatabasePath, ":memory:") {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("database handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	// AutoMigrate the schema
	err = db.AutoMigrate(
		&models.User{},
		&models.Bookmark{},
		&models.Announcement{},
		&models.Comment{},
		&models.CommentVote{},
		&models.Notification{},
	)
	if err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return db, nil
}
