package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/intervu-dev/intervu-go-api/internal/models"
)

// ConnectPostgres opens the PostgreSQL connection and migrates the interview
// schema (sessions, turns, scores).
func ConnectPostgres(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn must not be empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := db.AutoMigrate(&models.Session{}, &models.Turn{}, &models.Score{}); err != nil {
		return nil, fmt.Errorf("failed to migrate interview schema: %w", err)
	}

	return db, nil
}
