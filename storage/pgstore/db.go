// Package pgstore persists identities and messages in PostgreSQL through gorm.
package pgstore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const defaultConnectAttempts = 10

// Connect opens the database, retrying while the server comes up.
func Connect(ctx context.Context, dsn string) (*gorm.DB, error) {
	var lastErr error
	for i := 0; i < defaultConnectAttempts; i++ {
		gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Silent),
			TranslateError: true,
		})
		if err == nil {
			sqlDB, err := gdb.DB()
			if err == nil {
				sqlDB.SetMaxIdleConns(5)
				sqlDB.SetMaxOpenConns(20)
				sqlDB.SetConnMaxLifetime(time.Hour)
				return gdb, nil
			}
			lastErr = err
		} else {
			lastErr = err
		}

		log.Warn().Err(lastErr).Int("attempt", i+1).Msg("database not ready")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(500+i*200) * time.Millisecond):
		}
	}
	return nil, errors.Wrap(lastErr, "connect postgres")
}

// Migrate creates or updates the tables used by the stores.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(&userRecord{}, &messageRecord{})
}
