package db

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"gate-controller/internal/config"
)

const (
	connectDeadline = 30 * time.Second
	connectRetry    = 3 * time.Second
)

// Open connects to the Postgres store and runs migrations. Connection
// attempts are retried until the deadline so the controller survives a
// store that comes up slightly later than the process.
func Open(cfg config.StoreConfig, log zerolog.Logger) (*gorm.DB, error) {
	dsn := cfg.DSN()

	var (
		db  *gorm.DB
		err error
	)
	deadline := time.Now().Add(connectDeadline)
	for {
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("connect to store at %s:%d: %w", cfg.Host, cfg.Port, err)
		}
		log.Warn().Err(err).Msg("store connect failed, retrying")
		time.Sleep(connectRetry)
	}

	if err := runMigrations(db); err != nil {
		return nil, err
	}

	log.Info().Str("host", cfg.Host).Str("name", cfg.Name).Msg("store connected and migrated")
	return db, nil
}
