package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS authorized_plates (
		id              BIGSERIAL PRIMARY KEY,
		plate           VARCHAR(10) NOT NULL,
		holder_name     VARCHAR(50) NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_authorized_plates_plate ON authorized_plates(plate);`,
	`CREATE TABLE IF NOT EXISTS access_log (
		id              BIGSERIAL PRIMARY KEY,
		detected_plate  VARCHAR(10) NOT NULL,
		outcome         TEXT NOT NULL CHECK (outcome IN ('GRANTED', 'DENIED')),
		logged_at       TIMESTAMPTZ(0) NOT NULL,
		detail          JSONB,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_access_log_detected_plate ON access_log(detected_plate);`,
	`CREATE INDEX IF NOT EXISTS idx_access_log_logged_at ON access_log(logged_at);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
