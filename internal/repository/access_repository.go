package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gate-controller/internal/domain/gate"
)

// AccessRepository is the Authorization Store: a read-mostly whitelist plus
// an append-only audit log. It is safe for concurrent readers and
// independent appenders across gate sessions.
type AccessRepository struct {
	db *gorm.DB
}

func NewAccessRepository(db *gorm.DB) *AccessRepository {
	return &AccessRepository{db: db}
}

type AuthorizedPlate struct {
	ID         int64  `gorm:"primaryKey"`
	Plate      string `gorm:"size:10;not null;uniqueIndex"`
	HolderName string `gorm:"size:50;not null"`
	CreatedAt  time.Time
}

type AccessLog struct {
	ID            int64  `gorm:"primaryKey"`
	DetectedPlate string `gorm:"size:10;not null;index"`
	Outcome       string `gorm:"not null"`
	LoggedAt      time.Time `gorm:"not null;index"`
	Detail        datatypes.JSON
	CreatedAt     time.Time
}

func (AccessLog) TableName() string { return "access_log" }

// Lookup returns the authorization record for a canonical plate, or nil when
// the plate is not whitelisted. Pure read, no side effects.
func (r *AccessRepository) Lookup(ctx context.Context, plate string) (*gate.AuthorizationRecord, error) {
	var row AuthorizedPlate
	err := r.db.WithContext(ctx).Where("plate = ?", plate).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &gate.AuthorizationRecord{Plate: row.Plate, HolderName: row.HolderName}, nil
}

// Append writes one audit row. Timestamps are truncated to second precision
// to match the audit schema.
func (r *AccessRepository) Append(ctx context.Context, entry gate.AccessLogEntry) error {
	detail, err := json.Marshal(entry.Detail)
	if err != nil {
		return fmt.Errorf("marshal decision detail: %w", err)
	}

	row := AccessLog{
		DetectedPlate: entry.Plate,
		Outcome:       string(entry.Outcome),
		LoggedAt:      entry.LoggedAt.Truncate(time.Second),
		Detail:        datatypes.JSON(detail),
		CreatedAt:     time.Now(),
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

// Seed inserts authorization records that are not already present.
// Idempotent: duplicate plates in the set, or plates already stored, are
// silently skipped.
func (r *AccessRepository) Seed(ctx context.Context, records []gate.AuthorizationRecord) error {
	for _, rec := range records {
		row := AuthorizedPlate{
			Plate:      rec.Plate,
			HolderName: rec.HolderName,
			CreatedAt:  time.Now(),
		}
		err := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "plate"}},
				DoNothing: true,
			}).
			Create(&row).Error
		if err != nil {
			return fmt.Errorf("seed plate %s: %w", rec.Plate, err)
		}
	}
	return nil
}

// Upsert creates or replaces one authorization record. Administrative
// operation, never called by the decision pipeline.
func (r *AccessRepository) Upsert(ctx context.Context, rec gate.AuthorizationRecord) error {
	row := AuthorizedPlate{
		Plate:      rec.Plate,
		HolderName: rec.HolderName,
		CreatedAt:  time.Now(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "plate"}},
			DoUpdates: clause.AssignmentColumns([]string{"holder_name"}),
		}).
		Create(&row).Error
}

// Revoke removes a plate from the whitelist. Returns gorm.ErrRecordNotFound
// when the plate was not present.
func (r *AccessRepository) Revoke(ctx context.Context, plate string) error {
	res := r.db.WithContext(ctx).Where("plate = ?", plate).Delete(&AuthorizedPlate{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListPlates returns the whole whitelist ordered by plate.
func (r *AccessRepository) ListPlates(ctx context.Context) ([]AuthorizedPlate, error) {
	var rows []AuthorizedPlate
	err := r.db.WithContext(ctx).Order("plate ASC").Find(&rows).Error
	return rows, err
}

// FindEntries queries the audit log, newest first.
func (r *AccessRepository) FindEntries(ctx context.Context, plate *string, from, to *time.Time, limit, offset int) ([]AccessLog, error) {
	query := r.db.WithContext(ctx).Model(&AccessLog{})

	if plate != nil {
		query = query.Where("detected_plate = ?", *plate)
	}
	if from != nil {
		query = query.Where("logged_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("logged_at <= ?", *to)
	}

	query = query.Order("logged_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []AccessLog
	err := query.Find(&rows).Error
	return rows, err
}
