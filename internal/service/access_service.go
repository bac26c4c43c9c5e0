package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"gate-controller/internal/domain/gate"
	"gate-controller/internal/repository"
	"gate-controller/internal/utils"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

const (
	maxPlateLen  = 10
	maxHolderLen = 50
)

// AccessService exposes the administrative and query operations over the
// Authorization Store. The decision pipeline never goes through this layer;
// it talks to the repository directly.
type AccessService struct {
	repo *repository.AccessRepository
	log  zerolog.Logger
}

func NewAccessService(repo *repository.AccessRepository, log zerolog.Logger) *AccessService {
	return &AccessService{
		repo: repo,
		log:  log,
	}
}

// SeedWhitelist loads the startup whitelist with insert-if-absent semantics.
// Records whose plate fails normalization are rejected up front.
func (s *AccessService) SeedWhitelist(ctx context.Context, records []gate.AuthorizationRecord) error {
	normalized := make([]gate.AuthorizationRecord, 0, len(records))
	for _, rec := range records {
		plate := utils.NormalizePlate(rec.Plate)
		if plate == "" || len(plate) > maxPlateLen {
			return fmt.Errorf("%w: seed plate %q is not a valid plate", ErrInvalidInput, rec.Plate)
		}
		normalized = append(normalized, gate.AuthorizationRecord{Plate: plate, HolderName: rec.HolderName})
	}

	if err := s.repo.Seed(ctx, normalized); err != nil {
		s.log.Error().Err(err).Msg("failed to seed whitelist")
		return fmt.Errorf("failed to seed whitelist: %w", err)
	}

	s.log.Info().Int("records", len(normalized)).Msg("whitelist seeded")
	return nil
}

// Authorize upserts one authorization record. Administrative operation.
func (s *AccessService) Authorize(ctx context.Context, rawPlate, holderName string) (*gate.AuthorizationRecord, error) {
	plate := utils.NormalizePlate(rawPlate)
	if plate == "" {
		return nil, fmt.Errorf("%w: %q does not normalize to a plate", ErrInvalidInput, rawPlate)
	}
	if len(plate) > maxPlateLen {
		return nil, fmt.Errorf("%w: plate exceeds %d characters", ErrInvalidInput, maxPlateLen)
	}
	if holderName == "" {
		return nil, fmt.Errorf("%w: holder_name is required", ErrInvalidInput)
	}
	if len(holderName) > maxHolderLen {
		return nil, fmt.Errorf("%w: holder_name exceeds %d characters", ErrInvalidInput, maxHolderLen)
	}

	rec := gate.AuthorizationRecord{Plate: plate, HolderName: holderName}
	if err := s.repo.Upsert(ctx, rec); err != nil {
		s.log.Error().Err(err).Str("plate", plate).Msg("failed to authorize plate")
		return nil, fmt.Errorf("failed to authorize plate: %w", err)
	}

	s.log.Info().Str("plate", plate).Str("holder", holderName).Msg("plate authorized")
	return &rec, nil
}

// Revoke removes a plate from the whitelist.
func (s *AccessService) Revoke(ctx context.Context, rawPlate string) error {
	plate := utils.NormalizePlate(rawPlate)
	if plate == "" {
		return fmt.Errorf("%w: %q does not normalize to a plate", ErrInvalidInput, rawPlate)
	}

	err := s.repo.Revoke(ctx, plate)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: plate %s", ErrNotFound, plate)
	}
	if err != nil {
		s.log.Error().Err(err).Str("plate", plate).Msg("failed to revoke plate")
		return fmt.Errorf("failed to revoke plate: %w", err)
	}

	s.log.Info().Str("plate", plate).Msg("plate revoked")
	return nil
}

// ListAuthorized returns the whole whitelist.
func (s *AccessService) ListAuthorized(ctx context.Context) ([]gate.AuthorizationRecord, error) {
	rows, err := s.repo.ListPlates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list authorized plates: %w", err)
	}

	result := make([]gate.AuthorizationRecord, 0, len(rows))
	for _, row := range rows {
		result = append(result, gate.AuthorizationRecord{Plate: row.Plate, HolderName: row.HolderName})
	}
	return result, nil
}

// FindLogEntries queries the audit log, newest first.
func (s *AccessService) FindLogEntries(ctx context.Context, plateQuery *string, from, to *string, limit, offset int) ([]LogEntryInfo, error) {
	var plate *string
	if plateQuery != nil {
		normalized := utils.NormalizePlate(*plateQuery)
		if normalized != "" {
			plate = &normalized
		}
	}

	var fromTime, toTime *time.Time
	if from != nil && *from != "" {
		t, err := time.Parse(time.RFC3339, *from)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid from time format", ErrInvalidInput)
		}
		fromTime = &t
	}
	if to != nil && *to != "" {
		t, err := time.Parse(time.RFC3339, *to)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid to time format", ErrInvalidInput)
		}
		toTime = &t
	}

	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.repo.FindEntries(ctx, plate, fromTime, toTime, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to find log entries: %w", err)
	}

	result := make([]LogEntryInfo, 0, len(rows))
	for _, row := range rows {
		result = append(result, LogEntryInfo{
			ID:            row.ID,
			DetectedPlate: row.DetectedPlate,
			Outcome:       row.Outcome,
			LoggedAt:      row.LoggedAt,
			Detail:        row.Detail,
		})
	}
	return result, nil
}

type LogEntryInfo struct {
	ID            int64       `json:"id"`
	DetectedPlate string      `json:"detected_plate"`
	Outcome       string      `json:"outcome"`
	LoggedAt      time.Time   `json:"logged_at"`
	Detail        interface{} `json:"detail,omitempty"`
}
