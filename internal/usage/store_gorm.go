package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/appetora/backend/internal/models"
)

// casAttempts bounds the optimistic-concurrency retry loop inside a single
// ApplyDelta call.
const casAttempts = 4

// GormStore is the GORM-backed CounterStore.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a CounterStore on top of db.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Get(ctx context.Context, userID uuid.UUID, date string) (*models.UsageRecord, error) {
	if err := validateKey(userID, date); err != nil {
		return nil, err
	}

	var rec models.UsageRecord
	err := s.db.WithContext(ctx).Where("user_id = ? AND date = ?", userID, date).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ZeroRecord(userID, date), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &rec, nil
}

func (s *GormStore) QueryByUser(ctx context.Context, userID uuid.UUID) ([]models.UsageRecord, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty user id", ErrInvalidInput)
	}

	var recs []models.UsageRecord
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("date ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return recs, nil
}

func (s *GormStore) QueryByDate(ctx context.Context, date string) ([]models.UsageRecord, error) {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return nil, fmt.Errorf("%w: bad date %q", ErrInvalidInput, date)
	}

	var recs []models.UsageRecord
	if err := s.db.WithContext(ctx).Where("date = ?", date).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return recs, nil
}

// ApplyDelta performs a compare-and-swap on the record's version column,
// reloading and retrying on conflict. Creation races on the (user_id, date)
// unique index are folded into the same retry loop.
func (s *GormStore) ApplyDelta(ctx context.Context, userID uuid.UUID, date string, delta Delta, ceiling int64) (*models.UsageRecord, error) {
	if err := validateKey(userID, date); err != nil {
		return nil, err
	}
	if err := delta.Validate(); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < casAttempts; attempt++ {
		var rec models.UsageRecord
		err := s.db.WithContext(ctx).Where("user_id = ? AND date = ?", userID, date).First(&rec).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			if ceiling >= 0 && delta.Actions > ceiling {
				return nil, &QuotaExceededError{CurrentCount: 0, Limit: ceiling}
			}
			rec = models.UsageRecord{
				ID:            uuid.New(),
				UserID:        userID,
				Date:          date,
				ActionCount:   delta.Actions,
				InputUnits:    delta.InputUnits,
				OutputUnits:   delta.OutputUnits,
				CostMicros:    delta.CostMicros,
				LastUpdatedAt: time.Now().UTC(),
				Version:       1,
			}
			if createErr := s.db.WithContext(ctx).Create(&rec).Error; createErr != nil {
				// Likely a concurrent first-of-the-day insert; reload and retry.
				lastErr = createErr
				continue
			}
			return &rec, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}

		if ceiling >= 0 && rec.ActionCount+delta.Actions > ceiling {
			return nil, &QuotaExceededError{CurrentCount: rec.ActionCount, Limit: ceiling}
		}

		now := time.Now().UTC()
		res := s.db.WithContext(ctx).Model(&models.UsageRecord{}).
			Where("id = ? AND version = ?", rec.ID, rec.Version).
			Updates(map[string]interface{}{
				"action_count":    rec.ActionCount + delta.Actions,
				"input_units":     rec.InputUnits + delta.InputUnits,
				"output_units":    rec.OutputUnits + delta.OutputUnits,
				"cost_micros":     rec.CostMicros + delta.CostMicros,
				"last_updated_at": now,
				"version":         rec.Version + 1,
			})
		if res.Error != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Error)
		}
		if res.RowsAffected == 1 {
			rec.ActionCount += delta.Actions
			rec.InputUnits += delta.InputUnits
			rec.OutputUnits += delta.OutputUnits
			rec.CostMicros += delta.CostMicros
			rec.LastUpdatedAt = now
			rec.Version++
			return &rec, nil
		}
		// Lost the race against a concurrent increment.
		lastErr = fmt.Errorf("version conflict on %s/%s", userID, date)
	}

	return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, lastErr)
}

// UserPolicies resolves quota policies from the users table. Users whose
// row carries no positive limit fall back to defaultLimit, which is the
// configured daily import limit.
type UserPolicies struct {
	db           *gorm.DB
	defaultLimit int64
}

func NewUserPolicies(db *gorm.DB, defaultLimit int) *UserPolicies {
	if defaultLimit <= 0 {
		defaultLimit = models.DefaultDailyImportLimit
	}
	return &UserPolicies{db: db, defaultLimit: int64(defaultLimit)}
}

func (p *UserPolicies) QuotaPolicy(ctx context.Context, userID uuid.UUID) (int64, bool, error) {
	var user models.User
	if err := p.db.WithContext(ctx).Select("daily_limit", "unlimited").Where("id = ?", userID).First(&user).Error; err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	limit := int64(user.DailyLimit)
	if limit <= 0 {
		limit = p.defaultLimit
	}
	return limit, user.Unlimited, nil
}

// ListUserIDs implements UserDirectory for the aggregator.
func (p *UserPolicies) ListUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := p.db.WithContext(ctx).Model(&models.User{}).Order("id ASC").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return ids, nil
}
