// Package usage implements the daily usage-quota accounting core: per-user
// per-day counters, quota enforcement, cost estimation and the read-only
// aggregation used by the admin console. Components are wired against the
// CounterStore and PolicySource interfaces so nothing in here touches the
// database directly.
package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/appetora/backend/internal/models"
)

// DateLayout is the calendar-day key format, always in UTC.
const DateLayout = "2006-01-02"

// NoCeiling disables the action-count ceiling on ApplyDelta.
const NoCeiling int64 = -1

// Today returns the current UTC calendar day.
func Today() string {
	return time.Now().UTC().Format(DateLayout)
}

// Delta is a set of non-negative counter increments.
type Delta struct {
	Actions     int64
	InputUnits  int64
	OutputUnits int64
	CostMicros  int64
}

// Validate rejects negative increments.
func (d Delta) Validate() error {
	if d.Actions < 0 || d.InputUnits < 0 || d.OutputUnits < 0 || d.CostMicros < 0 {
		return fmt.Errorf("%w: negative delta", ErrInvalidInput)
	}
	return nil
}

// IsZero reports whether applying the delta would change nothing.
func (d Delta) IsZero() bool {
	return d.Actions == 0 && d.InputUnits == 0 && d.OutputUnits == 0 && d.CostMicros == 0
}

// CounterStore persists one UsageRecord per (user, UTC day).
type CounterStore interface {
	// Get returns the record for (userID, date), or a zero-valued record
	// when none exists yet.
	Get(ctx context.Context, userID uuid.UUID, date string) (*models.UsageRecord, error)

	// QueryByUser returns every record for one user across all days.
	QueryByUser(ctx context.Context, userID uuid.UUID) ([]models.UsageRecord, error)

	// QueryByDate returns every user's record for one day.
	QueryByDate(ctx context.Context, date string) ([]models.UsageRecord, error)

	// ApplyDelta atomically folds delta into the (userID, date) record,
	// creating it when absent. When ceiling >= 0 the update fails with a
	// *QuotaExceededError instead of pushing ActionCount past the ceiling.
	ApplyDelta(ctx context.Context, userID uuid.UUID, date string, delta Delta, ceiling int64) (*models.UsageRecord, error)
}

// PolicySource resolves the quota policy for a user.
type PolicySource interface {
	QuotaPolicy(ctx context.Context, userID uuid.UUID) (limit int64, unlimited bool, err error)
}

// ZeroRecord synthesizes an empty record for reads of days with no activity.
func ZeroRecord(userID uuid.UUID, date string) *models.UsageRecord {
	return &models.UsageRecord{UserID: userID, Date: date}
}

func validateKey(userID uuid.UUID, date string) error {
	if userID == uuid.Nil {
		return fmt.Errorf("%w: empty user id", ErrInvalidInput)
	}
	if _, err := time.Parse(DateLayout, date); err != nil {
		return fmt.Errorf("%w: bad date %q", ErrInvalidInput, date)
	}
	return nil
}
