package usage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/appetora/backend/internal/models"
)

// Decision is the outcome of a quota check.
type Decision struct {
	Allowed      bool
	CurrentCount int64
	Limit        int64
	Unlimited    bool
}

// QuotaGuard enforces the per-user daily action limit.
type QuotaGuard struct {
	store    CounterStore
	policies PolicySource
}

func NewQuotaGuard(store CounterStore, policies PolicySource) *QuotaGuard {
	return &QuotaGuard{store: store, policies: policies}
}

// Check is a read-only quota probe, meant to run before the metered side
// effect so denied requests never reach it. Store failures fail closed:
// when the counters cannot be read, the action is denied rather than let
// through unmetered.
func (g *QuotaGuard) Check(ctx context.Context, userID uuid.UUID, date string) (Decision, error) {
	if err := validateKey(userID, date); err != nil {
		return Decision{}, err
	}

	limit, unlimited, err := g.policies.QuotaPolicy(ctx, userID)
	if err != nil {
		return Decision{}, fmt.Errorf("quota check failed closed: %w", err)
	}
	if unlimited {
		return Decision{Allowed: true, Limit: limit, Unlimited: true}, nil
	}

	rec, err := g.store.Get(ctx, userID, date)
	if err != nil {
		return Decision{}, fmt.Errorf("quota check failed closed: %w", err)
	}

	return Decision{
		Allowed:      rec.ActionCount < limit,
		CurrentCount: rec.ActionCount,
		Limit:        limit,
	}, nil
}

// Consume atomically claims one quota unit: a conditional increment that
// fails with *QuotaExceededError instead of passing the limit. Two
// concurrent requests at limit-1 therefore cannot both proceed, which a
// separate Check followed by a plain increment would allow.
func (g *QuotaGuard) Consume(ctx context.Context, userID uuid.UUID, date string) (*models.UsageRecord, error) {
	if err := validateKey(userID, date); err != nil {
		return nil, err
	}

	limit, unlimited, err := g.policies.QuotaPolicy(ctx, userID)
	if err != nil {
		return nil, err
	}

	ceiling := limit
	if unlimited {
		ceiling = NoCeiling
	}
	return g.store.ApplyDelta(ctx, userID, date, Delta{Actions: 1}, ceiling)
}
