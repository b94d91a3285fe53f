package usage

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appetora/backend/internal/models"
)

// failingStore simulates an unreachable backing store.
type failingStore struct{}

func (failingStore) Get(context.Context, uuid.UUID, string) (*models.UsageRecord, error) {
	return nil, ErrStoreUnavailable
}
func (failingStore) QueryByUser(context.Context, uuid.UUID) ([]models.UsageRecord, error) {
	return nil, ErrStoreUnavailable
}
func (failingStore) QueryByDate(context.Context, string) ([]models.UsageRecord, error) {
	return nil, ErrStoreUnavailable
}
func (failingStore) ApplyDelta(context.Context, uuid.UUID, string, Delta, int64) (*models.UsageRecord, error) {
	return nil, ErrStoreUnavailable
}

func TestGuardCheckAllowsUnderLimit(t *testing.T) {
	db := setupTestDB(t)
	guard := NewQuotaGuard(NewGormStore(db), NewUserPolicies(db, models.DefaultDailyImportLimit))
	userID := createTestUser(t, db, 5, false)

	dec, err := guard.Check(context.Background(), userID, "2026-08-31")
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
	assert.Equal(t, int64(0), dec.CurrentCount)
	assert.Equal(t, int64(5), dec.Limit)
}

func TestGuardConsumeUpToLimitThenDenies(t *testing.T) {
	db := setupTestDB(t)
	guard := NewQuotaGuard(NewGormStore(db), NewUserPolicies(db, models.DefaultDailyImportLimit))
	userID := createTestUser(t, db, 3, false)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		rec, err := guard.Consume(ctx, userID, "2026-08-31")
		require.NoError(t, err)
		assert.Equal(t, int64(i), rec.ActionCount)
	}

	dec, err := guard.Check(ctx, userID, "2026-08-31")
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
	assert.Equal(t, int64(3), dec.CurrentCount)

	_, err = guard.Consume(ctx, userID, "2026-08-31")
	assert.True(t, IsQuotaExceeded(err))
}

func TestGuardUnlimitedUserBypassesLimit(t *testing.T) {
	db := setupTestDB(t)
	guard := NewQuotaGuard(NewGormStore(db), NewUserPolicies(db, models.DefaultDailyImportLimit))
	userID := createTestUser(t, db, 2, true)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := guard.Consume(ctx, userID, "2026-08-31")
		require.NoError(t, err)
	}

	dec, err := guard.Check(ctx, userID, "2026-08-31")
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
	assert.True(t, dec.Unlimited)
}

func TestGuardNewDayStartsFresh(t *testing.T) {
	db := setupTestDB(t)
	guard := NewQuotaGuard(NewGormStore(db), NewUserPolicies(db, models.DefaultDailyImportLimit))
	userID := createTestUser(t, db, 1, false)
	ctx := context.Background()

	_, err := guard.Consume(ctx, userID, "2026-08-30")
	require.NoError(t, err)
	_, err = guard.Consume(ctx, userID, "2026-08-30")
	assert.True(t, IsQuotaExceeded(err))

	// The next calendar day has its own counter.
	dec, err := guard.Check(ctx, userID, "2026-08-31")
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
}

func TestGuardFailsClosedOnStoreError(t *testing.T) {
	db := setupTestDB(t)
	guard := NewQuotaGuard(failingStore{}, NewUserPolicies(db, models.DefaultDailyImportLimit))
	userID := createTestUser(t, db, 5, false)

	_, err := guard.Check(context.Background(), userID, "2026-08-31")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestGuardRejectsInvalidKey(t *testing.T) {
	db := setupTestDB(t)
	guard := NewQuotaGuard(NewGormStore(db), NewUserPolicies(db, models.DefaultDailyImportLimit))

	_, err := guard.Check(context.Background(), uuid.Nil, "2026-08-31")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = guard.Consume(context.Background(), uuid.New(), "August 31")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
