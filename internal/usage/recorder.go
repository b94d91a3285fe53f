package usage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/appetora/backend/internal/models"
)

const (
	defaultRecordAttempts = 3
	defaultRecordBackoff  = 100 * time.Millisecond
)

// Recorder folds usage deltas into the counter store after a metered
// action has completed. It never re-checks the quota; by the time it runs
// the side effect has already happened and the only correct move is to
// account for it.
type Recorder struct {
	store    CounterStore
	attempts int
	backoff  time.Duration
}

func NewRecorder(store CounterStore) *Recorder {
	return &Recorder{
		store:    store,
		attempts: defaultRecordAttempts,
		backoff:  defaultRecordBackoff,
	}
}

// Increment applies delta to the (userID, date) record, creating it when
// absent. Transient store failures are retried with backoff; when every
// attempt fails the caller receives ErrInconsistentRecording, because the
// paid side effect is now unaccounted for and must not be silently lost.
func (r *Recorder) Increment(ctx context.Context, userID uuid.UUID, date string, delta Delta) (*models.UsageRecord, error) {
	if err := validateKey(userID, date); err != nil {
		return nil, err
	}
	if err := delta.Validate(); err != nil {
		return nil, err
	}

	// The action already cost money. A client disconnect cancels the
	// request context, which must not abort the bookkeeping, so the store
	// writes run detached from it.
	ctx = context.WithoutCancel(ctx)

	var lastErr error
	for attempt := 0; attempt < r.attempts; attempt++ {
		if attempt > 0 {
			time.Sleep(r.backoff * time.Duration(attempt))
		}

		rec, err := r.store.ApplyDelta(ctx, userID, date, delta, NoCeiling)
		if err == nil {
			return rec, nil
		}
		lastErr = err
	}

	return nil, &RecordingError{UserID: userID, Date: date, Delta: delta, Cause: lastErr}
}

// RecordingError carries enough context for operators to reconcile a
// usage write that was lost after the metered action succeeded.
type RecordingError struct {
	UserID uuid.UUID
	Date   string
	Delta  Delta
	Cause  error
}

func (e *RecordingError) Error() string {
	return ErrInconsistentRecording.Error() + ": user " + e.UserID.String() + " date " + e.Date + ": " + e.Cause.Error()
}

func (e *RecordingError) Unwrap() error { return ErrInconsistentRecording }
