package usage

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable wraps transient counter-store failures. Quota
	// checks that hit it fail closed.
	ErrStoreUnavailable = errors.New("counter store unavailable")

	// ErrInvalidInput marks malformed user IDs, dates or negative deltas.
	ErrInvalidInput = errors.New("invalid usage input")

	// ErrInconsistentRecording means a metered action completed but its
	// usage could not be persisted after retries. Callers must surface it
	// as an operational warning, not a generic failure: it represents
	// silent quota drift that operators need to reconcile.
	ErrInconsistentRecording = errors.New("metered action unrecorded")
)

// QuotaExceededError is returned when a check or conditional increment
// would push a user past their daily limit.
type QuotaExceededError struct {
	CurrentCount int64
	Limit        int64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily quota exceeded: %d of %d actions used", e.CurrentCount, e.Limit)
}

// IsQuotaExceeded reports whether err is a quota denial.
func IsQuotaExceeded(err error) bool {
	var qe *QuotaExceededError
	return errors.As(err, &qe)
}
