package subscription

import "errors"

// Sentinel errors for the subscription service layer.
var (
	// ErrNotFound means the user has no subscription row at all.
	ErrNotFound = errors.New("subscription not found")

	// ErrQuotaExceeded means the monthly contact allowance is used up.
	ErrQuotaExceeded = errors.New("monthly contact quota exceeded")
)
