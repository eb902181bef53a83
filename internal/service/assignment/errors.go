package assignment

import "errors"

// Sentinel errors for the assignment service layer.
var (
	// ErrNotFound means the assignment does not exist.
	ErrNotFound = errors.New("assignment not found")

	// ErrAlreadyAssigned means the buyer already has an active assignment.
	ErrAlreadyAssigned = errors.New("buyer is already assigned")

	// ErrBuyerSaturated means the buyer has been contacted by enough
	// distinct users that new assignments are closed.
	ErrBuyerSaturated = errors.New("buyer has reached the contact limit")

	// ErrBuyerHeld means another user holds an unexpired first-refusal
	// claim on the buyer.
	ErrBuyerHeld = errors.New("buyer is under a first-refusal hold")

	// ErrInvalidTransition means the requested status change is not in
	// the transition table.
	ErrInvalidTransition = errors.New("invalid assignment status transition")

	// ErrAlreadyContacted means the assignment has already advanced past
	// the assigned state.
	ErrAlreadyContacted = errors.New("assignment already marked contacted")

	// ErrNotOwner means the caller does not own the assignment.
	ErrNotOwner = errors.New("assignment belongs to another user")

	// ErrHoldExists means the buyer already has an unexpired hold.
	ErrHoldExists = errors.New("buyer already has a first-refusal hold")

	// ErrTierRequired means the caller's tier does not include the
	// feature.
	ErrTierRequired = errors.New("feature requires a higher tier")

	// ErrScoreBelowThreshold means the buyer's score does not qualify
	// for a first-refusal hold.
	ErrScoreBelowThreshold = errors.New("buyer score below first-refusal threshold")

	// ErrQuotaExceeded means the caller's monthly contact allowance is
	// spent. The repository enforces it inside the contact transaction,
	// so concurrent requests cannot overshoot the cap.
	ErrQuotaExceeded = errors.New("monthly contact quota exceeded")
)
