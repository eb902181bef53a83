// Package subscription implements plan state and contact-quota logic.
//
// A user's tier comes from their subscription row, kept in sync by the
// Stripe webhook; users without an active row sit on the base access
// tier. Quota consumption is counted from the contact log, never from a
// mutable counter, so the number cannot drift from reality.
//
// The service layer contains pure business logic and depends on the
// Repository interface defined in repository.go. It never imports
// net/http or database/sql directly.
package subscription
