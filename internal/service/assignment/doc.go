// Package assignment implements exclusive buyer assignment and the
// contact log.
//
// Exclusivity is enforced in the database, not in application checks: a
// buyer has at most one non-terminal assignment, guaranteed by a
// conditional insert the repository executes atomically. Every state
// change is validated against the domain transition table, and every
// contact attempt consumes subscription quota before it is written.
//
// The service layer depends on the Repository interface defined in
// repository.go and never imports database/sql directly.
package assignment
