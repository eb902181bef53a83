package domain

import "time"

// AssignmentStatus enumerates the lifecycle states of a buyer assignment.
type AssignmentStatus string

const (
	AssignmentAssigned   AssignmentStatus = "assigned"
	AssignmentContacted  AssignmentStatus = "contacted"
	AssignmentInProgress AssignmentStatus = "in_progress"
	AssignmentConverted  AssignmentStatus = "converted"
	AssignmentExpired    AssignmentStatus = "expired"
	AssignmentReleased   AssignmentStatus = "released"
)

// assignmentTransitions lists the allowed status moves. Terminal states
// (converted, expired, released) have no exits.
var assignmentTransitions = map[AssignmentStatus][]AssignmentStatus{
	AssignmentAssigned:   {AssignmentContacted, AssignmentExpired, AssignmentReleased},
	AssignmentContacted:  {AssignmentInProgress, AssignmentConverted, AssignmentExpired, AssignmentReleased},
	AssignmentInProgress: {AssignmentConverted, AssignmentExpired, AssignmentReleased},
}

// CanTransition reports whether an assignment may move from one status
// to another.
func CanTransition(from, to AssignmentStatus) bool {
	for _, allowed := range assignmentTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminalAssignment reports whether the status is final.
func IsTerminalAssignment(s AssignmentStatus) bool {
	return s == AssignmentConverted || s == AssignmentExpired || s == AssignmentReleased
}

// Assignment links a buyer to the user responsible for contacting them.
// At most one non-terminal assignment exists per buyer at a time.
type Assignment struct {
	ID        string           `json:"id"`
	BuyerID   string           `json:"buyer_id"`
	UserID    string           `json:"user_id"`
	Status    AssignmentStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// ContactChannel enumerates how a buyer was contacted.
type ContactChannel string

const (
	ChannelEmail    ContactChannel = "email"
	ChannelPhone    ContactChannel = "phone"
	ChannelSMS      ContactChannel = "sms"
	ChannelWhatsApp ContactChannel = "whatsapp"
)

// ValidChannel reports whether the channel is one we record.
func ValidChannel(c ContactChannel) bool {
	switch c {
	case ChannelEmail, ChannelPhone, ChannelSMS, ChannelWhatsApp:
		return true
	}
	return false
}

// Contact is an immutable log entry for one contact attempt. Many contacts
// belong to one assignment.
type Contact struct {
	ID           string         `json:"id"`
	AssignmentID string         `json:"assignment_id"`
	UserID       string         `json:"user_id"`
	Channel      ContactChannel `json:"channel"`
	Outcome      string         `json:"outcome"`
	Note         string         `json:"note"`
	CreatedAt    time.Time      `json:"created_at"`
}

// FirstRefusalHold is an exclusive, time-boxed claim on a high-score buyer.
// Only enterprise-tier users may hold one; Assign respects an unexpired
// hold belonging to another user.
type FirstRefusalHold struct {
	ID        string    `json:"id"`
	BuyerID   string    `json:"buyer_id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Active reports whether the hold is still in force at the given time.
func (h *FirstRefusalHold) Active(now time.Time) bool {
	return now.Before(h.ExpiresAt)
}
