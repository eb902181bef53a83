package messaging

import "errors"

// Sentinel errors for the messaging service layer.
var (
	// ErrNotFound means the conversation does not exist.
	ErrNotFound = errors.New("conversation not found")

	// ErrEmptyBody means the message has no content after trimming.
	ErrEmptyBody = errors.New("message body is empty")

	// ErrNotParticipant means the caller is not a side of the
	// conversation.
	ErrNotParticipant = errors.New("caller is not part of this conversation")
)
