// Package messaging implements buyer conversations.
//
// One conversation exists per (user, buyer) pair; StartConversation is
// idempotent and returns the existing thread. Message order is a
// per-conversation position sequence assigned inside the repository's
// insert, so concurrent sends can never interleave into duplicate
// positions.
package messaging
