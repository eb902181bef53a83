package domain

import (
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to AssignmentStatus
		want     bool
	}{
		{AssignmentAssigned, AssignmentContacted, true},
		{AssignmentAssigned, AssignmentReleased, true},
		{AssignmentAssigned, AssignmentConverted, false},
		{AssignmentAssigned, AssignmentInProgress, false},
		{AssignmentContacted, AssignmentInProgress, true},
		{AssignmentContacted, AssignmentConverted, true},
		{AssignmentContacted, AssignmentAssigned, false},
		{AssignmentInProgress, AssignmentConverted, true},
		{AssignmentInProgress, AssignmentContacted, false},
		// Terminal states have no exits.
		{AssignmentConverted, AssignmentAssigned, false},
		{AssignmentExpired, AssignmentContacted, false},
		{AssignmentReleased, AssignmentAssigned, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestIsTerminalAssignment(t *testing.T) {
	terminal := []AssignmentStatus{AssignmentConverted, AssignmentExpired, AssignmentReleased}
	for _, s := range terminal {
		if !IsTerminalAssignment(s) {
			t.Errorf("IsTerminalAssignment(%q) = false, want true", s)
		}
	}
	for _, s := range []AssignmentStatus{AssignmentAssigned, AssignmentContacted, AssignmentInProgress} {
		if IsTerminalAssignment(s) {
			t.Errorf("IsTerminalAssignment(%q) = true, want false", s)
		}
	}
}

func TestValidChannel(t *testing.T) {
	for _, c := range []ContactChannel{ChannelEmail, ChannelPhone, ChannelSMS, ChannelWhatsApp} {
		if !ValidChannel(c) {
			t.Errorf("ValidChannel(%q) = false", c)
		}
	}
	if ValidChannel(ContactChannel("carrier pigeon")) {
		t.Error("ValidChannel accepted an unknown channel")
	}
}

func TestFirstRefusalHoldActive(t *testing.T) {
	now := time.Now()
	h := &FirstRefusalHold{ExpiresAt: now.Add(time.Hour)}
	if !h.Active(now) {
		t.Error("hold expiring in an hour should be active")
	}
	if h.Active(now.Add(2 * time.Hour)) {
		t.Error("hold should be inactive after expiry")
	}
}
