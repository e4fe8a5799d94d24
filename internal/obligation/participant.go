package obligation

import (
	"strings"
	"time"
)

// ParticipantStatus represents a challenge member's response state.
type ParticipantStatus int

const (
	// ParticipantUnspecified represents an invalid participant status.
	ParticipantUnspecified ParticipantStatus = iota
	// ParticipantPending indicates an invitee who has not responded.
	ParticipantPending
	// ParticipantAccepted indicates a member tracking completions.
	ParticipantAccepted
	// ParticipantRejected indicates an invitee who declined.
	ParticipantRejected
)

// ParticipantStatusLabel returns the string label for a participant status.
func ParticipantStatusLabel(status ParticipantStatus) string {
	switch status {
	case ParticipantPending:
		return "pending"
	case ParticipantAccepted:
		return "accepted"
	case ParticipantRejected:
		return "rejected"
	default:
		return "unspecified"
	}
}

// ParticipantStatusFromLabel converts a label to a ParticipantStatus value.
func ParticipantStatusFromLabel(label string) ParticipantStatus {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "pending":
		return ParticipantPending
	case "accepted":
		return ParticipantAccepted
	case "rejected":
		return ParticipantRejected
	default:
		return ParticipantUnspecified
	}
}

// Participant is one user's membership record on a challenge. Completed
// holds canonical period keys; LastUncompleted is the earliest period the
// participant owes a catch-up completion for, nil when nothing is owed.
type Participant struct {
	ChallengeID     string
	UserID          string
	Status          ParticipantStatus
	Completed       []time.Time
	LastUncompleted *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
