// Package obligation defines the recurring-obligation entities: single-owner
// tasks and multi-party challenges, plus challenge membership records.
package obligation

import (
	"strings"
	"time"

	"github.com/ajayprem/cadence/internal/period"
)

// Status represents the lifecycle status of an obligation.
type Status int

const (
	// StatusUnspecified represents an invalid status value.
	StatusUnspecified Status = iota
	// StatusPending indicates a challenge still waiting on invitees.
	StatusPending
	// StatusActive indicates an obligation accepting completions.
	StatusActive
	// StatusCompleted indicates a terminated obligation that met its threshold.
	StatusCompleted
	// StatusFailed indicates a terminated obligation that missed its threshold.
	StatusFailed
	// StatusRejected indicates a challenge every invitee declined.
	StatusRejected
)

// StatusLabel returns the string label for an obligation status.
func StatusLabel(status Status) string {
	switch status {
	case StatusPending:
		return "pending"
	case StatusActive:
		return "active"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusRejected:
		return "rejected"
	default:
		return "unspecified"
	}
}

// StatusFromLabel converts a status label to a Status value.
func StatusFromLabel(label string) Status {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "pending":
		return StatusPending
	case "active":
		return StatusActive
	case "completed":
		return StatusCompleted
	case "failed":
		return StatusFailed
	case "rejected":
		return StatusRejected
	default:
		return StatusUnspecified
	}
}

// Obligation is the common read surface shared by tasks and challenges.
type Obligation interface {
	ObligationID() string
	ObligationTitle() string
	Cadence() period.Period
	ActiveWindow() period.Window
	PenaltyAmount() int64
}

// Task is a single-owner recurring obligation. The owner is its only
// participant; completion state lives directly on the task.
type Task struct {
	ID                  string
	OwnerID             string
	Title               string
	Description         string
	Period              period.Period
	StartDate           time.Time
	EndDate             *time.Time
	Status              Status
	PenaltyCents        int64
	PenaltyRecipientIDs []string
	Completed           []time.Time
	LastUncompleted     *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ObligationID returns the task identifier.
func (t Task) ObligationID() string { return t.ID }

// ObligationTitle returns the task title.
func (t Task) ObligationTitle() string { return t.Title }

// Cadence returns the task recurrence period.
func (t Task) Cadence() period.Period { return t.Period }

// ActiveWindow returns the task's active date range.
func (t Task) ActiveWindow() period.Window {
	return period.Window{Start: t.StartDate, End: t.EndDate}
}

// PenaltyAmount returns the per-miss penalty in cents.
func (t Task) PenaltyAmount() int64 { return t.PenaltyCents }

// Challenge is a multi-party recurring obligation owned by its creator.
// Completion state lives on each Participant record, never on the challenge.
type Challenge struct {
	ID             string
	CreatorID      string
	Title          string
	Description    string
	Period         period.Period
	StartDate      time.Time
	EndDate        *time.Time
	Status         Status
	PenaltyCents   int64
	InvitedUserIDs []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ObligationID returns the challenge identifier.
func (c Challenge) ObligationID() string { return c.ID }

// ObligationTitle returns the challenge title.
func (c Challenge) ObligationTitle() string { return c.Title }

// Cadence returns the challenge recurrence period.
func (c Challenge) Cadence() period.Period { return c.Period }

// ActiveWindow returns the challenge's active date range.
func (c Challenge) ActiveWindow() period.Window {
	return period.Window{Start: c.StartDate, End: c.EndDate}
}

// PenaltyAmount returns the per-miss penalty in cents.
func (c Challenge) PenaltyAmount() int64 { return c.PenaltyCents }

// Invited reports whether a user was invited to the challenge.
func (c Challenge) Invited(userID string) bool {
	for _, id := range c.InvitedUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}
