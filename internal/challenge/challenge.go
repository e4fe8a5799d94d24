// Package challenge implements the group challenge lifecycle: invite
// responses, activation and rejection re-evaluation, per-viewer visibility,
// and end-of-window termination. Functions are pure over domain values;
// persistence belongs to the caller.
package challenge

import (
	"time"

	"github.com/ajayprem/cadence/internal/obligation"
	"github.com/ajayprem/cadence/internal/obligation/ledger"
	"github.com/ajayprem/cadence/internal/period"
	apperrors "github.com/ajayprem/cadence/internal/platform/errors"
)

// Bucket is the per-viewer visibility classification of a challenge.
type Bucket int

const (
	// BucketNone hides the challenge from the viewer.
	BucketNone Bucket = iota
	// BucketInvited marks a pending challenge awaiting the viewer's response.
	BucketInvited
	// BucketWaiting marks a pending challenge the viewer has joined while
	// other invitees decide.
	BucketWaiting
	// BucketActive marks a running challenge.
	BucketActive
	// BucketClosed marks a rejected, completed, or failed challenge.
	BucketClosed
)

// BucketLabel returns the string label for a visibility bucket.
func BucketLabel(b Bucket) string {
	switch b {
	case BucketInvited:
		return "invited"
	case BucketWaiting:
		return "waiting"
	case BucketActive:
		return "active"
	case BucketClosed:
		return "closed"
	default:
		return "none"
	}
}

// RespondResult carries the state changed by one invite response.
type RespondResult struct {
	Challenge   obligation.Challenge
	Participant obligation.Participant
}

// Respond records userID's one-time answer to a challenge invite. Pending
// participant records are materialized here on first response rather than at
// invite time. After recording, the challenge status is re-evaluated from
// the full participant set.
func Respond(ch obligation.Challenge, participants []obligation.Participant, userID string, accept bool, now func() time.Time) (RespondResult, error) {
	if now == nil {
		now = time.Now
	}
	if userID == ch.CreatorID {
		return RespondResult{}, apperrors.New(apperrors.CodeChallengeAlreadyResponded,
			"creator is already an accepted participant")
	}
	if !ch.Invited(userID) {
		return RespondResult{}, apperrors.WithMetadata(apperrors.CodeChallengeNotInvited,
			"user was not invited to this challenge", map[string]string{
				"challenge_id": ch.ID,
				"user_id":      userID,
			})
	}

	p, ok := findParticipant(participants, userID)
	if ok && p.Status != obligation.ParticipantPending {
		return RespondResult{}, apperrors.WithMetadata(apperrors.CodeChallengeAlreadyResponded,
			"invite response already recorded", map[string]string{
				"challenge_id": ch.ID,
				"user_id":      userID,
				"status":       obligation.ParticipantStatusLabel(p.Status),
			})
	}
	if !ok {
		p = obligation.NewParticipant(ch.ID, userID, obligation.ParticipantPending, now)
	}

	if accept {
		p.Status = obligation.ParticipantAccepted
	} else {
		p.Status = obligation.ParticipantRejected
	}
	p.UpdatedAt = now().UTC()

	updated := make([]obligation.Participant, 0, len(participants)+1)
	replaced := false
	for _, existing := range participants {
		if existing.UserID == userID {
			updated = append(updated, p)
			replaced = true
			continue
		}
		updated = append(updated, existing)
	}
	if !replaced {
		updated = append(updated, p)
	}

	ch.Status = Evaluate(ch, updated)
	ch.UpdatedAt = now().UTC()
	return RespondResult{Challenge: ch, Participant: p}, nil
}

// Evaluate derives the pending challenge's status from invite responses.
// Every invitee must respond before the challenge moves; activation needs at
// least one acceptance besides the creator, and a full set of rejections
// closes the challenge.
func Evaluate(ch obligation.Challenge, participants []obligation.Participant) obligation.Status {
	if ch.Status != obligation.StatusPending {
		return ch.Status
	}

	accepted := 0
	for _, invitee := range ch.InvitedUserIDs {
		p, ok := findParticipant(participants, invitee)
		if !ok || p.Status == obligation.ParticipantPending {
			return obligation.StatusPending
		}
		if p.Status == obligation.ParticipantAccepted {
			accepted++
		}
	}
	if accepted > 0 {
		return obligation.StatusActive
	}
	return obligation.StatusRejected
}

// Visibility classifies the challenge for one viewer.
func Visibility(ch obligation.Challenge, participants []obligation.Participant, viewerID string) Bucket {
	switch ch.Status {
	case obligation.StatusActive:
		if viewerID == ch.CreatorID {
			return BucketActive
		}
		if p, ok := findParticipant(participants, viewerID); ok && p.Status == obligation.ParticipantAccepted {
			return BucketActive
		}
		return BucketNone
	case obligation.StatusPending:
		if viewerID == ch.CreatorID {
			return BucketWaiting
		}
		if !ch.Invited(viewerID) {
			return BucketNone
		}
		p, ok := findParticipant(participants, viewerID)
		switch {
		case !ok || p.Status == obligation.ParticipantPending:
			return BucketInvited
		case p.Status == obligation.ParticipantAccepted:
			return BucketWaiting
		default:
			return BucketNone
		}
	case obligation.StatusCompleted, obligation.StatusFailed, obligation.StatusRejected:
		if viewerID == ch.CreatorID || ch.Invited(viewerID) {
			return BucketClosed
		}
		return BucketNone
	default:
		return BucketNone
	}
}

// Terminate closes an active challenge whose window has elapsed. The
// challenge completes when every accepted participant's completion rate over
// the window clears the threshold, and fails otherwise.
func Terminate(ch obligation.Challenge, participants []obligation.Participant, asOf time.Time, threshold float64) (obligation.Challenge, error) {
	if ch.Status != obligation.StatusActive {
		return ch, apperrors.WithMetadata(apperrors.CodeChallengeNotTerminable,
			"only active challenges can be terminated", map[string]string{
				"challenge_id": ch.ID,
				"status":       obligation.StatusLabel(ch.Status),
			})
	}
	if ch.EndDate == nil || !period.DateOf(asOf).After(period.DateOf(*ch.EndDate)) {
		return ch, apperrors.WithMetadata(apperrors.CodeChallengeNotTerminable,
			"challenge window has not elapsed", map[string]string{
				"challenge_id": ch.ID,
			})
	}

	status := obligation.StatusCompleted
	for _, p := range participants {
		if p.Status != obligation.ParticipantAccepted {
			continue
		}
		rate := ledger.CompletionRate(ch.Period, p.Completed, ch.StartDate, *ch.EndDate)
		if rate <= threshold {
			status = obligation.StatusFailed
			break
		}
	}

	ch.Status = status
	ch.UpdatedAt = asOf.UTC()
	return ch, nil
}

func findParticipant(participants []obligation.Participant, userID string) (obligation.Participant, bool) {
	for _, p := range participants {
		if p.UserID == userID {
			return p, true
		}
	}
	return obligation.Participant{}, false
}
