package challenge

import (
	"testing"
	"time"

	"github.com/ajayprem/cadence/internal/obligation"
	"github.com/ajayprem/cadence/internal/period"
	apperrors "github.com/ajayprem/cadence/internal/platform/errors"
)

func fixedNow() time.Time {
	return time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)
}

func testChallenge(invited ...string) obligation.Challenge {
	return obligation.Challenge{
		ID:             "ch-1",
		CreatorID:      "creator",
		Title:          "morning run",
		Period:         period.Weekly,
		StartDate:      time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		Status:         obligation.StatusPending,
		InvitedUserIDs: invited,
	}
}

func creatorParticipant() obligation.Participant {
	return obligation.NewParticipant("ch-1", "creator", obligation.ParticipantAccepted, fixedNow)
}

func TestRespondActivatesWhenLastInviteeAccepts(t *testing.T) {
	t.Parallel()

	// One invitee; acceptance settles the whole invite set.
	ch := testChallenge("bob")
	participants := []obligation.Participant{creatorParticipant()}

	got, err := Respond(ch, participants, "bob", true, fixedNow)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if got.Challenge.Status != obligation.StatusActive {
		t.Fatalf("status = %s, want active", obligation.StatusLabel(got.Challenge.Status))
	}
	if got.Participant.Status != obligation.ParticipantAccepted {
		t.Fatalf("participant status = %s, want accepted", obligation.ParticipantStatusLabel(got.Participant.Status))
	}
}

func TestRespondStaysPendingUntilAllRespond(t *testing.T) {
	t.Parallel()

	ch := testChallenge("bob", "carol")
	participants := []obligation.Participant{creatorParticipant()}

	got, err := Respond(ch, participants, "bob", true, fixedNow)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if got.Challenge.Status != obligation.StatusPending {
		t.Fatalf("status = %s, want pending while carol has not responded",
			obligation.StatusLabel(got.Challenge.Status))
	}
}

func TestRespondRejectsAllInvitees(t *testing.T) {
	t.Parallel()

	ch := testChallenge("bob", "carol")
	participants := []obligation.Participant{
		creatorParticipant(),
		obligation.NewParticipant("ch-1", "bob", obligation.ParticipantRejected, fixedNow),
	}

	got, err := Respond(ch, participants, "carol", false, fixedNow)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if got.Challenge.Status != obligation.StatusRejected {
		t.Fatalf("status = %s, want rejected", obligation.StatusLabel(got.Challenge.Status))
	}
}

func TestRespondExactlyOnce(t *testing.T) {
	t.Parallel()

	ch := testChallenge("bob")
	participants := []obligation.Participant{
		creatorParticipant(),
		obligation.NewParticipant("ch-1", "bob", obligation.ParticipantAccepted, fixedNow),
	}

	_, err := Respond(ch, participants, "bob", false, fixedNow)
	if !apperrors.IsCode(err, apperrors.CodeChallengeAlreadyResponded) {
		t.Fatalf("err = %v, want already responded", err)
	}
}

func TestRespondRequiresInvite(t *testing.T) {
	t.Parallel()

	ch := testChallenge("bob")
	_, err := Respond(ch, nil, "mallory", true, fixedNow)
	if !apperrors.IsCode(err, apperrors.CodeChallengeNotInvited) {
		t.Fatalf("err = %v, want not invited", err)
	}

	_, err = Respond(ch, nil, "creator", true, fixedNow)
	if !apperrors.IsCode(err, apperrors.CodeChallengeAlreadyResponded) {
		t.Fatalf("creator err = %v, want already responded", err)
	}
}

func TestVisibilityBuckets(t *testing.T) {
	t.Parallel()

	ch := testChallenge("bob", "carol")
	participants := []obligation.Participant{
		creatorParticipant(),
		obligation.NewParticipant("ch-1", "bob", obligation.ParticipantAccepted, fixedNow),
	}

	tests := []struct {
		name   string
		status obligation.Status
		viewer string
		want   Bucket
	}{
		{"pending unanswered invitee", obligation.StatusPending, "carol", BucketInvited},
		{"pending accepted invitee", obligation.StatusPending, "bob", BucketWaiting},
		{"pending creator", obligation.StatusPending, "creator", BucketWaiting},
		{"pending stranger", obligation.StatusPending, "mallory", BucketNone},
		{"active accepted invitee", obligation.StatusActive, "bob", BucketActive},
		{"active unjoined invitee", obligation.StatusActive, "carol", BucketNone},
		{"completed invitee", obligation.StatusCompleted, "bob", BucketClosed},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ch := ch
			ch.Status = tc.status
			if got := Visibility(ch, participants, tc.viewer); got != tc.want {
				t.Fatalf("bucket = %s, want %s", BucketLabel(got), BucketLabel(tc.want))
			}
		})
	}
}

func TestTerminateCompletedVsFailed(t *testing.T) {
	t.Parallel()

	end := time.Date(2024, time.January, 28, 0, 0, 0, 0, time.UTC)
	ch := testChallenge("bob")
	ch.Status = obligation.StatusActive
	ch.EndDate = &end

	full := obligation.NewParticipant("ch-1", "bob", obligation.ParticipantAccepted, fixedNow)
	full.Completed = []time.Time{
		time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.January, 22, 0, 0, 0, 0, time.UTC),
	}
	creator := creatorParticipant()
	creator.Completed = full.Completed

	asOf := time.Date(2024, time.January, 29, 0, 0, 0, 0, time.UTC)

	got, err := Terminate(ch, []obligation.Participant{creator, full}, asOf, 50)
	if err != nil {
		t.Fatalf("terminate: %v", err)
	}
	if got.Status != obligation.StatusCompleted {
		t.Fatalf("status = %s, want completed", obligation.StatusLabel(got.Status))
	}

	empty := obligation.NewParticipant("ch-1", "bob", obligation.ParticipantAccepted, fixedNow)
	got, err = Terminate(ch, []obligation.Participant{creator, empty}, asOf, 50)
	if err != nil {
		t.Fatalf("terminate: %v", err)
	}
	if got.Status != obligation.StatusFailed {
		t.Fatalf("status = %s, want failed", obligation.StatusLabel(got.Status))
	}
}

func TestTerminateGuards(t *testing.T) {
	t.Parallel()

	end := time.Date(2024, time.January, 28, 0, 0, 0, 0, time.UTC)

	pending := testChallenge("bob")
	pending.EndDate = &end
	_, err := Terminate(pending, nil, end.AddDate(0, 0, 1), 50)
	if !apperrors.IsCode(err, apperrors.CodeChallengeNotTerminable) {
		t.Fatalf("pending err = %v, want not terminable", err)
	}

	active := testChallenge("bob")
	active.Status = obligation.StatusActive
	active.EndDate = &end
	_, err = Terminate(active, nil, end, 50)
	if !apperrors.IsCode(err, apperrors.CodeChallengeNotTerminable) {
		t.Fatalf("window err = %v, want not terminable", err)
	}

	open := testChallenge("bob")
	open.Status = obligation.StatusActive
	_, err = Terminate(open, nil, end.AddDate(0, 1, 0), 50)
	if !apperrors.IsCode(err, apperrors.CodeChallengeNotTerminable) {
		t.Fatalf("open-ended err = %v, want not terminable", err)
	}
}
