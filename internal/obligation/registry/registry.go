// Package registry is the write path for obligations. It validates input,
// resolves callers to participants, serializes per-obligation mutations, and
// delegates period math to the ledger.
package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ajayprem/cadence/internal/challenge"
	"github.com/ajayprem/cadence/internal/obligation"
	"github.com/ajayprem/cadence/internal/obligation/ledger"
	apperrors "github.com/ajayprem/cadence/internal/platform/errors"
	"github.com/ajayprem/cadence/internal/platform/id"
	"github.com/ajayprem/cadence/internal/platform/lock"
	"github.com/ajayprem/cadence/internal/storage"
)

// FriendGraph answers whether two users have a mutual contact relationship.
type FriendGraph interface {
	AreFriends(ctx context.Context, a, b string) (bool, error)
}

// Service coordinates obligation reads and writes over the store contracts.
type Service struct {
	tasks        storage.TaskStore
	challenges   storage.ChallengeStore
	participants storage.ParticipantStore
	penalties    storage.PenaltyStore
	friends      FriendGraph
	now          func() time.Time
	idGenerator  func() (string, error)
	locks        *lock.Keyed
}

// Config carries the service dependencies.
type Config struct {
	Tasks        storage.TaskStore
	Challenges   storage.ChallengeStore
	Participants storage.ParticipantStore
	Penalties    storage.PenaltyStore
	Friends      FriendGraph
	Now          func() time.Time
	IDGenerator  func() (string, error)
	// Locks serializes mutations per obligation. Share one registry-wide
	// instance with the sweeper so accruals and completions never interleave.
	Locks *lock.Keyed
}

func NewService(cfg Config) *Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.IDGenerator == nil {
		cfg.IDGenerator = id.NewID
	}
	if cfg.Locks == nil {
		cfg.Locks = lock.NewKeyed()
	}
	return &Service{
		tasks:        cfg.Tasks,
		challenges:   cfg.Challenges,
		participants: cfg.Participants,
		penalties:    cfg.Penalties,
		friends:      cfg.Friends,
		now:          cfg.Now,
		idGenerator:  cfg.IDGenerator,
		locks:        cfg.Locks,
	}
}

// CreateTask validates and persists a new personal task. Penalty recipients
// must all be friends of the owner.
func (s *Service) CreateTask(ctx context.Context, input obligation.CreateTaskInput) (obligation.Task, error) {
	for _, recipientID := range input.PenaltyRecipientIDs {
		friends, err := s.friends.AreFriends(ctx, input.OwnerID, recipientID)
		if err != nil {
			return obligation.Task{}, fmt.Errorf("check recipient friendship: %w", err)
		}
		if !friends {
			return obligation.Task{}, apperrors.WithMetadata(apperrors.CodeRecipientNotFriend,
				"penalty recipients must be friends of the owner", map[string]string{
					"recipient_id": recipientID,
				})
		}
	}

	task, err := obligation.CreateTask(input, s.now, s.idGenerator)
	if err != nil {
		return obligation.Task{}, err
	}
	if err := s.tasks.PutTask(ctx, task); err != nil {
		return obligation.Task{}, fmt.Errorf("put task: %w", err)
	}
	return task, nil
}

// CreateChallenge validates and persists a new pending challenge together
// with the creator's accepted participant record. Invitees must all be
// friends of the creator.
func (s *Service) CreateChallenge(ctx context.Context, input obligation.CreateChallengeInput) (obligation.Challenge, error) {
	normalized, err := obligation.NormalizeCreateChallengeInput(input)
	if err != nil {
		return obligation.Challenge{}, err
	}
	for _, inviteeID := range normalized.InvitedUserIDs {
		friends, err := s.friends.AreFriends(ctx, normalized.CreatorID, inviteeID)
		if err != nil {
			return obligation.Challenge{}, fmt.Errorf("check invitee friendship: %w", err)
		}
		if !friends {
			return obligation.Challenge{}, apperrors.WithMetadata(apperrors.CodeInviteeNotFriend,
				"invitees must be friends of the creator", map[string]string{
					"invitee_id": inviteeID,
				})
		}
	}

	ch, err := obligation.CreateChallenge(normalized, s.now, s.idGenerator)
	if err != nil {
		return obligation.Challenge{}, err
	}
	if err := s.challenges.PutChallenge(ctx, ch); err != nil {
		return obligation.Challenge{}, fmt.Errorf("put challenge: %w", err)
	}
	creator := obligation.NewParticipant(ch.ID, ch.CreatorID, obligation.ParticipantAccepted, s.now)
	if err := s.participants.PutParticipant(ctx, creator); err != nil {
		return obligation.Challenge{}, fmt.Errorf("put creator participant: %w", err)
	}
	return ch, nil
}

// RespondToChallenge records a one-time invite response and persists the
// re-evaluated challenge status.
func (s *Service) RespondToChallenge(ctx context.Context, challengeID, userID string, accept bool) (obligation.Challenge, error) {
	unlock := s.locks.Lock(challengeID)
	defer unlock()

	ch, err := s.getChallenge(ctx, challengeID)
	if err != nil {
		return obligation.Challenge{}, err
	}
	participants, err := s.participants.ListParticipants(ctx, challengeID)
	if err != nil {
		return obligation.Challenge{}, fmt.Errorf("list participants: %w", err)
	}

	result, err := challenge.Respond(ch, participants, userID, accept, s.now)
	if err != nil {
		return obligation.Challenge{}, err
	}
	if err := s.participants.PutParticipant(ctx, result.Participant); err != nil {
		return obligation.Challenge{}, fmt.Errorf("put participant: %w", err)
	}
	if err := s.challenges.PutChallenge(ctx, result.Challenge); err != nil {
		return obligation.Challenge{}, fmt.Errorf("put challenge: %w", err)
	}
	return result.Challenge, nil
}

// TerminateChallenge closes an elapsed active challenge against the given
// completion-rate threshold.
func (s *Service) TerminateChallenge(ctx context.Context, challengeID string, asOf time.Time, threshold float64) (obligation.Challenge, error) {
	unlock := s.locks.Lock(challengeID)
	defer unlock()

	ch, err := s.getChallenge(ctx, challengeID)
	if err != nil {
		return obligation.Challenge{}, err
	}
	participants, err := s.participants.ListParticipants(ctx, challengeID)
	if err != nil {
		return obligation.Challenge{}, fmt.Errorf("list participants: %w", err)
	}

	terminated, err := challenge.Terminate(ch, participants, asOf, threshold)
	if err != nil {
		return obligation.Challenge{}, err
	}
	if err := s.challenges.PutChallenge(ctx, terminated); err != nil {
		return obligation.Challenge{}, fmt.Errorf("put challenge: %w", err)
	}
	return terminated, nil
}

// MarkComplete records a completion for the calling user on the given date.
func (s *Service) MarkComplete(ctx context.Context, obligationID, userID string, date time.Time) error {
	return s.mutateProgress(ctx, obligationID, userID, func(series ledger.Series, pr ledger.Progress) (ledger.Progress, error) {
		return ledger.Complete(series, pr, date, s.now())
	})
}

// MarkIncomplete removes a completion for the calling user on the given
// date. Removing an absent completion is a no-op.
func (s *Service) MarkIncomplete(ctx context.Context, obligationID, userID string, date time.Time) error {
	return s.mutateProgress(ctx, obligationID, userID, func(series ledger.Series, pr ledger.Progress) (ledger.Progress, error) {
		return ledger.Uncomplete(series, pr, date, s.now()), nil
	})
}

func (s *Service) mutateProgress(ctx context.Context, obligationID, userID string, apply func(ledger.Series, ledger.Progress) (ledger.Progress, error)) error {
	unlock := s.locks.Lock(obligationID)
	defer unlock()

	task, err := s.tasks.GetTask(ctx, obligationID)
	switch {
	case err == nil:
		if task.OwnerID != userID {
			return notAParticipant(obligationID, userID)
		}
		series := ledger.Series{Period: task.Period, Window: task.ActiveWindow()}
		updated, err := apply(series, ledger.Progress{
			Completed:       task.Completed,
			LastUncompleted: task.LastUncompleted,
		})
		if err != nil {
			return err
		}
		task.Completed = updated.Completed
		task.LastUncompleted = updated.LastUncompleted
		task.UpdatedAt = s.now().UTC()
		if err := s.tasks.PutTask(ctx, task); err != nil {
			return fmt.Errorf("put task: %w", err)
		}
		return nil
	case errors.Is(err, storage.ErrNotFound):
		// Fall through to the challenge path.
	default:
		return fmt.Errorf("get task: %w", err)
	}

	ch, err := s.getChallenge(ctx, obligationID)
	if err != nil {
		return err
	}
	participant, err := s.participants.GetParticipant(ctx, obligationID, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return notAParticipant(obligationID, userID)
	}
	if err != nil {
		return fmt.Errorf("get participant: %w", err)
	}
	if participant.Status != obligation.ParticipantAccepted {
		return notAParticipant(obligationID, userID)
	}

	series := ledger.Series{Period: ch.Period, Window: ch.ActiveWindow()}
	updated, err := apply(series, ledger.Progress{
		Completed:       participant.Completed,
		LastUncompleted: participant.LastUncompleted,
	})
	if err != nil {
		return err
	}
	participant.Completed = updated.Completed
	participant.LastUncompleted = updated.LastUncompleted
	participant.UpdatedAt = s.now().UTC()
	if err := s.participants.PutParticipant(ctx, participant); err != nil {
		return fmt.Errorf("put participant: %w", err)
	}
	return nil
}

// Get returns the obligation with the given ID, task or challenge.
func (s *Service) Get(ctx context.Context, obligationID string) (obligation.Obligation, error) {
	task, err := s.tasks.GetTask(ctx, obligationID)
	if err == nil {
		return task, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return s.getChallenge(ctx, obligationID)
}

// ChallengeListing pairs a challenge with its visibility bucket for one
// viewer.
type ChallengeListing struct {
	Challenge  obligation.Challenge
	Visibility challenge.Bucket
}

// UserObligations is the per-user listing surface.
type UserObligations struct {
	Tasks      []obligation.Task
	Challenges []ChallengeListing
}

// ListForUser returns the user's tasks and every challenge visible to them,
// tagged with the viewer-specific bucket.
func (s *Service) ListForUser(ctx context.Context, userID string) (UserObligations, error) {
	tasks, err := s.tasks.ListTasksByOwner(ctx, userID)
	if err != nil {
		return UserObligations{}, fmt.Errorf("list tasks: %w", err)
	}

	challenges, err := s.challenges.ListChallengesForUser(ctx, userID)
	if err != nil {
		return UserObligations{}, fmt.Errorf("list challenges: %w", err)
	}

	listings := make([]ChallengeListing, 0, len(challenges))
	for _, ch := range challenges {
		participants, err := s.participants.ListParticipants(ctx, ch.ID)
		if err != nil {
			return UserObligations{}, fmt.Errorf("list participants: %w", err)
		}
		bucket := challenge.Visibility(ch, participants, userID)
		if bucket == challenge.BucketNone {
			continue
		}
		listings = append(listings, ChallengeListing{Challenge: ch, Visibility: bucket})
	}

	return UserObligations{Tasks: tasks, Challenges: listings}, nil
}

// Stats is the server-owned progress summary for one participant on one
// obligation.
type Stats struct {
	TotalCompletions int
	CurrentStreak    int
	LongestStreak    int
	CompletionRate   float64
	PenaltyCents     int64
}

// Stats computes the progress summary for userID on the obligation as of
// the given date.
func (s *Service) Stats(ctx context.Context, obligationID, userID string, asOf time.Time) (Stats, error) {
	ob, err := s.Get(ctx, obligationID)
	if err != nil {
		return Stats{}, err
	}

	var pr ledger.Progress
	switch v := ob.(type) {
	case obligation.Task:
		if v.OwnerID != userID {
			return Stats{}, notAParticipant(obligationID, userID)
		}
		pr = ledger.Progress{Completed: v.Completed, LastUncompleted: v.LastUncompleted}
	case obligation.Challenge:
		participant, err := s.participants.GetParticipant(ctx, obligationID, userID)
		if errors.Is(err, storage.ErrNotFound) {
			return Stats{}, notAParticipant(obligationID, userID)
		}
		if err != nil {
			return Stats{}, fmt.Errorf("get participant: %w", err)
		}
		if participant.Status != obligation.ParticipantAccepted {
			return Stats{}, notAParticipant(obligationID, userID)
		}
		pr = ledger.Progress{Completed: participant.Completed, LastUncompleted: participant.LastUncompleted}
	default:
		return Stats{}, apperrors.New(apperrors.CodeNotFound, "obligation not found")
	}

	window := ob.ActiveWindow()
	return Stats{
		TotalCompletions: len(pr.Completed),
		CurrentStreak:    ledger.CurrentStreak(ob.Cadence(), pr.Completed, asOf),
		LongestStreak:    ledger.LongestStreak(ob.Cadence(), pr.Completed),
		CompletionRate:   ledger.CompletionRate(ob.Cadence(), pr.Completed, window.Start, asOf),
		PenaltyCents:     ob.PenaltyAmount(),
	}, nil
}

// DeleteTask removes an owner's task along with its unsettled penalty
// records. Settled records are history and stay.
func (s *Service) DeleteTask(ctx context.Context, taskID, userID string) error {
	unlock := s.locks.Lock(taskID)
	defer unlock()

	task, err := s.tasks.GetTask(ctx, taskID)
	if errors.Is(err, storage.ErrNotFound) {
		return apperrors.WithMetadata(apperrors.CodeNotFound, "task not found",
			map[string]string{"task_id": taskID})
	}
	if err != nil {
		return fmt.Errorf("get task: %w", err)
	}
	if task.OwnerID != userID {
		return notAParticipant(taskID, userID)
	}

	if err := s.penalties.DeleteUnsettledBySource(ctx, taskID); err != nil {
		return fmt.Errorf("delete task penalties: %w", err)
	}
	if err := s.tasks.DeleteTask(ctx, taskID); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

func (s *Service) getChallenge(ctx context.Context, challengeID string) (obligation.Challenge, error) {
	ch, err := s.challenges.GetChallenge(ctx, challengeID)
	if errors.Is(err, storage.ErrNotFound) {
		return obligation.Challenge{}, apperrors.WithMetadata(apperrors.CodeNotFound,
			"obligation not found", map[string]string{"obligation_id": challengeID})
	}
	if err != nil {
		return obligation.Challenge{}, fmt.Errorf("get challenge: %w", err)
	}
	return ch, nil
}

func notAParticipant(obligationID, userID string) error {
	return apperrors.WithMetadata(apperrors.CodeObligationNotAParticipant,
		"user has no accepted membership on this obligation", map[string]string{
			"obligation_id": obligationID,
			"user_id":       userID,
		})
}
