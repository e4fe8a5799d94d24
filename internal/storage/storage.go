// Package storage defines persistence contracts for obligation, penalty,
// and contact state. Implementations live in subpackages; services depend
// only on these interfaces.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/ajayprem/cadence/internal/obligation"
)

// ErrNotFound indicates a requested persistence record is missing.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
var ErrAlreadyExists = errors.New("record already exists")

// Penalty kinds, naming the obligation flavor a record accrued from.
const (
	PenaltyKindTask      = "task"
	PenaltyKindChallenge = "challenge"
)

// Penalty stores one accrued debt from a missed period. A record stays open
// until an explicit settlement marks it paid.
type Penalty struct {
	ID          string
	SourceID    string
	Kind        string
	FromUserID  string
	ToUserID    string
	AmountCents int64
	Reason      string
	PeriodKey   time.Time
	AccruedAt   time.Time
	SettledAt   *time.Time
}

// Settled reports whether the debt has been paid.
func (p Penalty) Settled() bool {
	return p.SettledAt != nil
}

// Contact stores one owner-scoped directed contact relationship. Friendship
// requires rows in both directions.
type Contact struct {
	OwnerUserID   string
	ContactUserID string
	CreatedAt     time.Time
}

// TaskStore persists personal task records and their completion state.
type TaskStore interface {
	PutTask(ctx context.Context, task obligation.Task) error
	GetTask(ctx context.Context, id string) (obligation.Task, error)
	ListTasksByOwner(ctx context.Context, ownerID string) ([]obligation.Task, error)
	ListActiveTasks(ctx context.Context) ([]obligation.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// ChallengeStore persists group challenge records.
type ChallengeStore interface {
	PutChallenge(ctx context.Context, challenge obligation.Challenge) error
	GetChallenge(ctx context.Context, id string) (obligation.Challenge, error)
	ListChallengesForUser(ctx context.Context, userID string) ([]obligation.Challenge, error)
	ListActiveChallenges(ctx context.Context) ([]obligation.Challenge, error)
	ListPendingChallenges(ctx context.Context) ([]obligation.Challenge, error)
}

// ParticipantStore persists per-user challenge participation state.
type ParticipantStore interface {
	PutParticipant(ctx context.Context, participant obligation.Participant) error
	GetParticipant(ctx context.Context, challengeID, userID string) (obligation.Participant, error)
	ListParticipants(ctx context.Context, challengeID string) ([]obligation.Participant, error)
}

// PenaltyStore persists accrued penalty records.
//
// PutPenalties writes the batch atomically and returns ErrAlreadyExists when
// any record collides with an existing (source, debtor, recipient, period)
// accrual, leaving the store unchanged.
//
// SettlePenalties marks exactly the identified open records settled, all in
// one atomic write. Records accrued after the caller's snapshot are never
// touched. It returns ErrNotFound, changing nothing, when any id is missing
// or already settled.
type PenaltyStore interface {
	PutPenalties(ctx context.Context, records []Penalty) error
	ListUnsettledByUser(ctx context.Context, userID string) ([]Penalty, error)
	ListUnsettledBetween(ctx context.Context, fromUserID, toUserID string) ([]Penalty, error)
	SettlePenalties(ctx context.Context, ids []string, settledAt time.Time) error
	DeleteUnsettledBySource(ctx context.Context, sourceID string) error
}

// ContactStore persists owner-scoped directed contact relationships.
type ContactStore interface {
	PutContact(ctx context.Context, contact Contact) error
	HasContact(ctx context.Context, ownerUserID, contactUserID string) (bool, error)
	ListContacts(ctx context.Context, ownerUserID string) ([]Contact, error)
}

// Store is a composite interface covering every persistence concern.
type Store interface {
	TaskStore
	ChallengeStore
	ParticipantStore
	PenaltyStore
	ContactStore
	Close() error
}
