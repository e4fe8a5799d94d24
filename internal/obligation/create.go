package obligation

import (
	"fmt"
	"strings"
	"time"

	"github.com/ajayprem/cadence/internal/period"
	apperrors "github.com/ajayprem/cadence/internal/platform/errors"
	"github.com/ajayprem/cadence/internal/platform/id"
)

var (
	// ErrEmptyTitle indicates a missing obligation title.
	ErrEmptyTitle = apperrors.New(apperrors.CodeObligationTitleEmpty, "title is required")
	// ErrInvalidPeriod indicates a missing or invalid cadence.
	ErrInvalidPeriod = apperrors.New(apperrors.CodeObligationInvalidPeriod, "period must be daily, weekly or monthly")
	// ErrMissingStartDate indicates a missing start date.
	ErrMissingStartDate = apperrors.New(apperrors.CodeObligationMissingStartDate, "start date is required")
	// ErrInvalidDateRange indicates an end date at or before the start date.
	ErrInvalidDateRange = apperrors.New(apperrors.CodeObligationInvalidDateRange, "end date must be after start date")
	// ErrNegativePenalty indicates a penalty amount below zero.
	ErrNegativePenalty = apperrors.New(apperrors.CodeObligationNegativePenalty, "penalty amount must not be negative")
	// ErrNoInvitees indicates a challenge created without invited users.
	ErrNoInvitees = apperrors.New(apperrors.CodeChallengeNoInvitees, "at least one invitee is required")
)

// CreateTaskInput describes the metadata needed to create a task.
type CreateTaskInput struct {
	OwnerID             string
	Title               string
	Description         string
	Period              period.Period
	StartDate           time.Time
	EndDate             *time.Time
	PenaltyCents        int64
	PenaltyRecipientIDs []string
}

// CreateTask creates a new task with a generated ID and timestamps. Tasks
// are active immediately; the owner is the sole implicit participant.
func CreateTask(input CreateTaskInput, now func() time.Time, idGenerator func() (string, error)) (Task, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeCreateTaskInput(input)
	if err != nil {
		return Task{}, err
	}

	taskID, err := idGenerator()
	if err != nil {
		return Task{}, fmt.Errorf("generate task id: %w", err)
	}

	createdAt := now().UTC()
	return Task{
		ID:                  taskID,
		OwnerID:             normalized.OwnerID,
		Title:               normalized.Title,
		Description:         normalized.Description,
		Period:              normalized.Period,
		StartDate:           period.DateOf(normalized.StartDate),
		EndDate:             normalized.EndDate,
		Status:              StatusActive,
		PenaltyCents:        normalized.PenaltyCents,
		PenaltyRecipientIDs: normalized.PenaltyRecipientIDs,
		CreatedAt:           createdAt,
		UpdatedAt:           createdAt,
	}, nil
}

// NormalizeCreateTaskInput trims and validates task input metadata.
func NormalizeCreateTaskInput(input CreateTaskInput) (CreateTaskInput, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	if input.Title == "" {
		return CreateTaskInput{}, ErrEmptyTitle
	}
	if input.Period != period.Daily && input.Period != period.Weekly && input.Period != period.Monthly {
		return CreateTaskInput{}, ErrInvalidPeriod
	}
	if err := validateWindowAndPenalty(input.StartDate, input.EndDate, input.PenaltyCents); err != nil {
		return CreateTaskInput{}, err
	}
	if input.EndDate != nil {
		end := period.DateOf(*input.EndDate)
		input.EndDate = &end
	}
	return input, nil
}

// CreateChallengeInput describes the metadata needed to create a challenge.
type CreateChallengeInput struct {
	CreatorID      string
	Title          string
	Description    string
	Period         period.Period
	StartDate      time.Time
	EndDate        *time.Time
	PenaltyCents   int64
	InvitedUserIDs []string
}

// CreateChallenge creates a new pending challenge with a generated ID and
// timestamps. The creator does not appear in InvitedUserIDs; it joins as an
// accepted participant separately.
func CreateChallenge(input CreateChallengeInput, now func() time.Time, idGenerator func() (string, error)) (Challenge, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeCreateChallengeInput(input)
	if err != nil {
		return Challenge{}, err
	}

	challengeID, err := idGenerator()
	if err != nil {
		return Challenge{}, fmt.Errorf("generate challenge id: %w", err)
	}

	createdAt := now().UTC()
	return Challenge{
		ID:             challengeID,
		CreatorID:      normalized.CreatorID,
		Title:          normalized.Title,
		Description:    normalized.Description,
		Period:         normalized.Period,
		StartDate:      period.DateOf(normalized.StartDate),
		EndDate:        normalized.EndDate,
		Status:         StatusPending,
		PenaltyCents:   normalized.PenaltyCents,
		InvitedUserIDs: normalized.InvitedUserIDs,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}, nil
}

// NormalizeCreateChallengeInput trims and validates challenge input metadata.
func NormalizeCreateChallengeInput(input CreateChallengeInput) (CreateChallengeInput, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	if input.Title == "" {
		return CreateChallengeInput{}, ErrEmptyTitle
	}
	if input.Period != period.Daily && input.Period != period.Weekly && input.Period != period.Monthly {
		return CreateChallengeInput{}, ErrInvalidPeriod
	}
	if err := validateWindowAndPenalty(input.StartDate, input.EndDate, input.PenaltyCents); err != nil {
		return CreateChallengeInput{}, err
	}
	if input.EndDate != nil {
		end := period.DateOf(*input.EndDate)
		input.EndDate = &end
	}

	var invitees []string
	seen := make(map[string]struct{})
	for _, raw := range input.InvitedUserIDs {
		userID := strings.TrimSpace(raw)
		if userID == "" || userID == input.CreatorID {
			continue
		}
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}
		invitees = append(invitees, userID)
	}
	if len(invitees) == 0 {
		return CreateChallengeInput{}, ErrNoInvitees
	}
	input.InvitedUserIDs = invitees
	return input, nil
}

// NewParticipant creates a challenge membership record in the given state.
func NewParticipant(challengeID, userID string, status ParticipantStatus, now func() time.Time) Participant {
	if now == nil {
		now = time.Now
	}
	createdAt := now().UTC()
	return Participant{
		ChallengeID: challengeID,
		UserID:      userID,
		Status:      status,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

func validateWindowAndPenalty(start time.Time, end *time.Time, penaltyCents int64) error {
	if start.IsZero() {
		return ErrMissingStartDate
	}
	if end != nil && !period.DateOf(*end).After(period.DateOf(start)) {
		return ErrInvalidDateRange
	}
	if penaltyCents < 0 {
		return ErrNegativePenalty
	}
	return nil
}
