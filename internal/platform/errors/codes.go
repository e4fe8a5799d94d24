package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Obligation validation errors
	CodeObligationTitleEmpty       Code = "OBLIGATION_TITLE_EMPTY"
	CodeObligationInvalidPeriod    Code = "OBLIGATION_INVALID_PERIOD"
	CodeObligationMissingStartDate Code = "OBLIGATION_MISSING_START_DATE"
	CodeObligationInvalidDateRange Code = "OBLIGATION_INVALID_DATE_RANGE"
	CodeObligationNegativePenalty  Code = "OBLIGATION_NEGATIVE_PENALTY"
	CodeObligationNotAParticipant  Code = "OBLIGATION_NOT_A_PARTICIPANT"

	// Completion errors
	CodeCompletionFutureDate      Code = "COMPLETION_FUTURE_DATE"
	CodeCompletionOutOfRange      Code = "COMPLETION_OUT_OF_RANGE"
	CodeCompletionCatchUpRequired Code = "COMPLETION_CATCH_UP_REQUIRED"

	// Challenge lifecycle errors
	CodeChallengeNoInvitees       Code = "CHALLENGE_NO_INVITEES"
	CodeChallengeNotInvited       Code = "CHALLENGE_NOT_INVITED"
	CodeChallengeAlreadyResponded Code = "CHALLENGE_ALREADY_RESPONDED"
	CodeChallengeNotTerminable    Code = "CHALLENGE_NOT_TERMINABLE"
	CodeInviteeNotFriend          Code = "CHALLENGE_INVITEE_NOT_FRIEND"

	// Penalty errors
	CodePenaltyDuplicateAccrual Code = "PENALTY_DUPLICATE_ACCRUAL"
	CodePenaltyNothingToSettle  Code = "PENALTY_NOTHING_TO_SETTLE"
	CodePenaltyNotConfigured    Code = "PENALTY_NOT_CONFIGURED"
	CodeRecipientNotFriend      Code = "PENALTY_RECIPIENT_NOT_FRIEND"

	// Auth errors
	CodeAuthInvalidToken Code = "AUTH_INVALID_TOKEN"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeObligationTitleEmpty,
		CodeObligationInvalidPeriod,
		CodeObligationMissingStartDate,
		CodeObligationInvalidDateRange,
		CodeObligationNegativePenalty,
		CodeChallengeNoInvitees,
		CodeInviteeNotFriend,
		CodeRecipientNotFriend:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow operation
	case CodeCompletionFutureDate,
		CodeCompletionOutOfRange,
		CodeCompletionCatchUpRequired,
		CodeChallengeAlreadyResponded,
		CodeChallengeNotTerminable,
		CodePenaltyNothingToSettle,
		CodePenaltyNotConfigured:
		return codes.FailedPrecondition

	// PermissionDenied - caller has no standing on the obligation
	case CodeObligationNotAParticipant,
		CodeChallengeNotInvited:
		return codes.PermissionDenied

	// AlreadyExists - idempotency guards
	case CodePenaltyDuplicateAccrual:
		return codes.AlreadyExists

	// Unauthenticated
	case CodeAuthInvalidToken:
		return codes.Unauthenticated

	// NotFound
	case CodeNotFound:
		return codes.NotFound

	default:
		return codes.Internal
	}
}
