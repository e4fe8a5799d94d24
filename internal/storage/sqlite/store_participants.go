package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ajayprem/cadence/internal/obligation"
	"github.com/ajayprem/cadence/internal/storage"
)

// PutParticipant upserts one membership row and its completion keys.
func (s *Store) PutParticipant(ctx context.Context, participant obligation.Participant) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO participants (
		   challenge_id, user_id, status, last_uncompleted, created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(challenge_id, user_id) DO UPDATE SET
		   status = excluded.status,
		   last_uncompleted = excluded.last_uncompleted,
		   updated_at = excluded.updated_at`,
		participant.ChallengeID,
		participant.UserID,
		obligation.ParticipantStatusLabel(participant.Status),
		toNullDate(participant.LastUncompleted),
		toMillis(participant.CreatedAt),
		toMillis(participant.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert participant: %w", err)
	}

	if err := replaceCompletions(ctx, tx, participant.ChallengeID, participant.UserID, participant.Completed); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit participant: %w", err)
	}
	return nil
}

// GetParticipant returns one membership row.
func (s *Store) GetParticipant(ctx context.Context, challengeID, userID string) (obligation.Participant, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT challenge_id, user_id, status, last_uncompleted, created_at, updated_at
		 FROM participants WHERE challenge_id = ? AND user_id = ?`, challengeID, userID)

	participant, err := scanParticipant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return obligation.Participant{}, storage.ErrNotFound
	}
	if err != nil {
		return obligation.Participant{}, err
	}

	participant.Completed, err = s.listCompletions(ctx, challengeID, userID)
	if err != nil {
		return obligation.Participant{}, err
	}
	return participant, nil
}

// ListParticipants returns every membership row for a challenge.
func (s *Store) ListParticipants(ctx context.Context, challengeID string) ([]obligation.Participant, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT challenge_id, user_id, status, last_uncompleted, created_at, updated_at
		 FROM participants WHERE challenge_id = ? ORDER BY created_at`, challengeID)
	if err != nil {
		return nil, fmt.Errorf("query participants: %w", err)
	}
	defer rows.Close()

	var participants []obligation.Participant
	for rows.Next() {
		participant, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		participants = append(participants, participant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participants: %w", err)
	}

	for i := range participants {
		participants[i].Completed, err = s.listCompletions(ctx, challengeID, participants[i].UserID)
		if err != nil {
			return nil, err
		}
	}
	return participants, nil
}

func scanParticipant(row rowScanner) (obligation.Participant, error) {
	var (
		participant     obligation.Participant
		statusLabel     string
		lastUncompleted sql.NullString
		createdAt       int64
		updatedAt       int64
	)
	err := row.Scan(&participant.ChallengeID, &participant.UserID, &statusLabel,
		&lastUncompleted, &createdAt, &updatedAt)
	if err != nil {
		return obligation.Participant{}, err
	}

	participant.Status = obligation.ParticipantStatusFromLabel(statusLabel)
	participant.CreatedAt = fromMillis(createdAt)
	participant.UpdatedAt = fromMillis(updatedAt)
	if participant.LastUncompleted, err = fromNullDate(lastUncompleted); err != nil {
		return obligation.Participant{}, fmt.Errorf("parse participant last uncompleted: %w", err)
	}
	return participant, nil
}
