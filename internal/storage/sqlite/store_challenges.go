package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ajayprem/cadence/internal/obligation"
	"github.com/ajayprem/cadence/internal/period"
	"github.com/ajayprem/cadence/internal/storage"
)

// PutChallenge upserts the challenge row and its invite list in one
// transaction.
func (s *Store) PutChallenge(ctx context.Context, challenge obligation.Challenge) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO challenges (
		   id, creator_id, title, description, period, start_date, end_date,
		   status, penalty_cents, created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   creator_id = excluded.creator_id,
		   title = excluded.title,
		   description = excluded.description,
		   period = excluded.period,
		   start_date = excluded.start_date,
		   end_date = excluded.end_date,
		   status = excluded.status,
		   penalty_cents = excluded.penalty_cents,
		   updated_at = excluded.updated_at`,
		challenge.ID,
		challenge.CreatorID,
		challenge.Title,
		challenge.Description,
		challenge.Period.Label(),
		toDate(challenge.StartDate),
		toNullDate(challenge.EndDate),
		obligation.StatusLabel(challenge.Status),
		challenge.PenaltyCents,
		toMillis(challenge.CreatedAt),
		toMillis(challenge.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert challenge: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM challenge_invites WHERE challenge_id = ?`, challenge.ID); err != nil {
		return fmt.Errorf("clear challenge invites: %w", err)
	}
	for i, userID := range challenge.InvitedUserIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO challenge_invites (challenge_id, user_id, ordinal) VALUES (?, ?, ?)`,
			challenge.ID, userID, i)
		if err != nil {
			return fmt.Errorf("insert challenge invite: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit challenge: %w", err)
	}
	return nil
}

// GetChallenge returns one challenge by ID.
func (s *Store) GetChallenge(ctx context.Context, id string) (obligation.Challenge, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, creator_id, title, description, period, start_date, end_date,
		        status, penalty_cents, created_at, updated_at
		 FROM challenges WHERE id = ?`, id)

	challenge, err := scanChallenge(row)
	if errors.Is(err, sql.ErrNoRows) {
		return obligation.Challenge{}, storage.ErrNotFound
	}
	if err != nil {
		return obligation.Challenge{}, err
	}
	return s.hydrateChallenge(ctx, challenge)
}

// ListChallengesForUser returns challenges the user created or was invited
// to, newest first.
func (s *Store) ListChallengesForUser(ctx context.Context, userID string) ([]obligation.Challenge, error) {
	return s.listChallenges(ctx,
		`SELECT DISTINCT c.id, c.creator_id, c.title, c.description, c.period,
		        c.start_date, c.end_date, c.status, c.penalty_cents,
		        c.created_at, c.updated_at
		 FROM challenges c
		 LEFT JOIN challenge_invites i ON i.challenge_id = c.id
		 WHERE c.creator_id = ? OR i.user_id = ?
		 ORDER BY c.created_at DESC`, userID, userID)
}

// ListActiveChallenges returns every challenge in active status.
func (s *Store) ListActiveChallenges(ctx context.Context) ([]obligation.Challenge, error) {
	return s.listChallengesByStatus(ctx, obligation.StatusActive)
}

// ListPendingChallenges returns every challenge still waiting on invitees.
func (s *Store) ListPendingChallenges(ctx context.Context) ([]obligation.Challenge, error) {
	return s.listChallengesByStatus(ctx, obligation.StatusPending)
}

func (s *Store) listChallengesByStatus(ctx context.Context, status obligation.Status) ([]obligation.Challenge, error) {
	return s.listChallenges(ctx,
		`SELECT id, creator_id, title, description, period, start_date, end_date,
		        status, penalty_cents, created_at, updated_at
		 FROM challenges WHERE status = ? ORDER BY created_at`,
		obligation.StatusLabel(status))
}

func (s *Store) listChallenges(ctx context.Context, query string, args ...any) ([]obligation.Challenge, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query challenges: %w", err)
	}
	defer rows.Close()

	var challenges []obligation.Challenge
	for rows.Next() {
		challenge, err := scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		challenges = append(challenges, challenge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate challenges: %w", err)
	}

	for i := range challenges {
		challenges[i], err = s.hydrateChallenge(ctx, challenges[i])
		if err != nil {
			return nil, err
		}
	}
	return challenges, nil
}

func scanChallenge(row rowScanner) (obligation.Challenge, error) {
	var (
		challenge   obligation.Challenge
		periodLabel string
		startDate   string
		endDate     sql.NullString
		statusLabel string
		createdAt   int64
		updatedAt   int64
	)
	err := row.Scan(&challenge.ID, &challenge.CreatorID, &challenge.Title,
		&challenge.Description, &periodLabel, &startDate, &endDate, &statusLabel,
		&challenge.PenaltyCents, &createdAt, &updatedAt)
	if err != nil {
		return obligation.Challenge{}, err
	}

	challenge.Period = period.FromLabel(periodLabel)
	challenge.Status = obligation.StatusFromLabel(statusLabel)
	challenge.CreatedAt = fromMillis(createdAt)
	challenge.UpdatedAt = fromMillis(updatedAt)
	if challenge.StartDate, err = fromDate(startDate); err != nil {
		return obligation.Challenge{}, fmt.Errorf("parse challenge start date: %w", err)
	}
	if challenge.EndDate, err = fromNullDate(endDate); err != nil {
		return obligation.Challenge{}, fmt.Errorf("parse challenge end date: %w", err)
	}
	return challenge, nil
}

func (s *Store) hydrateChallenge(ctx context.Context, challenge obligation.Challenge) (obligation.Challenge, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT user_id FROM challenge_invites WHERE challenge_id = ? ORDER BY ordinal`, challenge.ID)
	if err != nil {
		return obligation.Challenge{}, fmt.Errorf("query challenge invites: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return obligation.Challenge{}, fmt.Errorf("scan challenge invite: %w", err)
		}
		challenge.InvitedUserIDs = append(challenge.InvitedUserIDs, userID)
	}
	if err := rows.Err(); err != nil {
		return obligation.Challenge{}, fmt.Errorf("iterate challenge invites: %w", err)
	}
	return challenge, nil
}
