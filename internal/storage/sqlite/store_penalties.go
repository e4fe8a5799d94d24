package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ajayprem/cadence/internal/storage"
)

// PutPenalties inserts a batch of penalty records atomically. Any collision
// with the accrual uniqueness index rolls the whole batch back and reports
// storage.ErrAlreadyExists.
func (s *Store) PutPenalties(ctx context.Context, records []storage.Penalty) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, record := range records {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO penalties (
			   id, source_id, kind, from_user_id, to_user_id, amount_cents,
			   reason, period_key, accrued_at, settled_at
			 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			record.ID,
			record.SourceID,
			record.Kind,
			record.FromUserID,
			record.ToUserID,
			record.AmountCents,
			record.Reason,
			toDate(record.PeriodKey),
			toMillis(record.AccruedAt),
			toNullMillis(record.SettledAt),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return storage.ErrAlreadyExists
			}
			return fmt.Errorf("insert penalty: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit penalties: %w", err)
	}
	return nil
}

// ListUnsettledByUser returns every open record where the user is debtor or
// creditor.
func (s *Store) ListUnsettledByUser(ctx context.Context, userID string) ([]storage.Penalty, error) {
	return s.listPenalties(ctx,
		`SELECT id, source_id, kind, from_user_id, to_user_id, amount_cents,
		        reason, period_key, accrued_at, settled_at
		 FROM penalties
		 WHERE settled_at IS NULL AND (from_user_id = ? OR to_user_id = ?)
		 ORDER BY accrued_at`, userID, userID)
}

// ListUnsettledBetween returns open records in one direction between a pair.
func (s *Store) ListUnsettledBetween(ctx context.Context, fromUserID, toUserID string) ([]storage.Penalty, error) {
	return s.listPenalties(ctx,
		`SELECT id, source_id, kind, from_user_id, to_user_id, amount_cents,
		        reason, period_key, accrued_at, settled_at
		 FROM penalties
		 WHERE settled_at IS NULL AND from_user_id = ? AND to_user_id = ?
		 ORDER BY accrued_at`, fromUserID, toUserID)
}

// SettlePenalties marks exactly the identified open records settled in one
// transaction. When any id is missing or already settled the whole write
// rolls back with storage.ErrNotFound.
func (s *Store) SettlePenalties(ctx context.Context, ids []string, settledAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range ids {
		result, err := tx.ExecContext(ctx,
			`UPDATE penalties SET settled_at = ?
			 WHERE id = ? AND settled_at IS NULL`,
			toMillis(settledAt), id)
		if err != nil {
			return fmt.Errorf("settle penalty %s: %w", id, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("settled row count: %w", err)
		}
		if affected == 0 {
			return storage.ErrNotFound
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit settlement: %w", err)
	}
	return nil
}

// DeleteUnsettledBySource removes open records accrued by one obligation.
// Settled records stay as payment history.
func (s *Store) DeleteUnsettledBySource(ctx context.Context, sourceID string) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM penalties WHERE source_id = ? AND settled_at IS NULL`, sourceID)
	if err != nil {
		return fmt.Errorf("delete penalties by source: %w", err)
	}
	return nil
}

func (s *Store) listPenalties(ctx context.Context, query string, args ...any) ([]storage.Penalty, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query penalties: %w", err)
	}
	defer rows.Close()

	var records []storage.Penalty
	for rows.Next() {
		var (
			record    storage.Penalty
			periodKey string
			accruedAt int64
			settledAt sql.NullInt64
		)
		err := rows.Scan(&record.ID, &record.SourceID, &record.Kind,
			&record.FromUserID, &record.ToUserID, &record.AmountCents,
			&record.Reason, &periodKey, &accruedAt, &settledAt)
		if err != nil {
			return nil, fmt.Errorf("scan penalty: %w", err)
		}
		if record.PeriodKey, err = fromDate(periodKey); err != nil {
			return nil, fmt.Errorf("parse penalty period key: %w", err)
		}
		record.AccruedAt = fromMillis(accruedAt)
		record.SettledAt = fromNullMillis(settledAt)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate penalties: %w", err)
	}
	return records, nil
}
