package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"
)

// replaceCompletions rewrites the completion keys for one (source, user)
// pair. Puts carry the full key set, so replace keeps the table in sync
// without diffing.
func replaceCompletions(ctx context.Context, tx *sql.Tx, sourceID, userID string, completed []time.Time) error {
	_, err := tx.ExecContext(ctx,
		`DELETE FROM completions WHERE source_id = ? AND user_id = ?`, sourceID, userID)
	if err != nil {
		return fmt.Errorf("clear completions: %w", err)
	}
	for _, key := range completed {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO completions (source_id, user_id, period_key) VALUES (?, ?, ?)`,
			sourceID, userID, toDate(key))
		if err != nil {
			return fmt.Errorf("insert completion: %w", err)
		}
	}
	return nil
}

func (s *Store) listCompletions(ctx context.Context, sourceID, userID string) ([]time.Time, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT period_key FROM completions WHERE source_id = ? AND user_id = ?`,
		sourceID, userID)
	if err != nil {
		return nil, fmt.Errorf("query completions: %w", err)
	}
	defer rows.Close()

	var keys []time.Time
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		key, err := fromDate(value)
		if err != nil {
			return nil, fmt.Errorf("parse completion key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate completions: %w", err)
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })
	return keys, nil
}
