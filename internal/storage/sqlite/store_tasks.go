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

// PutTask upserts the task row together with its recipient list and
// completion keys in one transaction.
func (s *Store) PutTask(ctx context.Context, task obligation.Task) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO tasks (
		   id, owner_id, title, description, period, start_date, end_date,
		   status, penalty_cents, last_uncompleted, created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   owner_id = excluded.owner_id,
		   title = excluded.title,
		   description = excluded.description,
		   period = excluded.period,
		   start_date = excluded.start_date,
		   end_date = excluded.end_date,
		   status = excluded.status,
		   penalty_cents = excluded.penalty_cents,
		   last_uncompleted = excluded.last_uncompleted,
		   updated_at = excluded.updated_at`,
		task.ID,
		task.OwnerID,
		task.Title,
		task.Description,
		task.Period.Label(),
		toDate(task.StartDate),
		toNullDate(task.EndDate),
		obligation.StatusLabel(task.Status),
		task.PenaltyCents,
		toNullDate(task.LastUncompleted),
		toMillis(task.CreatedAt),
		toMillis(task.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert task: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM task_recipients WHERE task_id = ?`, task.ID); err != nil {
		return fmt.Errorf("clear task recipients: %w", err)
	}
	for i, recipientID := range task.PenaltyRecipientIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO task_recipients (task_id, recipient_id, ordinal) VALUES (?, ?, ?)`,
			task.ID, recipientID, i)
		if err != nil {
			return fmt.Errorf("insert task recipient: %w", err)
		}
	}

	if err := replaceCompletions(ctx, tx, task.ID, task.OwnerID, task.Completed); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit task: %w", err)
	}
	return nil
}

// GetTask returns one task by ID.
func (s *Store) GetTask(ctx context.Context, id string) (obligation.Task, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, owner_id, title, description, period, start_date, end_date,
		        status, penalty_cents, last_uncompleted, created_at, updated_at
		 FROM tasks WHERE id = ?`, id)

	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return obligation.Task{}, storage.ErrNotFound
	}
	if err != nil {
		return obligation.Task{}, err
	}
	return s.hydrateTask(ctx, task)
}

// ListTasksByOwner returns every task owned by the user, newest first.
func (s *Store) ListTasksByOwner(ctx context.Context, ownerID string) ([]obligation.Task, error) {
	return s.listTasks(ctx,
		`SELECT id, owner_id, title, description, period, start_date, end_date,
		        status, penalty_cents, last_uncompleted, created_at, updated_at
		 FROM tasks WHERE owner_id = ? ORDER BY created_at DESC`, ownerID)
}

// ListActiveTasks returns every task in active status.
func (s *Store) ListActiveTasks(ctx context.Context) ([]obligation.Task, error) {
	return s.listTasks(ctx,
		`SELECT id, owner_id, title, description, period, start_date, end_date,
		        status, penalty_cents, last_uncompleted, created_at, updated_at
		 FROM tasks WHERE status = ? ORDER BY created_at`,
		obligation.StatusLabel(obligation.StatusActive))
}

// DeleteTask removes the task row; recipients cascade, completion keys are
// cleared explicitly because completions is shared with participants.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM completions WHERE source_id = ?`, id); err != nil {
		return fmt.Errorf("delete task completions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit task delete: %w", err)
	}
	return nil
}

func (s *Store) listTasks(ctx context.Context, query string, args ...any) ([]obligation.Task, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []obligation.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}

	for i := range tasks {
		tasks[i], err = s.hydrateTask(ctx, tasks[i])
		if err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (obligation.Task, error) {
	var (
		task            obligation.Task
		periodLabel     string
		startDate       string
		endDate         sql.NullString
		statusLabel     string
		lastUncompleted sql.NullString
		createdAt       int64
		updatedAt       int64
	)
	err := row.Scan(&task.ID, &task.OwnerID, &task.Title, &task.Description,
		&periodLabel, &startDate, &endDate, &statusLabel, &task.PenaltyCents,
		&lastUncompleted, &createdAt, &updatedAt)
	if err != nil {
		return obligation.Task{}, err
	}

	task.Period = period.FromLabel(periodLabel)
	task.Status = obligation.StatusFromLabel(statusLabel)
	task.CreatedAt = fromMillis(createdAt)
	task.UpdatedAt = fromMillis(updatedAt)
	if task.StartDate, err = fromDate(startDate); err != nil {
		return obligation.Task{}, fmt.Errorf("parse task start date: %w", err)
	}
	if task.EndDate, err = fromNullDate(endDate); err != nil {
		return obligation.Task{}, fmt.Errorf("parse task end date: %w", err)
	}
	if task.LastUncompleted, err = fromNullDate(lastUncompleted); err != nil {
		return obligation.Task{}, fmt.Errorf("parse task last uncompleted: %w", err)
	}
	return task, nil
}

func (s *Store) hydrateTask(ctx context.Context, task obligation.Task) (obligation.Task, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT recipient_id FROM task_recipients WHERE task_id = ? ORDER BY ordinal`, task.ID)
	if err != nil {
		return obligation.Task{}, fmt.Errorf("query task recipients: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var recipientID string
		if err := rows.Scan(&recipientID); err != nil {
			return obligation.Task{}, fmt.Errorf("scan task recipient: %w", err)
		}
		task.PenaltyRecipientIDs = append(task.PenaltyRecipientIDs, recipientID)
	}
	if err := rows.Err(); err != nil {
		return obligation.Task{}, fmt.Errorf("iterate task recipients: %w", err)
	}

	task.Completed, err = s.listCompletions(ctx, task.ID, task.OwnerID)
	if err != nil {
		return obligation.Task{}, err
	}
	return task, nil
}
