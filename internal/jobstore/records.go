package jobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ledgercast/internal/job"
)

// Mutation describes a partial update applied atomically to a job record.
// Nil fields are left unchanged.
type Mutation struct {
	Status       *job.Status
	Progress     *float64
	Message      *string
	ErrorMessage *string
}

// CreateOrGet returns the existing non-terminal record for the pair, or
// creates a new pending one. With force set, an in-flight record yields
// job.ErrConflict instead of being reused.
func (s *Store) CreateOrGet(ctx context.Context, targetID string, jobType job.Type, force bool) (*job.Record, bool, error) {
	if targetID == "" {
		return nil, false, errors.New("target id is required")
	}

	var (
		record  *job.Record
		created bool
	)
	err := s.withTxRetry(ctx, func(tx *sql.Tx) error {
		existing, err := activeForPair(ctx, tx, targetID, jobType)
		if err != nil {
			return err
		}
		if existing != nil {
			if force {
				return job.ErrConflict
			}
			record = existing
			created = false
			return nil
		}

		now := time.Now().UTC()
		fresh := &job.Record{
			ID:        uuid.NewString(),
			TargetID:  targetID,
			Type:      jobType,
			Status:    job.StatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO jobs (id, target_id, job_type, status, progress, created_at, updated_at)
             VALUES (?, ?, ?, ?, 0, ?, ?)`,
			fresh.ID, fresh.TargetID, fresh.Type, fresh.Status,
			now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("insert job: %w", err)
		}
		record = fresh
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return record, created, nil
}

// GetCurrent returns the latest record for the pair, terminal or not.
func (s *Store) GetCurrent(ctx context.Context, targetID string, jobType job.Type) (*job.Record, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM jobs
         WHERE target_id = ? AND job_type = ?
         ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		targetID, jobType,
	)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, job.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get current job: %w", err)
	}
	return record, nil
}

// GetByID fetches a job record by identifier.
func (s *Store) GetByID(ctx context.Context, id string) (*job.Record, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM jobs WHERE id = ?`, id)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, job.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return record, nil
}

// Update applies a mutation atomically, rejecting invalid status transitions
// with job.ErrInvalidTransition. Progress never regresses while the job is
// running. The updated record is returned.
func (s *Store) Update(ctx context.Context, id string, m Mutation) (*job.Record, error) {
	var updated *job.Record
	err := s.withTxRetry(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM jobs WHERE id = ?`, id)
		current, err := scanRecord(row)
		if errors.Is(err, sql.ErrNoRows) {
			return job.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load job for update: %w", err)
		}

		next := *current
		if m.Status != nil && *m.Status != current.Status {
			if !job.CanTransition(current.Status, *m.Status) {
				return fmt.Errorf("%w: %s -> %s", job.ErrInvalidTransition, current.Status, *m.Status)
			}
			next.Status = *m.Status
		}
		if m.Message != nil {
			next.Message = *m.Message
		}
		if m.Progress != nil {
			progress := *m.Progress
			if progress < 0 {
				progress = 0
			}
			if progress > 100 {
				progress = 100
			}
			if next.Status == job.StatusRunning && progress < current.Progress {
				progress = current.Progress
			}
			next.Progress = progress
		}
		if m.ErrorMessage != nil {
			next.ErrorMessage = *m.ErrorMessage
		}
		if next.Status == job.StatusCompleted {
			next.Progress = 100
		}
		next.UpdatedAt = time.Now().UTC()

		if _, err := tx.ExecContext(ctx,
			`UPDATE jobs
             SET status = ?, progress = ?, message = ?, error_message = ?, updated_at = ?
             WHERE id = ?`,
			next.Status, next.Progress,
			nullableString(next.Message), nullableString(next.ErrorMessage),
			next.UpdatedAt.Format(time.RFC3339Nano), id,
		); err != nil {
			return fmt.Errorf("update job: %w", err)
		}
		updated = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RequestCancel records the cancellation intent on a non-terminal job. The
// request is not a state change; the worker observes it and drives the
// record to cancelled.
func (s *Store) RequestCancel(ctx context.Context, id string) (*job.Record, error) {
	var updated *job.Record
	err := s.withTxRetry(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM jobs WHERE id = ?`, id)
		current, err := scanRecord(row)
		if errors.Is(err, sql.ErrNoRows) {
			return job.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load job for cancel: %w", err)
		}
		if current.IsTerminal() {
			updated = current
			return nil
		}
		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx,
			`UPDATE jobs SET cancel_requested = 1, updated_at = ? WHERE id = ?`,
			now.Format(time.RFC3339Nano), id,
		); err != nil {
			return fmt.Errorf("request cancel: %w", err)
		}
		next := *current
		next.CancelRequested = true
		next.UpdatedAt = now
		updated = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ClaimNextPending atomically moves the oldest pending record to running and
// returns it. A nil record means nothing was pending.
func (s *Store) ClaimNextPending(ctx context.Context) (*job.Record, error) {
	var claimed *job.Record
	err := s.withTxRetry(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+recordColumns+` FROM jobs WHERE status = ? ORDER BY created_at LIMIT 1`,
			job.StatusPending,
		)
		current, err := scanRecord(row)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load pending job: %w", err)
		}
		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx,
			`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
			job.StatusRunning, now.Format(time.RFC3339Nano), current.ID, job.StatusPending,
		); err != nil {
			return fmt.Errorf("claim job: %w", err)
		}
		next := *current
		next.Status = job.StatusRunning
		next.UpdatedAt = now
		claimed = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// List returns records filtered by status set (or all records when no status
// is provided), oldest first.
func (s *Store) List(ctx context.Context, statuses ...job.Status) ([]*job.Record, error) {
	ctx = ensureContext(ctx)
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + recordColumns + ` FROM jobs`
	orderClause := ` ORDER BY created_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE status IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var records []*job.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// FailRunning marks every running job as failed with the given message.
// Called on daemon shutdown so clients never wait on a job no worker owns.
func (s *Store) FailRunning(ctx context.Context, message string) (int64, error) {
	ctx = ensureContext(ctx)
	now := time.Now().UTC().Format(time.RFC3339Nano)
	var affected int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			`UPDATE jobs SET status = ?, error_message = ?, message = ?, updated_at = ? WHERE status = ?`,
			job.StatusFailed, message, message, now, job.StatusRunning,
		)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("fail running jobs: %w", err)
	}
	return affected, nil
}

func activeForPair(ctx context.Context, tx *sql.Tx, targetID string, jobType job.Type) (*job.Record, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM jobs
         WHERE target_id = ? AND job_type = ? AND status IN (?, ?)
         LIMIT 1`,
		targetID, jobType, job.StatusPending, job.StatusRunning,
	)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active job: %w", err)
	}
	return record, nil
}
