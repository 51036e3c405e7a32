package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/tac2ar/internal/log"
	"github.com/slok/tac2ar/internal/model"
)

// TaskRepositoryConfig is the configuration for the SQLite task repository.
type TaskRepositoryConfig struct {
	DB     *sql.DB
	Logger log.Logger
}

func (c *TaskRepositoryConfig) defaults() error {
	if c.DB == nil {
		return fmt.Errorf("db is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.TaskRepository"})
	return nil
}

// TaskRepository is a SQLite implementation of storage.TaskRepository.
type TaskRepository struct {
	db     *sql.DB
	logger log.Logger
}

// NewTaskRepository creates a new SQLite task repository.
func NewTaskRepository(cfg TaskRepositoryConfig) (*TaskRepository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &TaskRepository{
		db:     cfg.DB,
		logger: cfg.Logger,
	}, nil
}

// AddTasks adds tasks to a run in order, after the ones already present.
func (r *TaskRepository) AddTasks(ctx context.Context, runID string, names []string) error {
	if len(names) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var maxSeq int
	query := `SELECT COALESCE(MAX(sequence), 0) FROM tasks WHERE run_id = ?`
	if err := tx.QueryRowContext(ctx, query, runID).Scan(&maxSeq); err != nil {
		return fmt.Errorf("could not get max sequence: %w", err)
	}

	insertQuery := `
		INSERT INTO tasks (id, run_id, sequence, name, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, '', ?)
	`
	stmt, err := tx.PrepareContext(ctx, insertQuery)
	if err != nil {
		return fmt.Errorf("could not prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i, name := range names {
		_, err := stmt.ExecContext(ctx, ulid.Make().String(), runID, maxSeq+i+1, name, model.TaskStatusPending, now.Unix())
		if err != nil {
			return fmt.Errorf("could not insert task: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	r.logger.Debugf("Added %d tasks to run %s", len(names), runID)
	return nil
}

// NextTask returns the next pending task of a run, or nil if all done.
func (r *TaskRepository) NextTask(ctx context.Context, runID string) (*model.Task, error) {
	query := `
		SELECT id, run_id, sequence, name, status, error, created_at
		FROM tasks
		WHERE run_id = ? AND status = ?
		ORDER BY sequence ASC
		LIMIT 1
	`

	t, err := scanTask(r.db.QueryRowContext(ctx, query, runID, model.TaskStatusPending))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("could not query next task: %w", err)
	}

	return &t, nil
}

// CompleteTask marks a task as completed.
func (r *TaskRepository) CompleteTask(ctx context.Context, taskID string) error {
	return r.setStatus(ctx, taskID, model.TaskStatusDone, "")
}

// FailTask marks a task as failed with an error message.
func (r *TaskRepository) FailTask(ctx context.Context, taskID string, taskErr error) error {
	errMsg := ""
	if taskErr != nil {
		errMsg = taskErr.Error()
	}
	return r.setStatus(ctx, taskID, model.TaskStatusFailed, errMsg)
}

func (r *TaskRepository) setStatus(ctx context.Context, taskID string, status model.TaskStatus, errMsg string) error {
	query := `UPDATE tasks SET status = ?, error = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, status, errMsg, taskID)
	if err != nil {
		return fmt.Errorf("could not update task: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("task %s: %w", taskID, model.ErrNotFound)
	}

	r.logger.Debugf("Task %s is %s", taskID, status)
	return nil
}

// ListTasks returns the tasks of a run in sequence order.
func (r *TaskRepository) ListTasks(ctx context.Context, runID string) ([]model.Task, error) {
	query := `
		SELECT id, run_id, sequence, name, status, error, created_at
		FROM tasks
		WHERE run_id = ?
		ORDER BY sequence ASC
	`

	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("could not query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan task: %w", err)
		}
		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return tasks, nil
}

// Progress returns the completion progress of a run.
func (r *TaskRepository) Progress(ctx context.Context, runID string) (*model.TaskProgress, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		FROM tasks
		WHERE run_id = ?
	`

	var p model.TaskProgress
	err := r.db.QueryRowContext(ctx, query, model.TaskStatusDone, model.TaskStatusFailed, runID).Scan(&p.Total, &p.Done, &p.Failed)
	if err != nil {
		return nil, fmt.Errorf("could not query progress: %w", err)
	}

	return &p, nil
}

func scanTask(s scanner) (model.Task, error) {
	var t model.Task
	var createdAt int64

	err := s.Scan(&t.ID, &t.RunID, &t.Sequence, &t.Name, &t.Status, &t.Error, &createdAt)
	if err != nil {
		return model.Task{}, err
	}
	t.CreatedAt = time.Unix(createdAt, 0).UTC()

	return t, nil
}
