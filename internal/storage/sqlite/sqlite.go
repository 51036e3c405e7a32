package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/slok/tac2ar/internal/log"
	"github.com/slok/tac2ar/internal/model"
	"github.com/slok/tac2ar/internal/storage/sqlite/migrations"
)

// RepositoryConfig is the configuration for the SQLite repository.
type RepositoryConfig struct {
	DBPath string
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLite"})
	return nil
}

// Repository is a SQLite implementation of storage.RunRepository.
type Repository struct {
	db     *sql.DB
	logger log.Logger
}

// NewRepository opens (creating if needed) the history database and migrates it.
func NewRepository(ctx context.Context, cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	migrator, err := migrations.NewMigrator(db, cfg.Logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create migrator: %w", err)
	}
	if err := migrator.Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not run migrations: %w", err)
	}

	cfg.Logger.Debugf("SQLite repository initialized at %s", cfg.DBPath)

	return &Repository{db: db, logger: cfg.Logger}, nil
}

// NewRepositoryFromDB uses an already migrated database.
func NewRepositoryFromDB(db *sql.DB, logger log.Logger) (*Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if logger == nil {
		logger = log.Noop
	}

	return &Repository{db: db, logger: logger.WithValues(log.Kv{"svc": "storage.SQLite"})}, nil
}

// DB returns the underlying connection, shared with the task repository.
func (r *Repository) DB() *sql.DB { return r.db }

// Close closes the database connection.
func (r *Repository) Close() error { return r.db.Close() }

// CreateRun stores a new run.
func (r *Repository) CreateRun(ctx context.Context, run model.Run) error {
	if run.ID == "" {
		return fmt.Errorf("run id is required: %w", model.ErrNotValid)
	}

	var finishedAt *int64
	if run.FinishedAt != nil {
		u := run.FinishedAt.Unix()
		finishedAt = &u
	}

	query := `
		INSERT INTO runs (id, status, platform, kidney, exit_code, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		run.ID,
		run.Status,
		run.Platform,
		run.Kidney,
		run.ExitCode,
		run.Error,
		run.StartedAt.Unix(),
		finishedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: runs.") {
			return fmt.Errorf("run %s: %w", run.ID, model.ErrAlreadyExists)
		}
		return fmt.Errorf("could not insert run: %w", err)
	}

	r.logger.Debugf("Created run in repository: %s", run.ID)
	return nil
}

// FinishRun sets the final state of a run.
func (r *Repository) FinishRun(ctx context.Context, id string, status model.RunStatus, exitCode int, errMsg string, at time.Time) error {
	query := `UPDATE runs SET status = ?, exit_code = ?, error = ?, finished_at = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, status, exitCode, errMsg, at.Unix(), id)
	if err != nil {
		return fmt.Errorf("could not update run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run %s: %w", id, model.ErrNotFound)
	}

	r.logger.Debugf("Finished run %s with status %s", id, status)
	return nil
}

const selectRunsWithProgress = `
	SELECT
		r.id, r.status, r.platform, r.kidney, r.exit_code, r.error, r.started_at, r.finished_at,
		COUNT(t.id),
		COALESCE(SUM(CASE WHEN t.status = 'done' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN t.status = 'failed' THEN 1 ELSE 0 END), 0)
	FROM runs r
	LEFT JOIN tasks t ON t.run_id = r.id
`

// GetRun retrieves a run by ID.
func (r *Repository) GetRun(ctx context.Context, id string) (*model.Run, error) {
	query := selectRunsWithProgress + `
		WHERE r.id = ?
		GROUP BY r.id
	`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("run %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query run: %w", err)
	}

	return &run, nil
}

// ListRuns returns the most recent runs first. A limit <= 0 returns all of them.
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = -1
	}

	query := selectRunsWithProgress + `
		GROUP BY r.id
		ORDER BY r.started_at DESC, r.id DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("could not query runs: %w", err)
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (model.Run, error) {
	var run model.Run
	var startedAt int64
	var finishedAt sql.NullInt64

	err := s.Scan(
		&run.ID,
		&run.Status,
		&run.Platform,
		&run.Kidney,
		&run.ExitCode,
		&run.Error,
		&startedAt,
		&finishedAt,
		&run.Progress.Total,
		&run.Progress.Done,
		&run.Progress.Failed,
	)
	if err != nil {
		return model.Run{}, err
	}

	run.StartedAt = time.Unix(startedAt, 0).UTC()
	if finishedAt.Valid {
		t := time.Unix(finishedAt.Int64, 0).UTC()
		run.FinishedAt = &t
	}

	return run, nil
}
