// Package task tracks the steps of a pipeline run in the run history.
package task

import (
	"context"
	"fmt"

	"github.com/slok/tac2ar/internal/log"
	"github.com/slok/tac2ar/internal/storage"
)

// Tracker runs a pipeline step and records its outcome.
type Tracker interface {
	// Track runs fn as the named task of the run. The task must be the next
	// pending one of the run.
	Track(ctx context.Context, runID, name string, fn func() error) error
}

// Noop runs the steps without recording anything.
var Noop Tracker = noop{}

type noop struct{}

func (noop) Track(_ context.Context, _, _ string, fn func() error) error { return fn() }

// RepositoryTrackerConfig is the configuration for the repository tracker.
type RepositoryTrackerConfig struct {
	Repository storage.TaskRepository
	Logger     log.Logger
}

func (c *RepositoryTrackerConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "task.Tracker"})
	return nil
}

// RepositoryTracker records the steps with a storage.TaskRepository.
type RepositoryTracker struct {
	repo   storage.TaskRepository
	logger log.Logger
}

// NewRepositoryTracker returns a new tracker.
func NewRepositoryTracker(cfg RepositoryTrackerConfig) (*RepositoryTracker, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &RepositoryTracker{repo: cfg.Repository, logger: cfg.Logger}, nil
}

// Track satisfies Tracker.
func (t *RepositoryTracker) Track(ctx context.Context, runID, name string, fn func() error) error {
	tsk, err := t.repo.NextTask(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to get next task: %w", err)
	}
	if tsk == nil {
		return fmt.Errorf("no pending task found for run %s", runID)
	}
	if tsk.Name != name {
		return fmt.Errorf("expected task %s, got %s", name, tsk.Name)
	}

	err = fn()
	if err != nil {
		if failErr := t.repo.FailTask(ctx, tsk.ID, err); failErr != nil {
			t.logger.Errorf("Failed to mark task as failed: %v", failErr)
		}
		return err
	}

	if err := t.repo.CompleteTask(ctx, tsk.ID); err != nil {
		return fmt.Errorf("failed to mark task as completed: %w", err)
	}

	return nil
}
