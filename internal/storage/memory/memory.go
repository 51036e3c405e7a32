package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/tac2ar/internal/log"
	"github.com/slok/tac2ar/internal/model"
)

// RepositoryConfig is the configuration for the memory repository.
type RepositoryConfig struct {
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Memory"})
	return nil
}

// Repository is an in-memory implementation of storage.RunRepository and
// storage.TaskRepository. Used when the run history is disabled.
type Repository struct {
	runs   map[string]model.Run
	tasks  map[string][]model.Task // By run ID, in sequence order.
	mu     sync.RWMutex
	logger log.Logger
}

// NewRepository creates a new memory repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Repository{
		runs:   make(map[string]model.Run),
		tasks:  make(map[string][]model.Task),
		logger: cfg.Logger,
	}, nil
}

// CreateRun stores a new run.
func (r *Repository) CreateRun(ctx context.Context, run model.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if run.ID == "" {
		return fmt.Errorf("run id is required: %w", model.ErrNotValid)
	}
	if _, ok := r.runs[run.ID]; ok {
		return fmt.Errorf("run %s: %w", run.ID, model.ErrAlreadyExists)
	}

	r.runs[run.ID] = run
	r.logger.Debugf("Created run: %s", run.ID)
	return nil
}

// FinishRun sets the final state of a run.
func (r *Repository) FinishRun(ctx context.Context, id string, status model.RunStatus, exitCode int, errMsg string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, ok := r.runs[id]
	if !ok {
		return fmt.Errorf("run %s: %w", id, model.ErrNotFound)
	}

	at = at.UTC()
	run.Status = status
	run.ExitCode = exitCode
	run.Error = errMsg
	run.FinishedAt = &at
	r.runs[id] = run

	return nil
}

// GetRun retrieves a run by ID.
func (r *Repository) GetRun(ctx context.Context, id string) (*model.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", id, model.ErrNotFound)
	}
	run.Progress = r.progress(id)

	return &run, nil
}

// ListRuns returns the most recent runs first. A limit <= 0 returns all of them.
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	runs := make([]model.Run, 0, len(r.runs))
	for id, run := range r.runs {
		run.Progress = r.progress(id)
		runs = append(runs, run)
	}

	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].StartedAt.After(runs[j].StartedAt)
		}
		return runs[i].ID > runs[j].ID
	})

	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}

	return runs, nil
}

// AddTasks adds tasks to a run in order, after the ones already present.
func (r *Repository) AddTasks(ctx context.Context, runID string, names []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.runs[runID]; !ok {
		return fmt.Errorf("run %s: %w", runID, model.ErrNotFound)
	}

	now := time.Now().UTC()
	seq := len(r.tasks[runID])
	for _, name := range names {
		seq++
		r.tasks[runID] = append(r.tasks[runID], model.Task{
			ID:        ulid.Make().String(),
			RunID:     runID,
			Sequence:  seq,
			Name:      name,
			Status:    model.TaskStatusPending,
			CreatedAt: now,
		})
	}

	return nil
}

// NextTask returns the next pending task of a run, or nil if all done.
func (r *Repository) NextTask(ctx context.Context, runID string) (*model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.tasks[runID] {
		if t.Status == model.TaskStatusPending {
			return &t, nil
		}
	}

	return nil, nil
}

// CompleteTask marks a task as completed.
func (r *Repository) CompleteTask(ctx context.Context, taskID string) error {
	return r.setStatus(taskID, model.TaskStatusDone, "")
}

// FailTask marks a task as failed with an error message.
func (r *Repository) FailTask(ctx context.Context, taskID string, err error) error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return r.setStatus(taskID, model.TaskStatusFailed, msg)
}

// ListTasks returns the tasks of a run in sequence order.
func (r *Repository) ListTasks(ctx context.Context, runID string) ([]model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks := make([]model.Task, len(r.tasks[runID]))
	copy(tasks, r.tasks[runID])
	return tasks, nil
}

// Progress returns the completion progress of a run.
func (r *Repository) Progress(ctx context.Context, runID string) (*model.TaskProgress, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p := r.progress(runID)
	return &p, nil
}

func (r *Repository) setStatus(taskID string, status model.TaskStatus, msg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for runID, tasks := range r.tasks {
		for i := range tasks {
			if tasks[i].ID == taskID {
				r.tasks[runID][i].Status = status
				r.tasks[runID][i].Error = msg
				return nil
			}
		}
	}

	return fmt.Errorf("task %s: %w", taskID, model.ErrNotFound)
}

func (r *Repository) progress(runID string) model.TaskProgress {
	var p model.TaskProgress
	for _, t := range r.tasks[runID] {
		p.Total++
		switch t.Status {
		case model.TaskStatusDone:
			p.Done++
		case model.TaskStatusFailed:
			p.Failed++
		}
	}
	return p
}
