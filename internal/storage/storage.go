package storage

import (
	"context"
	"time"

	"github.com/slok/tac2ar/internal/model"
)

// RunRepository is the interface for pipeline run persistence.
type RunRepository interface {
	CreateRun(ctx context.Context, r model.Run) error
	FinishRun(ctx context.Context, id string, status model.RunStatus, exitCode int, errMsg string, at time.Time) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)
}

// TaskRepository tracks the ordered steps of each run.
type TaskRepository interface {
	// AddTasks adds tasks to a run after the existing ones, in order.
	AddTasks(ctx context.Context, runID string, names []string) error
	// NextTask returns the next pending task of a run, or nil if all done.
	NextTask(ctx context.Context, runID string) (*model.Task, error)
	CompleteTask(ctx context.Context, taskID string) error
	FailTask(ctx context.Context, taskID string, err error) error
	ListTasks(ctx context.Context, runID string) ([]model.Task, error)
	Progress(ctx context.Context, runID string) (*model.TaskProgress, error)
}

//go:generate mockery --case underscore --output storagemock --outpkg storagemock --name RunRepository --structname MockRunRepository --filename run_repository.go
//go:generate mockery --case underscore --output storagemock --outpkg storagemock --name TaskRepository --structname MockTaskRepository --filename task_repository.go
