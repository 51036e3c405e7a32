package runinfo

import (
	"context"
	"errors"
	"fmt"

	"github.com/slok/tac2ar/internal/log"
	"github.com/slok/tac2ar/internal/model"
	"github.com/slok/tac2ar/internal/storage"
)

// ServiceConfig is the configuration for the run info service.
type ServiceConfig struct {
	RunRepository  storage.RunRepository
	TaskRepository storage.TaskRepository
	Logger         log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.RunRepository == nil {
		return fmt.Errorf("run repository is required")
	}

	if c.TaskRepository == nil {
		return fmt.Errorf("task repository is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Service gets a recorded run with its tasks.
type Service struct {
	runRepo  storage.RunRepository
	taskRepo storage.TaskRepository
	logger   log.Logger
}

// NewService creates a new run info service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		runRepo:  cfg.RunRepository,
		taskRepo: cfg.TaskRepository,
		logger:   cfg.Logger,
	}, nil
}

// Request represents the run info request parameters.
type Request struct {
	RunID string
}

// Response is a run and its ordered tasks.
type Response struct {
	Run   model.Run
	Tasks []model.Task
}

// Run gets a run by ID.
func (s *Service) Run(ctx context.Context, req Request) (*Response, error) {
	if req.RunID == "" {
		return nil, fmt.Errorf("run id is required: %w", model.ErrNotValid)
	}

	s.logger.Debugf("getting run: %s", req.RunID)

	run, err := s.runRepo.GetRun(ctx, req.RunID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("run not found: %s: %w", req.RunID, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not get run: %w", err)
	}

	tasks, err := s.taskRepo.ListTasks(ctx, run.ID)
	if err != nil {
		return nil, fmt.Errorf("could not list run tasks: %w", err)
	}

	return &Response{Run: *run, Tasks: tasks}, nil
}
