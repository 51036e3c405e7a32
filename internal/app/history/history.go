package history

import (
	"context"
	"fmt"

	"github.com/slok/tac2ar/internal/log"
	"github.com/slok/tac2ar/internal/model"
	"github.com/slok/tac2ar/internal/storage"
)

// ServiceConfig is the configuration for the history service.
type ServiceConfig struct {
	Repository storage.RunRepository
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Service lists recorded pipeline runs.
type Service struct {
	repo   storage.RunRepository
	logger log.Logger
}

// NewService creates a new history service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}, nil
}

// Request represents the history request parameters.
type Request struct {
	// Limit is the maximum number of runs returned, <= 0 means all.
	Limit int
	// StatusFilter is an optional filter to only show runs with this status.
	StatusFilter *model.RunStatus
}

// Run lists the most recent runs first.
func (s *Service) Run(ctx context.Context, req Request) ([]model.Run, error) {
	s.logger.Debugf("listing runs with limit %d and filter: %v", req.Limit, req.StatusFilter)

	// The limit applies after filtering.
	limit := req.Limit
	if req.StatusFilter != nil {
		limit = 0
	}

	runs, err := s.repo.ListRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("could not list runs: %w", err)
	}

	if req.StatusFilter != nil {
		filtered := make([]model.Run, 0, len(runs))
		for _, r := range runs {
			if r.Status == *req.StatusFilter {
				filtered = append(filtered, r)
			}
		}
		runs = filtered

		if req.Limit > 0 && len(runs) > req.Limit {
			runs = runs[:req.Limit]
		}
	}

	s.logger.Debugf("found %d runs", len(runs))
	return runs, nil
}
