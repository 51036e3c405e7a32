package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/tac2ar/internal/app/kidney"
	"github.com/slok/tac2ar/internal/app/stages"
	"github.com/slok/tac2ar/internal/log"
	"github.com/slok/tac2ar/internal/logclean"
	"github.com/slok/tac2ar/internal/logsink"
	"github.com/slok/tac2ar/internal/model"
	"github.com/slok/tac2ar/internal/process"
	"github.com/slok/tac2ar/internal/storage"
	"github.com/slok/tac2ar/internal/task"
)

// KidneyPipeline decides and runs the optional kidney shell pipeline.
type KidneyPipeline interface {
	Decide(mode model.KidneyMode) (bool, error)
	Run(ctx context.Context, req kidney.Request) (*kidney.Result, error)
}

// ServiceConfig is the configuration for the pipeline service.
type ServiceConfig struct {
	Kidney         KidneyPipeline
	Runner         process.Runner
	Converter      stages.RegistryConverter
	RunRepository  storage.RunRepository
	TaskRepository storage.TaskRepository
	Logger         log.Logger
	// NewSinkLogger returns the logger used by the stages, writing to the pipeline log.
	NewSinkLogger func(w io.Writer) log.Logger
	// Stdout is the operator console.
	Stdout io.Writer
	// Stderr is the original error stream, where crashes are reported.
	Stderr io.Writer
	// Exists checks a path exists, used by the stages.
	Exists func(path string) bool
	IDGen  func() string
	Now    func() time.Time
}

func (c *ServiceConfig) defaults() error {
	if c.Kidney == nil {
		return fmt.Errorf("kidney pipeline is required")
	}

	if c.Runner == nil {
		return fmt.Errorf("runner is required")
	}

	if c.Converter == nil {
		return fmt.Errorf("converter is required")
	}

	if c.RunRepository == nil {
		return fmt.Errorf("run repository is required")
	}

	if c.TaskRepository == nil {
		return fmt.Errorf("task repository is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Pipeline"})

	if c.NewSinkLogger == nil {
		c.NewSinkLogger = func(io.Writer) log.Logger { return log.Noop }
	}

	if c.Stdout == nil {
		c.Stdout = io.Discard
	}

	if c.Stderr == nil {
		c.Stderr = io.Discard
	}

	if c.IDGen == nil {
		c.IDGen = func() string { return ulid.Make().String() }
	}

	if c.Now == nil {
		c.Now = time.Now
	}

	return nil
}

// Service runs a full pipeline execution and records it in the run history.
type Service struct {
	kidney        KidneyPipeline
	runner        process.Runner
	converter     stages.RegistryConverter
	runRepo       storage.RunRepository
	tracker       task.Tracker
	taskRepo      storage.TaskRepository
	logger        log.Logger
	newSinkLogger func(w io.Writer) log.Logger
	stdout        io.Writer
	stderr        io.Writer
	exists        func(path string) bool
	idGen         func() string
	now           func() time.Time
}

// NewService creates a new pipeline service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	tracker, err := task.NewRepositoryTracker(task.RepositoryTrackerConfig{
		Repository: cfg.TaskRepository,
		Logger:     cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create task tracker: %w", err)
	}

	return &Service{
		kidney:        cfg.Kidney,
		runner:        cfg.Runner,
		converter:     cfg.Converter,
		runRepo:       cfg.RunRepository,
		tracker:       tracker,
		taskRepo:      cfg.TaskRepository,
		logger:        cfg.Logger,
		newSinkLogger: cfg.NewSinkLogger,
		stdout:        cfg.Stdout,
		stderr:        cfg.Stderr,
		exists:        cfg.Exists,
		idGen:         cfg.IDGen,
		now:           cfg.Now,
	}, nil
}

// Request represents the pipeline run parameters.
type Request struct {
	Config   model.PipelineConfig
	Platform model.Platform
	Kidney   model.KidneyMode
	// LogPath is the pipeline.log path.
	LogPath string
	// KidneyLogPath is the run_kidney.log path.
	KidneyLogPath string
}

// validate checks the request. The stage settings are checked once the
// stages are chosen, a kidney only run doesn't need them.
func (r Request) validate() error {
	if err := r.Platform.Validate(); err != nil {
		return err
	}

	if r.LogPath == "" {
		return fmt.Errorf("log path is required: %w", model.ErrNotValid)
	}

	if r.KidneyLogPath == "" {
		return fmt.Errorf("kidney log path is required: %w", model.ErrNotValid)
	}

	return nil
}

// Result is the outcome of a pipeline execution.
type Result struct {
	Run *model.Run
	// KidneyRan is true when the kidney pipeline ran instead of the stages.
	KidneyRan bool
}

// Run executes the pipeline. When the operator chooses the kidney pipeline it is
// the only thing that runs. Otherwise the stages run with their output captured
// in the pipeline log, which is cleaned afterwards. The returned result is
// set even when the execution failed, as long as the run was recorded.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	fmt.Fprintf(s.stdout, "The full output will be saved in: %s\n", req.LogPath)

	runKidney, err := s.kidney.Decide(req.Kidney)
	if err != nil {
		return nil, err
	}

	if !runKidney {
		if err := req.Config.Validate(); err != nil {
			return nil, fmt.Errorf("invalid request: %w", err)
		}
	}

	run := model.Run{
		ID:        s.idGen(),
		Status:    model.RunStatusRunning,
		Platform:  req.Platform,
		Kidney:    runKidney,
		StartedAt: s.now().UTC(),
	}
	if err := s.runRepo.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("could not create run: %w", err)
	}

	tasks := []string{model.TaskSegmentation, model.TaskRegistryConversion, model.TaskBlender, model.TaskLogCleanup}
	if runKidney {
		tasks = []string{model.TaskKidneyPipeline}
	}
	if err := s.taskRepo.AddTasks(ctx, run.ID, tasks); err != nil {
		return nil, fmt.Errorf("could not create run tasks: %w", err)
	}

	logger := s.logger.WithValues(log.Kv{"run-id": run.ID})
	logger.Debugf("Run started")

	if runKidney {
		err = s.tracker.Track(ctx, run.ID, model.TaskKidneyPipeline, func() error {
			_, err := s.kidney.Run(ctx, kidney.Request{
				Platform:   req.Platform,
				ScriptPath: req.Config.ShellPipelinePath,
				LogPath:    req.KidneyLogPath,
				Env:        req.Config.Env,
			})
			return err
		})
	} else {
		err = s.runStages(ctx, run.ID, req)
	}

	return s.finish(ctx, logger, run.ID, runKidney, err)
}

func (s *Service) runStages(ctx context.Context, runID string, req Request) error {
	stagesErr := logsink.Redirect(req.LogPath, req.Config.FileEncoding, s.stderr, func(sink *logsink.Sink) error {
		sinkLogger := s.newSinkLogger(sink).WithValues(log.Kv{"run-id": runID})
		sinkLogger.Debugf("Logging redirected to %s", sink.Path())

		svc, err := stages.NewService(stages.ServiceConfig{
			Runner:    s.runner,
			Converter: s.converter,
			Tracker:   s.tracker,
			Logger:    sinkLogger,
			Out:       sink,
			Exists:    s.exists,
		})
		if err != nil {
			return fmt.Errorf("could not create stage runner: %w", err)
		}

		return svc.Run(ctx, stages.Request{RunID: runID, Config: req.Config})
	})

	fmt.Fprintln(s.stdout, "Cleaning the log file")
	clean := func() error { return logclean.File(req.LogPath, req.Config.FileEncoding) }

	// Cleanup is tracked only when the previous tasks completed.
	var cleanErr error
	if stagesErr == nil {
		cleanErr = s.tracker.Track(ctx, runID, model.TaskLogCleanup, clean)
	} else {
		cleanErr = clean()
	}
	if cleanErr != nil {
		fmt.Fprintf(s.stdout, "Error cleaning the log: %v\n", cleanErr)
	}

	fmt.Fprintf(s.stdout, "Execution finished. Check %s for details.\n", req.LogPath)

	return stagesErr
}

func (s *Service) finish(ctx context.Context, logger log.Logger, runID string, kidneyRan bool, runErr error) (*Result, error) {
	status, exitCode, errMsg := model.RunStatusSucceeded, 0, ""
	if runErr != nil {
		status, exitCode, errMsg = model.RunStatusFailed, 1, runErr.Error()
	}

	// The run is recorded even if the execution was cancelled.
	ctx = context.WithoutCancel(ctx)
	if err := s.runRepo.FinishRun(ctx, runID, status, exitCode, errMsg, s.now().UTC()); err != nil {
		logger.Warningf("Could not record run result: %v", err)
	}

	run, err := s.runRepo.GetRun(ctx, runID)
	if err != nil {
		logger.Warningf("Could not get run: %v", err)
		run = &model.Run{ID: runID, Status: status, ExitCode: exitCode, Error: errMsg, Kidney: kidneyRan}
	}

	logger.Debugf("Run finished with status %s", status)
	return &Result{Run: run, KidneyRan: kidneyRan}, runErr
}
