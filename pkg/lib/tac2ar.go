package lib

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/slok/tac2ar/internal/app/doctor"
	"github.com/slok/tac2ar/internal/app/history"
	"github.com/slok/tac2ar/internal/app/kidney"
	"github.com/slok/tac2ar/internal/app/pipeline"
	"github.com/slok/tac2ar/internal/app/runinfo"
	"github.com/slok/tac2ar/internal/conventions"
	"github.com/slok/tac2ar/internal/log"
	"github.com/slok/tac2ar/internal/model"
	"github.com/slok/tac2ar/internal/process"
	"github.com/slok/tac2ar/internal/process/fake"
	"github.com/slok/tac2ar/internal/process/system"
	"github.com/slok/tac2ar/internal/registry"
	"github.com/slok/tac2ar/internal/storage"
	storageio "github.com/slok/tac2ar/internal/storage/io"
	"github.com/slok/tac2ar/internal/storage/memory"
	"github.com/slok/tac2ar/internal/storage/sqlite"
)

// Config configures the SDK client.
//
// All fields are optional. An empty Config{} records runs in ~/.tac2ar/history.db
// and spawns the real pipeline tools.
type Config struct {
	// DBPath is the run history SQLite database path.
	// Default: <DataDir>/history.db.
	DBPath string

	// DataDir is the base directory for tac2ar data. Logs of runs without an
	// explicit log path are written here too.
	// Default: ~/.tac2ar.
	DataDir string

	// Logger receives structured log output from the SDK.
	// Default: noop (silent). See the log sub-package for the interface.
	Logger log.Logger

	// LogFileLogger returns the logger used for diagnostics written to the
	// pipeline log. Default: no diagnostics, only the stage output.
	LogFileLogger func(w io.Writer) log.Logger

	// NoHistory keeps runs in memory only, no database is opened.
	NoHistory bool

	// DryRun doesn't spawn processes, every pipeline process succeeds with
	// empty output. Configured paths are still checked.
	DryRun bool

	// Bash is the shell used to run the kidney pipeline.
	// Default: bash.
	Bash string
}

func (c *Config) defaults() error {
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("could not get user home dir: %w", err)
		}
		c.DataDir = filepath.Join(home, conventions.DefaultDataDir)
	}

	if c.DBPath == "" {
		c.DBPath = conventions.HistoryDBPath(c.DataDir)
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	if c.Bash == "" {
		c.Bash = "bash"
	}

	return nil
}

type historyRepository interface {
	storage.RunRepository
	storage.TaskRepository
}

type sqliteHistory struct {
	*sqlite.Repository
	*sqlite.TaskRepository
}

// Client is the SDK entry point for running the pipeline programmatically.
//
// Create a Client with [New] and release its resources with [Client.Close].
type Client struct {
	repo          historyRepository
	runner        process.Runner
	converter     *registry.YAMLToJSON
	logger        log.Logger
	logFileLogger func(w io.Writer) log.Logger
	dataDir       string
	bash          string
	closeFn       func() error
}

// New creates a new SDK client.
//
// The caller must call [Client.Close] when done to release the history database.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var runner process.Runner
	var err error
	if cfg.DryRun {
		runner, err = fake.NewRunner(fake.RunnerConfig{Logger: cfg.Logger})
	} else {
		runner, err = system.NewRunner(system.RunnerConfig{Logger: cfg.Logger})
	}
	if err != nil {
		return nil, fmt.Errorf("could not create process runner: %w", err)
	}

	converter, err := registry.NewYAMLToJSON(registry.ConverterConfig{Logger: cfg.Logger})
	if err != nil {
		return nil, fmt.Errorf("could not create registry converter: %w", err)
	}

	c := &Client{
		runner:        runner,
		converter:     converter,
		logger:        cfg.Logger,
		logFileLogger: cfg.LogFileLogger,
		dataDir:       cfg.DataDir,
		bash:          cfg.Bash,
	}

	if cfg.NoHistory {
		repo, err := memory.NewRepository(memory.RepositoryConfig{Logger: cfg.Logger})
		if err != nil {
			return nil, fmt.Errorf("could not create memory repository: %w", err)
		}
		c.repo = repo
		return c, nil
	}

	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: cfg.DBPath,
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create repository: %w", err)
	}

	taskRepo, err := sqlite.NewTaskRepository(sqlite.TaskRepositoryConfig{
		DB:     repo.DB(),
		Logger: cfg.Logger,
	})
	if err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("could not create task repository: %w", err)
	}

	c.repo = sqliteHistory{Repository: repo, TaskRepository: taskRepo}
	c.closeFn = repo.Close

	return c, nil
}

// Close releases resources held by the client. After Close returns, the
// client must not be used.
func (c *Client) Close() error {
	if c.closeFn != nil {
		return c.closeFn()
	}
	return nil
}

// LoadConfig reads a pipeline YAML config file. Relative paths in the file
// are resolved against the file directory.
func LoadConfig(ctx context.Context, path string) (*PipelineConfig, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}
	dir, name := filepath.Split(path)

	repo, err := storageio.NewConfigYAMLRepository(storageio.ConfigYAMLRepositoryConfig{
		FS:      os.DirFS(dir),
		BaseDir: dir,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create config repository: %w", err)
	}

	cfg, err := repo.GetConfig(ctx, name)
	if err != nil {
		return nil, mapError(fmt.Errorf("could not load config %s: %w", path, err))
	}

	out := fromInternalConfig(cfg)
	return &out, nil
}

// RunOpts are the options of a pipeline run.
type RunOpts struct {
	Pipeline PipelineConfig
	Platform Platform
	// Kidney defaults to [KidneyModeNo].
	Kidney KidneyMode
	// LogPath is the pipeline log. Default: <DataDir>/pipeline.log.
	LogPath string
	// KidneyLogPath is the kidney pipeline log. Default: <DataDir>/run_kidney.log.
	KidneyLogPath string

	// Stdin is where the kidney answer is read from with [KidneyModeAsk].
	Stdin io.Reader
	// Stdout receives the console messages. Default: discarded.
	Stdout io.Writer
	// Stderr receives crash reports. Default: discarded.
	Stderr io.Writer
}

// Run executes the pipeline and records it in the history.
//
// The returned run is set even when the pipeline failed, as long as it was
// recorded. A failed stage process returns an error matching [ErrProcessFailed],
// a missing tool or script one matching [ErrMissingPath].
func (c *Client) Run(ctx context.Context, opts RunOpts) (*Run, error) {
	platform := model.Platform(opts.Platform)
	if opts.Platform == PlatformAuto {
		platform = model.PlatformFromGOOS(runtime.GOOS)
	}

	logPath, kidneyLogPath := conventions.LogPaths(c.dataDir)
	if opts.LogPath != "" {
		logPath = opts.LogPath
	}
	if opts.KidneyLogPath != "" {
		kidneyLogPath = opts.KidneyLogPath
	}

	kidneySvc, err := kidney.NewService(kidney.ServiceConfig{
		Runner: c.runner,
		Logger: c.logger,
		Stdin:  opts.Stdin,
		Stdout: opts.Stdout,
		Bash:   c.bash,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create kidney service: %w", err)
	}

	svc, err := pipeline.NewService(pipeline.ServiceConfig{
		Kidney:         kidneySvc,
		Runner:         c.runner,
		Converter:      c.converter,
		RunRepository:  c.repo,
		TaskRepository: c.repo,
		Logger:         c.logger,
		NewSinkLogger:  c.logFileLogger,
		Stdout:         opts.Stdout,
		Stderr:         opts.Stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create pipeline service: %w", err)
	}

	res, err := svc.Run(ctx, pipeline.Request{
		Config:        toInternalConfig(opts.Pipeline),
		Platform:      platform,
		Kidney:        toInternalKidneyMode(opts.Kidney),
		LogPath:       logPath,
		KidneyLogPath: kidneyLogPath,
	})
	if res == nil {
		return nil, mapError(err)
	}

	return fromInternalRun(res.Run), mapError(err)
}

// Doctor checks the configured paths and the tools the pipeline needs.
func (c *Client) Doctor(ctx context.Context, cfg PipelineConfig, platform Platform) ([]CheckResult, error) {
	if platform == PlatformAuto {
		platform = Platform(model.PlatformFromGOOS(runtime.GOOS))
	}

	svc, err := doctor.NewService(doctor.ServiceConfig{Logger: c.logger})
	if err != nil {
		return nil, fmt.Errorf("could not create doctor service: %w", err)
	}

	results := svc.Run(ctx, doctor.Request{
		Config:   toInternalConfig(cfg),
		Platform: model.Platform(platform),
		Bash:     c.bash,
	})

	return fromInternalCheckResults(results), nil
}

// ListRunsOpts are the options to list runs.
type ListRunsOpts struct {
	// Limit is the max number of runs returned, 0 means all.
	Limit int
	// Status only returns the runs in this status.
	Status *RunStatus
}

// ListRuns returns the recorded runs, newest first.
func (c *Client) ListRuns(ctx context.Context, opts *ListRunsOpts) ([]Run, error) {
	svc, err := history.NewService(history.ServiceConfig{
		Repository: c.repo,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create history service: %w", err)
	}

	req := history.Request{}
	if opts != nil {
		req.Limit = opts.Limit
		if opts.Status != nil {
			s := model.RunStatus(*opts.Status)
			req.StatusFilter = &s
		}
	}

	runs, err := svc.Run(ctx, req)
	if err != nil {
		return nil, mapError(err)
	}

	return fromInternalRunList(runs), nil
}

// GetRun returns a run with its tasks in execution order.
//
// Returns [ErrNotFound] if the run does not exist.
func (c *Client) GetRun(ctx context.Context, id string) (*Run, []Task, error) {
	svc, err := runinfo.NewService(runinfo.ServiceConfig{
		RunRepository:  c.repo,
		TaskRepository: c.repo,
		Logger:         c.logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("could not create run info service: %w", err)
	}

	resp, err := svc.Run(ctx, runinfo.Request{RunID: id})
	if err != nil {
		return nil, nil, mapError(err)
	}

	return fromInternalRun(&resp.Run), fromInternalTasks(resp.Tasks), nil
}
