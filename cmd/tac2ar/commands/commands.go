package commands

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"
	"k8s.io/client-go/util/homedir"

	"github.com/slok/tac2ar/internal/conventions"
	"github.com/slok/tac2ar/internal/log"
	"github.com/slok/tac2ar/internal/storage"
	"github.com/slok/tac2ar/internal/storage/memory"
	"github.com/slok/tac2ar/internal/storage/sqlite"
)

const (
	// LoggerTypeDefault is the logger default type.
	LoggerTypeDefault = "default"
	// LoggerTypeJSON is the logger json type.
	LoggerTypeJSON = "json"
)

// Command represents an application command, all commands that want to be executed
// should implement and setup on main.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// RootCommand represents the root command configuration and global configuration
// for all the commands.
type RootCommand struct {
	// Global flags.
	Debug      bool
	NoLog      bool
	NoColor    bool
	LoggerType string
	DBPath     string
	NoHistory  bool
	ConfigPath string

	// Global instances.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger log.Logger
	// NewFileLogger returns a logger writing to a log file instead of the console.
	NewFileLogger func(w io.Writer) log.Logger
}

// NewRootCommand initializes the main root configuration.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}

	app.Flag("debug", "Enable debug mode.").BoolVar(&c.Debug)
	app.Flag("no-log", "Disable logger.").BoolVar(&c.NoLog)
	app.Flag("no-color", "Disable logger color.").BoolVar(&c.NoColor)
	app.Flag("logger", "Selects the logger type.").Default(LoggerTypeDefault).EnumVar(&c.LoggerType, LoggerTypeDefault, LoggerTypeJSON)
	app.Flag("config", "Path to the pipeline YAML configuration file.").Short('c').Default(conventions.ConfigFile).StringVar(&c.ConfigPath)

	defaultDBPath := conventions.HistoryDBPath(filepath.Join(homedir.HomeDir(), conventions.DefaultDataDir))
	app.Flag("db-path", "Path to the run history SQLite database file.").Default(defaultDBPath).StringVar(&c.DBPath)
	app.Flag("no-history", "Don't record runs in the history database.").BoolVar(&c.NoHistory)

	return c
}

// historyRepository is the run and task storage used by the commands.
type historyRepository interface {
	storage.RunRepository
	storage.TaskRepository
}

// openHistory returns the run history storage. With the history disabled runs
// are only kept in memory. The returned func releases the storage.
func (c *RootCommand) openHistory(ctx context.Context) (historyRepository, func(), error) {
	if c.NoHistory {
		repo, err := memory.NewRepository(memory.RepositoryConfig{Logger: c.Logger})
		if err != nil {
			return nil, nil, fmt.Errorf("could not create memory repository: %w", err)
		}
		return repo, func() {}, nil
	}

	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: c.DBPath,
		Logger: c.Logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("could not create repository: %w", err)
	}

	taskRepo, err := sqlite.NewTaskRepository(sqlite.TaskRepositoryConfig{
		DB:     repo.DB(),
		Logger: c.Logger,
	})
	if err != nil {
		repo.Close()
		return nil, nil, fmt.Errorf("could not create task repository: %w", err)
	}

	closeFn := func() {
		if err := repo.Close(); err != nil {
			c.Logger.Warningf("Could not close history database: %v", err)
		}
	}

	return sqliteHistory{Repository: repo, TaskRepository: taskRepo}, closeFn, nil
}

type sqliteHistory struct {
	*sqlite.Repository
	*sqlite.TaskRepository
}
