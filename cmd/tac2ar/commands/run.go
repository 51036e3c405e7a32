package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/tac2ar/internal/app/kidney"
	"github.com/slok/tac2ar/internal/app/pipeline"
	"github.com/slok/tac2ar/internal/conventions"
	"github.com/slok/tac2ar/internal/model"
	"github.com/slok/tac2ar/internal/process/system"
	"github.com/slok/tac2ar/internal/registry"
)

type RunCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	flags         pipelineFlags
	kidney        string
	logFile       string
	kidneyLogFile string
	bash          string
}

// NewRunCommand returns the run command.
func NewRunCommand(rootCmd *RootCommand, app *kingpin.Application) *RunCommand {
	c := &RunCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("run", "Run the TAC to AR pipeline.").Default()
	c.Cmd.Flag("kidney", "Run the kidney segmentation pipeline (ask, yes, no).").Default(string(model.KidneyModeAsk)).EnumVar(&c.kidney, string(model.KidneyModeAsk), string(model.KidneyModeYes), string(model.KidneyModeNo))
	c.Cmd.Flag("log-file", "Pipeline log file, defaults to pipeline.log next to the config file.").StringVar(&c.logFile)
	c.Cmd.Flag("kidney-log-file", "Kidney pipeline log file, defaults to run_kidney.log next to the config file.").StringVar(&c.kidneyLogFile)
	c.Cmd.Flag("bash", "Shell used to run the kidney pipeline.").Default("bash").StringVar(&c.bash)
	c.flags.register(c.Cmd)

	return c
}

func (c RunCommand) Name() string { return c.Cmd.FullCommand() }

func (c RunCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	cfg, cfgDir, err := c.rootCmd.loadPipelineConfig(ctx, c.flags)
	if err != nil {
		return err
	}

	logPath, kidneyLogPath := conventions.LogPaths(cfgDir)
	if c.logFile != "" {
		logPath = c.logFile
	}
	if c.kidneyLogFile != "" {
		kidneyLogPath = c.kidneyLogFile
	}

	repo, closeHistory, err := c.rootCmd.openHistory(ctx)
	if err != nil {
		return err
	}
	defer closeHistory()

	runner, err := system.NewRunner(system.RunnerConfig{Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create process runner: %w", err)
	}

	converter, err := registry.NewYAMLToJSON(registry.ConverterConfig{Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create registry converter: %w", err)
	}

	kidneySvc, err := kidney.NewService(kidney.ServiceConfig{
		Runner: runner,
		Logger: logger,
		Stdin:  c.rootCmd.Stdin,
		Stdout: c.rootCmd.Stdout,
		Bash:   c.bash,
	})
	if err != nil {
		return fmt.Errorf("could not create kidney service: %w", err)
	}

	svc, err := pipeline.NewService(pipeline.ServiceConfig{
		Kidney:         kidneySvc,
		Runner:         runner,
		Converter:      converter,
		RunRepository:  repo,
		TaskRepository: repo,
		Logger:         logger,
		NewSinkLogger:  c.rootCmd.NewFileLogger,
		Stdout:         c.rootCmd.Stdout,
		Stderr:         c.rootCmd.Stderr,
	})
	if err != nil {
		return fmt.Errorf("could not create pipeline service: %w", err)
	}

	res, err := svc.Run(ctx, pipeline.Request{
		Config:        cfg,
		Platform:      c.flags.resolvePlatform(),
		Kidney:        model.KidneyMode(c.kidney),
		LogPath:       absPath(logPath),
		KidneyLogPath: absPath(kidneyLogPath),
	})
	if res != nil {
		logger.Infof("Run %s finished with status %s", res.Run.ID, res.Run.Status)
	}

	return err
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
