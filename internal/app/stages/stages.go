package stages

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"

	"github.com/slok/tac2ar/internal/log"
	"github.com/slok/tac2ar/internal/model"
	"github.com/slok/tac2ar/internal/process"
	"github.com/slok/tac2ar/internal/task"
	"github.com/slok/tac2ar/internal/utils/file"
	"github.com/slok/tac2ar/internal/utils/textenc"
)

// CompletedMarker is written when the Blender stage succeeds.
const CompletedMarker = "--- Blender pipeline COMPLETED ---"

// RegistryConverter converts the shader registry into the format Blender reads.
type RegistryConverter interface {
	Convert(ctx context.Context, src, dst string) error
}

// ServiceConfig is the configuration for the stage runner service.
type ServiceConfig struct {
	Runner    process.Runner
	Converter RegistryConverter
	Tracker   task.Tracker
	Logger    log.Logger
	// Out receives the stage banners and the captured process output.
	Out io.Writer
	// Exists checks a path exists, used to validate the configured paths.
	Exists func(path string) bool
}

func (c *ServiceConfig) defaults() error {
	if c.Runner == nil {
		return fmt.Errorf("runner is required")
	}

	if c.Converter == nil {
		return fmt.Errorf("converter is required")
	}

	if c.Tracker == nil {
		c.Tracker = task.Noop
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Stages"})

	if c.Out == nil {
		c.Out = io.Discard
	}

	if c.Exists == nil {
		c.Exists = file.Exists
	}

	return nil
}

// Service runs the segmentation stage, the registry conversion and the Blender
// stage, in that order, stopping at the first failure.
type Service struct {
	runner    process.Runner
	converter RegistryConverter
	tracker   task.Tracker
	logger    log.Logger
	out       io.Writer
	exists    func(path string) bool
}

// NewService creates a new stage runner service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		runner:    cfg.Runner,
		converter: cfg.Converter,
		tracker:   cfg.Tracker,
		logger:    cfg.Logger,
		out:       cfg.Out,
		exists:    cfg.Exists,
	}, nil
}

// Request represents the stage runner parameters.
type Request struct {
	// RunID is the history run the stages are tracked under.
	RunID  string
	Config model.PipelineConfig
}

// Run runs all the stages.
func (s *Service) Run(ctx context.Context, req Request) error {
	enc, err := textenc.Lookup(req.Config.FileEncoding)
	if err != nil {
		return err
	}

	s.printf("\n--- Pipeline started ---\n\n")

	err = s.tracker.Track(ctx, req.RunID, model.TaskSegmentation, func() error {
		return s.segmentation(ctx, req.Config, enc)
	})
	if err != nil {
		return err
	}

	err = s.tracker.Track(ctx, req.RunID, model.TaskRegistryConversion, func() error {
		return s.registry(ctx, req.Config)
	})
	if err != nil {
		return err
	}

	err = s.tracker.Track(ctx, req.RunID, model.TaskBlender, func() error {
		return s.blender(ctx, req.Config, enc)
	})
	if err != nil {
		return err
	}

	s.printf("\n--- TAC 2 AR pipeline finished successfully ---\n")
	return nil
}

func (s *Service) segmentation(ctx context.Context, cfg model.PipelineConfig, enc encoding.Encoding) error {
	s.printf("--- STAGE 1: Segmentation pipeline ---\n")

	if !s.exists(cfg.SegmentationInterpreter) {
		err := model.MissingPathError("segmentation interpreter", cfg.SegmentationInterpreter)
		s.logger.Errorf("%v", err)
		return err
	}

	cmd := model.Command{
		Path: cfg.SegmentationInterpreter,
		Args: []string{cfg.SegmentationScript},
		Env:  cfg.Env,
	}
	res, err := s.run(ctx, "segmentation", cmd, enc)
	if err != nil {
		return err
	}

	s.printf("Segmentation pipeline completed successfully.\n\n")
	s.printf("--- SEGMENTATION STDOUT ---\n%s\n", textenc.Decode(res.Stdout, enc))
	if len(res.Stderr) > 0 {
		s.printf("--- SEGMENTATION STDERR ---\n%s\n", textenc.Decode(res.Stderr, enc))
	}

	return nil
}

func (s *Service) registry(ctx context.Context, cfg model.PipelineConfig) error {
	s.printf("\n--- BLENDER PREPARATION: shader registry conversion ---\n")

	err := s.converter.Convert(ctx, cfg.ShaderRegistryFile, cfg.ShaderRegistryTmp)
	if err != nil {
		s.logger.Errorf("Critical error converting the shader registry: %v", err)
		if !errors.Is(err, model.ErrConversion) {
			err = fmt.Errorf("%w: %w", model.ErrConversion, err)
		}
		return err
	}

	s.logger.Debugf("Shader registry written to %s", cfg.ShaderRegistryTmp)
	return nil
}

func (s *Service) blender(ctx context.Context, cfg model.PipelineConfig, enc encoding.Encoding) error {
	s.printf("\n--- STAGE 2: Blender pipeline ---\n")

	if !s.exists(cfg.BlenderScript) {
		err := model.MissingPathError("Blender script", cfg.BlenderScript)
		s.logger.Errorf("%v", err)
		return err
	}

	if !s.exists(cfg.BlenderExecutable) {
		err := model.MissingPathError("Blender executable", cfg.BlenderExecutable)
		s.logger.Errorf("%v", err)
		return err
	}

	cmd := model.Command{
		Path: cfg.BlenderExecutable,
		Args: BlenderArgs(cfg.BlenderScript),
		Env:  cfg.Env,
	}
	res, err := s.run(ctx, "blender", cmd, enc)
	if err != nil {
		return err
	}

	s.printf("--- BLENDER STDOUT ---\n%s\n", textenc.Decode(res.Stdout, enc))
	if len(res.Stderr) > 0 {
		s.printf("\n--- BLENDER STDERR ---\n%s\n", textenc.Decode(res.Stderr, enc))
	}
	s.printf("\n%s\n", CompletedMarker)

	return nil
}

// BlenderArgs returns the Blender arguments to run script headless.
func BlenderArgs(script string) []string {
	return []string{"--factory-startup", "--background", "--python", script}
}

// run runs a stage process, reporting any failure with the captured output.
func (s *Service) run(ctx context.Context, stage string, cmd model.Command, enc encoding.Encoding) (*model.ProcessResult, error) {
	s.logger.Debugf("Executing: %s %s", cmd.Path, strings.Join(cmd.Args, " "))

	res, err := s.runner.Run(ctx, cmd)
	if err != nil {
		s.logger.Errorf("Unexpected error during %s: %+v", stage, err)
		if !errors.Is(err, model.ErrInvocation) {
			err = fmt.Errorf("%w: %w", model.ErrInvocation, err)
		}
		return nil, fmt.Errorf("%s: %w", stage, err)
	}

	if !res.Succeeded() {
		s.logger.Errorf("Critical error during the %s pipeline, exit code %d", stage, res.ExitCode)
		s.printf("%s\n%s\n", textenc.Decode(res.Stdout, enc), textenc.Decode(res.Stderr, enc))
		return nil, &model.ProcessError{Stage: stage, Result: *res}
	}

	return res, nil
}

func (s *Service) printf(format string, a ...any) {
	fmt.Fprintf(s.out, format, a...)
}
