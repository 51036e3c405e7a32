package doctor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"

	"github.com/slok/tac2ar/internal/log"
	"github.com/slok/tac2ar/internal/model"
	"github.com/slok/tac2ar/internal/utils/textenc"
)

// ServiceConfig is the configuration for the doctor service.
type ServiceConfig struct {
	Logger log.Logger
	// Stat defaults to os.Stat.
	Stat func(name string) (fs.FileInfo, error)
	// LookPath defaults to exec.LookPath.
	LookPath func(file string) (string, error)
}

func (c *ServiceConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}

	if c.Stat == nil {
		c.Stat = os.Stat
	}

	if c.LookPath == nil {
		c.LookPath = exec.LookPath
	}

	return nil
}

// Service runs preflight checks over the pipeline configuration.
type Service struct {
	logger   log.Logger
	stat     func(name string) (fs.FileInfo, error)
	lookPath func(file string) (string, error)
}

// NewService creates a new doctor service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		logger:   cfg.Logger,
		stat:     cfg.Stat,
		lookPath: cfg.LookPath,
	}, nil
}

// Request represents the doctor request parameters.
type Request struct {
	Config   model.PipelineConfig
	Platform model.Platform
	// Bash is the shell used for the kidney pipeline.
	Bash string
}

// Run checks every configured path and the tools the pipeline needs. The
// kidney pipeline is optional so its problems are warnings.
func (s *Service) Run(ctx context.Context, req Request) []model.CheckResult {
	cfg := req.Config
	bash := req.Bash
	if bash == "" {
		bash = "bash"
	}

	results := []model.CheckResult{
		s.checkPath("shell_pipeline", cfg.ShellPipelinePath, false, model.CheckStatusWarning),
		s.checkBash(bash),
		s.checkPath("segmentation_interpreter", cfg.SegmentationInterpreter, req.Platform == model.PlatformPOSIX, model.CheckStatusError),
		s.checkPath("segmentation_script", cfg.SegmentationScript, false, model.CheckStatusError),
		s.checkPath("shader_registry", cfg.ShaderRegistryFile, false, model.CheckStatusError),
		s.checkPath("blender_script", cfg.BlenderScript, false, model.CheckStatusError),
		s.checkPath("blender_executable", cfg.BlenderExecutable, req.Platform == model.PlatformPOSIX, model.CheckStatusError),
		checkEncoding(cfg.FileEncoding),
	}

	ok, warnings, errs := model.CountByStatus(results)
	s.logger.Debugf("doctor checks: %d ok, %d warnings, %d errors", ok, warnings, errs)

	return results
}

// checkPath checks a configured path exists. When executable is set it also
// needs the executable bit.
func (s *Service) checkPath(id, path string, executable bool, failStatus model.CheckStatus) model.CheckResult {
	if path == "" {
		return model.CheckResult{
			ID:      id,
			Message: "Not configured",
			Status:  failStatus,
		}
	}

	info, err := s.stat(path)
	if err != nil {
		msg := fmt.Sprintf("Cannot access %s: %v", path, err)
		if errors.Is(err, fs.ErrNotExist) {
			msg = fmt.Sprintf("%s does not exist", path)
		}
		return model.CheckResult{
			ID:      id,
			Path:    path,
			Message: msg,
			Status:  failStatus,
		}
	}

	if executable && (info.IsDir() || info.Mode()&0111 == 0) {
		return model.CheckResult{
			ID:      id,
			Path:    path,
			Message: fmt.Sprintf("%s is not executable", path),
			Status:  failStatus,
		}
	}

	return model.CheckResult{
		ID:      id,
		Path:    path,
		Message: fmt.Sprintf("Found at %s", path),
		Status:  model.CheckStatusOK,
	}
}

func (s *Service) checkBash(bash string) model.CheckResult {
	path, err := s.lookPath(bash)
	if err != nil {
		return model.CheckResult{
			ID:      "bash",
			Message: fmt.Sprintf("%s not found in PATH (needed by the kidney pipeline)", bash),
			Status:  model.CheckStatusWarning,
		}
	}

	return model.CheckResult{
		ID:      "bash",
		Path:    path,
		Message: fmt.Sprintf("%s found at %s", bash, path),
		Status:  model.CheckStatusOK,
	}
}

func checkEncoding(name string) model.CheckResult {
	if _, err := textenc.Lookup(name); err != nil {
		return model.CheckResult{
			ID:      "file_encoding",
			Message: err.Error(),
			Status:  model.CheckStatusError,
		}
	}

	if name == "" {
		name = textenc.Default
	}
	return model.CheckResult{
		ID:      "file_encoding",
		Message: fmt.Sprintf("Log encoding %s is supported", name),
		Status:  model.CheckStatusOK,
	}
}
