package kidney

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/slok/tac2ar/internal/log"
	"github.com/slok/tac2ar/internal/model"
	"github.com/slok/tac2ar/internal/process"
	"github.com/slok/tac2ar/internal/prompt"
	"github.com/slok/tac2ar/internal/utils/file"
	"github.com/slok/tac2ar/internal/utils/textenc"
	"github.com/slok/tac2ar/internal/utils/wslpath"
)

// Question is asked to the operator before running the kidney pipeline.
const Question = "Run the kidney segmentation pipeline (run_all.sh)?"

// ServiceConfig is the configuration for the kidney pipeline service.
type ServiceConfig struct {
	Runner process.Runner
	Logger log.Logger
	// Stdin is where the operator answer is read from.
	Stdin io.Reader
	// Stdout is the operator console.
	Stdout io.Writer
	// Bash is the shell used to run the pipeline script.
	Bash string
	// Exists checks a path exists, used to validate the script path.
	Exists func(path string) bool
}

func (c *ServiceConfig) defaults() error {
	if c.Runner == nil {
		return fmt.Errorf("runner is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Kidney"})

	if c.Stdin == nil {
		c.Stdin = bytes.NewReader(nil)
	}

	if c.Stdout == nil {
		c.Stdout = io.Discard
	}

	if c.Bash == "" {
		c.Bash = "bash"
	}

	if c.Exists == nil {
		c.Exists = file.Exists
	}

	return nil
}

// Service decides and runs the optional kidney segmentation shell pipeline.
type Service struct {
	runner process.Runner
	logger log.Logger
	stdin  io.Reader
	stdout io.Writer
	bash   string
	exists func(path string) bool
}

// NewService creates a new kidney pipeline service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		runner: cfg.Runner,
		logger: cfg.Logger,
		stdin:  cfg.Stdin,
		stdout: cfg.Stdout,
		bash:   cfg.Bash,
		exists: cfg.Exists,
	}, nil
}

// Decide returns whether the kidney pipeline must run. Only model.KidneyModeAsk
// reads from the operator.
func (s *Service) Decide(mode model.KidneyMode) (bool, error) {
	switch mode {
	case model.KidneyModeYes:
		return true, nil
	case model.KidneyModeNo:
		return false, nil
	case model.KidneyModeAsk, "":
	default:
		return false, fmt.Errorf("unknown kidney mode %q: %w", mode, model.ErrNotValid)
	}

	fmt.Fprintln(s.stdout)
	ok, err := prompt.Confirm(s.stdin, s.stdout, Question)
	if err != nil {
		return false, fmt.Errorf("could not read operator answer: %w", err)
	}
	if !ok {
		fmt.Fprintln(s.stdout, "Kidney segmentation pipeline skipped.")
	}

	return ok, nil
}

// Request represents the kidney pipeline run parameters.
type Request struct {
	Platform model.Platform
	// ScriptPath is the native path of run_all.sh.
	ScriptPath string
	// LogPath is where run_kidney.log is written.
	LogPath string
	Env     map[string]string
}

// Result is the outcome of a successful kidney pipeline run.
type Result struct {
	// BashPath is the script path as handed to bash.
	BashPath string
	LogPath  string
}

// Run runs the shell pipeline through bash and saves its captured output. Any
// failure, including a non-zero exit status, is returned as an error after the
// error-labelled log is written.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	if err := req.Platform.Validate(); err != nil {
		return nil, err
	}

	if !s.exists(req.ScriptPath) {
		return nil, model.MissingPathError("run_all.sh", req.ScriptPath)
	}

	bashPath := wslpath.Resolve(req.Platform, req.ScriptPath)
	fmt.Fprintf(s.stdout, "Running run_all.sh through bash: %s\n", bashPath)
	s.logger.Debugf("Running %s %s", s.bash, bashPath)

	res, runErr := s.runner.Run(ctx, model.Command{
		Path: s.bash,
		Args: []string{bashPath},
		Env:  req.Env,
	})
	if res == nil {
		res = &model.ProcessResult{ExitCode: -1}
	}

	failed := runErr != nil || !res.Succeeded()
	if err := writeLog(req.LogPath, res, failed); err != nil {
		return nil, err
	}

	if failed {
		fmt.Fprintf(s.stdout, "run_all.sh failed. See %s\n", req.LogPath)
		if runErr != nil {
			if !errors.Is(runErr, model.ErrInvocation) {
				runErr = fmt.Errorf("%w: %w", model.ErrInvocation, runErr)
			}
			return nil, runErr
		}
		return nil, &model.ProcessError{Stage: "run_all.sh", Result: *res}
	}

	fmt.Fprintf(s.stdout, "\nrun_all.sh output saved in: %s\n", req.LogPath)
	fmt.Fprintln(s.stdout, "Kidney segmentation pipeline completed.")

	return &Result{BashPath: bashPath, LogPath: req.LogPath}, nil
}

// Log renders the run_kidney.log content.
func Log(res model.ProcessResult, failed bool) []byte {
	label := ""
	if failed {
		label = " (error case)"
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "=== STDOUT%s ===\n", label)
	b.WriteString(textenc.DecodeUTF8(res.Stdout))
	fmt.Fprintf(&b, "\n\n=== STDERR%s ===\n", label)
	b.WriteString(textenc.DecodeUTF8(res.Stderr))

	return b.Bytes()
}

func writeLog(path string, res *model.ProcessResult, failed bool) error {
	if err := file.WriteFile(path, Log(*res, failed)); err != nil {
		return fmt.Errorf("could not write kidney log: %w", err)
	}

	return nil
}
