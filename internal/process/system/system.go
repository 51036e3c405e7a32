package system

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/slok/tac2ar/internal/log"
	"github.com/slok/tac2ar/internal/model"
	"github.com/slok/tac2ar/internal/utils/env"
)

// RunnerConfig is the configuration for the system process runner.
type RunnerConfig struct {
	// WaitDelay is how long a cancelled process may keep its output open,
	// children of the killed process included. Defaults to 1s.
	WaitDelay time.Duration
	Logger    log.Logger
}

func (c *RunnerConfig) defaults() error {
	if c.WaitDelay <= 0 {
		c.WaitDelay = time.Second
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "process.System"})
	return nil
}

// Runner runs processes on the host with os/exec.
type Runner struct {
	waitDelay time.Duration
	logger    log.Logger
}

// NewRunner creates a new system runner.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Runner{
		waitDelay: cfg.WaitDelay,
		logger:    cfg.Logger,
	}, nil
}

// Run executes the command and blocks until it exits. There is no timeout,
// cancelling ctx kills the process.
func (r *Runner) Run(ctx context.Context, c model.Command) (*model.ProcessResult, error) {
	if c.Path == "" {
		return nil, fmt.Errorf("command path cannot be empty: %w", model.ErrNotValid)
	}

	r.logger.Debugf("Executing: %s %s", c.Path, strings.Join(c.Args, " "))

	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.WaitDelay = r.waitDelay
	if len(c.Env) > 0 {
		cmd.Env = env.Environ(os.Environ(), c.Env)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	// The process succeeded but a child kept its output open.
	if errors.Is(err, exec.ErrWaitDelay) && ctx.Err() == nil {
		r.logger.Warningf("%s left processes holding its output, stopped reading it", c.Path)
		err = nil
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) || ctx.Err() != nil {
			return &model.ProcessResult{
				ExitCode: -1,
				Stdout:   stdout.Bytes(),
				Stderr:   stderr.Bytes(),
			}, fmt.Errorf("could not run %s: %w: %w", c.Path, err, model.ErrInvocation)
		}
		exitCode = exitErr.ExitCode()
		r.logger.Debugf("%s exited with code %d", c.Path, exitCode)
	}

	return &model.ProcessResult{
		ExitCode: exitCode,
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
	}, nil
}
