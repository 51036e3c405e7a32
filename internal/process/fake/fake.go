package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/slok/tac2ar/internal/log"
	"github.com/slok/tac2ar/internal/model"
)

// Response is the scripted outcome for a command path.
type Response struct {
	Result model.ProcessResult
	Err    error
}

// RunnerConfig is the configuration for the fake runner.
type RunnerConfig struct {
	// Responses by command path. Unknown paths succeed with empty output.
	Responses map[string]Response
	Logger    log.Logger
}

func (c *RunnerConfig) defaults() error {
	if c.Responses == nil {
		c.Responses = map[string]Response{}
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "process.Fake"})
	return nil
}

// Runner is a fake process.Runner that records calls and replays scripted
// responses without spawning anything.
type Runner struct {
	responses map[string]Response
	calls     []model.Command
	mu        sync.Mutex
	logger    log.Logger
}

// NewRunner creates a new fake runner.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Runner{
		responses: cfg.Responses,
		logger:    cfg.Logger,
	}, nil
}

// Run records the command and returns its scripted response.
func (r *Runner) Run(ctx context.Context, cmd model.Command) (*model.ProcessResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, cmd)
	r.logger.Infof("Fake run: %s %v", cmd.Path, cmd.Args)

	resp, ok := r.responses[cmd.Path]
	if !ok {
		return &model.ProcessResult{}, nil
	}

	res := resp.Result
	return &res, resp.Err
}

// Calls returns the commands run so far, in order.
func (r *Runner) Calls() []model.Command {
	r.mu.Lock()
	defer r.mu.Unlock()

	calls := make([]model.Command, len(r.calls))
	copy(calls, r.calls)
	return calls
}

// Called returns true if the path was run at least once.
func (r *Runner) Called(path string) bool {
	for _, c := range r.Calls() {
		if c.Path == path {
			return true
		}
	}
	return false
}
