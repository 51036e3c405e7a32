package lib

import (
	"errors"
	"time"

	"github.com/slok/tac2ar/internal/model"
)

var (
	// ErrNotFound is returned when a run does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNotValid is returned on invalid input.
	ErrNotValid = errors.New("not valid")
	// ErrMissingPath is returned when a configured file or executable does not exist.
	ErrMissingPath = errors.New("missing path")
	// ErrProcessFailed is returned when a pipeline process exits with a non-zero status.
	ErrProcessFailed = errors.New("process failed")
)

// Platform decides how configured paths are resolved for the kidney pipeline.
type Platform string

const (
	// PlatformAuto uses the platform of the running host.
	PlatformAuto Platform = ""
	// PlatformWindows translates native paths to WSL paths before calling bash.
	PlatformWindows Platform = "windows"
	// PlatformPOSIX uses paths as they are.
	PlatformPOSIX Platform = "posix"
)

// KidneyMode decides whether the optional kidney pipeline runs.
type KidneyMode string

const (
	// KidneyModeNo skips the kidney pipeline and runs the stages. Default.
	KidneyModeNo KidneyMode = "no"
	// KidneyModeYes runs only the kidney pipeline.
	KidneyModeYes KidneyMode = "yes"
	// KidneyModeAsk prompts the operator on [RunOpts].Stdin.
	KidneyModeAsk KidneyMode = "ask"
)

// RunStatus is the state of a pipeline run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// PipelineConfig holds the paths and settings of the pipeline tools.
type PipelineConfig struct {
	// ShellPipelinePath is the kidney run_all.sh script. Only needed when the
	// kidney pipeline runs.
	ShellPipelinePath       string
	SegmentationInterpreter string
	SegmentationScript      string
	// ShaderRegistryFile is the YAML registry converted to JSON at ShaderRegistryTmp.
	ShaderRegistryFile string
	ShaderRegistryTmp  string
	BlenderExecutable  string
	BlenderScript      string
	// FileEncoding of the pipeline log. Default: utf-8.
	FileEncoding string
	// Env is added to the environment of the pipeline processes.
	Env map[string]string
}

// Run is a recorded pipeline execution.
type Run struct {
	ID       string
	Status   RunStatus
	Platform Platform
	// Kidney is true when the kidney pipeline was chosen.
	Kidney     bool
	ExitCode   int
	Error      string
	StartedAt  time.Time
	FinishedAt *time.Time
	Progress   TaskProgress
}

// TaskProgress is the completion state of a run.
type TaskProgress struct {
	Done   int
	Failed int
	Total  int
}

// TaskStatus is the state of a run task.
type TaskStatus string

const (
	TaskStatusPending TaskStatus = "pending"
	TaskStatusDone    TaskStatus = "done"
	TaskStatusFailed  TaskStatus = "failed"
)

// Task is one step of a run.
type Task struct {
	Sequence int
	Name     string
	Status   TaskStatus
	Error    string
}

// CheckStatus represents the status of a doctor check.
type CheckStatus string

const (
	// CheckStatusOK indicates the check passed.
	CheckStatusOK CheckStatus = "ok"
	// CheckStatusWarning indicates the check passed with a warning.
	CheckStatusWarning CheckStatus = "warning"
	// CheckStatusError indicates the check failed.
	CheckStatusError CheckStatus = "error"
)

// CheckResult is the result of one doctor check.
type CheckResult struct {
	ID      string
	Path    string
	Message string
	Status  CheckStatus
}

func toInternalConfig(c PipelineConfig) model.PipelineConfig {
	return model.PipelineConfig{
		ShellPipelinePath:       c.ShellPipelinePath,
		SegmentationInterpreter: c.SegmentationInterpreter,
		SegmentationScript:      c.SegmentationScript,
		ShaderRegistryFile:      c.ShaderRegistryFile,
		ShaderRegistryTmp:       c.ShaderRegistryTmp,
		BlenderExecutable:       c.BlenderExecutable,
		BlenderScript:           c.BlenderScript,
		FileEncoding:            c.FileEncoding,
		Env:                     c.Env,
	}
}

func fromInternalConfig(c model.PipelineConfig) PipelineConfig {
	return PipelineConfig{
		ShellPipelinePath:       c.ShellPipelinePath,
		SegmentationInterpreter: c.SegmentationInterpreter,
		SegmentationScript:      c.SegmentationScript,
		ShaderRegistryFile:      c.ShaderRegistryFile,
		ShaderRegistryTmp:       c.ShaderRegistryTmp,
		BlenderExecutable:       c.BlenderExecutable,
		BlenderScript:           c.BlenderScript,
		FileEncoding:            c.FileEncoding,
		Env:                     c.Env,
	}
}

func toInternalKidneyMode(m KidneyMode) model.KidneyMode {
	if m == "" {
		return model.KidneyModeNo
	}
	return model.KidneyMode(m)
}

func fromInternalRun(r *model.Run) *Run {
	if r == nil {
		return nil
	}

	return &Run{
		ID:         r.ID,
		Status:     RunStatus(r.Status),
		Platform:   Platform(r.Platform),
		Kidney:     r.Kidney,
		ExitCode:   r.ExitCode,
		Error:      r.Error,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Progress: TaskProgress{
			Done:   r.Progress.Done,
			Failed: r.Progress.Failed,
			Total:  r.Progress.Total,
		},
	}
}

func fromInternalRunList(rs []model.Run) []Run {
	out := make([]Run, 0, len(rs))
	for i := range rs {
		out = append(out, *fromInternalRun(&rs[i]))
	}
	return out
}

func fromInternalTasks(ts []model.Task) []Task {
	out := make([]Task, 0, len(ts))
	for _, t := range ts {
		out = append(out, Task{
			Sequence: t.Sequence,
			Name:     t.Name,
			Status:   TaskStatus(t.Status),
			Error:    t.Error,
		})
	}
	return out
}

func fromInternalCheckResults(results []model.CheckResult) []CheckResult {
	out := make([]CheckResult, len(results))
	for i, r := range results {
		out[i] = CheckResult{
			ID:      r.ID,
			Path:    r.Path,
			Message: r.Message,
			Status:  CheckStatus(r.Status),
		}
	}
	return out
}

func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, model.ErrNotFound):
		return joinErrors(err, ErrNotFound)
	case errors.Is(err, model.ErrNotValid):
		return joinErrors(err, ErrNotValid)
	case errors.Is(err, model.ErrMissingPath):
		return joinErrors(err, ErrMissingPath)
	case errors.Is(err, model.ErrProcessFailed):
		return joinErrors(err, ErrProcessFailed)
	default:
		return err
	}
}

func joinErrors(original, sentinel error) error {
	return &mappedError{original: original, sentinel: sentinel}
}

type mappedError struct {
	original error
	sentinel error
}

func (e *mappedError) Error() string { return e.original.Error() }

func (e *mappedError) Is(target error) bool {
	return target == e.sentinel
}

func (e *mappedError) Unwrap() error { return e.original }
