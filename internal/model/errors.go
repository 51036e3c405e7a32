package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a resource already exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotValid is returned when a resource is not valid.
	ErrNotValid = errors.New("not valid")
	// ErrMissingPath is returned when a configured file or executable does not exist.
	ErrMissingPath = errors.New("missing path")
	// ErrProcessFailed is returned when an external process exits with a non-zero status.
	ErrProcessFailed = errors.New("process failed")
	// ErrInvocation is returned when an external process could not be invoked at all.
	ErrInvocation = errors.New("process invocation failed")
	// ErrConversion is returned when the shader registry could not be converted.
	ErrConversion = errors.New("registry conversion failed")
	// ErrUnexpected is returned when the pipeline crashed in an unexpected way.
	ErrUnexpected = errors.New("unexpected failure")
)

// MissingPathError returns an error identifying the exact path that was not found.
func MissingPathError(what, path string) error {
	return fmt.Errorf("%s not found in '%s': %w", what, path, ErrMissingPath)
}

// ProcessError is returned when a stage process exits with a non-zero status.
// It keeps the captured streams so callers can report them.
type ProcessError struct {
	Stage  string
	Result ProcessResult
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("%s exited with code %d", e.Stage, e.Result.ExitCode)
}

func (e *ProcessError) Unwrap() error { return ErrProcessFailed }
