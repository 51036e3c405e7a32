package process

import (
	"context"

	"github.com/slok/tac2ar/internal/model"
)

// Runner runs external processes to completion capturing their output.
//
// A process that starts and exits with a non-zero status is not an error: the
// result carries the exit code. Errors are only returned when the process could
// not be run at all (missing binary, permission denied, context cancelled...).
type Runner interface {
	Run(ctx context.Context, cmd model.Command) (*model.ProcessResult, error)
}

//go:generate mockery --case underscore --output processmock --outpkg processmock --name Runner --structname MockRunner --filename runner.go
