package printer

import "github.com/slok/tac2ar/internal/model"

// Printer knows how to print pipeline information in different formats.
type Printer interface {
	PrintRuns(runs []model.Run) error
	PrintRun(run model.Run, tasks []model.Task) error
	PrintChecks(checks []model.CheckResult) error
	PrintMessage(msg string) error
}
