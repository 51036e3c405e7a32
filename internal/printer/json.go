package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/slok/tac2ar/internal/model"
)

// JSONPrinter prints pipeline information in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

type runOutput struct {
	ID         string         `json:"id"`
	Status     string         `json:"status"`
	Platform   string         `json:"platform"`
	Kidney     bool           `json:"kidney"`
	ExitCode   int            `json:"exit_code"`
	Error      string         `json:"error,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at"`
	Progress   progressOutput `json:"progress"`
	Tasks      []taskOutput   `json:"tasks,omitempty"`
}

type progressOutput struct {
	Done   int `json:"done"`
	Failed int `json:"failed"`
	Total  int `json:"total"`
}

type taskOutput struct {
	Sequence int    `json:"sequence"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

type checkOutput struct {
	ID      string `json:"id"`
	Path    string `json:"path,omitempty"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type messageOutput struct {
	Message string `json:"message"`
}

// PrintRuns prints runs in JSON format.
func (j *JSONPrinter) PrintRuns(runs []model.Run) error {
	items := make([]runOutput, len(runs))
	for i, r := range runs {
		items[i] = toRunOutput(r)
	}

	return j.encode(items)
}

// PrintRun prints a run and its tasks in JSON format.
func (j *JSONPrinter) PrintRun(run model.Run, tasks []model.Task) error {
	out := toRunOutput(run)
	for _, t := range tasks {
		out.Tasks = append(out.Tasks, taskOutput{
			Sequence: t.Sequence,
			Name:     t.Name,
			Status:   string(t.Status),
			Error:    t.Error,
		})
	}

	return j.encode(out)
}

// PrintChecks prints doctor check results in JSON format.
func (j *JSONPrinter) PrintChecks(checks []model.CheckResult) error {
	items := make([]checkOutput, len(checks))
	for i, c := range checks {
		items[i] = checkOutput{
			ID:      c.ID,
			Path:    c.Path,
			Status:  string(c.Status),
			Message: c.Message,
		}
	}

	return j.encode(items)
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	return j.encode(messageOutput{Message: msg})
}

func (j *JSONPrinter) encode(v any) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func toRunOutput(r model.Run) runOutput {
	out := runOutput{
		ID:        r.ID,
		Status:    string(r.Status),
		Platform:  string(r.Platform),
		Kidney:    r.Kidney,
		ExitCode:  r.ExitCode,
		Error:     r.Error,
		StartedAt: r.StartedAt.UTC(),
		Progress: progressOutput{
			Done:   r.Progress.Done,
			Failed: r.Progress.Failed,
			Total:  r.Progress.Total,
		},
	}
	if r.FinishedAt != nil {
		f := r.FinishedAt.UTC()
		out.FinishedAt = &f
	}

	return out
}
