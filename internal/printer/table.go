package printer

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/slok/tac2ar/internal/model"
)

// TablePrinter prints pipeline information in a table format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintRuns prints runs in a table format.
func (t *TablePrinter) PrintRuns(runs []model.Run) error {
	if len(runs) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tSTATUS\tMODE\tPROGRESS\tDURATION\tSTARTED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Status, runMode(r), progress(r.Progress), FormatDuration(r.StartedAt, r.FinishedAt), TimeAgo(r.StartedAt))
	}

	return nil
}

// PrintRun prints a run and its tasks.
func (t *TablePrinter) PrintRun(run model.Run, tasks []model.Task) error {
	fmt.Fprintf(t.writer, "ID:         %s\n", run.ID)
	fmt.Fprintf(t.writer, "Status:     %s\n", run.Status)
	fmt.Fprintf(t.writer, "Mode:       %s\n", runMode(run))
	fmt.Fprintf(t.writer, "Platform:   %s\n", run.Platform)
	fmt.Fprintf(t.writer, "Started:    %s\n", FormatTimestamp(run.StartedAt))
	if run.FinishedAt != nil {
		fmt.Fprintf(t.writer, "Finished:   %s\n", FormatTimestamp(*run.FinishedAt))
		fmt.Fprintf(t.writer, "Exit code:  %d\n", run.ExitCode)
	}
	if run.Error != "" {
		fmt.Fprintf(t.writer, "Error:      %s\n", run.Error)
	}

	if len(tasks) == 0 {
		return nil
	}

	fmt.Fprintln(t.writer)
	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "#\tTASK\tSTATUS\tERROR")
	for _, tsk := range tasks {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", tsk.Sequence, tsk.Name, tsk.Status, tsk.Error)
	}

	return nil
}

// PrintChecks prints doctor check results, one per line, followed by a summary.
func (t *TablePrinter) PrintChecks(checks []model.CheckResult) error {
	for _, c := range checks {
		fmt.Fprintf(t.writer, "  %s %-24s %s\n", statusIcon(c.Status), c.ID, c.Message)
	}

	fmt.Fprintln(t.writer)
	_, warnings, errors := model.CountByStatus(checks)
	if warnings == 0 && errors == 0 {
		fmt.Fprintln(t.writer, "All checks passed!")
		return nil
	}

	var summary []string
	if errors > 0 {
		summary = append(summary, fmt.Sprintf("%d error(s)", errors))
	}
	if warnings > 0 {
		summary = append(summary, fmt.Sprintf("%d warning(s)", warnings))
	}
	fmt.Fprintln(t.writer, strings.Join(summary, ", "))

	return nil
}

// PrintMessage prints a simple text message.
func (t *TablePrinter) PrintMessage(msg string) error {
	fmt.Fprintln(t.writer, msg)
	return nil
}

func statusIcon(status model.CheckStatus) string {
	switch status {
	case model.CheckStatusOK:
		return "OK"
	case model.CheckStatusWarning:
		return "!!"
	case model.CheckStatusError:
		return "XX"
	default:
		return "??"
	}
}

func runMode(r model.Run) string {
	if r.Kidney {
		return "kidney"
	}
	return "full"
}

func progress(p model.TaskProgress) string {
	s := fmt.Sprintf("%d/%d", p.Done, p.Total)
	if p.Failed > 0 {
		s += fmt.Sprintf(" (%d failed)", p.Failed)
	}
	return s
}
