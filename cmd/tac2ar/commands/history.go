package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/tac2ar/internal/app/history"
	"github.com/slok/tac2ar/internal/app/runinfo"
	"github.com/slok/tac2ar/internal/model"
	"github.com/slok/tac2ar/internal/printer"
)

type HistoryCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	runID        string
	limit        int
	statusFilter string
	format       string
}

// NewHistoryCommand returns the history command.
func NewHistoryCommand(rootCmd *RootCommand, app *kingpin.Application) *HistoryCommand {
	c := &HistoryCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("history", "List the recorded pipeline runs.")
	c.Cmd.Arg("run-id", "Show a single run with its tasks.").StringVar(&c.runID)
	c.Cmd.Flag("limit", "Maximum number of runs to show (0 for all).").Default("20").IntVar(&c.limit)
	c.Cmd.Flag("status", "Filter by status (running, succeeded, failed).").StringVar(&c.statusFilter)
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c HistoryCommand) Name() string { return c.Cmd.FullCommand() }

func (c HistoryCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	if c.rootCmd.NoHistory {
		return fmt.Errorf("run history is disabled")
	}

	// Parse status filter if provided.
	var statusFilter *model.RunStatus
	if c.statusFilter != "" {
		status := model.RunStatus(strings.ToLower(c.statusFilter))
		switch status {
		case model.RunStatusRunning, model.RunStatusSucceeded, model.RunStatusFailed:
			statusFilter = &status
		default:
			return fmt.Errorf("invalid status filter: %s (must be: running, succeeded, failed)", c.statusFilter)
		}
	}

	repo, closeHistory, err := c.rootCmd.openHistory(ctx)
	if err != nil {
		return err
	}
	defer closeHistory()

	var p printer.Printer
	switch c.format {
	case "json":
		p = printer.NewJSONPrinter(c.rootCmd.Stdout)
	default: // table
		p = printer.NewTablePrinter(c.rootCmd.Stdout)
	}

	if c.runID != "" {
		svc, err := runinfo.NewService(runinfo.ServiceConfig{
			RunRepository:  repo,
			TaskRepository: repo,
			Logger:         logger,
		})
		if err != nil {
			return fmt.Errorf("could not create service: %w", err)
		}

		res, err := svc.Run(ctx, runinfo.Request{RunID: c.runID})
		if err != nil {
			return err
		}

		if err := p.PrintRun(res.Run, res.Tasks); err != nil {
			return fmt.Errorf("could not print run: %w", err)
		}
		return nil
	}

	svc, err := history.NewService(history.ServiceConfig{
		Repository: repo,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	runs, err := svc.Run(ctx, history.Request{
		Limit:        c.limit,
		StatusFilter: statusFilter,
	})
	if err != nil {
		return fmt.Errorf("could not list runs: %w", err)
	}

	if len(runs) == 0 && c.format != "json" {
		return p.PrintMessage("No runs recorded.")
	}

	if err := p.PrintRuns(runs); err != nil {
		return fmt.Errorf("could not print runs: %w", err)
	}

	return nil
}
