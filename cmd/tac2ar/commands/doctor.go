package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/tac2ar/internal/app/doctor"
	"github.com/slok/tac2ar/internal/model"
	"github.com/slok/tac2ar/internal/printer"
)

type DoctorCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	flags  pipelineFlags
	bash   string
	format string
}

// NewDoctorCommand returns the doctor command.
func NewDoctorCommand(rootCmd *RootCommand, app *kingpin.Application) *DoctorCommand {
	c := &DoctorCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("doctor", "Run preflight checks over the pipeline configuration.")
	c.Cmd.Flag("bash", "Shell used to run the kidney pipeline.").Default("bash").StringVar(&c.bash)
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")
	c.flags.register(c.Cmd)

	return c
}

func (c DoctorCommand) Name() string { return c.Cmd.FullCommand() }

func (c DoctorCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	cfg, _, err := c.rootCmd.loadPipelineConfig(ctx, c.flags)
	if err != nil {
		return err
	}

	svc, err := doctor.NewService(doctor.ServiceConfig{Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	platform := c.flags.resolvePlatform()
	results := svc.Run(ctx, doctor.Request{
		Config:   cfg,
		Platform: platform,
		Bash:     c.bash,
	})

	var p printer.Printer
	switch c.format {
	case "json":
		p = printer.NewJSONPrinter(c.rootCmd.Stdout)
	default: // table
		p = printer.NewTablePrinter(c.rootCmd.Stdout)
		fmt.Fprintf(c.rootCmd.Stdout, "\nChecking %s pipeline setup...\n", platform)
	}

	if err := p.PrintChecks(results); err != nil {
		return fmt.Errorf("could not print checks: %w", err)
	}

	if _, _, errs := model.CountByStatus(results); errs > 0 {
		return fmt.Errorf("preflight checks failed with %d error(s)", errs)
	}

	return nil
}
