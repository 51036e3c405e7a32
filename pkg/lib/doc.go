// Package lib provides a Go SDK to run the tac2ar pipeline programmatically.
//
// It drives the same pipeline as the tac2ar CLI: the optional kidney
// segmentation shell pipeline, or the segmentation, shader registry conversion
// and Blender stages, recording every run in the history database.
//
// # Quick Start
//
//	client, err := lib.New(ctx, lib.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	cfg, err := lib.LoadConfig(ctx, "tac2ar.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	run, err := client.Run(ctx, lib.RunOpts{Pipeline: *cfg, Stdout: os.Stdout})
//	if err != nil {
//	    log.Fatalf("run %s failed: %v", run.ID, err)
//	}
//
// # History
//
// Runs and their tasks can be listed afterwards:
//
//	runs, _ := client.ListRuns(ctx, &lib.ListRunsOpts{Limit: 10})
//	run, tasks, _ := client.GetRun(ctx, runs[0].ID)
//
// # Error Handling
//
// All methods return errors that can be inspected with [errors.Is]:
//
//   - [ErrNotFound]: The run does not exist.
//   - [ErrNotValid]: Invalid input.
//   - [ErrMissingPath]: A configured tool or script does not exist.
//   - [ErrProcessFailed]: A pipeline process exited with a non-zero status.
//
// # Testing
//
// Set [Config].DryRun to run the pipeline without spawning any process:
//
//	client, _ := lib.New(ctx, lib.Config{
//	    DBPath: filepath.Join(t.TempDir(), "test.db"),
//	    DryRun: true,
//	})
//	defer client.Close()
package lib
