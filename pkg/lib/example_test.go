package lib_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/slok/tac2ar/pkg/lib"
)

// This example shows how to run the pipeline without spawning processes.
func Example_dryRun() {
	ctx := context.Background()

	dir, err := os.MkdirTemp("", "tac2ar-example-*")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)

	touch := func(name, content string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0o755); err != nil {
			panic(err)
		}
		return p
	}

	client, err := lib.New(ctx, lib.Config{
		DataDir:   dir,
		NoHistory: true,
		DryRun:    true,
	})
	if err != nil {
		panic(err)
	}
	defer client.Close()

	run, err := client.Run(ctx, lib.RunOpts{
		Platform: lib.PlatformPOSIX,
		Pipeline: lib.PipelineConfig{
			SegmentationInterpreter: touch("python", ""),
			SegmentationScript:      touch("segmentation.py", ""),
			ShaderRegistryFile:      touch("registry.yaml", "kidney: {shader: principled}\n"),
			ShaderRegistryTmp:       filepath.Join(dir, "registry.json"),
			BlenderExecutable:       touch("blender", ""),
			BlenderScript:           touch("blender_pipeline.py", ""),
		},
	})
	if err != nil {
		panic(err)
	}

	fmt.Printf("status: %s, tasks: %d/%d\n", run.Status, run.Progress.Done, run.Progress.Total)

	// Output:
	// status: succeeded, tasks: 4/4
}
