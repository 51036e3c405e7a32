package model

import "fmt"

// PipelineConfig holds the named paths and settings consumed by the pipeline.
type PipelineConfig struct {
	// ShellPipelinePath is the kidney segmentation run_all.sh script.
	ShellPipelinePath string
	// SegmentationInterpreter is the interpreter used to run the segmentation script.
	SegmentationInterpreter string
	// SegmentationScript is the segmentation pipeline entry script.
	SegmentationScript string
	// ShaderRegistryFile is the YAML shader registry source.
	ShaderRegistryFile string
	// ShaderRegistryTmp is where the JSON registry is written for Blender.
	ShaderRegistryTmp string
	// BlenderExecutable is the Blender binary.
	BlenderExecutable string
	// BlenderScript is the script Blender runs in background mode.
	BlenderScript string
	// FileEncoding is the text encoding of the pipeline log.
	FileEncoding string
	// Env contains extra environment variables for the stage processes.
	Env map[string]string
}

// Validate checks the settings the stages need are present. The kidney
// pipeline path is only checked when that pipeline runs.
func (c PipelineConfig) Validate() error {
	required := []struct{ name, value string }{
		{"segmentation interpreter", c.SegmentationInterpreter},
		{"segmentation script", c.SegmentationScript},
		{"shader registry file", c.ShaderRegistryFile},
		{"shader registry tmp", c.ShaderRegistryTmp},
		{"blender executable", c.BlenderExecutable},
		{"blender script", c.BlenderScript},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s is required: %w", r.name, ErrNotValid)
		}
	}

	return nil
}
