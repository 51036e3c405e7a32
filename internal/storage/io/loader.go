package io

import (
	"context"
	"fmt"
	"io/fs"
	"os/exec"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/slok/tac2ar/internal/conventions"
	"github.com/slok/tac2ar/internal/model"
	"github.com/slok/tac2ar/internal/utils/textenc"
	"github.com/slok/tac2ar/internal/utils/wslpath"
)

// ConfigYAMLRepositoryConfig is the configuration for the YAML config repository.
type ConfigYAMLRepositoryConfig struct {
	FS fs.FS
	// BaseDir is the host directory relative paths in the config are resolved against.
	BaseDir string
	// LookPath resolves executables given by name, defaults to exec.LookPath.
	LookPath func(file string) (string, error)
}

func (c *ConfigYAMLRepositoryConfig) defaults() error {
	if c.FS == nil {
		return fmt.Errorf("fs is required")
	}
	if c.LookPath == nil {
		c.LookPath = exec.LookPath
	}
	return nil
}

// ConfigYAMLRepository loads the pipeline configuration from YAML files.
type ConfigYAMLRepository struct {
	fs       fs.FS
	baseDir  string
	lookPath func(file string) (string, error)
}

// NewConfigYAMLRepository creates a new YAML config repository.
func NewConfigYAMLRepository(cfg ConfigYAMLRepositoryConfig) (*ConfigYAMLRepository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &ConfigYAMLRepository{
		fs:       cfg.FS,
		baseDir:  cfg.BaseDir,
		lookPath: cfg.LookPath,
	}, nil
}

// GetConfig loads the pipeline configuration from a YAML file. Missing values
// get their defaults, validation of required values is left to the caller
// since flags can still fill them.
func (r *ConfigYAMLRepository) GetConfig(ctx context.Context, path string) (model.PipelineConfig, error) {
	data, err := fs.ReadFile(r.fs, path)
	if err != nil {
		return model.PipelineConfig{}, fmt.Errorf("reading config file: %w", err)
	}

	if ctx.Err() != nil {
		return model.PipelineConfig{}, ctx.Err()
	}

	var cfg PipelineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return model.PipelineConfig{}, fmt.Errorf("parsing YAML: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return model.PipelineConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return r.toModel(cfg), nil
}

// PipelineConfig represents the YAML structure of the pipeline configuration.
type PipelineConfig struct {
	FileEncoding   string               `yaml:"file_encoding"`
	Env            map[string]string    `yaml:"env"`
	Kidney         KidneyConfig         `yaml:"kidney"`
	Segmentation   SegmentationConfig   `yaml:"segmentation"`
	ShaderRegistry ShaderRegistryConfig `yaml:"shader_registry"`
	Blender        BlenderConfig        `yaml:"blender"`
}

// KidneyConfig represents the YAML structure of the kidney segmentation pipeline.
type KidneyConfig struct {
	Pipeline string `yaml:"pipeline"`
}

// SegmentationConfig represents the YAML structure of the segmentation stage.
type SegmentationConfig struct {
	Interpreter string `yaml:"interpreter"`
	Script      string `yaml:"script"`
}

// ShaderRegistryConfig represents the YAML structure of the shader registry.
type ShaderRegistryConfig struct {
	Source string `yaml:"source"`
	Tmp    string `yaml:"tmp"`
}

// BlenderConfig represents the YAML structure of the Blender stage.
type BlenderConfig struct {
	Executable string `yaml:"executable"`
	Script     string `yaml:"script"`
}

func (c PipelineConfig) validate() error {
	if c.FileEncoding != "" {
		if _, err := textenc.Lookup(c.FileEncoding); err != nil {
			return fmt.Errorf("file_encoding: %w", err)
		}
	}

	if c.ShaderRegistry.Source != "" && c.ShaderRegistry.Source == c.ShaderRegistry.Tmp {
		return fmt.Errorf("shader_registry tmp must differ from source")
	}

	return nil
}

func (r *ConfigYAMLRepository) toModel(c PipelineConfig) model.PipelineConfig {
	segScript := c.Segmentation.Script
	if segScript == "" {
		segScript = conventions.SegmentationScriptFile
	}
	blenderScript := c.Blender.Script
	if blenderScript == "" {
		blenderScript = conventions.BlenderScriptFile
	}
	encoding := c.FileEncoding
	if encoding == "" {
		encoding = textenc.Default
	}

	return model.PipelineConfig{
		ShellPipelinePath:       r.resolvePath(c.Kidney.Pipeline),
		SegmentationInterpreter: r.resolveExecutable(c.Segmentation.Interpreter),
		SegmentationScript:      r.resolvePath(segScript),
		ShaderRegistryFile:      r.resolvePath(c.ShaderRegistry.Source),
		ShaderRegistryTmp:       r.resolvePath(c.ShaderRegistry.Tmp),
		BlenderExecutable:       r.resolveExecutable(c.Blender.Executable),
		BlenderScript:           r.resolvePath(blenderScript),
		FileEncoding:            encoding,
		Env:                     c.Env,
	}
}

// resolvePath makes relative paths relative to the config directory. Windows
// native paths are kept as they are on every host.
func (r *ConfigYAMLRepository) resolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) || wslpath.HasDriveLetter(p) || r.baseDir == "" {
		return p
	}
	return filepath.Join(r.baseDir, p)
}

// resolveExecutable looks up bare command names in PATH, anything else is a path.
func (r *ConfigYAMLRepository) resolveExecutable(p string) string {
	if p == "" || strings.ContainsAny(p, `/\`) {
		return r.resolvePath(p)
	}

	if found, err := r.lookPath(p); err == nil {
		return found
	}

	return p
}
