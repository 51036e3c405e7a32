package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/tac2ar/internal/conventions"
	"github.com/slok/tac2ar/internal/model"
	storageio "github.com/slok/tac2ar/internal/storage/io"
	"github.com/slok/tac2ar/internal/utils/env"
)

const platformAuto = "auto"

// pipelineFlags are the flags that override the configuration file values.
type pipelineFlags struct {
	platform                string
	shellPipeline           string
	segmentationInterpreter string
	segmentationScript      string
	shaderRegistry          string
	shaderRegistryTmp       string
	blenderExecutable       string
	blenderScript           string
	fileEncoding            string
	envSpecs                []string
}

func (f *pipelineFlags) register(cmd *kingpin.CmdClause) {
	cmd.Flag("platform", "Host platform used to resolve paths (auto, windows, posix).").Default(platformAuto).EnumVar(&f.platform, platformAuto, string(model.PlatformWindows), string(model.PlatformPOSIX))
	cmd.Flag("shell-pipeline", "Kidney segmentation run_all.sh path.").StringVar(&f.shellPipeline)
	cmd.Flag("segmentation-interpreter", "Interpreter used to run the segmentation script.").StringVar(&f.segmentationInterpreter)
	cmd.Flag("segmentation-script", "Segmentation pipeline script.").StringVar(&f.segmentationScript)
	cmd.Flag("shader-registry", "Shader registry YAML file.").StringVar(&f.shaderRegistry)
	cmd.Flag("shader-registry-tmp", "Path where the JSON shader registry is written.").StringVar(&f.shaderRegistryTmp)
	cmd.Flag("blender-executable", "Blender executable.").StringVar(&f.blenderExecutable)
	cmd.Flag("blender-script", "Blender pipeline script.").StringVar(&f.blenderScript)
	cmd.Flag("file-encoding", "Pipeline log text encoding (utf-8, windows-1252...).").StringVar(&f.fileEncoding)
	cmd.Flag("env", "Environment variables for the stage processes (KEY=VALUE or KEY from current environment). Can be repeated.").Short('e').StringsVar(&f.envSpecs)
}

// resolvePlatform returns the platform tag, chosen once for the whole execution.
func (f pipelineFlags) resolvePlatform() model.Platform {
	if f.platform == "" || f.platform == platformAuto {
		return model.PlatformFromGOOS(runtime.GOOS)
	}
	return model.Platform(f.platform)
}

// loadPipelineConfig loads the configuration file and applies the flag
// overrides. A missing file is only an error when it's not the default one.
// It returns the config and the directory it was loaded from.
func (c *RootCommand) loadPipelineConfig(ctx context.Context, flags pipelineFlags) (model.PipelineConfig, string, error) {
	path, err := filepath.Abs(c.ConfigPath)
	if err != nil {
		return model.PipelineConfig{}, "", fmt.Errorf("invalid config path: %w", err)
	}
	dir, name := filepath.Split(path)

	repo, err := storageio.NewConfigYAMLRepository(storageio.ConfigYAMLRepositoryConfig{
		FS:      os.DirFS(dir),
		BaseDir: dir,
	})
	if err != nil {
		return model.PipelineConfig{}, "", fmt.Errorf("could not create config repository: %w", err)
	}

	cfg, err := repo.GetConfig(ctx, name)
	switch {
	case errors.Is(err, fs.ErrNotExist) && c.ConfigPath == conventions.ConfigFile:
		c.Logger.Debugf("No config file at %s, using flags only", path)
		cfg = model.PipelineConfig{}
	case err != nil:
		return model.PipelineConfig{}, "", fmt.Errorf("could not load config %s: %w", path, err)
	}

	cfg, err = flags.apply(cfg)
	if err != nil {
		return model.PipelineConfig{}, "", err
	}

	return cfg, filepath.Clean(dir), nil
}

// apply overrides the config values set by flags.
func (f pipelineFlags) apply(cfg model.PipelineConfig) (model.PipelineConfig, error) {
	overrides := []struct {
		flag string
		dst  *string
	}{
		{f.shellPipeline, &cfg.ShellPipelinePath},
		{f.segmentationInterpreter, &cfg.SegmentationInterpreter},
		{f.segmentationScript, &cfg.SegmentationScript},
		{f.shaderRegistry, &cfg.ShaderRegistryFile},
		{f.shaderRegistryTmp, &cfg.ShaderRegistryTmp},
		{f.blenderExecutable, &cfg.BlenderExecutable},
		{f.blenderScript, &cfg.BlenderScript},
		{f.fileEncoding, &cfg.FileEncoding},
	}
	for _, o := range overrides {
		if o.flag != "" {
			*o.dst = o.flag
		}
	}

	flagEnv, err := env.ParseSpecs(f.envSpecs)
	if err != nil {
		return model.PipelineConfig{}, fmt.Errorf("invalid --env value: %w", err)
	}
	cfg.Env = env.MergeMaps(cfg.Env, flagEnv)

	return cfg, nil
}
