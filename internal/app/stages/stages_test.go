package stages_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/tac2ar/internal/app/stages"
	"github.com/slok/tac2ar/internal/log"
	"github.com/slok/tac2ar/internal/model"
	"github.com/slok/tac2ar/internal/process/fake"
	"github.com/slok/tac2ar/internal/registry"
)

type converterFunc func(ctx context.Context, src, dst string) error

func (f converterFunc) Convert(ctx context.Context, src, dst string) error { return f(ctx, src, dst) }

type recordingTracker struct {
	tracked []string
}

func (r *recordingTracker) Track(_ context.Context, _, name string, fn func() error) error {
	r.tracked = append(r.tracked, name)
	return fn()
}

// lineLogger writes the rendered error lines to w.
type lineLogger struct {
	log.Logger
	w io.Writer
}

func (l lineLogger) Errorf(format string, args ...any) { fmt.Fprintf(l.w, "ERROR "+format+"\n", args...) }
func (l lineLogger) WithValues(log.Kv) log.Logger      { return l }

func testConfig() model.PipelineConfig {
	return model.PipelineConfig{
		SegmentationInterpreter: "/venv/bin/python",
		SegmentationScript:      "/app/segmentator_pipeline.py",
		ShaderRegistryFile:      "/app/shaders.yaml",
		ShaderRegistryTmp:       "/tmp/shaders.json",
		BlenderExecutable:       "/opt/blender/blender",
		BlenderScript:           "/app/blender_pipeline.py",
		FileEncoding:            "utf-8",
	}
}

func TestNewService(t *testing.T) {
	runner, _ := fake.NewRunner(fake.RunnerConfig{})
	conv := converterFunc(func(context.Context, string, string) error { return nil })

	tests := map[string]struct {
		config stages.ServiceConfig
		expErr bool
	}{
		"valid config should create service": {
			config: stages.ServiceConfig{Runner: runner, Converter: conv},
		},
		"missing runner should fail": {
			config: stages.ServiceConfig{Converter: conv},
			expErr: true,
		},
		"missing converter should fail": {
			config: stages.ServiceConfig{Runner: runner},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			svc, err := stages.NewService(test.config)
			if test.expErr {
				assert.Error(t, err)
				assert.Nil(t, svc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}

func TestServiceRun(t *testing.T) {
	errConvert := errors.New("yaml: line 3: did not find expected key")

	tests := map[string]struct {
		missing    map[string]bool
		responses  map[string]fake.Response
		convertErr error
		expCalls   []model.Command
		expTracked []string
		expErrIs   error
		expOut     []string
		expNoOut   []string
	}{
		"All stages succeeding should run segmentation then Blender": {
			responses: map[string]fake.Response{
				"/venv/bin/python":     {Result: model.ProcessResult{Stdout: []byte("seg ok")}},
				"/opt/blender/blender": {Result: model.ProcessResult{Stdout: []byte("render ok"), Stderr: []byte("gpu warning")}},
			},
			expCalls: []model.Command{
				{Path: "/venv/bin/python", Args: []string{"/app/segmentator_pipeline.py"}},
				{Path: "/opt/blender/blender", Args: []string{"--factory-startup", "--background", "--python", "/app/blender_pipeline.py"}},
			},
			expTracked: []string{model.TaskSegmentation, model.TaskRegistryConversion, model.TaskBlender},
			expOut: []string{
				"--- SEGMENTATION STDOUT ---\nseg ok\n",
				"--- BLENDER STDOUT ---\nrender ok\n",
				"--- BLENDER STDERR ---\ngpu warning\n",
				stages.CompletedMarker,
				"finished successfully",
			},
			expNoOut: []string{"SEGMENTATION STDERR"},
		},

		"A missing interpreter should stop before running anything": {
			missing:    map[string]bool{"/venv/bin/python": true},
			expTracked: []string{model.TaskSegmentation},
			expErrIs:   model.ErrMissingPath,
		},

		"A failing segmentation should never run Blender": {
			responses: map[string]fake.Response{
				"/venv/bin/python": {Result: model.ProcessResult{ExitCode: 4, Stdout: []byte("half"), Stderr: []byte("trace")}},
			},
			expCalls: []model.Command{
				{Path: "/venv/bin/python", Args: []string{"/app/segmentator_pipeline.py"}},
			},
			expTracked: []string{model.TaskSegmentation},
			expErrIs:   model.ErrProcessFailed,
			expOut:     []string{"ERROR Critical error during the segmentation pipeline, exit code 4\nhalf\ntrace\n"},
			expNoOut:   []string{stages.CompletedMarker},
		},

		"A segmentation invocation failure should be reported": {
			responses: map[string]fake.Response{
				"/venv/bin/python": {Err: errors.New("permission denied")},
			},
			expCalls: []model.Command{
				{Path: "/venv/bin/python", Args: []string{"/app/segmentator_pipeline.py"}},
			},
			expTracked: []string{model.TaskSegmentation},
			expErrIs:   model.ErrInvocation,
			expOut:     []string{"ERROR Unexpected error during segmentation: permission denied\n"},
			expNoOut:   []string{"goroutine "},
		},

		"A failing registry conversion should never run Blender": {
			convertErr: errConvert,
			expCalls: []model.Command{
				{Path: "/venv/bin/python", Args: []string{"/app/segmentator_pipeline.py"}},
			},
			expTracked: []string{model.TaskSegmentation, model.TaskRegistryConversion},
			expErrIs:   model.ErrConversion,
		},

		"A missing Blender script should fail even if the executable is missing too": {
			missing: map[string]bool{"/app/blender_pipeline.py": true, "/opt/blender/blender": true},
			expCalls: []model.Command{
				{Path: "/venv/bin/python", Args: []string{"/app/segmentator_pipeline.py"}},
			},
			expTracked: []string{model.TaskSegmentation, model.TaskRegistryConversion, model.TaskBlender},
			expErrIs:   model.ErrMissingPath,
		},

		"A failing Blender run should fail without the completion marker": {
			responses: map[string]fake.Response{
				"/opt/blender/blender": {Result: model.ProcessResult{ExitCode: 1, Stderr: []byte("bpy error")}},
			},
			expCalls: []model.Command{
				{Path: "/venv/bin/python", Args: []string{"/app/segmentator_pipeline.py"}},
				{Path: "/opt/blender/blender", Args: []string{"--factory-startup", "--background", "--python", "/app/blender_pipeline.py"}},
			},
			expTracked: []string{model.TaskSegmentation, model.TaskRegistryConversion, model.TaskBlender},
			expErrIs:   model.ErrProcessFailed,
			expOut:     []string{"bpy error"},
			expNoOut:   []string{stages.CompletedMarker},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			runner, err := fake.NewRunner(fake.RunnerConfig{Responses: test.responses})
			require.NoError(err)

			tracker := &recordingTracker{}
			var out bytes.Buffer
			svc, err := stages.NewService(stages.ServiceConfig{
				Runner: runner,
				Converter: converterFunc(func(_ context.Context, src, dst string) error {
					assert.Equal("/app/shaders.yaml", src)
					assert.Equal("/tmp/shaders.json", dst)
					return test.convertErr
				}),
				Tracker: tracker,
				Logger:  lineLogger{Logger: log.Noop, w: &out},
				Out:     &out,
				Exists:  func(p string) bool { return !test.missing[p] },
			})
			require.NoError(err)

			err = svc.Run(context.Background(), stages.Request{RunID: "run-1", Config: testConfig()})
			if test.expErrIs != nil {
				assert.ErrorIs(err, test.expErrIs)
			} else {
				assert.NoError(err)
			}

			if len(test.expCalls) == 0 {
				assert.Empty(runner.Calls())
			} else {
				assert.Equal(test.expCalls, runner.Calls())
			}
			assert.Equal(test.expTracked, tracker.tracked)
			for _, s := range test.expOut {
				assert.Contains(out.String(), s)
			}
			for _, s := range test.expNoOut {
				assert.NotContains(out.String(), s)
			}
		})
	}
}

func TestServiceRunWithRegistryConverter(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	src := filepath.Join(dir, "shaders.yaml")
	dst := filepath.Join(dir, "tmp", "shaders.json")
	require.NoError(os.WriteFile(src, []byte("kidney:\n  color: [0.8, 0.1, 0.1]\n"), 0644))

	runner, err := fake.NewRunner(fake.RunnerConfig{})
	require.NoError(err)
	conv, err := registry.NewYAMLToJSON(registry.ConverterConfig{})
	require.NoError(err)

	svc, err := stages.NewService(stages.ServiceConfig{
		Runner:    runner,
		Converter: conv,
		Exists:    func(string) bool { return true },
	})
	require.NoError(err)

	cfg := testConfig()
	cfg.ShaderRegistryFile = src
	cfg.ShaderRegistryTmp = dst
	require.NoError(svc.Run(context.Background(), stages.Request{Config: cfg}))

	data, err := os.ReadFile(dst)
	require.NoError(err)
	assert.JSONEq(t, `{"kidney": {"color": [0.8, 0.1, 0.1]}}`, string(data))
}

func TestServiceRunInvalidEncoding(t *testing.T) {
	runner, err := fake.NewRunner(fake.RunnerConfig{})
	require.NoError(t, err)

	svc, err := stages.NewService(stages.ServiceConfig{
		Runner:    runner,
		Converter: converterFunc(func(context.Context, string, string) error { return nil }),
	})
	require.NoError(t, err)

	cfg := testConfig()
	cfg.FileEncoding = "klingon"
	err = svc.Run(context.Background(), stages.Request{Config: cfg})
	assert.Error(t, err)
	assert.Empty(t, runner.Calls())
}
