package pipeline_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/tac2ar/internal/app/kidney"
	"github.com/slok/tac2ar/internal/app/pipeline"
	"github.com/slok/tac2ar/internal/log"
	"github.com/slok/tac2ar/internal/model"
	"github.com/slok/tac2ar/internal/process/fake"
	"github.com/slok/tac2ar/internal/storage/memory"
)

type converterFunc func(ctx context.Context, src, dst string) error

func (f converterFunc) Convert(ctx context.Context, src, dst string) error { return f(ctx, src, dst) }

type panicRunner struct{}

func (panicRunner) Run(context.Context, model.Command) (*model.ProcessResult, error) {
	panic("segmentation runner exploded")
}

// writerLogger is a minimal logger that writes every line to w.
type writerLogger struct {
	log.Logger
	w io.Writer
}

func (l writerLogger) Debugf(format string, args ...any) { fmt.Fprintf(l.w, "DEBUG "+format+"\n", args...) }
func (l writerLogger) Errorf(format string, args ...any) { fmt.Fprintf(l.w, "ERROR "+format+"\n", args...) }
func (l writerLogger) WithValues(log.Kv) log.Logger      { return l }

func testConfig() model.PipelineConfig {
	return model.PipelineConfig{
		ShellPipelinePath:       "/opt/kidney/run_all.sh",
		SegmentationInterpreter: "/venv/bin/python",
		SegmentationScript:      "/app/segmentator_pipeline.py",
		ShaderRegistryFile:      "/app/shaders.yaml",
		ShaderRegistryTmp:       "/tmp/shaders.json",
		BlenderExecutable:       "/opt/blender/blender",
		BlenderScript:           "/app/blender_pipeline.py",
		FileEncoding:            "utf-8",
	}
}

func TestServiceRun(t *testing.T) {
	tests := map[string]struct {
		kidney       model.KidneyMode
		stdin        string
		missing      map[string]bool
		responses    map[string]fake.Response
		panics       bool
		expErrIs     error
		expStatus    model.RunStatus
		expExitCode  int
		expKidney    bool
		expProgress  model.TaskProgress
		expCalls     []string
		expLog       []string
		expNoLog     bool
		expKidneyLog bool
		expStderr    string
	}{
		"Skipping the kidney pipeline should run all the stages": {
			kidney: model.KidneyModeAsk,
			stdin:  "n\n",
			responses: map[string]fake.Response{
				"/venv/bin/python":     {Result: model.ProcessResult{Stdout: []byte("\x1b[32mseg ok\x1b[0m   \n\n\n\n")}},
				"/opt/blender/blender": {Result: model.ProcessResult{Stdout: []byte("progress 10%\rprogress 100%\n")}},
			},
			expStatus:   model.RunStatusSucceeded,
			expProgress: model.TaskProgress{Done: 4, Total: 4},
			expCalls:    []string{"/venv/bin/python", "/opt/blender/blender"},
			expLog:      []string{"seg ok\n", "progress 100%\n", "--- Blender pipeline COMPLETED ---", "DEBUG Logging redirected to "},
		},

		"Choosing the kidney pipeline should only run it": {
			kidney:       model.KidneyModeAsk,
			stdin:        "y\n",
			expStatus:    model.RunStatusSucceeded,
			expKidney:    true,
			expProgress:  model.TaskProgress{Done: 1, Total: 1},
			expCalls:     []string{"bash"},
			expNoLog:     true,
			expKidneyLog: true,
		},

		"A missing kidney script should fail the run": {
			kidney:      model.KidneyModeYes,
			missing:     map[string]bool{"/opt/kidney/run_all.sh": true},
			expErrIs:    model.ErrMissingPath,
			expStatus:   model.RunStatusFailed,
			expExitCode: 1,
			expKidney:   true,
			expProgress: model.TaskProgress{Failed: 1, Total: 1},
			expNoLog:    true,
		},

		"A failing kidney pipeline should fail the run": {
			kidney: model.KidneyModeYes,
			responses: map[string]fake.Response{
				"bash": {Result: model.ProcessResult{ExitCode: 1}},
			},
			expErrIs:     model.ErrProcessFailed,
			expStatus:    model.RunStatusFailed,
			expExitCode:  1,
			expKidney:    true,
			expProgress:  model.TaskProgress{Failed: 1, Total: 1},
			expCalls:     []string{"bash"},
			expNoLog:     true,
			expKidneyLog: true,
		},

		"A failing segmentation should stop the stages and fail the run": {
			kidney: model.KidneyModeNo,
			responses: map[string]fake.Response{
				"/venv/bin/python": {Result: model.ProcessResult{ExitCode: 2, Stdout: []byte("partial mask"), Stderr: []byte("CUDA out of memory")}},
			},
			expErrIs:    model.ErrProcessFailed,
			expStatus:   model.RunStatusFailed,
			expExitCode: 1,
			expProgress: model.TaskProgress{Failed: 1, Total: 4},
			expCalls:    []string{"/venv/bin/python"},
			expLog: []string{
				"ERROR Critical error during the segmentation pipeline, exit code 2\npartial mask\nCUDA out of memory",
			},
		},

		"A crash inside the stages should be reported on stderr": {
			kidney:      model.KidneyModeNo,
			panics:      true,
			expErrIs:    model.ErrUnexpected,
			expStatus:   model.RunStatusFailed,
			expExitCode: 1,
			expProgress: model.TaskProgress{Total: 4},
			expStderr:   "FATAL error in pipeline: segmentation runner exploded",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			dir := t.TempDir()
			logPath := filepath.Join(dir, "pipeline.log")
			kidneyLogPath := filepath.Join(dir, "run_kidney.log")
			exists := func(p string) bool { return !test.missing[p] }

			runner, err := fake.NewRunner(fake.RunnerConfig{Responses: test.responses})
			require.NoError(err)

			var stdout, stderr bytes.Buffer
			kidneySvc, err := kidney.NewService(kidney.ServiceConfig{
				Runner: runner,
				Stdin:  strings.NewReader(test.stdin),
				Stdout: &stdout,
				Exists: exists,
			})
			require.NoError(err)

			repo, err := memory.NewRepository(memory.RepositoryConfig{})
			require.NoError(err)

			cfg := pipeline.ServiceConfig{
				Kidney:         kidneySvc,
				Runner:         runner,
				Converter:      converterFunc(func(context.Context, string, string) error { return nil }),
				RunRepository:  repo,
				TaskRepository: repo,
				NewSinkLogger:  func(w io.Writer) log.Logger { return writerLogger{Logger: log.Noop, w: w} },
				Stdout:         &stdout,
				Stderr:         &stderr,
				Exists:         exists,
				IDGen:          func() string { return "01HZZZZZZZZZZZZZZZZZZZZZZZ" },
				Now:            func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) },
			}
			if test.panics {
				cfg.Runner = panicRunner{}
			}
			svc, err := pipeline.NewService(cfg)
			require.NoError(err)

			res, err := svc.Run(context.Background(), pipeline.Request{
				Config:        testConfig(),
				Platform:      model.PlatformPOSIX,
				Kidney:        test.kidney,
				LogPath:       logPath,
				KidneyLogPath: kidneyLogPath,
			})

			if test.expErrIs != nil {
				assert.ErrorIs(err, test.expErrIs)
			} else {
				assert.NoError(err)
			}

			require.NotNil(res)
			assert.Equal(test.expKidney, res.KidneyRan)
			assert.Equal("01HZZZZZZZZZZZZZZZZZZZZZZZ", res.Run.ID)
			assert.Equal(test.expStatus, res.Run.Status)
			assert.Equal(test.expExitCode, res.Run.ExitCode)
			assert.Equal(test.expKidney, res.Run.Kidney)
			assert.Equal(test.expProgress, res.Run.Progress)
			assert.NotNil(res.Run.FinishedAt)

			var gotCalls []string
			for _, c := range runner.Calls() {
				gotCalls = append(gotCalls, c.Path)
			}
			assert.Equal(test.expCalls, gotCalls)

			data, err := os.ReadFile(logPath)
			if test.expNoLog {
				assert.True(os.IsNotExist(err))
			} else {
				require.NoError(err)
				got := string(data)
				assert.NotContains(got, "\x1b[")
				assert.NotContains(got, "\n\n\n")
				assert.True(strings.HasSuffix(got, "\n"))
				for _, s := range test.expLog {
					assert.Contains(got, s)
				}
				assert.Contains(stdout.String(), "Cleaning the log file")
			}

			_, err = os.Stat(kidneyLogPath)
			assert.Equal(test.expKidneyLog, err == nil)

			if test.expStderr != "" {
				assert.Contains(stderr.String(), test.expStderr)
			}
		})
	}
}

func TestServiceRunInvalidRequest(t *testing.T) {
	runner, err := fake.NewRunner(fake.RunnerConfig{})
	require.NoError(t, err)
	kidneySvc, err := kidney.NewService(kidney.ServiceConfig{Runner: runner})
	require.NoError(t, err)
	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(t, err)

	svc, err := pipeline.NewService(pipeline.ServiceConfig{
		Kidney:         kidneySvc,
		Runner:         runner,
		Converter:      converterFunc(func(context.Context, string, string) error { return nil }),
		RunRepository:  repo,
		TaskRepository: repo,
	})
	require.NoError(t, err)

	cfg := testConfig()
	cfg.BlenderExecutable = ""
	_, err = svc.Run(context.Background(), pipeline.Request{
		Config:        cfg,
		Platform:      model.PlatformPOSIX,
		Kidney:        model.KidneyModeNo,
		LogPath:       "pipeline.log",
		KidneyLogPath: "run_kidney.log",
	})
	assert.ErrorIs(t, err, model.ErrNotValid)

	runs, err := repo.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestServiceRunKidneyOnlyConfig(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	runner, err := fake.NewRunner(fake.RunnerConfig{})
	require.NoError(err)
	kidneySvc, err := kidney.NewService(kidney.ServiceConfig{
		Runner: runner,
		Exists: func(string) bool { return true },
	})
	require.NoError(err)
	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(err)

	svc, err := pipeline.NewService(pipeline.ServiceConfig{
		Kidney:         kidneySvc,
		Runner:         runner,
		Converter:      converterFunc(func(context.Context, string, string) error { return nil }),
		RunRepository:  repo,
		TaskRepository: repo,
	})
	require.NoError(err)

	dir := t.TempDir()
	res, err := svc.Run(context.Background(), pipeline.Request{
		Config:        model.PipelineConfig{ShellPipelinePath: "/opt/kidney/run_all.sh"},
		Platform:      model.PlatformPOSIX,
		Kidney:        model.KidneyModeYes,
		LogPath:       filepath.Join(dir, "pipeline.log"),
		KidneyLogPath: filepath.Join(dir, "run_kidney.log"),
	})
	require.NoError(err)
	assert.True(res.KidneyRan)
	assert.Equal(model.RunStatusSucceeded, res.Run.Status)
	require.Len(runner.Calls(), 1)
	assert.Equal("bash", runner.Calls()[0].Path)
}
