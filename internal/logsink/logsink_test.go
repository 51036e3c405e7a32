package logsink_test

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/tac2ar/internal/logsink"
	"github.com/slok/tac2ar/internal/model"
)

func TestOpenTruncates(t *testing.T) {
	p := filepath.Join(t.TempDir(), "pipeline.log")
	require.NoError(t, os.WriteFile(p, []byte("old content from last run\n"), 0644))

	s, err := logsink.Open(p, "utf-8")
	require.NoError(t, err)
	fmt.Fprintln(s, "new run")
	require.NoError(t, s.Close())

	got, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "new run\n", string(got))
}

func TestSinkEncoding(t *testing.T) {
	tests := map[string]struct {
		encoding string
		text     string
		expBytes []byte
	}{
		"UTF-8 should be written as is": {
			encoding: "utf-8",
			text:     "già",
			expBytes: []byte("già"),
		},

		"windows-1252 should be transcoded": {
			encoding: "windows-1252",
			text:     "già",
			expBytes: []byte{'g', 'i', 0xe0},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			p := filepath.Join(t.TempDir(), "pipeline.log")

			s, err := logsink.Open(p, test.encoding)
			require.NoError(t, err)
			_, err = s.Write([]byte(test.text))
			require.NoError(t, err)
			require.NoError(t, s.Close())

			got, err := os.ReadFile(p)
			require.NoError(t, err)
			assert.Equal(t, test.expBytes, got)
		})
	}
}

func TestOpenInvalidEncoding(t *testing.T) {
	_, err := logsink.Open(filepath.Join(t.TempDir(), "pipeline.log"), "not-an-encoding")
	assert.Error(t, err)
}

func TestSinkCloseIsIdempotent(t *testing.T) {
	s, err := logsink.Open(filepath.Join(t.TempDir(), "pipeline.log"), "")
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Write([]byte("late"))
	assert.Error(t, err)
}

func TestRedirect(t *testing.T) {
	errStage := errors.New("stage failed")

	tests := map[string]struct {
		fn         func(s *logsink.Sink) error
		expErr     error
		expLog     string
		expConsole bool
	}{
		"A successful region should write to the log only": {
			fn: func(s *logsink.Sink) error {
				fmt.Fprintln(s, "--- Pipeline start ---")
				return nil
			},
			expLog: "--- Pipeline start ---\n",
		},

		"A failing region should keep what was logged and return the error": {
			fn: func(s *logsink.Sink) error {
				fmt.Fprintln(s, "exit code 2")
				return errStage
			},
			expErr: errStage,
			expLog: "exit code 2\n",
		},

		"A panicking region should be reported on the console": {
			fn: func(s *logsink.Sink) error {
				fmt.Fprintln(s, "before crash")
				panic("index out of range")
			},
			expErr:     model.ErrUnexpected,
			expLog:     "before crash\n",
			expConsole: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			p := filepath.Join(t.TempDir(), "pipeline.log")
			var console bytes.Buffer
			var sink *logsink.Sink

			err := logsink.Redirect(p, "utf-8", &console, func(s *logsink.Sink) error {
				sink = s
				return test.fn(s)
			})

			if test.expErr != nil {
				assert.ErrorIs(err, test.expErr)
			} else {
				assert.NoError(err)
			}

			// The sink is always released.
			_, werr := sink.Write([]byte("after"))
			assert.Error(werr)

			got, rerr := os.ReadFile(p)
			require.NoError(rerr)
			assert.Equal(test.expLog, string(got))

			if test.expConsole {
				assert.Contains(console.String(), "index out of range")
				assert.Contains(console.String(), "goroutine")
			} else {
				assert.Empty(console.String())
			}
		})
	}
}
