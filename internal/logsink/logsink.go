// Package logsink owns the pipeline log file while the stages run.
//
// Rather than swapping the process stdout/stderr, the stages get a [Sink] to
// write their diagnostics to. [Redirect] scopes the sink so it is always closed
// and panics are reported on the original console stream.
package logsink

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"

	"golang.org/x/text/transform"

	"github.com/slok/tac2ar/internal/model"
	"github.com/slok/tac2ar/internal/utils/textenc"
)

// Sink is a log file opened for writing (truncated) that encodes everything
// written to it with the configured text encoding.
type Sink struct {
	path string
	file *os.File
	enc  *transform.Writer

	mu     sync.Mutex
	closed bool
}

// Open creates or truncates the file at path.
func Open(path, encodingName string) (*Sink, error) {
	enc, err := textenc.Lookup(encodingName)
	if err != nil {
		return nil, fmt.Errorf("invalid log encoding: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("could not create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("could not open log file: %w", err)
	}

	return &Sink{
		path: path,
		file: f,
		enc:  transform.NewWriter(f, textenc.Encoder(enc)),
	}, nil
}

// Path returns the log file path.
func (s *Sink) Path() string { return s.path }

// Write writes UTF-8 text into the log file.
func (s *Sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, fmt.Errorf("log sink %s is closed", s.path)
	}

	return s.enc.Write(p)
}

// Close flushes and closes the file. It is safe to call more than once.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	flushErr := s.enc.Close()
	closeErr := s.file.Close()
	if flushErr != nil {
		return fmt.Errorf("could not flush log file: %w", flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("could not close log file: %w", closeErr)
	}

	return nil
}

// Redirect opens the sink, runs fn with it and always releases it, whatever way
// fn ends. A panic in fn is recovered, its trace written to console (the
// original, non redirected stream) and returned as a model.ErrUnexpected error.
func Redirect(path, encodingName string, console io.Writer, fn func(s *Sink) error) (err error) {
	s, err := Open(path, encodingName)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(console, "FATAL error in pipeline: %v\n%s", r, debug.Stack())
			err = fmt.Errorf("%v: %w", r, model.ErrUnexpected)
		}

		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return fn(s)
}
