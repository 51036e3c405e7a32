// Package log provides the logging interface for the tac2ar SDK.
//
// The SDK accepts any implementation of [Logger]. Use [Noop] to disable
// logging (the default), or [NewLogrus] to plug a logrus logger.
//
// To integrate with another logger, implement the [Logger] interface:
//
//	type myLogger struct{}
//
//	func (l myLogger) Infof(format string, args ...any)    { slog.Info(fmt.Sprintf(format, args...)) }
//	func (l myLogger) Warningf(format string, args ...any) { slog.Warn(fmt.Sprintf(format, args...)) }
//	func (l myLogger) Errorf(format string, args ...any)   { slog.Error(fmt.Sprintf(format, args...)) }
//	func (l myLogger) Debugf(format string, args ...any)   { slog.Debug(fmt.Sprintf(format, args...)) }
//	// ... remaining methods
package log

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/slok/tac2ar/internal/log"
	loglogrus "github.com/slok/tac2ar/internal/log/logrus"
)

// Logger is the interface that loggers must implement for the SDK.
type Logger = log.Logger

// Kv is a helper type for structured logging key-value pairs.
type Kv = log.Kv

// Noop is a logger that discards all log output.
var Noop = log.Noop

// NewLogrus returns a Logger backed by a logrus entry.
func NewLogrus(l *logrus.Entry) Logger {
	return loglogrus.NewLogrus(l)
}

// NewLogFileLogger returns a plain text debug logger writing to w. It fits
// lib.Config.LogFileLogger.
func NewLogFileLogger(w io.Writer) Logger {
	l := logrus.New()
	l.Out = w
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})

	return loglogrus.NewLogrus(logrus.NewEntry(l))
}
