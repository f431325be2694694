// Package logger provides structured logging for the cart engine. It wraps
// logrus behind a small chainable API so call sites stay decoupled from the
// backend.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is a named structured logger. The zero value is not usable; construct
// one with New or NewDefault.
type Logger struct {
	entry *logrus.Entry
}

// New creates a logger writing to the given output at the given level.
// Unrecognized level strings fall back to info.
func New(component string, out io.Writer, level string) *Logger {
	base := logrus.New()
	base.SetOutput(out)
	base.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	lvl, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	base.SetLevel(lvl)
	return &Logger{entry: base.WithField("component", component)}
}

// NewDefault creates a logger for the named component writing to stderr at the
// level given by CART_ENGINE_LOG_LEVEL (info when unset).
func NewDefault(component string) *Logger {
	return New(component, os.Stderr, os.Getenv("CART_ENGINE_LOG_LEVEL"))
}

// SetOutput redirects the underlying output stream. Useful for silencing
// loggers in examples and tests.
func (l *Logger) SetOutput(out io.Writer) {
	l.entry.Logger.SetOutput(out)
}

// WithField returns a logger carrying an additional field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}

// WithFields returns a logger carrying the given fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return &Logger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

// WithError returns a logger carrying the error as a field.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{entry: l.entry.WithError(err)}
}

func (l *Logger) Debug(args ...interface{}) { l.entry.Debug(args...) }
func (l *Logger) Info(args ...interface{})  { l.entry.Info(args...) }
func (l *Logger) Warn(args ...interface{})  { l.entry.Warn(args...) }
func (l *Logger) Error(args ...interface{}) { l.entry.Error(args...) }

func (l *Logger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }
