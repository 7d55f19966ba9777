// Package logger provides the shared structured logger used across the
// engine. It wraps logrus so services carry a component field without
// repeating formatter and level setup.
package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is a component-scoped structured logger.
type Logger struct {
	*logrus.Entry
}

// NewDefault returns a logger for the named component. Level and format are
// taken from LOG_LEVEL and LOG_FORMAT; defaults are info and text.
func NewDefault(component string) *Logger {
	base := logrus.New()
	base.SetOutput(os.Stderr)

	if lvl, err := logrus.ParseLevel(strings.TrimSpace(os.Getenv("LOG_LEVEL"))); err == nil {
		base.SetLevel(lvl)
	} else {
		base.SetLevel(logrus.InfoLevel)
	}

	if strings.EqualFold(strings.TrimSpace(os.Getenv("LOG_FORMAT")), "json") {
		base.SetFormatter(&logrus.JSONFormatter{})
	} else {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return &Logger{Entry: base.WithField("component", component)}
}

// WithComponent returns a child logger for a sub-component, keeping the
// parent's output, level and formatter.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Entry: l.Entry.WithField("component", component)}
}
