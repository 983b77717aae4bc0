// Package execution builds and runs JobRunShells: the per-firing wrapper
// that executes a trigger.Job, recovers its panics, times it, notifies
// listeners, and derives the store.CompletionInstruction the store applies
// afterward (spec.md §4.6).
package execution

import "github.com/sirupsen/logrus"

// LogrusAdapter wraps a logrus.Logger to satisfy the Logger interface.
type LogrusAdapter struct {
	*logrus.Logger
}

var _ Logger = (*LogrusAdapter)(nil)

func (l *LogrusAdapter) Criticalf(format string, args ...interface{}) {
	l.Logger.Logf(logrus.FatalLevel, format, args...)
}

func (l *LogrusAdapter) Debugf(format string, args ...interface{}) {
	l.Logger.Debugf(format, args...)
}

func (l *LogrusAdapter) Errorf(format string, args ...interface{}) {
	l.Logger.Errorf(format, args...)
}

func (l *LogrusAdapter) Noticef(format string, args ...interface{}) {
	l.Logger.Infof(format, args...)
}

func (l *LogrusAdapter) Warningf(format string, args ...interface{}) {
	l.Logger.Warnf(format, args...)
}
