package execution

import "fmt"

// Logger is the narrow logging surface JobRunShell and its listeners use,
// letting callers bridge in logrus (see LogrusAdapter) or any other
// leveled logger without execution depending on a concrete library.
type Logger interface {
	Criticalf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Noticef(format string, args ...interface{})
	Warningf(format string, args ...interface{})
}

// SlogAdapter bridges a log/slog.Logger to Logger, the default used
// wherever a caller does not supply a logrus instance.
type SlogAdapter struct {
	Log interface {
		Debug(msg string, args ...any)
		Info(msg string, args ...any)
		Warn(msg string, args ...any)
		Error(msg string, args ...any)
	}
}

func (a *SlogAdapter) Criticalf(format string, args ...interface{}) {
	a.Log.Error(fmt.Sprintf(format, args...))
}
func (a *SlogAdapter) Debugf(format string, args ...interface{}) {
	a.Log.Debug(fmt.Sprintf(format, args...))
}
func (a *SlogAdapter) Errorf(format string, args ...interface{}) {
	a.Log.Error(fmt.Sprintf(format, args...))
}
func (a *SlogAdapter) Noticef(format string, args ...interface{}) {
	a.Log.Info(fmt.Sprintf(format, args...))
}
func (a *SlogAdapter) Warningf(format string, args ...interface{}) {
	a.Log.Warn(fmt.Sprintf(format, args...))
}
