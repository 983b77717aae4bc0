package execution

import (
	"errors"
	"fmt"
)

// ErrJobVetoed is returned by Run (and passed to JobWasExecuted) when a
// TriggerListener's VetoJobExecution vetoed the firing before the job ran.
var ErrJobVetoed = errors.New("execution: job execution vetoed by listener")

// PanicError wraps a recovered panic from a running Job so callers see it
// through the normal error-returning path instead of a crashed worker.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return "execution: job panicked: " + formatPanic(e.Value)
}

func formatPanic(v any) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
