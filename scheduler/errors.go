package scheduler

import "errors"

// ErrSchedulerShutdown is returned by Start/StartDelayed once Shutdown has
// been called; a shut-down scheduler cannot be restarted (spec.md §4.7).
var ErrSchedulerShutdown = errors.New("scheduler: scheduler has been shut down")
