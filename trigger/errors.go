package trigger

import "errors"

// ErrInvalidTrigger is returned by Validate when a trigger's configuration
// is structurally unusable (e.g. a cron trigger with no expression).
var ErrInvalidTrigger = errors.New("trigger: invalid configuration")
