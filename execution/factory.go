package execution

import "github.com/netresearch/goschedule/trigger"

// JobFactory produces the trigger.Job instance a firing will execute.
// Swappable via Scheduler.SetJobFactory so callers can wire in a DI
// container instead of JobDetail.JobType (spec.md §6).
type JobFactory interface {
	NewJob(bundle trigger.FiredBundle) (trigger.Job, error)
}

// DefaultJobFactory calls JobDetail.JobType for every firing, the Go
// equivalent of reflectively instantiating the job class per fire.
type DefaultJobFactory struct{}

func (DefaultJobFactory) NewJob(bundle trigger.FiredBundle) (trigger.Job, error) {
	return bundle.JobDetail.JobType()
}
