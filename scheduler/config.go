// Package scheduler assembles the JobStore, ThreadPool, and JobRunShell
// into the running scheduler: the SchedulerThread control loop and the
// Scheduler façade applications call (spec.md §4.5, §4.7).
package scheduler

import "time"

// Config holds the tunables spec.md §6 lists as recognized scheduler
// options. Zero-value fields are replaced by DefaultConfig's values in
// New.
type Config struct {
	InstanceName string
	InstanceID   string

	ThreadPoolSize int

	// IdleWaitTime bounds how long the scheduler thread parks when the
	// store currently has no acquirable trigger, before it checks again.
	IdleWaitTime time.Duration

	BatchTriggerAcquisitionMaxCount       int
	BatchTriggerAcquisitionFireAheadWindow time.Duration

	// InterruptJobsOnShutdown, when true, cancels every in-flight
	// ExecutionContext (via its Cancel method) on Shutdown instead of
	// only declining to start new work.
	InterruptJobsOnShutdown bool
}

func DefaultConfig() Config {
	return Config{
		InstanceName:                           "GoScheduler",
		InstanceID:                              "NON_CLUSTERED",
		ThreadPoolSize:                          10,
		IdleWaitTime:                            30 * time.Second,
		BatchTriggerAcquisitionMaxCount:         1,
		BatchTriggerAcquisitionFireAheadWindow:  0,
		InterruptJobsOnShutdown:                 false,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.InstanceName == "" {
		c.InstanceName = d.InstanceName
	}
	if c.InstanceID == "" {
		c.InstanceID = d.InstanceID
	}
	if c.ThreadPoolSize <= 0 {
		c.ThreadPoolSize = d.ThreadPoolSize
	}
	if c.IdleWaitTime <= 0 {
		c.IdleWaitTime = d.IdleWaitTime
	}
	if c.BatchTriggerAcquisitionMaxCount <= 0 {
		c.BatchTriggerAcquisitionMaxCount = d.BatchTriggerAcquisitionMaxCount
	}
	return c
}
