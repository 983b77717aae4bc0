package execution

import "github.com/netresearch/goschedule/trigger"

// JobListener observes a single job's lifecycle across all the triggers
// that fire it (spec.md §6).
type JobListener interface {
	Name() string
	JobToBeExecuted(ctx *trigger.ExecutionContext)
	JobExecutionVetoed(ctx *trigger.ExecutionContext)
	JobWasExecuted(ctx *trigger.ExecutionContext, err error)
}

// TriggerListener observes a single trigger's firing lifecycle and may
// veto an individual firing before the job runs.
type TriggerListener interface {
	Name() string
	TriggerFired(trig trigger.Trigger, ctx *trigger.ExecutionContext)
	VetoJobExecution(trig trigger.Trigger, ctx *trigger.ExecutionContext) bool
	TriggerMisfired(trig trigger.Trigger)
	TriggerComplete(trig trigger.Trigger, ctx *trigger.ExecutionContext)
}

// SchedulerListener observes scheduler-wide lifecycle events rather than
// any single job or trigger firing.
type SchedulerListener interface {
	Name() string
	SchedulerStarted()
	SchedulerStandby()
	SchedulerShutdown()
	JobScheduled(trig trigger.Trigger)
	JobUnscheduled(key trigger.TriggerKey)
	JobAdded(detail *trigger.JobDetail)
	JobDeleted(key trigger.JobKey)
	SchedulerError(msg string, err error)
}

// ListenerManager is the dedup-by-name registry for all three listener
// kinds, matching the insertion-ordered, replace-by-key bookkeeping the
// teacher's middleware container uses for its own chain.
type ListenerManager struct {
	jobListeners     []JobListener
	jobIndex         map[string]int
	triggerListeners []TriggerListener
	triggerIndex     map[string]int
	schedListeners   []SchedulerListener
	schedIndex       map[string]int
}

func NewListenerManager() *ListenerManager {
	return &ListenerManager{
		jobIndex:     make(map[string]int),
		triggerIndex: make(map[string]int),
		schedIndex:   make(map[string]int),
	}
}

func (m *ListenerManager) AddJobListener(l JobListener) {
	if i, ok := m.jobIndex[l.Name()]; ok {
		m.jobListeners[i] = l
		return
	}
	m.jobIndex[l.Name()] = len(m.jobListeners)
	m.jobListeners = append(m.jobListeners, l)
}

func (m *ListenerManager) RemoveJobListener(name string) {
	i, ok := m.jobIndex[name]
	if !ok {
		return
	}
	m.jobListeners = append(m.jobListeners[:i], m.jobListeners[i+1:]...)
	delete(m.jobIndex, name)
	for n, idx := range m.jobIndex {
		if idx > i {
			m.jobIndex[n] = idx - 1
		}
	}
}

func (m *ListenerManager) JobListeners() []JobListener { return m.jobListeners }

func (m *ListenerManager) AddTriggerListener(l TriggerListener) {
	if i, ok := m.triggerIndex[l.Name()]; ok {
		m.triggerListeners[i] = l
		return
	}
	m.triggerIndex[l.Name()] = len(m.triggerListeners)
	m.triggerListeners = append(m.triggerListeners, l)
}

func (m *ListenerManager) RemoveTriggerListener(name string) {
	i, ok := m.triggerIndex[name]
	if !ok {
		return
	}
	m.triggerListeners = append(m.triggerListeners[:i], m.triggerListeners[i+1:]...)
	delete(m.triggerIndex, name)
	for n, idx := range m.triggerIndex {
		if idx > i {
			m.triggerIndex[n] = idx - 1
		}
	}
}

func (m *ListenerManager) TriggerListeners() []TriggerListener { return m.triggerListeners }

func (m *ListenerManager) AddSchedulerListener(l SchedulerListener) {
	if i, ok := m.schedIndex[l.Name()]; ok {
		m.schedListeners[i] = l
		return
	}
	m.schedIndex[l.Name()] = len(m.schedListeners)
	m.schedListeners = append(m.schedListeners, l)
}

func (m *ListenerManager) RemoveSchedulerListener(name string) {
	i, ok := m.schedIndex[name]
	if !ok {
		return
	}
	m.schedListeners = append(m.schedListeners[:i], m.schedListeners[i+1:]...)
	delete(m.schedIndex, name)
	for n, idx := range m.schedIndex {
		if idx > i {
			m.schedIndex[n] = idx - 1
		}
	}
}

func (m *ListenerManager) SchedulerListeners() []SchedulerListener { return m.schedListeners }
