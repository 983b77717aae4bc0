package scheduler

import (
	"time"

	"github.com/google/uuid"

	"github.com/netresearch/goschedule/trigger"
)

func randomSuffix(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// JobBuilder is a fluent constructor for trigger.JobDetail, the
// supplemental ergonomic surface SPEC_FULL.md adds on top of spec.md's
// bare Data Model (callers may of course build a JobDetail literal
// directly instead).
type JobBuilder struct {
	detail *trigger.JobDetail
}

func NewJob(newJob func() (trigger.Job, error)) *JobBuilder {
	return &JobBuilder{detail: trigger.NewJobDetail(trigger.JobKey{}, newJob)}
}

func NewJobForInstance(j trigger.Job) *JobBuilder {
	return &JobBuilder{detail: trigger.NewJobDetailForInstance(trigger.JobKey{}, j)}
}

func (b *JobBuilder) WithIdentity(name, group string) *JobBuilder {
	b.detail.Key = trigger.NewJobKey(name, group)
	return b
}

func (b *JobBuilder) WithDescription(desc string) *JobBuilder {
	b.detail.Description = desc
	return b
}

func (b *JobBuilder) StoreDurably() *JobBuilder {
	b.detail.Durable = true
	return b
}

func (b *JobBuilder) RequestRecovery() *JobBuilder {
	b.detail.RequestsRecovery = true
	return b
}

func (b *JobBuilder) PersistJobDataAfterExecution() *JobBuilder {
	b.detail.PersistJobDataAfterExecution = true
	return b
}

func (b *JobBuilder) DisallowConcurrentExecution() *JobBuilder {
	b.detail.ConcurrentExecutionDisallowed = true
	return b
}

func (b *JobBuilder) UsingJobData(data trigger.JobDataMap) *JobBuilder {
	b.detail.JobData = data
	return b
}

func (b *JobBuilder) Build() *trigger.JobDetail {
	if b.detail.Key == (trigger.JobKey{}) {
		b.detail.Key = trigger.NewJobKeyDefault(randomSuffix("job"))
	}
	return b.detail
}

// TriggerBuilder is a fluent constructor that defers to the concrete
// trigger variant's own New*Trigger function once Build is called.
type TriggerBuilder struct {
	key      trigger.TriggerKey
	jobKey   trigger.JobKey
	start    time.Time
	end      *time.Time
	priority int
	calendar string
	build    func(trigger.TriggerKey, trigger.JobKey, time.Time, *time.Time) (trigger.Trigger, error)
}

func NewTrigger() *TriggerBuilder {
	return &TriggerBuilder{start: time.Now(), priority: -1}
}

func (b *TriggerBuilder) WithIdentity(name, group string) *TriggerBuilder {
	b.key = trigger.NewTriggerKey(name, group)
	return b
}

func (b *TriggerBuilder) ForJob(key trigger.JobKey) *TriggerBuilder {
	b.jobKey = key
	return b
}

func (b *TriggerBuilder) StartAt(t time.Time) *TriggerBuilder {
	b.start = t
	return b
}

func (b *TriggerBuilder) EndAt(t time.Time) *TriggerBuilder {
	b.end = &t
	return b
}

func (b *TriggerBuilder) WithPriority(p int) *TriggerBuilder {
	b.priority = p
	return b
}

func (b *TriggerBuilder) ModifiedByCalendar(name string) *TriggerBuilder {
	b.calendar = name
	return b
}

func (b *TriggerBuilder) WithSimpleSchedule(interval time.Duration, repeatCount int) *TriggerBuilder {
	b.build = func(key trigger.TriggerKey, jobKey trigger.JobKey, start time.Time, end *time.Time) (trigger.Trigger, error) {
		return trigger.NewSimpleTriggerWindow(key, jobKey, start, end, interval, repeatCount)
	}
	return b
}

func (b *TriggerBuilder) WithCronSchedule(expr string) *TriggerBuilder {
	b.build = func(key trigger.TriggerKey, jobKey trigger.JobKey, start time.Time, end *time.Time) (trigger.Trigger, error) {
		ce, err := trigger.ParseCronExpression(expr)
		if err != nil {
			return nil, err
		}
		return trigger.NewCronTriggerWindow(key, jobKey, ce, start, end)
	}
	return b
}

func (b *TriggerBuilder) WithCalendarIntervalSchedule(interval int, unit trigger.IntervalUnit, loc *time.Location) *TriggerBuilder {
	b.build = func(key trigger.TriggerKey, jobKey trigger.JobKey, start time.Time, _ *time.Time) (trigger.Trigger, error) {
		return trigger.NewCalendarIntervalTrigger(key, jobKey, start, interval, unit, loc)
	}
	return b
}

func (b *TriggerBuilder) WithDailyTimeIntervalSchedule(
	interval int, unit trigger.IntervalUnit, startTOD, endTOD trigger.TimeOfDay,
	days map[time.Weekday]bool, repeatCount int, loc *time.Location,
) *TriggerBuilder {
	b.build = func(key trigger.TriggerKey, jobKey trigger.JobKey, start time.Time, _ *time.Time) (trigger.Trigger, error) {
		return trigger.NewDailyTimeIntervalTrigger(key, jobKey, start, interval, unit, startTOD, endTOD, days, repeatCount, loc)
	}
	return b
}

func (b *TriggerBuilder) Build() (trigger.Trigger, error) {
	if b.key == (trigger.TriggerKey{}) {
		b.key = trigger.NewTriggerKeyDefault(randomSuffix("trigger"))
	}
	if b.build == nil {
		return nil, trigger.ErrInvalidTrigger
	}
	t, err := b.build(b.key, b.jobKey, b.start, b.end)
	if err != nil {
		return nil, err
	}
	if b.priority >= 0 {
		t.SetPriority(b.priority)
	}
	if setter, ok := t.(interface{ SetCalendarName(string) }); ok && b.calendar != "" {
		setter.SetCalendarName(b.calendar)
	}
	return t, nil
}
