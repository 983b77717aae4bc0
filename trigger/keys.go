// Package trigger defines the job/trigger identity and scheduling types:
// JobKey/TriggerKey, JobDetail, JobDataMap, Calendar, the misfire
// instruction vocabulary, and the CronExpression engine plus the four
// trigger variants (Cron, Simple, CalendarInterval, DailyTimeInterval).
package trigger

import "fmt"

// DefaultGroup is used for jobs and triggers whose group was not specified.
const DefaultGroup = "DEFAULT"

// JobKey identifies a JobDetail by (name, group). The zero value is not a
// valid key; use NewJobKey or NewJobKeyDefault to construct one.
type JobKey struct {
	Name  string
	Group string
}

// NewJobKey returns a JobKey with an explicit group.
func NewJobKey(name, group string) JobKey {
	if group == "" {
		group = DefaultGroup
	}
	return JobKey{Name: name, Group: group}
}

// NewJobKeyDefault returns a JobKey in DefaultGroup.
func NewJobKeyDefault(name string) JobKey {
	return NewJobKey(name, DefaultGroup)
}

func (k JobKey) String() string {
	return fmt.Sprintf("%s.%s", k.Group, k.Name)
}

// TriggerKey identifies a Trigger by (name, group).
type TriggerKey struct {
	Name  string
	Group string
}

// NewTriggerKey returns a TriggerKey with an explicit group.
func NewTriggerKey(name, group string) TriggerKey {
	if group == "" {
		group = DefaultGroup
	}
	return TriggerKey{Name: name, Group: group}
}

// NewTriggerKeyDefault returns a TriggerKey in DefaultGroup.
func NewTriggerKeyDefault(name string) TriggerKey {
	return NewTriggerKey(name, DefaultGroup)
}

func (k TriggerKey) String() string {
	return fmt.Sprintf("%s.%s", k.Group, k.Name)
}

// Less orders keys lexicographically by (group, name), the last tie-break
// the store uses when it sorts candidates for acquisition.
func (k TriggerKey) Less(other TriggerKey) bool {
	if k.Group != other.Group {
		return k.Group < other.Group
	}
	return k.Name < other.Name
}
