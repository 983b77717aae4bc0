// Package config loads the scheduler's INI-backed configuration surface
// (spec.md §6): instance identity, thread pool sizing, batch acquisition
// tuning, and shutdown behavior, following the teacher's own
// ini.v1/creasty-defaults/mapstructure loading pipeline (cli/config.go).
package config

import (
	"fmt"
	"time"

	"github.com/creasty/defaults"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/ini.v1"

	"github.com/netresearch/goschedule/scheduler"
)

// Scheduler is the typed shape of the [scheduler] INI section.
type Scheduler struct {
	InstanceName string `ini:"instance-name" mapstructure:"instance-name" default:"GoScheduler"`
	InstanceID   string `ini:"instance-id" mapstructure:"instance-id" default:"AUTO"`

	ThreadPoolSize int `ini:"thread-pool-size" mapstructure:"thread-pool-size" default:"10"`

	IdleWaitTimeSeconds int `ini:"idle-wait-time-seconds" mapstructure:"idle-wait-time-seconds" default:"30"`

	BatchAcquisitionMaxCount        int `ini:"batch-acquisition-max-count" mapstructure:"batch-acquisition-max-count" default:"1"`
	BatchAcquisitionFireAheadMillis int `ini:"batch-acquisition-fire-ahead-millis" mapstructure:"batch-acquisition-fire-ahead-millis" default:"0"`

	InterruptJobsOnShutdown bool `ini:"interrupt-jobs-on-shutdown" mapstructure:"interrupt-jobs-on-shutdown" default:"false"`
}

// File is the root document a config file decodes into; job/trigger
// definitions live in their own named sections (e.g. [job "nightly-sync"]),
// parsed separately by callers that know their own job types, since Go has
// no reflective class-name-to-Job mapping to decode into automatically.
type File struct {
	Scheduler Scheduler `ini:"scheduler"`
}

// Load reads path as an INI document, applies creasty/defaults to the
// Scheduler section, and returns the decoded File. It follows the
// teacher's two-step pattern: ini.v1 does the file parsing, a
// mapstructure pass lets callers later decode arbitrary job sections into
// their own typed structs using the same decoder configuration.
func Load(path string) (*File, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{AllowShadows: true}, path)
	if err != nil {
		return nil, fmt.Errorf("config: load %s: %w", path, err)
	}
	if err := expandCrossReferences(cfg); err != nil {
		return nil, err
	}

	f := &File{}
	if err := defaults.Set(&f.Scheduler); err != nil {
		return nil, fmt.Errorf("config: set defaults: %w", err)
	}
	if err := cfg.Section("scheduler").MapTo(&f.Scheduler); err != nil {
		return nil, fmt.Errorf("config: decode [scheduler]: %w", err)
	}
	return f, nil
}

// DecodeSection decodes an arbitrary named section into dst via
// mapstructure, for callers that define their own job-specific config
// structs (the teacher's cli package uses the same mapstructure-based
// section decoder for job types it doesn't know about ahead of time).
func DecodeSection(raw map[string]string, dst any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           dst,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("config: build decoder: %w", err)
	}
	return dec.Decode(raw)
}

// ToSchedulerConfig translates the decoded INI section into a
// scheduler.Config.
func (f *File) ToSchedulerConfig() scheduler.Config {
	s := f.Scheduler
	instanceID := s.InstanceID
	if instanceID == "AUTO" {
		instanceID = ""
	}
	return scheduler.Config{
		InstanceName:                           s.InstanceName,
		InstanceID:                             instanceID,
		ThreadPoolSize:                          s.ThreadPoolSize,
		IdleWaitTime:                            time.Duration(s.IdleWaitTimeSeconds) * time.Second,
		BatchTriggerAcquisitionMaxCount:         s.BatchAcquisitionMaxCount,
		BatchTriggerAcquisitionFireAheadWindow:  time.Duration(s.BatchAcquisitionFireAheadMillis) * time.Millisecond,
		InterruptJobsOnShutdown:                 s.InterruptJobsOnShutdown,
	}
}
