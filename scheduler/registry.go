package scheduler

import "sync"

// registry is the process-wide table of named Scheduler instances,
// mirroring Quartz's SchedulerRepository: callers that obtain a scheduler
// by name anywhere in the process get the same instance (spec.md §9).
type registry struct {
	mu    sync.Mutex
	byName map[string]*Scheduler
}

var globalRegistry = &registry{byName: make(map[string]*Scheduler)}

// Register adds s to the process-wide registry under its instance name. It
// replaces any previously-registered scheduler with that name.
func Register(s *Scheduler) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	globalRegistry.byName[s.InstanceName()] = s
}

// Lookup returns the registered scheduler with the given name, if any.
func Lookup(name string) (*Scheduler, bool) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	s, ok := globalRegistry.byName[name]
	return s, ok
}

// Remove drops name from the registry, typically called from Shutdown.
func Remove(name string) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	delete(globalRegistry.byName, name)
}

// Names returns every currently-registered scheduler's instance name.
func Names() []string {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	out := make([]string, 0, len(globalRegistry.byName))
	for n := range globalRegistry.byName {
		out = append(out, n)
	}
	return out
}
