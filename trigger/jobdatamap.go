package trigger

import "fmt"

// JobDataMap is a string-keyed bag of scalar values attached to a JobDetail
// or a Trigger. A firing's effective map is the job's map overlaid by the
// trigger's map (trigger values win on key collision).
type JobDataMap map[string]any

// NewJobDataMap returns an empty, ready-to-use JobDataMap.
func NewJobDataMap() JobDataMap {
	return make(JobDataMap)
}

// Clone returns a shallow copy, safe to hand to a firing without the
// original map being mutated underneath it.
func (m JobDataMap) Clone() JobDataMap {
	out := make(JobDataMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Merge returns a new map containing m's entries overlaid by over's entries.
func (m JobDataMap) Merge(over JobDataMap) JobDataMap {
	out := m.Clone()
	for k, v := range over {
		out[k] = v
	}
	return out
}

func (m JobDataMap) PutString(key, value string) { m[key] = value }
func (m JobDataMap) PutInt(key string, value int) { m[key] = value }
func (m JobDataMap) PutLong(key string, value int64) { m[key] = value }
func (m JobDataMap) PutDouble(key string, value float64) { m[key] = value }
func (m JobDataMap) PutBool(key string, value bool) { m[key] = value }

func (m JobDataMap) GetString(key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (m JobDataMap) GetInt(key string) (int, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	}
	return 0, false
}

func (m JobDataMap) GetBool(key string) (bool, bool) {
	v, ok := m[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// MustGetString is a convenience accessor for job code that would rather
// fail loudly than silently treat a missing/mistyped key as zero-valued.
func (m JobDataMap) MustGetString(key string) string {
	v, ok := m.GetString(key)
	if !ok {
		panic(fmt.Sprintf("job data map: key %q is not a string", key))
	}
	return v
}
