package config

import (
	"fmt"
	"regexp"

	"gopkg.in/ini.v1"
)

// crossRefPattern matches a $@<other.property> reference. The referenced
// name is `<section>.<key>` for a named section, or a bare `<key>` for the
// default section, matching ini.v1's own addressing.
var crossRefPattern = regexp.MustCompile(`\$@([\w.\-]+)`)

// expandCrossReferences resolves every $@<other.property> reference found
// in cfg's values with a two-pass expansion: the first pass snapshots every
// key's raw value, the second pass substitutes references against that
// snapshot. A reference is resolved against the value the referenced key
// held before expansion, so references never chain through another
// reference (matching the teacher's own property-file loader, which
// resolves against the raw file rather than iterating to a fixed point).
func expandCrossReferences(cfg *ini.File) error {
	raw := snapshotValues(cfg)

	for _, section := range cfg.Sections() {
		for _, key := range section.Keys() {
			resolved, err := resolveValue(key.Value(), raw)
			if err != nil {
				return fmt.Errorf("config: %s.%s: %w", section.Name(), key.Name(), err)
			}
			if resolved != key.Value() {
				key.SetValue(resolved)
			}
		}
	}
	return nil
}

func snapshotValues(cfg *ini.File) map[string]string {
	raw := make(map[string]string)
	for _, section := range cfg.Sections() {
		for _, key := range section.Keys() {
			raw[key.Name()] = key.Value()
			if section.Name() != ini.DefaultSection {
				raw[section.Name()+"."+key.Name()] = key.Value()
			}
		}
	}
	return raw
}

func resolveValue(value string, raw map[string]string) (string, error) {
	var resolveErr error
	resolved := crossRefPattern.ReplaceAllStringFunc(value, func(match string) string {
		name := crossRefPattern.FindStringSubmatch(match)[1]
		ref, ok := raw[name]
		if !ok {
			resolveErr = fmt.Errorf("unresolved cross-reference $@%s", name)
			return match
		}
		return ref
	})
	if resolveErr != nil {
		return "", resolveErr
	}
	return resolved, nil
}
