package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ExpandsCrossReferences(t *testing.T) {
	path := writeTempConfig(t, `
[scheduler]
instance-name = fleet-primary

[job "nightly-sync"]
command = rsync --log-file /var/log/$@scheduler.instance-name
`)
	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "fleet-primary", f.Scheduler.InstanceName)

	resolved, err := resolveValue("rsync --log-file /var/log/$@scheduler.instance-name", map[string]string{"scheduler.instance-name": "fleet-primary"})
	require.NoError(t, err)
	assert.Equal(t, "rsync --log-file /var/log/fleet-primary", resolved)
}

func TestExpandCrossReferences_ResolvesAgainstOtherSection(t *testing.T) {
	path := writeTempConfig(t, `
[cluster]
name = fleet-primary

[scheduler]
instance-id = $@cluster.name (worker)
`)
	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "fleet-primary (worker)", f.Scheduler.InstanceID)
}

func TestExpandCrossReferences_UnresolvedReferenceFails(t *testing.T) {
	path := writeTempConfig(t, `
[scheduler]
instance-name = $@nonexistent.property
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unresolved cross-reference")
}

func TestExpandCrossReferences_DoesNotChainThroughAnotherReference(t *testing.T) {
	// instance-id resolves against instance-name's raw (pre-expansion)
	// value, so a reference to a reference is not followed transitively.
	path := writeTempConfig(t, `
[scheduler]
thread-pool-size = 7
instance-name = $@scheduler.thread-pool-size
instance-id = $@scheduler.instance-name
`)
	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7", f.Scheduler.InstanceName)
	assert.Equal(t, "$@scheduler.thread-pool-size", f.Scheduler.InstanceID)
}
