package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestStoreWritesIncrementsByKind(t *testing.T) {
	before := testutil.ToFloat64(StoreWrites.WithLabelValues("task"))
	StoreWrites.WithLabelValues("task").Inc()
	require.Equal(t, before+1, testutil.ToFloat64(StoreWrites.WithLabelValues("task")))
}

func TestActiveSessionsGauge(t *testing.T) {
	ActiveSessions.Set(0)
	ActiveSessions.Inc()
	ActiveSessions.Inc()
	ActiveSessions.Dec()

	require.Equal(t, float64(1), testutil.ToFloat64(ActiveSessions))
}

func TestRegistryGathersAllCollectors(t *testing.T) {
	families, err := Registry.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"aipm_store_writes_total",
		"aipm_store_write_errors_total",
		"aipm_sidequest_limit_exceeded_total",
		"aipm_branches_created_total",
		"aipm_gitbridge_reconciliations_total",
		"aipm_active_sessions",
	} {
		require.True(t, names[want], "expected %s registered", want)
	}
}
