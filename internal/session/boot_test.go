package session

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/aryanduntley/AIProjectManager-sub003/internal/metrics"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/model"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/store"
)

func TestEndSessionDecrementsActiveSessionsGauge(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	sess := &model.Session{ID: "SESSION-test-1", ContextMode: model.ModeFocused, Status: "active"}
	require.NoError(t, st.CreateSession(ctx, sess))

	metrics.ActiveSessions.Set(0)
	metrics.ActiveSessions.Inc()

	b := &Boot{store: st}
	require.NoError(t, b.End(ctx, sess.ID))

	require.Equal(t, float64(0), testutil.ToFloat64(metrics.ActiveSessions))
}
