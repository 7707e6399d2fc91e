package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_CountsByLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Transition("confirm", OutcomeOK)
	m.Transition("confirm", OutcomeOK)
	m.Transition("confirm", OutcomeRejected)
	m.Notification(OutcomeFailed)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("confirm", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("confirm", OutcomeRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues(OutcomeFailed)))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Transition("confirm", OutcomeOK)
		m.Notification(OutcomeOK)
	})
}

func TestHandler_ServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg).Notification(OutcomeOK)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `clinicbook_notifications_total{outcome="ok"} 1`))
}
