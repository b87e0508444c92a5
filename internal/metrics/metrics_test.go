package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := New()

	m.BackendCall("create_payment", "201", 120*time.Millisecond)
	m.BackendCall("create_payment", "201", 80*time.Millisecond)
	m.Submission("muddatli", "contract_ready")
	m.Artifact("docx", "ready", time.Second)
	m.SessionEvent("opened")
	m.SessionEvent("opened")
	m.SessionEvent("cancelled")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.backendRequests.WithLabelValues("create_payment", "201")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues("muddatli", "contract_ready")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.artifacts.WithLabelValues("docx", "ready")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.sessions.WithLabelValues("opened")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.Submission("naqd", "contract_ready")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `ahlan_reserve_submissions_total{outcome="contract_ready",payment_type="naqd"} 1`)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.BackendCall("get_apartment", "200", time.Millisecond)
	m.Submission("naqd", "ok")
	m.Artifact("html", "ready", 0)
	m.SessionEvent("opened")
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rec.Code)
}
