package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveAttempt(t *testing.T) {
	m := New()

	m.ObserveAttempt(true, "")
	m.ObserveAttempt(false, "verify")
	m.ObserveAttempt(false, "verify")
	m.ObserveAttempt(false, "critique")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.attempts.WithLabelValues("completed", "none")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.attempts.WithLabelValues("failed", "verify")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.attempts.WithLabelValues("failed", "critique")))
}

func TestObserveGate(t *testing.T) {
	m := New()

	m.ObserveGate("verify", true, 3*time.Second)
	m.ObserveGate("verify", true, time.Second)
	m.ObserveGate("critique", false, 40*time.Second)

	assert.Equal(t, 2, testutil.CollectAndCount(m.gateLatency))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `context_engine_gate_duration_seconds_count{gate="verify",result="pass"} 2`)
	assert.Contains(t, body, `context_engine_gate_duration_seconds_sum{gate="verify",result="pass"} 4`)
	assert.Contains(t, body, `context_engine_gate_duration_seconds_count{gate="critique",result="fail"} 1`)
}

func TestObserveModelCall(t *testing.T) {
	m := New()

	m.ObserveModelCall("pro", "ok", 2*time.Second)
	m.ObserveModelCall("pro", "timeout", 300*time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.modelCalls.WithLabelValues("pro", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.modelCalls.WithLabelValues("pro", "timeout")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.modelLatency))
}

func TestObserveLogEntry(t *testing.T) {
	m := New()
	m.ObserveLogEntry("started")
	m.ObserveLogEntry("started")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.logEntries.WithLabelValues("started")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAttempt(true, "")
	m.ObserveGate("verify", true, time.Second)
	m.ObserveModelCall("x", "ok", time.Second)
	m.ObserveLogEntry("complete")
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_ServesCounters(t *testing.T) {
	m := New()
	m.ObserveAttempt(false, "commit")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `context_engine_completion_attempts_total{gate="commit",outcome="failed"} 1`), body)
}
