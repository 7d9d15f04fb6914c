package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsExposition(t *testing.T) {
	m := New()
	m.RequestCounter.WithLabelValues("GET", "/healthz", "200").Inc()
	m.AttemptsStarted.Inc()
	m.AttemptsGraded.WithLabelValues("completed").Add(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AttemptsStarted))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AttemptsGraded.WithLabelValues("completed")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `braincraft_http_requests_total{method="GET",route="/healthz",status="200"} 1`))
	assert.Contains(t, body, "braincraft_attempts_started_total 1")
}

func TestNewRegistriesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.AttemptsStarted.Inc()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.AttemptsStarted))
}
