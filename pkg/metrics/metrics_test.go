package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveCache(t *testing.T) {
	m := New("test")

	m.ObserveCache("calendar_list", false)
	m.ObserveCache("calendar_list", true)
	m.ObserveCache("calendar_list", true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("calendar_list", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("calendar_list", "miss")))
}

func TestObserveQueryAndRetry(t *testing.T) {
	m := New("test")

	m.ObserveQuery("idx_index.first", 0.01, nil)
	m.ObserveQuery("idx_index.first", 0.02, errors.New("conn reset"))
	m.ObserveRetry("idx_index.first")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DBQueries.WithLabelValues("idx_index.first", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DBQueries.WithLabelValues("idx_index.first", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DBRetries.WithLabelValues("idx_index.first")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveCache("x", true)
		m.ObserveQuery("x", 1, nil)
		m.ObserveRetry("x")
	})
}

func TestHandlerExposesCollectorMetrics(t *testing.T) {
	m := New("test")
	m.ObserveCache("first_row", true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "collector_cache_lookups_total")
}
