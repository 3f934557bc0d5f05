package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRecognition("fake", time.Second, nil)
		m.FieldExtracted("idNumber")
		m.Discrepancy("idNumber")
		m.Correction("idNumber", "accept")
		m.StaleResult()
		m.SessionOpened()
		m.SessionClosed()
	})
	assert.Nil(t, m.Registry())
}

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.ObserveRecognition("tesseract", 2*time.Second, nil)
	m.ObserveRecognition("tesseract", time.Second, errors.New("blurry"))
	m.FieldExtracted("idNumber")
	m.FieldExtracted("idNumber")
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.recognitionsTotal.WithLabelValues("tesseract", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recognitionsTotal.WithLabelValues("tesseract", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.fieldsExtracted.WithLabelValues("idNumber")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.activeSessions))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.StaleResult()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "idverify_stale_results_total 1"))
}

func TestNew_IndependentRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New()
		New()
	})
}
