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

	"restodocks/internal/model"
)

func TestObserveRun(t *testing.T) {
	m := New()
	m.ObserveRun(&model.RunReport{
		Operation: model.OpLinkPrices,
		Formulas:  12,
		Summaries: 2,
		Appended:  []model.LedgerRecord{{Name: "Анчоусы"}},
		Duration:  time.Second,
	}, nil)
	m.ObserveRun(&model.RunReport{Operation: model.OpLinkPrices}, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("link-prices", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("link-prices", "failed")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.formulas))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.summaries))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.appended))
}

func TestObserveResolution(t *testing.T) {
	m := New()
	m.ObserveResolution(model.RuleExact)
	m.ObserveResolution(model.RuleExact)
	m.ObserveResolution(model.RuleNone)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.resolutions.WithLabelValues("exact")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resolutions.WithLabelValues("unresolved")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveResolution(model.RuleExact)
	m.ObserveRun(&model.RunReport{}, nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.ObserveResolution(model.RuleFuzzy)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `restodocks_name_resolutions_total{rule="fuzzy"} 1`))
}
