// Package metrics 运行指标（Prometheus）。
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"restodocks/internal/model"
)

const namespace = "restodocks"

// Metrics 指标集合；nil 接收者上的方法均为空操作
type Metrics struct {
	registry    *prometheus.Registry
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	resolutions *prometheus.CounterVec
	formulas    prometheus.Counter
	summaries   prometheus.Counter
	appended    prometheus.Counter
	unresolved  prometheus.Counter
}

// New 创建指标并注册到独立的 registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Workbook runs by operation and status.",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of workbook runs.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"operation"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "name_resolutions_total",
			Help:      "Ingredient name resolutions by matched rule.",
		}, []string{"rule"}),
		formulas: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "formulas_written_total",
			Help:      "Derived formulas written.",
		}),
		summaries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summary_rows_inserted_total",
			Help:      "Summary rows inserted below ingredient blocks.",
		}),
		appended: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_records_appended_total",
			Help:      "Ledger records appended by the merge step.",
		}),
		unresolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unresolved_names_total",
			Help:      "Ingredient rows whose name matched no catalog entry.",
		}),
	}
	m.registry.MustRegister(
		m.runs, m.duration, m.resolutions,
		m.formulas, m.summaries, m.appended, m.unresolved,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveResolution 记录一次名称解析
func (m *Metrics) ObserveResolution(rule model.ResolutionRule) {
	if m == nil {
		return
	}
	label := string(rule)
	if label == "" {
		label = "unresolved"
	}
	m.resolutions.WithLabelValues(label).Inc()
}

// ObserveRun 记录一次运行结果
func (m *Metrics) ObserveRun(report *model.RunReport, err error) {
	if m == nil || report == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failed"
	}
	op := string(report.Operation)
	m.runs.WithLabelValues(op, status).Inc()
	m.duration.WithLabelValues(op).Observe(report.Duration.Seconds())
	m.formulas.Add(float64(report.Formulas))
	m.summaries.Add(float64(report.Summaries))
	m.appended.Add(float64(len(report.Appended)))
	m.unresolved.Add(float64(len(report.Unresolved)))
}

// Handler /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
