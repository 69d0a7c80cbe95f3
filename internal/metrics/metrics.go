// Package metrics exposes pipeline and scheduler counters for Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	CyclesTotal     *prometheus.CounterVec
	FilesArchived   *prometheus.CounterVec
	RecordsUpserted prometheus.Counter
	JobRuns         *prometheus.CounterVec
	JobsByState     *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_cycles_total",
			Help: "Completed pipeline cycles by result.",
		}, []string{"result"}),
		FilesArchived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_files_archived_total",
			Help: "Snapshot files moved out of staging, by archive kind.",
		}, []string{"kind"}),
		RecordsUpserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_records_upserted_total",
			Help: "State rows written to the aggregate store.",
		}),
		JobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_job_runs_total",
			Help: "Scheduled job executions by job id and result.",
		}, []string{"job", "result"}),
		JobsByState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "scheduler_jobs",
			Help: "Jobs currently in each lifecycle state.",
		}, []string{"state"}),
	}

	m.registry.MustRegister(
		m.CyclesTotal,
		m.FilesArchived,
		m.RecordsUpserted,
		m.JobRuns,
		m.JobsByState,
	)

	return m
}

// Handler serves the /metrics endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
