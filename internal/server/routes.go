package server

import (
	"net/http"

	"github.com/atalaykaya/demographics-api/internal/fetcher"
	"github.com/atalaykaya/demographics-api/internal/metrics"
	"github.com/atalaykaya/demographics-api/internal/pipeline"
	"github.com/atalaykaya/demographics-api/internal/population"
	"github.com/atalaykaya/demographics-api/internal/scheduler"
)

// NewHandler creates the full HTTP handler with routes and middleware.
func NewHandler(popSvc *population.Service, pipe *pipeline.Pipeline, fetch *fetcher.Client, sched *scheduler.Scheduler, m *metrics.Metrics) http.Handler {
	return newMux(popSvc, pipe, fetch, sched, m)
}

func newMux(popSvc *population.Service, pipe *pipeline.Pipeline, fetch *fetcher.Client, sched *scheduler.Scheduler, m *metrics.Metrics) http.Handler {
	h := &handler{
		popSvc: popSvc,
		pipe:   pipe,
		fetch:  fetch,
		sched:  sched,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.health)
	mux.Handle("GET /metrics", m.Handler())

	mux.HandleFunc("GET /api/v1/states", h.listStates)
	mux.HandleFunc("GET /api/v1/states/{state}", h.getState)

	mux.HandleFunc("POST /api/v1/fetch", h.fetchNow)
	mux.HandleFunc("POST /api/v1/process", h.processNow)

	mux.HandleFunc("GET /api/v1/scheduler/status", h.schedulerStatus)
	mux.HandleFunc("GET /api/v1/scheduler/jobs/{id}", h.jobDetails)
	mux.HandleFunc("POST /api/v1/scheduler/jobs/{id}/pause", h.pauseJob)
	mux.HandleFunc("POST /api/v1/scheduler/jobs/{id}/resume", h.resumeJob)
	mux.HandleFunc("POST /api/v1/scheduler/jobs/{id}/trigger", h.triggerJob)
	mux.HandleFunc("DELETE /api/v1/scheduler/jobs/{id}", h.removeJob)

	// Apply middleware stack: requestID -> recovery -> logging, so panic
	// logs already carry the request id.
	var handler http.Handler = mux
	handler = logging(handler)
	handler = recovery(handler)
	handler = requestID(handler)

	return handler
}
