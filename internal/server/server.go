package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/atalaykaya/demographics-api/internal/fetcher"
	"github.com/atalaykaya/demographics-api/internal/metrics"
	"github.com/atalaykaya/demographics-api/internal/pipeline"
	"github.com/atalaykaya/demographics-api/internal/population"
	"github.com/atalaykaya/demographics-api/internal/scheduler"
)

type Server struct {
	srv *http.Server
}

// New creates a server. The baseCtx is used as the base context for all
// incoming requests (via BaseContext), so cancelling it winds down in-flight
// fetch and process requests during graceful shutdown.
func New(baseCtx context.Context, port string, popSvc *population.Service, pipe *pipeline.Pipeline, fetch *fetcher.Client, sched *scheduler.Scheduler, m *metrics.Metrics) *Server {
	return &Server{
		srv: &http.Server{
			Addr:    fmt.Sprintf(":%s", port),
			Handler: newMux(popSvc, pipe, fetch, sched, m),
			BaseContext: func(_ net.Listener) context.Context {
				return baseCtx
			},
			ReadTimeout: 15 * time.Second,
			// Fetch and process endpoints run a full cycle synchronously.
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}
}

func (s *Server) Start() error {
	slog.Info("starting server", "addr", s.srv.Addr)
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down server")
	return s.srv.Shutdown(ctx)
}
