// Package cli wires the demographics service behind a small cobra command
// tree: serve runs the API with the scheduler, fetch and process are one-shot
// manual runs of the two pipeline halves.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/atalaykaya/demographics-api/internal/config"
	"github.com/atalaykaya/demographics-api/internal/fetcher"
	"github.com/atalaykaya/demographics-api/internal/metrics"
	"github.com/atalaykaya/demographics-api/internal/pipeline"
	"github.com/atalaykaya/demographics-api/internal/platform/sqlite"
	"github.com/atalaykaya/demographics-api/internal/population"
	"github.com/atalaykaya/demographics-api/internal/proclog"
	popurepo "github.com/atalaykaya/demographics-api/internal/repository/population"
	"github.com/atalaykaya/demographics-api/internal/scheduler"
	"github.com/atalaykaya/demographics-api/internal/server"
)

var configPath string

// Execute runs the root command.
func Execute() error {
	root := &cobra.Command{
		Use:           "demographics-api",
		Short:         "Demographic snapshot ingestion service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")

	root.AddCommand(serveCmd(), fetchCmd(), processCmd())

	return root.Execute()
}

func loadConfig() (config.Config, error) {
	if configPath == "" {
		return config.Load(), nil
	}
	return config.LoadFile(configPath)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the background scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

func fetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Fetch demographic data into the staging directory once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			fetch := fetcher.New(cfg.FeatureServerURL, cfg.DataDir, fetcher.WithWorkers(cfg.Workers))
			path, n, err := fetch.Fetch(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetch: %w", err)
			}

			slog.Info("fetch completed", "file", path, "features", n)
			return nil
		},
	}
}

func processCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "process",
		Short: "Run one ingestion cycle over the staging directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := sqlite.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer func() { _ = db.Close() }()

			pipe, err := pipeline.New(
				cfg.DataDir,
				popurepo.NewRepository(db.DB),
				proclog.New(cfg.StorageDir),
				metrics.New(),
			)
			if err != nil {
				return err
			}

			if !pipe.RunCycle(cmd.Context()) {
				return errors.New("processing failed, consult the log")
			}
			return nil
		},
	}
}

func serve(cfg config.Config) error {
	// Root context: cancelled on SIGINT/SIGTERM so in-flight requests stop
	// promptly during graceful shutdown.
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	if err := os.MkdirAll(cfg.StorageDir, 0o755); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}

	db, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	m := metrics.New()
	repo := popurepo.NewRepository(db.DB)
	popSvc := population.NewService(repo)

	pipe, err := pipeline.New(cfg.DataDir, repo, proclog.New(cfg.StorageDir), m)
	if err != nil {
		return err
	}

	fetch := fetcher.New(cfg.FeatureServerURL, cfg.DataDir, fetcher.WithWorkers(cfg.Workers))

	// Job definitions are declared here, at construction: a removed job comes
	// back with these defaults on the next process start.
	sched := scheduler.New(m, []scheduler.Job{
		{
			ID:       "fetch_data",
			Name:     "Fetch ArcGIS demographic data",
			Interval: cfg.FetchInterval,
			Run: func(ctx context.Context) error {
				_, _, err := fetch.Fetch(ctx)
				return err
			},
		},
		{
			ID:       "process_data",
			Name:     "Process demographic data",
			Interval: cfg.ProcessInterval,
			Run: func(ctx context.Context) error {
				if !pipe.RunCycle(ctx) {
					return errors.New("processing failed, consult the log")
				}
				return nil
			},
		},
	}, scheduler.WithEnabled(cfg.SchedulerEnabled))

	sched.Start()

	srv := server.New(rootCtx, cfg.Port, popSvc, pipe, fetch, sched, m)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	slog.Info("server started", "port", cfg.Port)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-done:
	}

	// Cancel the root context first so in-flight requests begin winding down,
	// then let the scheduler drain its running jobs, then drain connections.
	rootCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := sched.Shutdown(shutdownCtx); err != nil {
		slog.Error("scheduler shutdown error", "error", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	slog.Info("server stopped")
	return nil
}
