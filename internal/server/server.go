// Package server assembles the allocator, HTTP API and background runner into
// one process.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/aimhigh31/work-ten-sub018/internal/api"
	"github.com/aimhigh31/work-ten-sub018/internal/codegen"
	"github.com/aimhigh31/work-ten-sub018/internal/config"
	"github.com/aimhigh31/work-ten-sub018/internal/counter"
	"github.com/aimhigh31/work-ten-sub018/internal/logging"
	"github.com/aimhigh31/work-ten-sub018/internal/runner"
	"github.com/aimhigh31/work-ten-sub018/internal/runner/tasks"
	"github.com/aimhigh31/work-ten-sub018/internal/tracing"
	"github.com/aimhigh31/work-ten-sub018/internal/version"
)

type Server struct {
	cfg      *config.Config
	backend  counter.Backend
	alloc    *codegen.Allocator
	registry *prometheus.Registry
	http     *http.Server
	runner   *runner.Runner
	log      *logrus.Entry
}

// New wires a server around an already opened backend. The caller keeps
// ownership of backend.
func New(cfg *config.Config, backend counter.Backend) (*Server, error) {
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := codegen.NewMetrics(reg)
	alloc := codegen.NewAllocator(backend, codegen.ConfigFrom(cfg.Allocator), codegen.WithMetrics(metrics))

	routerCfg := api.RouterConfig{
		ServiceName: cfg.App.Name,
		Version:     version.Version,
		MetricsPath: cfg.Metrics.Path,
	}
	if cfg.Metrics.Enabled {
		routerCfg.Gatherer = reg
	}
	router := api.NewRouter(alloc, backend, routerCfg)
	router.SetupRoutes()

	s := &Server{
		cfg:      cfg,
		backend:  backend,
		alloc:    alloc,
		registry: reg,
		log:      logging.WithComponent("server"),
		http: &http.Server{
			Addr:         cfg.Server.GetServerAddr(),
			Handler:      router.GetEngine(),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	if cfg.Runner.Enabled {
		tr := runner.NewTaskRegistry()
		if err := tr.Register(tasks.NewCounterSnapshotTask(backend, metrics, cfg.Runner.SnapshotSchedule, cfg.Runner.SnapshotTimeout)); err != nil {
			return nil, err
		}
		s.runner = runner.NewRunner(tr)
	}
	return s, nil
}

func (s *Server) Handler() http.Handler { return s.http.Handler }

// Run listens on server.host:server.port until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.http.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve handles requests on ln and runs the background tasks. When ctx is
// cancelled it drains in-flight requests within server.shutdown_timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.WithField("addr", ln.Addr().String()).Info("HTTP server listening")
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if s.runner != nil {
		g.Go(func() error { return s.runner.Start(gctx) })
	}

	g.Go(func() error {
		<-gctx.Done()
		s.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Start opens the configured backend, runs the server until ctx is done and
// releases everything on the way out.
func Start(ctx context.Context, cfg *config.Config) error {
	shutdownTracing, err := tracing.Init(cfg.Tracing, version.Version)
	if err != nil {
		return fmt.Errorf("failed to initialise tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		_ = shutdownTracing(flushCtx)
	}()

	backend, err := OpenBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	s, err := New(cfg, backend)
	if err != nil {
		return err
	}
	config.OnReload(s.reload)
	return s.Run(ctx)
}

// reload applies hot-reloaded allocator settings. Listener, store and runner
// settings still need a restart.
func (s *Server) reload(c *config.Config) {
	s.alloc.SetConfig(codegen.ConfigFrom(c.Allocator))
	s.log.WithFields(logrus.Fields{
		"min_year":         c.Allocator.MinYear,
		"max_future_years": c.Allocator.MaxFutureYears,
		"retry_attempts":   c.Allocator.Retry.Attempts,
	}).Info("allocator configuration reloaded")
}
