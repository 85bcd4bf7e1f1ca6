package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/lifeboard-backend/internal/config"
	httpapi "github.com/yungbote/lifeboard-backend/internal/http"
	httpH "github.com/yungbote/lifeboard-backend/internal/http/handlers"
	"github.com/yungbote/lifeboard-backend/internal/observability"
	"github.com/yungbote/lifeboard-backend/internal/platform/logger"
	"github.com/yungbote/lifeboard-backend/internal/registry"
	"github.com/yungbote/lifeboard-backend/internal/services"
	"github.com/yungbote/lifeboard-backend/internal/snapshot"
)

type App struct {
	Log       *logger.Logger
	Config    *config.Config
	Registry  *registry.Registry
	Persister *snapshot.Persister
	Boards    services.BoardService
	Metrics   *observability.Metrics

	server       *http.Server
	ready        atomic.Bool
	otelShutdown func(context.Context) error

	addrMu sync.Mutex
	addr   net.Addr
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a, err := NewWithConfig(context.Background(), cfg, log)
	if err != nil {
		log.Sync()
		return nil, err
	}
	return a, nil
}

// NewWithConfig wires every component from an already loaded config.
func NewWithConfig(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Environment: cfg.Env,
		Version:     cfg.Version,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		Headers:     cfg.Tracing.Headers,
		SampleRatio: cfg.Tracing.SampleRatio,
	})

	store, err := resolveSnapshotStore(ctx, log, cfg.Snapshot)
	if err != nil {
		return nil, err
	}
	mode, err := snapshot.ParseMode(cfg.Snapshot.Mode)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	var metrics *observability.Metrics
	var observer snapshot.Observer
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics()
		observer = metrics
	}

	reg := registry.New(log)
	metrics.TrackBoards(reg.Len)
	persister := snapshot.NewPersister(log, store, reg, snapshot.PersisterOptions{
		Mode:     mode,
		Timeout:  cfg.Snapshot.Timeout,
		Observer: observer,
	})
	reg.OnChange(persister.Notify)

	boards := services.NewBoardService(log, reg, services.Limits{
		DefaultMaxIterations: cfg.Engine.DefaultMaxIterations,
		MaxIterationsLimit:   cfg.Engine.MaxIterationsLimit,
		MaxSteps:             cfg.Engine.MaxSteps,
		RenderMaxPixels:      cfg.Engine.RenderMaxPixels,
	})

	a := &App{
		Log:          log,
		Config:       cfg,
		Registry:     reg,
		Persister:    persister,
		Boards:       boards,
		Metrics:      metrics,
		otelShutdown: otelShutdown,
	}

	serviceName := ""
	if cfg.Tracing.Enabled {
		serviceName = cfg.Tracing.ServiceName
	}
	a.server = httpapi.NewServer(httpapi.ServerConfig{
		Addr:              cfg.HTTP.Addr,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}, httpapi.RouterConfig{
		Log:             log,
		ServiceName:     serviceName,
		CORSOrigins:     cfg.HTTP.CORSOrigins,
		MaxRequestBytes: cfg.HTTP.MaxRequestBytes,
		Metrics:         metrics,
		MetricsPath:     cfg.Metrics.Path,
		BoardHandler:    httpH.NewBoardHandler(boards),
		HealthHandler:   httpH.NewHealthHandler(a.ready.Load),
	})

	return a, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() http.Handler { return a.server.Handler }

// Addr is the bound listen address once Run has started serving.
func (a *App) Addr() net.Addr {
	a.addrMu.Lock()
	defer a.addrMu.Unlock()
	return a.addr
}

// Run restores the registry, serves HTTP until ctx is cancelled, then shuts
// the server down, flushes a final snapshot and releases resources.
func (a *App) Run(ctx context.Context) error {
	restored := a.Persister.Restore(ctx)
	a.ready.Store(true)

	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		a.close()
		return fmt.Errorf("listen %s: %w", a.server.Addr, err)
	}
	a.addrMu.Lock()
	a.addr = ln.Addr()
	a.addrMu.Unlock()

	a.Log.Info("lifeboard listening",
		"addr", ln.Addr().String(),
		"boards", restored,
		"snapshot_driver", a.Persister.StoreName(),
		"snapshot_mode", string(a.Persister.Mode()),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.ready.Store(false)
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.Config.HTTP.ShutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.Log.Warn("http shutdown incomplete", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		// Returns after a final flush once gctx is done.
		if err := a.Persister.Run(gctx); err != nil {
			a.Log.Error("final snapshot flush failed", "error", err)
		}
		return nil
	})

	err = g.Wait()
	// Requests drained during shutdown may have marked the registry dirty
	// after the worker's own flush.
	if ferr := a.Persister.Flush(context.WithoutCancel(ctx)); ferr != nil {
		a.Log.Error("final snapshot flush failed", "error", ferr)
	}
	a.close()
	return err
}

func (a *App) close() {
	if err := a.Persister.Close(); err != nil {
		a.Log.Warn("snapshot store close failed", "error", err)
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.Config.HTTP.ShutdownTimeout)
		defer cancel()
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	a.Log.Sync()
}
