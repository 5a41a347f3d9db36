package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/vinoplan-backend/internal/data/db"
	httpserver "github.com/yungbote/vinoplan-backend/internal/http"
	"github.com/yungbote/vinoplan-backend/internal/observability"
	"github.com/yungbote/vinoplan-backend/internal/platform/envutil"
	"github.com/yungbote/vinoplan-backend/internal/platform/logger"
)

const serviceName = "vinoplan-api"

type App struct {
	Log      *logger.Logger
	DB       *db.Service
	Server   *httpserver.Server
	Cfg      Config
	Clients  Clients
	Repos    Repos
	Services Services
	Metrics  *observability.Metrics

	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: serviceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})
	metrics := observability.Init(log)

	dbs, err := db.Open(log, db.LoadConfig())
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := dbs.AutoMigrateAll(); err != nil {
		_ = dbs.Close()
		log.Sync()
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	clients, err := wireClients(log, cfg)
	if err != nil {
		_ = dbs.Close()
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(dbs.DB(), log)
	serviceset, err := wireServices(log, cfg, reposet, clients)
	if err != nil {
		clients.Close()
		_ = dbs.Close()
		log.Sync()
		return nil, err
	}
	handlerset := wireHandlers(log, dbs.DB(), clients, serviceset)

	server := httpserver.NewServer(httpserver.RouterConfig{
		Log:                log,
		Metrics:            metrics,
		ServiceName:        serviceName,
		CORSOrigins:        cfg.CORSOrigins,
		AdminToken:         cfg.AdminToken,
		IdentityMiddleware: handlerset.Identity,
		PlanHandler:        handlerset.Plan,
		WarmupHandler:      handlerset.Warmup,
		HealthHandler:      handlerset.Health,
	})

	return &App{
		Log:          log,
		DB:           dbs,
		Server:       server,
		Cfg:          cfg,
		Clients:      clients,
		Repos:        reposet,
		Services:     serviceset,
		Metrics:      metrics,
		otelShutdown: otelShutdown,
	}, nil
}

// Run serves HTTP and drives warmup runs until ctx is cancelled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Metrics != nil {
		a.Metrics.StartDBCollector(ctx, a.Log, a.DB.DB())
		if a.Clients.Redis != nil {
			a.Metrics.StartRedisCollector(ctx, a.Log, a.Clients.Redis)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + a.Cfg.Port
		a.Log.Info("HTTP server listening", "addr", addr)
		return a.Server.Run(gctx, addr, a.Cfg.ShutdownTimeout)
	})
	if w := a.Services.LocalWorker; w != nil {
		g.Go(func() error { return w.Run(gctx) })
	}
	if r := a.Services.TemporalWorker; r != nil {
		g.Go(func() error { return r.Run(gctx) })
	}
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.Close()
	if a.DB != nil {
		_ = a.DB.Close()
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.otelShutdown(ctx)
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
