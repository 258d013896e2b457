package app

import (
	"context"
	"fmt"

	"github.com/adhocore/gronx"
	"github.com/joho/godotenv"
	"github.com/valyala/fasthttp"

	"net/http"

	"classlog/internal/sweeper"
	"classlog/pkg/attach"
	"classlog/pkg/banner"
	"classlog/pkg/cache"
	"classlog/pkg/config"
	"classlog/pkg/locks"
	"classlog/pkg/logger"
	"classlog/pkg/service"
	"classlog/pkg/state"
	"classlog/pkg/store"
	"classlog/pkg/version"
)

// App encapsulates the server components and lifecycle.
type App struct {
	cfg     *config.Config
	addr    string
	sources string
	version string

	kv       *store.Store
	caches   *cache.Cache
	versions *version.Store
	locks    *locks.Manager
	resolver *attach.Resolver
	svc      *service.Service

	srv     *http.Server
	fastSrv *fasthttp.Server
}

// New initializes resources that do not require a running context (state
// dirs, DB, the service graph). It does not start the HTTP server or the
// sweeper; call Run to start those and block until shutdown.
func New(cfg *config.Config, sources, ver string) (*App, error) {
	_ = godotenv.Load(".env")

	// validate effective config early and fail fast
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	paths, err := state.EnsureStateDirs(cfg.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("state dirs: %w", err)
	}
	if err := logger.AttachAuditFileSink(paths.Audit); err != nil {
		logger.Warn("audit_sink_unavailable", "error", err)
	}

	kv, err := store.Open(paths.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", paths.Store, err)
	}

	lockDir := cfg.Storage.LockDir
	if lockDir == "" {
		lockDir = paths.Locks
	}

	a := &App{cfg: cfg, addr: cfg.Addr(), sources: sources, version: ver, kv: kv}
	a.caches = cache.New(kv)
	a.versions = version.New(kv)
	a.locks = locks.NewManager(lockDir)
	a.resolver = attach.NewResolver(kv, a.versions, a.caches)
	a.svc = service.New(kv, a.caches, a.versions, a.locks, a.resolver, service.Options{
		DataTTL:          cfg.DataTTL(),
		CountsTTL:        cfg.CountsTTL(),
		BathroomTTL:      cfg.BathroomTTL(),
		WriteLockTimeout: cfg.WriteLockTimeout(),
		ScanLockTimeout:  cfg.ScanLockTimeout(),
	})
	return a, nil
}

// Run starts the sweeper (if enabled) and the HTTP server, and blocks until
// ctx is canceled or a fatal server error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.cfg.Sweeper.Enabled {
		stop, err := sweeper.Start(ctx, a.caches, a.cfg.Sweeper.Cron)
		if err != nil {
			return err
		}
		defer stop()
	}

	a.printBanner()

	errCh := a.startHTTP(ctx)

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-errCh:
		runErr = err
	}

	a.stopHTTP()
	if err := a.kv.Close(); err != nil {
		logger.Error("store_close_failed", "error", err)
	}
	return runErr
}

func (a *App) printBanner() {
	banner.Print(a.addr, a.cfg.Storage.DBPath, a.sources, a.version)
}

func validateConfig(cfg *config.Config) error {
	if cfg.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}
	switch cfg.Server.Engine {
	case "", "nethttp", "fasthttp":
	default:
		return fmt.Errorf("unknown server.engine %q (want nethttp or fasthttp)", cfg.Server.Engine)
	}
	if cfg.Sweeper.Enabled && cfg.Sweeper.Cron != "" && !gronx.IsValid(cfg.Sweeper.Cron) {
		return fmt.Errorf("invalid sweeper.cron %q", cfg.Sweeper.Cron)
	}
	return nil
}
