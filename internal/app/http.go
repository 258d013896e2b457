package app

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/valyala/fasthttp"

	"classlog/pkg/api"
	"classlog/pkg/logger"
	"classlog/pkg/security"
	"classlog/pkg/telemetry"
)

// setupHTTPHandlers sets up all HTTP handlers on the provided mux.
func (a *App) setupHTTPHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/readyz", a.readyzHandler)
	mux.Handle("/", api.Handler(a.svc))
	mux.Handle("/docs/", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))
	mux.Handle("/openapi.yaml", http.FileServer(http.Dir("./docs")))
	mux.Handle("/metrics", promhttp.Handler())
}

// readyzHandler reports store readiness for orchestration probes.
func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if a.kv == nil || !a.kv.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"not ready"}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// startHTTP builds the handler for the configured engine, starts the server
// in a goroutine and returns a channel that will contain any server error.
func (a *App) startHTTP(_ context.Context) <-chan error {
	errCh := make(chan error, 1)

	if a.cfg.Server.Engine == "fasthttp" {
		// the fasthttp engine serves only the API surface; docs and metrics
		// need the nethttp engine
		a.fastSrv = &fasthttp.Server{Handler: api.FastHandler(a.svc)}
		logger.Info("http_engine", "engine", "fasthttp", "addr", a.addr)
		go func() {
			errCh <- a.fastSrv.ListenAndServe(a.addr)
		}()
		return errCh
	}

	mux := http.NewServeMux()
	a.setupHTTPHandlers(mux)

	secCfg := security.SecConfig{
		AllowedOrigins: append([]string{}, a.cfg.Security.CORS.AllowedOrigins...),
		RPS:            a.cfg.Security.RateLimit.RPS,
		Burst:          a.cfg.Security.RateLimit.Burst,
	}

	// wrap mux with security middleware, then telemetry middleware
	wrapped := security.RequestMiddleware(secCfg)(mux)
	wrapped = telemetry.Middleware(wrapped)

	a.srv = &http.Server{Addr: a.addr, Handler: wrapped}
	logger.Info("http_engine", "engine", "nethttp", "addr", a.addr)

	go func() {
		errCh <- a.srv.ListenAndServe()
	}()
	return errCh
}

// stopHTTP shuts the active server down, giving in-flight requests a short
// grace period.
func (a *App) stopHTTP() {
	if a.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.srv.Shutdown(ctx); err != nil {
			logger.Warn("http_shutdown_error", "error", err)
		}
		return
	}
	if a.fastSrv != nil {
		if err := a.fastSrv.Shutdown(); err != nil {
			logger.Warn("http_shutdown_error", "error", err)
		}
	}
}
