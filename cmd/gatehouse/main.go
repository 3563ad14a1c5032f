package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/archfirm/gatehouse/config"
	transport "github.com/archfirm/gatehouse/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting gatehouse", slog.String("env", cfg.Env))

	if cfg.SecretDerived() {
		log.Warn("SESSION_SECRET is not set: session key is derived from the admin password. " +
			"Rotating the password logs everybody out and a leaked password lets anyone mint sessions. " +
			"Set SESSION_SECRET before deploying.")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(rootCtx, cfg, log, prometheus.DefaultRegisterer)
	rootCancel()

	if err != nil {
		log.Error("service_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	log.Info("service_stopped")
}

// run serves until ctx is done or the listener fails. Every dependency it
// built is closed before it returns.
func run(ctx context.Context, cfg *config.Config, log *slog.Logger, reg prometheus.Registerer) error {
	deps, err := build(ctx, cfg, log, reg)
	if err != nil {
		return fmt.Errorf("init failed: %w", err)
	}
	defer func() {
		if cerr := deps.Close(); cerr != nil {
			log.Warn("dependencies_close_failed", slog.String("err", cerr.Error()))
		}
	}()

	var ready atomic.Bool

	router := transport.SetupRouter(deps.authService, transport.Options{
		Logger:         log,
		SecureCookies:  cfg.IsProduction(),
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Metrics:        promhttp.Handler(),
		Ready:          ready.Load,
	})

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", httpAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", httpAddr, err)
	}

	log.Info("http_listen_start", slog.String("addr", httpAddr))

	serveErrCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	ready.Store(true)

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown_requested")
	case serveErr = <-serveErrCh:
	}

	ready.Store(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http_stopped")
	}

	if serveErr != nil {
		return fmt.Errorf("http serve failed: %w", serveErr)
	}
	return nil
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case config.EnvProduction:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
