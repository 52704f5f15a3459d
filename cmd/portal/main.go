package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"attendance-portal/internal/apiclient"
	"attendance-portal/internal/apperror"
	"attendance-portal/internal/auth"
	"attendance-portal/internal/config"
	"attendance-portal/internal/network"
	"attendance-portal/internal/session"
	"attendance-portal/internal/store"
	"attendance-portal/internal/web"
)

func main() {
	cfg := config.Load()

	logger := newLogger(cfg)
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	apperror.Init()
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("portal failed", zap.Error(err))
	}
}

func newLogger(cfg config.App) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Production() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func run(cfg config.App, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Production() && cfg.SessionSecret == config.Defaults().SessionSecret {
		return errors.New("SESSION_SECRET must be set in production")
	}

	backend, err := store.Open(ctx, cfg.SessionBackend, cfg.DatabaseURL, cfg.RedisAddr, logger)
	if err != nil {
		return err
	}
	defer backend.Close()
	go backend.Janitor(ctx, time.Minute, logger.Named("sessions"))

	api := apiclient.New(cfg.BackendURL, cfg.BackendTimeout, logger)
	monitor := network.NewMonitor(api, cfg.NetworkPollInterval, cfg.NetworkIdleTTL, logger)
	monitor.Start(ctx)
	defer monitor.Stop()

	h := web.New(web.Deps{
		Config:   cfg,
		API:      api,
		Auth:     auth.NewManager(api, cfg.AuthVerifyInterval, logger),
		Network:  monitor,
		Sessions: session.NewManager(backend.Sessions, cfg.SessionTTL, logger),
		Health:   backend.Healthy,
		Logger:   logger,
	})
	router, err := web.NewRouter(h, session.CookieStore(cfg.SessionSecret, cfg.SessionTTL, cfg.SecureCookies))
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.BackendTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("portal listening",
			zap.String("addr", srv.Addr),
			zap.String("backend", cfg.BackendURL),
			zap.String("sessions", backend.Kind),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("forced shutdown", zap.Error(err))
	}
	return nil
}
