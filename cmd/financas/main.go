package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"financas/internal/auth"
	"financas/internal/backend"
	"financas/internal/cache"
	"financas/internal/cli"
	"financas/internal/core"
	apphttp "financas/internal/http"
	applog "financas/internal/log"
	"financas/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), backendConfig)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	listCache := cache.NewLRUCache[[]core.Transaction](cfg.CacheSize, cfg.CacheTTL)
	deps := apphttp.Deps{
		Transactions:       services.NewTransactionService(res.Store, res.Publisher, listCache),
		Plans:              services.NewPlanService(res.Store, cfg.Tier()),
		FixedExpenses:      res.Store,
		ListCache:          listCache,
		Verifier:           auth.NewVerifier(cfg.AuthJWTSecret, cfg.AuthIssuer, cfg.DevOwnerID),
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}
	if p, ok := res.Store.(apphttp.Pinger); ok {
		deps.Pinger = p
	}
	if b, ok := res.Publisher.(apphttp.BusHealth); ok {
		deps.Bus = b
	}
	if deps.Verifier.DevMode() {
		logger.Warn("AUTH_JWT_SECRET not set, every request runs as the dev owner", applog.FieldOwnerID, cfg.DevOwnerID)
	}

	srv := apphttp.NewServer(":"+cfg.Port, deps)

	_, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", applog.FieldError, err)
			}
		}
	})

	logger.Info("Starting financas server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"default_tier", cfg.Tier(),
		"amqp", res.Publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}
