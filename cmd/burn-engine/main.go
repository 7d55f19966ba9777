// Package main runs the burn engine: a token burn controller with
// reputation scoring, proof export and a REST API over a ledger gateway.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	app "github.com/blackhole-labs/burn-engine/internal/app"
	"github.com/blackhole-labs/burn-engine/internal/app/httpapi"
	"github.com/blackhole-labs/burn-engine/internal/chain"
	"github.com/blackhole-labs/burn-engine/internal/config"
	"github.com/blackhole-labs/burn-engine/pkg/logger"
)

func main() {
	envFile := flag.String("env", ".env", "Path to env file")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		logger.NewDefault("main").WithError(err).Warn("load env file")
	}

	log := logger.NewDefault("main")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}

	registry := config.LoadTokensOrDefault(cfg.TokensPath)
	log.WithField("tokens", len(registry.Tokens)).Info("token registry loaded")

	gateway, err := chain.NewClient(chain.Config{
		RPCURL:       cfg.LedgerRPCURL,
		Timeout:      cfg.LedgerTimeout,
		PollInterval: cfg.PollInterval,
	})
	if err != nil {
		log.WithError(err).Fatal("build ledger gateway")
	}

	application, err := app.New(gateway, app.Stores{}, cfg.SpenderAddress, registry.Tokens, log.WithComponent("app"))
	if err != nil {
		log.WithError(err).Fatal("build application")
	}

	if err := application.Start(context.Background()); err != nil {
		log.WithError(err).Fatal("start application")
	}

	limiter := httpapi.NewRateLimiter(cfg.RateLimit, cfg.RateLimitBurst, log.WithComponent("ratelimit"))
	handler := limiter.Handler(
		httpapi.MetricsMiddleware(
			httpapi.LoggingMiddleware(log.WithComponent("http"))(
				httpapi.NewHandler(application))))

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: handler,
	}

	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Error("application stop")
	}

	log.Info("stopped")
}
