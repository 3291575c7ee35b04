package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ragieai/workos-mcp-gateway/internal/api"
	"github.com/ragieai/workos-mcp-gateway/internal/auth"
	"github.com/ragieai/workos-mcp-gateway/internal/config"
	"github.com/ragieai/workos-mcp-gateway/internal/mapping"
	"github.com/ragieai/workos-mcp-gateway/internal/upstream"
)

func main() {
	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("configuration error", zap.Error(err))
	}

	// A mapping load failure is a configuration error, not a runtime
	// condition: the process must die before the listener binds.
	resolver, err := mapping.Load(cfg.MappingFile, cfg.ResolverPolicy, cfg.APIKeyPolicy, cfg.DefaultAPIKey)
	if err != nil {
		logger.Fatal("org mapping load failed", zap.String("file", cfg.MappingFile), zap.Error(err))
	}

	verifier := auth.NewRemoteVerifier(cfg.AuthServerURL, nil, logger)
	memberships := auth.NewWorkOSMemberships(cfg.WorkOSAPIKey, logger)
	pipeline := auth.NewPipeline(verifier, memberships, logger)

	proxy, err := upstream.New(cfg.UpstreamURL, logger)
	if err != nil {
		logger.Fatal("upstream proxy init failed", zap.Error(err))
	}

	shutdownTracing, tracing := api.SetupOTelFromEnv(logger)
	defer func() { _ = shutdownTracing(context.Background()) }()

	server := api.NewServer(cfg, resolver, pipeline, proxy, logger, api.Options{Tracing: tracing})

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.Handler(),
	}

	go func() {
		logger.Info("gateway listening",
			zap.String("addr", cfg.ListenAddr),
			zap.String("upstream", cfg.UpstreamURL),
			zap.String("auth_server", cfg.AuthServerURL),
			zap.String("resolver_policy", string(cfg.ResolverPolicy)),
			zap.String("api_key_policy", string(cfg.APIKeyPolicy)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info("signal received, shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}

func newLogger() *zap.Logger {
	if os.Getenv("MCPGW_ENV") == "development" {
		l, err := zap.NewDevelopment()
		if err != nil {
			panic(err)
		}
		return l
	}
	l, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	return l
}
