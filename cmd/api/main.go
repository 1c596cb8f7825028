package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"genads/internal/adapter/repo"
	"genads/internal/db"
	"genads/internal/generation"
	"genads/internal/http/handlers"
	httpapi "genads/internal/http/httpapi"
	"genads/internal/infra"
	"genads/internal/storage"
)

func main() {
	// Optional .env for local runs.
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	if err := cfg.RequireJWTSecret(); err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg, infra.ProcessAPI)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	runner := infra.NewSQLRunner(dbpool, logger)
	if cfg.AutoMigrate {
		if err := db.EnsureSchema(ctx, runner); err != nil {
			logger.Fatal().Err(err).Msg("failed to apply schema")
		}
	}

	serviceLogger := infra.ComponentLogger(logger, "generation")
	svc := generation.NewService(repo.NewProjectRepository(runner), repo.NewJobRepository(runner), &serviceLogger)
	app := handlers.NewApp(svc, dbpool, logger)

	opts := httpapi.Options{
		JWTSecret:         cfg.JWTSecret,
		JWTIssuer:         cfg.JWTIssuer,
		JWTAudience:       cfg.JWTAudience,
		AllowedOrigins:    cfg.CORSAllowedOrigins,
		RateLimitPerMin:   cfg.RateLimitPerMin,
		TrustProxyHeaders: cfg.TrustProxyHeaders,
		Logger:            logger,
	}
	if cfg.StorageDriver == infra.StorageDriverFilesystem {
		dir, err := storage.LocalPath(cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to resolve storage path")
		}
		opts.StaticDir = dir
	}
	server := infra.NewHTTPServer(cfg, httpapi.NewRouter(app, opts))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().Str("addr", server.Addr()).Msg("API listening")
	if err := server.Serve(ctx); err != nil {
		logger.Error().Err(err).Msg("http server stopped with error")
		return
	}
	logger.Info().Msg("server stopped")
}
