package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/tjfontaine/x-wrapped/internal/config"
	"github.com/tjfontaine/x-wrapped/internal/frontdoor/wrappedapi"
	"github.com/tjfontaine/x-wrapped/internal/server"
	"github.com/tjfontaine/x-wrapped/internal/storage/sqlite"
	"github.com/tjfontaine/x-wrapped/internal/telemetry"
	"github.com/tjfontaine/x-wrapped/internal/tokens"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	shutdown, err := telemetry.InitTracer("x-wrapped", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	archive, err := sqlite.New(cfg.Storage.Path)
	if err != nil {
		log.Fatalf("Failed to open run archive: %v", err)
	}
	defer archive.Close()

	handler, err := wrappedapi.NewHandler(cfg, logger,
		wrappedapi.WithArchive(archive),
		wrappedapi.WithTokenEstimator(tokens.NewEstimator()),
	)
	if err != nil {
		log.Fatalf("Failed to create handler: %v", err)
	}

	srv := server.New(cfg.Server.Port, logger)
	handler.Register(srv.Router)

	if err := srv.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
