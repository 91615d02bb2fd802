// wrapped-dev is the local development entrypoint: text logs, a fixed
// local port, no tracing noise, otherwise the same wiring as the
// production binary.
package main

import (
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/tjfontaine/x-wrapped/internal/config"
	"github.com/tjfontaine/x-wrapped/internal/frontdoor/wrappedapi"
	"github.com/tjfontaine/x-wrapped/internal/server"
)

const devPort = 5328

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.Server.Port = devPort

	handler, err := wrappedapi.NewHandler(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create handler: %v", err)
	}

	srv := server.New(cfg.Server.Port, logger)
	handler.Register(srv.Router)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		logger.Info("shutting down dev server")
		os.Exit(0)
	}()

	logger.Info("starting dev server", slog.Int("port", devPort))
	if err := srv.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
