package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cinebot/cinebot/internal/config"
	"github.com/cinebot/cinebot/internal/db"
	"github.com/cinebot/cinebot/internal/ingest"
	"github.com/rs/zerolog"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Str("component", "ingest").Logger()

	cfg := config.Load()
	if cfg.TMDBAPIKey == "" {
		log.Fatal().Msg("TMDB_API_KEY is required")
	}

	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tmdb := ingest.NewTMDBClient(cfg.TMDBBaseURL, cfg.TMDBAPIKey)
	svc := ingest.NewService(gdb, tmdb, cfg.IngestPages, log)

	if err := svc.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("ingestion failed")
	}
	log.Info().Msg("ingestion complete")
}
