package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cinebot/cinebot/internal/config"
	"github.com/cinebot/cinebot/internal/db"
	"github.com/cinebot/cinebot/internal/httpapi"
	"github.com/cinebot/cinebot/internal/recommend"
	"github.com/cinebot/cinebot/internal/store/rabbitmq"
	"github.com/cinebot/cinebot/internal/store/redisstore"
	"github.com/rs/zerolog"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Str("component", "server").Logger()

	cfg := config.Load()

	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}

	if err := recommend.NewRepo(gdb).Migrate(); err != nil {
		log.Fatal().Err(err).Msg("migrate failed")
	}

	var cache recommend.GenreCache
	rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := rds.Ping(context.Background()); err != nil {
		log.Warn().Err(err).Msg("redis unavailable, genre cache disabled")
	} else {
		cache = rds
		defer rds.Close()
	}

	pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		log.Fatal().Err(err).Msg("rabbit publisher failed")
	}
	defer pub.Close()

	router := httpapi.NewRouter(gdb, cfg, cache, pub, log)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
}
