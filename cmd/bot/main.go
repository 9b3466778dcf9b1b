package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/cinebot/cinebot/internal/ai"
	"github.com/cinebot/cinebot/internal/config"
	"github.com/cinebot/cinebot/internal/db"
	"github.com/cinebot/cinebot/internal/recommend"
	"github.com/cinebot/cinebot/internal/store/redisstore"
	"github.com/cinebot/cinebot/internal/telegram"
	"github.com/cinebot/cinebot/internal/transcribe"
	"github.com/rs/zerolog"
)

func botConcurrency() int {
	v := os.Getenv("BOT_CONCURRENCY")
	if v == "" {
		return 4
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 4
	}
	return n
}

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Str("component", "bot").Logger()

	cfg := config.Load()
	if cfg.TelegramToken == "" {
		log.Fatal().Msg("TELEGRAM_TOKEN is required")
	}

	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}

	repo := recommend.NewRepo(gdb)
	if err := repo.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("migrate failed")
	}

	var provider ai.Provider
	switch strings.ToLower(cfg.AIProvider) {
	case "", "ollama":
		provider = ai.NewOllamaProvider(cfg.OllamaBaseURL, cfg.OllamaModel)
	case "openrouter":
		provider = ai.NewOpenRouterProvider(cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey,
			cfg.OpenRouterModel, cfg.OpenRouterSiteURL, cfg.OpenRouterAppName)
	default:
		log.Fatal().Str("provider", cfg.AIProvider).Msg("unsupported AI_PROVIDER")
	}

	var cache recommend.GenreCache
	rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := rds.Ping(context.Background()); err != nil {
		log.Warn().Err(err).Msg("redis unavailable, genre cache disabled")
	} else {
		cache = rds
		defer rds.Close()
	}

	resolver := recommend.NewResolver(recommend.DefaultResolverConfig())
	narrator := recommend.NewNarrator(provider, time.Duration(cfg.NarrativeTimeoutSeconds)*time.Second)
	svc := recommend.NewService(repo, resolver, narrator, recommend.Options{
		Cache:          cache,
		CandidateLimit: cfg.CandidateLimit,
		NarrativeTopN:  cfg.NarrativeTopN,
		Logger:         &log,
	})

	client := telegram.NewClient(cfg.TelegramBaseURL, cfg.TelegramToken)
	transcriber := transcribe.NewClient(cfg.WhisperURL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	poller := telegram.NewPoller(client, svc, transcriber, botConcurrency(), log)
	poller.Run(ctx)
}
