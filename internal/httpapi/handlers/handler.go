package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/cinebot/cinebot/internal/ai"
	"github.com/cinebot/cinebot/internal/config"
	"github.com/cinebot/cinebot/internal/recommend"
	"github.com/cinebot/cinebot/internal/store/rabbitmq"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type Handler struct {
	Cfg       config.Config
	Repo      *recommend.Repo
	RecSvc    *recommend.Service
	Publisher *rabbitmq.Publisher
	Log       zerolog.Logger
}

func NewHandler(db *gorm.DB, cfg config.Config, cache recommend.GenreCache, pub *rabbitmq.Publisher, log zerolog.Logger) *Handler {
	var provider ai.Provider
	switch strings.ToLower(cfg.AIProvider) {
	case "", "ollama":
		provider = ai.NewOllamaProvider(cfg.OllamaBaseURL, cfg.OllamaModel)
	case "openrouter":
		provider = ai.NewOpenRouterProvider(cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey,
			cfg.OpenRouterModel, cfg.OpenRouterSiteURL, cfg.OpenRouterAppName)
	default:
		panic(fmt.Sprintf("unsupported AI_PROVIDER=%q", cfg.AIProvider))
	}

	repo := recommend.NewRepo(db)
	resolver := recommend.NewResolver(recommend.DefaultResolverConfig())
	narrator := recommend.NewNarrator(provider, time.Duration(cfg.NarrativeTimeoutSeconds)*time.Second)
	svc := recommend.NewService(repo, resolver, narrator, recommend.Options{
		Cache:          cache,
		CandidateLimit: cfg.CandidateLimit,
		NarrativeTopN:  cfg.NarrativeTopN,
		Logger:         &log,
	})

	return &Handler{
		Cfg:       cfg,
		Repo:      repo,
		RecSvc:    svc,
		Publisher: pub,
		Log:       log,
	}
}
