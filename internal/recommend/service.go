package recommend

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Store is the capability set the orchestrator needs from the catalog
// and history stores. *Repo implements it; tests may substitute an
// in-memory fake.
type Store interface {
	GenreIDByName(ctx context.Context, name string) (int64, error)
	MoviesByGenreExcluding(ctx context.Context, genreID, chatID int64, limit int) ([]Movie, error)
	InsertShownBatch(ctx context.Context, chatID int64, movieIDs []int64) (int64, error)
}

// GenreCache is an optional read-through cache for genre-name lookups.
type GenreCache interface {
	GetGenreID(ctx context.Context, name string) (int64, bool, error)
	SetGenreID(ctx context.Context, name string, id int64) error
}

type Outcome string

const (
	// OutcomeRecommended: candidates were selected, narrated and logged.
	OutcomeRecommended Outcome = "recommended"
	// OutcomeNoGenre: no genre could be identified in the input.
	OutcomeNoGenre Outcome = "no_genre"
	// OutcomeGenreNotInCatalog: the genre was understood but is absent
	// from the current catalog snapshot.
	OutcomeGenreNotInCatalog Outcome = "genre_not_in_catalog"
	// OutcomeExhausted: the chat has already seen every movie the
	// catalog holds for the genre.
	OutcomeExhausted Outcome = "exhausted"
	// OutcomeNarrativeFailed: candidates were selected and logged, but
	// the narrative generator errored; the reply is a fixed apology.
	OutcomeNarrativeFailed Outcome = "narrative_failed"
)

// Result is the terminal state of one recommendation request. Reply is
// always a complete user-facing message.
type Result struct {
	Outcome Outcome
	Genre   string
	Movies  []Movie
	Reply   string
	Logged  int64
}

// TechnicalErrorReply is what transports send when the flow aborts on a
// store failure.
const TechnicalErrorReply = "Ops, tive um problema técnico. Tente novamente, por favor."

type Options struct {
	Cache          GenreCache
	CandidateLimit int
	NarrativeTopN  int
	Logger         *zerolog.Logger
}

// Service orchestrates one recommendation request: resolve the genre,
// select unseen candidates, narrate, log what was shown. Requests are
// independent; concurrent calls for the same chat may overlap, which at
// worst repeats a few titles across the race window because history
// writes are idempotent.
type Service struct {
	store    Store
	resolver *Resolver
	narrator *Narrator
	cache    GenreCache
	limit    int
	topN     int
	log      zerolog.Logger
}

func NewService(store Store, resolver *Resolver, narrator *Narrator, opts Options) *Service {
	if opts.CandidateLimit <= 0 || opts.CandidateLimit > 100 {
		opts.CandidateLimit = 20
	}
	if opts.NarrativeTopN <= 0 || opts.NarrativeTopN > opts.CandidateLimit {
		opts.NarrativeTopN = 5
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Service{
		store:    store,
		resolver: resolver,
		narrator: narrator,
		cache:    opts.Cache,
		limit:    opts.CandidateLimit,
		topN:     opts.NarrativeTopN,
		log:      logger,
	}
}

// Recommend runs the full flow for one chat message. It returns an
// error only on read-path store failures; every expected outcome
// (no genre, catalog miss, exhausted, narrative failure) is a Result.
func (s *Service) Recommend(ctx context.Context, chatID int64, text string) (*Result, error) {
	if text == "" {
		return &Result{
			Outcome: OutcomeNoGenre,
			Reply:   "Nenhuma entrada detectada. Por favor, me diga um gênero de filme.",
		}, nil
	}

	genre, ok := s.resolver.Resolve(text)
	if !ok {
		return &Result{
			Outcome: OutcomeNoGenre,
			Reply:   fmt.Sprintf("Desculpe, não consegui identificar um gênero válido em '%s'.", text),
		}, nil
	}

	genreID, err := s.genreID(ctx, genre)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &Result{
				Outcome: OutcomeGenreNotInCatalog,
				Genre:   genre,
				Reply:   fmt.Sprintf("Não encontrei o gênero '%s' no banco de dados de filmes.", genre),
			}, nil
		}
		return nil, err
	}

	movies, err := s.store.MoviesByGenreExcluding(ctx, genreID, chatID, s.limit)
	if err != nil {
		return nil, err
	}
	if len(movies) == 0 {
		return &Result{
			Outcome: OutcomeExhausted,
			Genre:   genre,
			Reply:   fmt.Sprintf("Uau! Parece que você já viu todas as minhas recomendações para '%s'. 🚀\n\nQue tal tentar outro gênero?", genre),
		}, nil
	}

	res := &Result{Outcome: OutcomeRecommended, Genre: genre, Movies: movies}

	reply, err := s.narrator.Describe(ctx, movies, s.topN)
	if err != nil {
		s.log.Warn().Err(err).Int64("chat_id", chatID).Str("genre", genre).
			Msg("narrative generation failed")
		res.Outcome = OutcomeNarrativeFailed
		res.Reply = ApologyReply
	} else {
		res.Reply = reply
	}

	// The selected movies were offered either way, so they must not be
	// re-offered later. A history-write failure does not change the
	// reply already computed.
	shown := movies
	if len(shown) > s.topN {
		shown = shown[:s.topN]
	}
	ids := make([]int64, 0, len(shown))
	for _, m := range shown {
		ids = append(ids, m.ID)
	}
	logged, err := s.store.InsertShownBatch(ctx, chatID, ids)
	if err != nil {
		s.log.Error().Err(err).Int64("chat_id", chatID).
			Msg("failed to log recommendation history")
	}
	res.Logged = logged

	return res, nil
}

func (s *Service) genreID(ctx context.Context, name string) (int64, error) {
	if s.cache != nil {
		if id, hit, err := s.cache.GetGenreID(ctx, name); err == nil && hit {
			return id, nil
		} else if err != nil {
			s.log.Warn().Err(err).Str("genre", name).Msg("genre cache read failed")
		}
	}

	id, err := s.store.GenreIDByName(ctx, name)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		if err := s.cache.SetGenreID(ctx, name, id); err != nil {
			s.log.Warn().Err(err).Str("genre", name).Msg("genre cache write failed")
		}
	}
	return id, nil
}
