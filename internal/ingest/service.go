package ingest

import (
	"context"

	"github.com/cinebot/cinebot/internal/recommend"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service populates the catalog tables from TMDB. Re-running it is
// safe: all writes are insert-ignore, and the recommendation history is
// never touched.
type Service struct {
	db    *gorm.DB
	tmdb  *TMDBClient
	pages int
	log   zerolog.Logger
}

func NewService(db *gorm.DB, tmdb *TMDBClient, pages int, log zerolog.Logger) *Service {
	if pages <= 0 {
		pages = 25
	}
	return &Service{db: db, tmdb: tmdb, pages: pages, log: log}
}

func (s *Service) Run(ctx context.Context) error {
	if err := s.db.AutoMigrate(
		&recommend.Movie{}, &recommend.Genre{}, &recommend.MovieGenre{}, &recommend.HistoryEntry{},
	); err != nil {
		return err
	}

	if err := s.ingestGenres(ctx); err != nil {
		return err
	}
	return s.ingestMovies(ctx)
}

func (s *Service) ingestGenres(ctx context.Context) error {
	data, err := s.tmdb.Genres(ctx)
	if err != nil {
		return err
	}

	genres := make([]recommend.Genre, 0, len(data))
	for _, g := range data {
		genres = append(genres, recommend.Genre{ID: g.ID, Name: g.Name})
	}
	if len(genres) == 0 {
		s.log.Warn().Msg("tmdb returned no genres")
		return nil
	}

	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&genres)
	if res.Error != nil {
		return res.Error
	}
	s.log.Info().Int("fetched", len(genres)).Int64("inserted", res.RowsAffected).
		Msg("genres ingested")
	return nil
}

func (s *Service) ingestMovies(ctx context.Context) error {
	var totalMovies, totalLinks int64

	for page := 1; page <= s.pages; page++ {
		data, totalPages, err := s.tmdb.DiscoverMovies(ctx, page)
		if err != nil {
			return err
		}
		if len(data) == 0 {
			break
		}

		movies := make([]recommend.Movie, 0, len(data))
		links := make([]recommend.MovieGenre, 0, len(data)*3)
		for _, m := range data {
			movies = append(movies, recommend.Movie{
				ID:          m.ID,
				Title:       m.Title,
				Overview:    m.Overview,
				ReleaseDate: m.ReleaseDate,
				VoteAverage: m.VoteAverage,
			})
			for _, gid := range m.GenreIDs {
				links = append(links, recommend.MovieGenre{MovieID: m.ID, GenreID: gid})
			}
		}

		res := s.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&movies)
		if res.Error != nil {
			return res.Error
		}
		totalMovies += res.RowsAffected

		if len(links) > 0 {
			res = s.db.WithContext(ctx).
				Clauses(clause.OnConflict{DoNothing: true}).
				Create(&links)
			if res.Error != nil {
				return res.Error
			}
			totalLinks += res.RowsAffected
		}

		if page >= totalPages {
			break
		}
	}

	s.log.Info().Int64("movies", totalMovies).Int64("genre_links", totalLinks).
		Msg("catalog ingested")
	return nil
}
