package redisstore

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const genreIDTTL = 12 * time.Hour

// Store caches canonical-genre-name -> catalog genre id lookups. The
// catalog is reference data, so a stale entry can only appear after a
// re-ingestion and expires with the TTL.
type Store struct {
	rdb *redis.Client
}

func New(addr, password string, db int) *Store {
	return &Store{
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) GetGenreID(ctx context.Context, name string) (int64, bool, error) {
	v, err := s.rdb.Get(ctx, genreKey(name)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, err
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (s *Store) SetGenreID(ctx context.Context, name string, id int64) error {
	return s.rdb.Set(ctx, genreKey(name), strconv.FormatInt(id, 10), genreIDTTL).Err()
}

func genreKey(name string) string {
	return "genre_id:" + name
}
