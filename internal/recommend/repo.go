package recommend

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// Migrate creates the catalog, history and job tables.
func (r *Repo) Migrate() error {
	return r.db.AutoMigrate(&Movie{}, &Genre{}, &MovieGenre{}, &HistoryEntry{}, &Job{})
}

// GenreIDByName looks up a catalog genre id by canonical name,
// case-insensitively. Returns gorm.ErrRecordNotFound when the genre is
// not in the current catalog snapshot.
func (r *Repo) GenreIDByName(ctx context.Context, name string) (int64, error) {
	var g Genre
	if err := r.db.WithContext(ctx).
		Where("LOWER(name) = ?", strings.ToLower(name)).
		First(&g).Error; err != nil {
		return 0, err
	}
	return g.ID, nil
}

// MoviesByGenreExcluding returns movies carrying genreID that have not
// been shown to chatID, ordered by descending score. Ties break on
// ascending movie id so repeated calls on unchanged data return the
// same order.
func (r *Repo) MoviesByGenreExcluding(ctx context.Context, genreID, chatID int64, limit int) ([]Movie, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	seen := r.db.Model(&HistoryEntry{}).
		Select("movie_id").
		Where("chat_id = ?", chatID)

	var movies []Movie
	if err := r.db.WithContext(ctx).
		Joins("JOIN movie_genres ON movie_genres.movie_id = movies.id").
		Where("movie_genres.genre_id = ?", genreID).
		Where("movies.id NOT IN (?)", seen).
		Order("movies.vote_average DESC, movies.id ASC").
		Limit(limit).
		Find(&movies).Error; err != nil {
		return nil, err
	}
	return movies, nil
}

// ListShown returns the ids of all movies already shown to chatID.
func (r *Repo) ListShown(ctx context.Context, chatID int64) ([]int64, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).
		Model(&HistoryEntry{}).
		Where("chat_id = ?", chatID).
		Pluck("movie_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// InsertShownBatch records movies as shown to chatID, skipping rows that
// already exist. Returns the number of rows actually written, so calling
// it twice with the same batch leaves the history unchanged and reports
// zero the second time.
func (r *Repo) InsertShownBatch(ctx context.Context, chatID int64, movieIDs []int64) (int64, error) {
	entries := make([]HistoryEntry, 0, len(movieIDs))
	for _, id := range movieIDs {
		if id == 0 {
			continue
		}
		entries = append(entries, HistoryEntry{ChatID: chatID, MovieID: id})
	}
	if len(entries) == 0 {
		return 0, nil
	}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entries)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// Job CRUD

func (r *Repo) CreateJob(ctx context.Context, job *Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *Repo) GetJobByID(ctx context.Context, id string) (*Job, error) {
	var j Job
	if err := r.db.WithContext(ctx).First(&j, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *Repo) UpdateJobStatusRunning(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&Job{}).
		Where("id = ? AND status = ?", id, JobQueued).
		Update("status", JobRunning).Error
}

func (r *Repo) MarkJobSucceeded(ctx context.Context, id string, outcome, reply string) error {
	return r.db.WithContext(ctx).Model(&Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":  JobSucceeded,
			"outcome": outcome,
			"reply":   reply,
			"error":   nil,
		}).Error
}

func (r *Repo) MarkJobFailed(ctx context.Context, id string, errMsg string) error {
	return r.db.WithContext(ctx).Model(&Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":  JobFailed,
			"error":   errMsg,
			"outcome": nil,
			"reply":   nil,
		}).Error
}

func (r *Repo) GetJobByChatAndIdempotencyKey(ctx context.Context, chatID int64, key string) (*Job, error) {
	var job Job
	err := r.db.WithContext(ctx).
		Where("chat_id = ? AND idempotency_key = ?", chatID, key).
		First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// CreateJobOrGetExisting tries to create a job, but if the idempotency
// key already exists it returns the existing job instead.
func (r *Repo) CreateJobOrGetExisting(ctx context.Context, job *Job) (*Job, bool, error) {
	if job.IdempotencyKey == nil || *job.IdempotencyKey == "" {
		job.IdempotencyKey = nil
		if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
			return nil, false, err
		}
		return job, true, nil
	}

	err := r.db.WithContext(ctx).Create(job).Error
	if err == nil {
		return job, true, nil
	}

	existing, getErr := r.GetJobByChatAndIdempotencyKey(ctx, job.ChatID, *job.IdempotencyKey)
	if getErr == nil {
		return existing, false, nil
	}

	if errors.Is(getErr, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	return nil, false, getErr
}
