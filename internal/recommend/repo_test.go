package recommend

import (
	"context"
	"errors"
	"fmt"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Movie{}, &Genre{}, &MovieGenre{}, &HistoryEntry{}, &Job{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedCatalog(t *testing.T, db *gorm.DB) {
	t.Helper()

	genres := []Genre{
		{ID: 27, Name: "Horror"},
		{ID: 35, Name: "Comedy"},
	}
	if err := db.Create(&genres).Error; err != nil {
		t.Fatalf("seed genres: %v", err)
	}

	movies := []Movie{
		{ID: 1, Title: "The Haunting", Overview: "a house", ReleaseDate: "1999-07-23", VoteAverage: 6.1},
		{ID: 2, Title: "Night Terrors", Overview: "a night", ReleaseDate: "2011-01-01", VoteAverage: 8.4},
		{ID: 3, Title: "Old Shadows", Overview: "old", ReleaseDate: "1985", VoteAverage: 7.2},
		{ID: 4, Title: "Laugh Track", Overview: "jokes", ReleaseDate: "2020-05-05", VoteAverage: 9.0},
	}
	if err := db.Create(&movies).Error; err != nil {
		t.Fatalf("seed movies: %v", err)
	}

	links := []MovieGenre{
		{MovieID: 1, GenreID: 27},
		{MovieID: 2, GenreID: 27},
		{MovieID: 3, GenreID: 27},
		{MovieID: 4, GenreID: 35},
	}
	if err := db.Create(&links).Error; err != nil {
		t.Fatalf("seed links: %v", err)
	}
}

func TestGenreIDByName(t *testing.T) {
	db := openTestDB(t)
	seedCatalog(t, db)
	repo := NewRepo(db)
	ctx := context.Background()

	id, err := repo.GenreIDByName(ctx, "horror")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if id != 27 {
		t.Fatalf("got id %d, want 27", id)
	}

	// Case-insensitive on both sides.
	if id, err = repo.GenreIDByName(ctx, "HORROR"); err != nil || id != 27 {
		t.Fatalf("uppercase lookup: id=%d err=%v", id, err)
	}

	_, err = repo.GenreIDByName(ctx, "western")
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestMoviesByGenreExcluding_OrderAndExclusion(t *testing.T) {
	db := openTestDB(t)
	seedCatalog(t, db)
	repo := NewRepo(db)
	ctx := context.Background()

	movies, err := repo.MoviesByGenreExcluding(ctx, 27, 100, 20)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(movies) != 3 {
		t.Fatalf("got %d movies, want 3", len(movies))
	}
	// Descending score: 8.4, 7.2, 6.1
	wantOrder := []int64{2, 3, 1}
	for i, m := range movies {
		if m.ID != wantOrder[i] {
			t.Fatalf("position %d: got movie %d, want %d", i, m.ID, wantOrder[i])
		}
	}

	// Exclude the top movie for this chat only.
	if _, err := repo.InsertShownBatch(ctx, 100, []int64{2}); err != nil {
		t.Fatalf("insert history: %v", err)
	}

	movies, err = repo.MoviesByGenreExcluding(ctx, 27, 100, 20)
	if err != nil {
		t.Fatalf("select after history: %v", err)
	}
	if len(movies) != 2 || movies[0].ID != 3 || movies[1].ID != 1 {
		t.Fatalf("unexpected result after exclusion: %+v", movies)
	}

	// A different chat still sees everything.
	movies, err = repo.MoviesByGenreExcluding(ctx, 27, 200, 20)
	if err != nil {
		t.Fatalf("select other chat: %v", err)
	}
	if len(movies) != 3 {
		t.Fatalf("other chat got %d movies, want 3", len(movies))
	}
}

func TestMoviesByGenreExcluding_Limit(t *testing.T) {
	db := openTestDB(t)
	seedCatalog(t, db)
	repo := NewRepo(db)

	movies, err := repo.MoviesByGenreExcluding(context.Background(), 27, 100, 2)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(movies) != 2 {
		t.Fatalf("got %d movies, want 2", len(movies))
	}
	if movies[0].ID != 2 {
		t.Fatalf("got top movie %d, want 2", movies[0].ID)
	}
}

func TestInsertShownBatch_Idempotent(t *testing.T) {
	db := openTestDB(t)
	seedCatalog(t, db)
	repo := NewRepo(db)
	ctx := context.Background()

	n, err := repo.InsertShownBatch(ctx, 100, []int64{1, 2})
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if n != 2 {
		t.Fatalf("first insert wrote %d rows, want 2", n)
	}

	n, err = repo.InsertShownBatch(ctx, 100, []int64{1, 2})
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if n != 0 {
		t.Fatalf("second insert wrote %d rows, want 0", n)
	}

	// Overlapping batch writes only the new row.
	n, err = repo.InsertShownBatch(ctx, 100, []int64{2, 3})
	if err != nil {
		t.Fatalf("overlap insert: %v", err)
	}
	if n != 1 {
		t.Fatalf("overlap insert wrote %d rows, want 1", n)
	}

	var count int64
	if err := db.Model(&HistoryEntry{}).Where("chat_id = ?", 100).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Fatalf("history has %d rows, want 3", count)
	}
}

func TestInsertShownBatch_SkipsMissingIDs(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)

	n, err := repo.InsertShownBatch(context.Background(), 100, []int64{0, 0})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if n != 0 {
		t.Fatalf("wrote %d rows, want 0", n)
	}
}

func TestListShown(t *testing.T) {
	db := openTestDB(t)
	seedCatalog(t, db)
	repo := NewRepo(db)
	ctx := context.Background()

	if _, err := repo.InsertShownBatch(ctx, 100, []int64{1, 3}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	ids, err := repo.ListShown(ctx, 100)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("got %d ids, want 2", len(ids))
	}
}

func TestCreateJobOrGetExisting(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	key := "req-1"
	id1, err := NewJobID()
	if err != nil {
		t.Fatalf("job id: %v", err)
	}
	job := &Job{ID: id1, ChatID: 100, Query: "terror", Status: JobQueued, IdempotencyKey: &key}

	created1, isNew, err := repo.CreateJobOrGetExisting(ctx, job)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !isNew {
		t.Fatalf("expected first create to be new")
	}

	id2, err := NewJobID()
	if err != nil {
		t.Fatalf("job id: %v", err)
	}
	dup := &Job{ID: id2, ChatID: 100, Query: "terror", Status: JobQueued, IdempotencyKey: &key}

	existing, isNew, err := repo.CreateJobOrGetExisting(ctx, dup)
	if err != nil {
		t.Fatalf("duplicate create: %v", err)
	}
	if isNew {
		t.Fatalf("expected duplicate create to return existing job")
	}
	if existing.ID != created1.ID {
		t.Fatalf("got job %s, want %s", existing.ID, created1.ID)
	}
}
