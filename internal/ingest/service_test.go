package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cinebot/cinebot/internal/recommend"
	gormsqlite "github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

func fakeTMDB(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") != "k" {
			t.Fatalf("missing api key on %s", r.URL.Path)
		}
		switch r.URL.Path {
		case "/genre/movie/list":
			_, _ = w.Write([]byte(`{"genres":[{"id":27,"name":"Horror"},{"id":35,"name":"Comedy"}]}`))
		case "/discover/movie":
			switch r.URL.Query().Get("page") {
			case "1":
				_, _ = w.Write([]byte(`{"page":1,"total_pages":2,"results":[
					{"id":1,"title":"One","overview":"o1","release_date":"2001-01-01","vote_average":7.5,"genre_ids":[27]},
					{"id":2,"title":"Two","overview":"o2","release_date":"1985","vote_average":8.2,"genre_ids":[27,35]}
				]}`))
			case "2":
				_, _ = w.Write([]byte(`{"page":2,"total_pages":2,"results":[
					{"id":3,"title":"Three","overview":"o3","release_date":"","vote_average":6.0,"genre_ids":[]}
				]}`))
			default:
				t.Fatalf("unexpected page: %s", r.URL.Query().Get("page"))
			}
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	}))
}

func openIngestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestRun_IngestsCatalog(t *testing.T) {
	srv := fakeTMDB(t)
	defer srv.Close()

	db := openIngestDB(t)
	svc := NewService(db, NewTMDBClient(srv.URL, "k"), 10, zerolog.Nop())

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	var genres, movies, links int64
	if err := db.Model(&recommend.Genre{}).Count(&genres).Error; err != nil {
		t.Fatalf("count genres: %v", err)
	}
	if err := db.Model(&recommend.Movie{}).Count(&movies).Error; err != nil {
		t.Fatalf("count movies: %v", err)
	}
	if err := db.Model(&recommend.MovieGenre{}).Count(&links).Error; err != nil {
		t.Fatalf("count links: %v", err)
	}
	if genres != 2 || movies != 3 || links != 3 {
		t.Fatalf("got genres=%d movies=%d links=%d, want 2/3/3", genres, movies, links)
	}

	var m recommend.Movie
	if err := db.First(&m, "id = ?", 2).Error; err != nil {
		t.Fatalf("load movie: %v", err)
	}
	if m.Title != "Two" || m.ReleaseDate != "1985" || m.VoteAverage != 8.2 {
		t.Fatalf("unexpected movie: %+v", m)
	}
}

func TestRun_Rerunnable(t *testing.T) {
	srv := fakeTMDB(t)
	defer srv.Close()

	db := openIngestDB(t)
	svc := NewService(db, NewTMDBClient(srv.URL, "k"), 10, zerolog.Nop())

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}

	// History must survive a re-ingestion.
	if err := db.Create(&recommend.HistoryEntry{ChatID: 100, MovieID: 1}).Error; err != nil {
		t.Fatalf("seed history: %v", err)
	}

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}

	var movies, history int64
	if err := db.Model(&recommend.Movie{}).Count(&movies).Error; err != nil {
		t.Fatalf("count movies: %v", err)
	}
	if err := db.Model(&recommend.HistoryEntry{}).Count(&history).Error; err != nil {
		t.Fatalf("count history: %v", err)
	}
	if movies != 3 {
		t.Fatalf("got %d movies after rerun, want 3", movies)
	}
	if history != 1 {
		t.Fatalf("got %d history rows after rerun, want 1", history)
	}
}
