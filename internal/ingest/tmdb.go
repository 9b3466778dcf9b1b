package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// TMDBClient fetches genre and movie reference data from the TMDB v3 API.
type TMDBClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewTMDBClient(baseURL, apiKey string) *TMDBClient {
	if baseURL == "" {
		baseURL = "https://api.themoviedb.org/3"
	}
	return &TMDBClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type GenreData struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type MovieData struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	ReleaseDate string  `json:"release_date"`
	VoteAverage float64 `json:"vote_average"`
	GenreIDs    []int64 `json:"genre_ids"`
}

type genreListResp struct {
	Genres []GenreData `json:"genres"`
}

type discoverResp struct {
	Page       int         `json:"page"`
	TotalPages int         `json:"total_pages"`
	Results    []MovieData `json:"results"`
}

// Genres fetches the English genre list; genre names are ingested in
// English to match the resolver's canonical set.
func (c *TMDBClient) Genres(ctx context.Context) ([]GenreData, error) {
	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("language", "en-US")

	var decoded genreListResp
	if err := c.get(ctx, "/genre/movie/list", q, &decoded); err != nil {
		return nil, err
	}
	return decoded.Genres, nil
}

// DiscoverMovies fetches one page of movies ordered by popularity.
func (c *TMDBClient) DiscoverMovies(ctx context.Context, page int) ([]MovieData, int, error) {
	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("sort_by", "popularity.desc")
	q.Set("include_adult", "false")
	q.Set("page", strconv.Itoa(page))

	var decoded discoverResp
	if err := c.get(ctx, "/discover/movie", q, &decoded); err != nil {
		return nil, 0, err
	}
	return decoded.Results, decoded.TotalPages, nil
}

func (c *TMDBClient) get(ctx context.Context, path string, q url.Values, out any) error {
	u := fmt.Sprintf("%s%s?%s", c.baseURL, path, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tmdb: %s status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("tmdb: decode %s: %w", path, err)
	}
	return nil
}
