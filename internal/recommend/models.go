package recommend

import "time"

// Movie is catalog reference data, written only by the ingestion job.
// ReleaseDate is kept as text because the upstream catalog emits partial
// dates (year-only entries are common).
type Movie struct {
	ID          int64   `gorm:"primaryKey" json:"id"`
	Title       string  `gorm:"type:varchar(255);not null" json:"title"`
	Overview    string  `gorm:"type:text" json:"overview"`
	ReleaseDate string  `gorm:"type:varchar(10)" json:"release_date"`
	VoteAverage float64 `gorm:"index" json:"vote_average"`
}

func (Movie) TableName() string { return "movies" }

// ReleaseYear returns the leading year of the release date, or "----"
// when the date is missing or shorter than a year.
func (m Movie) ReleaseYear() string {
	if len(m.ReleaseDate) < 4 {
		return "----"
	}
	return m.ReleaseDate[:4]
}

type Genre struct {
	ID   int64  `gorm:"primaryKey" json:"id"`
	Name string `gorm:"type:varchar(64);uniqueIndex;not null" json:"name"`
}

func (Genre) TableName() string { return "genres" }

type MovieGenre struct {
	MovieID int64 `gorm:"primaryKey" json:"movie_id"`
	GenreID int64 `gorm:"primaryKey" json:"genre_id"`
}

func (MovieGenre) TableName() string { return "movie_genres" }

// HistoryEntry marks a movie as already shown to a chat. The composite
// primary key makes re-showing a no-op rather than a duplicate row.
type HistoryEntry struct {
	ChatID    int64     `gorm:"primaryKey;autoIncrement:false" json:"chat_id"`
	MovieID   int64     `gorm:"primaryKey;autoIncrement:false" json:"movie_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (HistoryEntry) TableName() string { return "recommendation_history" }
