package recommend

import (
	"math"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// Alias maps a localized phrase to a canonical genre name.
type Alias struct {
	Phrase string
	Genre  string
}

// ResolverConfig holds the alias table and the canonical genre set.
// Aliases is an ordered sequence, not a map: when several alias phrases
// occur in the same input, the earliest-declared one wins. Overlapping
// phrases (one a substring of another) are therefore disambiguated by
// declaration order, not by length.
type ResolverConfig struct {
	Aliases   []Alias
	Canonical []string
	// MinScore is the exclusive lower bound (0-100) for accepting a
	// fuzzy match against the canonical set.
	MinScore int
}

// DefaultResolverConfig returns the Brazilian-Portuguese alias table and
// the canonical genre set the catalog is ingested with.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		Aliases: []Alias{
			{"acao", "action"},
			{"ação", "action"},
			{"aventura", "adventure"},
			{"animacao", "animation"},
			{"animação", "animation"},
			{"comedia", "comedy"},
			{"comédia", "comedy"},
			{"crime", "crime"},
			{"documentario", "documentary"},
			{"documentário", "documentary"},
			{"drama", "drama"},
			{"familia", "family"},
			{"família", "family"},
			{"fantasia", "fantasy"},
			{"historia", "history"},
			{"história", "history"},
			{"terror", "horror"},
			{"musical", "music"},
			{"misterio", "mystery"},
			{"mistério", "mystery"},
			{"romance", "romance"},
			{"ficcao", "science fiction"},
			{"ficção", "science fiction"},
			{"ficcao científica", "science fiction"},
			{"sci-fi", "science fiction"},
			{"suspense", "thriller"},
			{"guerra", "war"},
			{"faroeste", "western"},
		},
		Canonical: []string{
			"action", "adventure", "animation", "comedy", "crime",
			"documentary", "drama", "family", "fantasy", "history",
			"horror", "music", "mystery", "romance", "science fiction",
			"tv movie", "thriller", "war", "western",
		},
		MinScore: 75,
	}
}

// Resolver maps free-text input to a canonical genre name. It has no
// side effects and is safe for concurrent use.
type Resolver struct {
	cfg  ResolverConfig
	dice *metrics.SorensenDice
	jaro *metrics.JaroWinkler
}

func NewResolver(cfg ResolverConfig) *Resolver {
	if cfg.MinScore <= 0 || cfg.MinScore > 100 {
		cfg.MinScore = 75
	}
	return &Resolver{
		cfg:  cfg,
		dice: metrics.NewSorensenDice(),
		jaro: metrics.NewJaroWinkler(),
	}
}

// Resolve returns the canonical genre for the input, or ok=false when no
// alias occurs in the text and no canonical name scores above MinScore.
func (r *Resolver) Resolve(text string) (genre string, ok bool) {
	input := strings.ToLower(strings.TrimSpace(text))
	if input == "" {
		return "", false
	}

	for _, a := range r.cfg.Aliases {
		if strings.Contains(input, a.Phrase) {
			return a.Genre, true
		}
	}

	best := ""
	bestScore := 0
	for _, name := range r.cfg.Canonical {
		if s := r.score(input, name); s > bestScore {
			best, bestScore = name, s
		}
	}
	if bestScore > r.cfg.MinScore {
		return best, true
	}
	return "", false
}

// score rates input against a canonical name on a 0-100 scale. The
// bigram metric tolerates word reordering, Jaro-Winkler tolerates
// typos; the better of the two decides.
func (r *Resolver) score(input, name string) int {
	d := strutil.Similarity(input, name, r.dice)
	j := strutil.Similarity(input, name, r.jaro)
	return int(math.Round(math.Max(d, j) * 100))
}
