package recommend

import "testing"

func TestResolve_AliasTable(t *testing.T) {
	cfg := DefaultResolverConfig()
	r := NewResolver(cfg)

	for _, a := range cfg.Aliases {
		got, ok := r.Resolve(a.Phrase)
		if !ok {
			t.Fatalf("alias %q: expected a match", a.Phrase)
		}
		if got != a.Genre {
			t.Fatalf("alias %q: got %q, want %q", a.Phrase, got, a.Genre)
		}
	}
}

func TestResolve_AliasInsideSentence(t *testing.T) {
	r := NewResolver(DefaultResolverConfig())

	got, ok := r.Resolve("Queria algo de TERROR hoje")
	if !ok || got != "horror" {
		t.Fatalf("got (%q, %v), want (horror, true)", got, ok)
	}
}

func TestResolve_FirstDeclaredAliasWins(t *testing.T) {
	r := NewResolver(DefaultResolverConfig())

	// Both "aventura" and "terror" occur; "aventura" is declared first.
	got, ok := r.Resolve("pode ser aventura ou terror")
	if !ok || got != "adventure" {
		t.Fatalf("got (%q, %v), want (adventure, true)", got, ok)
	}
}

func TestResolve_FuzzyFallback(t *testing.T) {
	r := NewResolver(DefaultResolverConfig())

	cases := map[string]string{
		"horor":   "horror",
		"westerm": "western",
		"comedy":  "comedy",
	}
	for input, want := range cases {
		got, ok := r.Resolve(input)
		if !ok || got != want {
			t.Fatalf("input %q: got (%q, %v), want (%q, true)", input, got, ok, want)
		}
	}
}

func TestResolve_BelowThreshold(t *testing.T) {
	r := NewResolver(DefaultResolverConfig())

	for _, input := range []string{
		"xyz completely unrelated gibberish",
		"qqqqqq",
		"",
	} {
		if got, ok := r.Resolve(input); ok {
			t.Fatalf("input %q: expected no match, got %q", input, got)
		}
	}
}

func TestResolve_CustomConfig(t *testing.T) {
	r := NewResolver(ResolverConfig{
		Aliases:   []Alias{{"space movies", "science fiction"}},
		Canonical: []string{"science fiction"},
		MinScore:  75,
	})

	if got, ok := r.Resolve("gosto de space movies"); !ok || got != "science fiction" {
		t.Fatalf("got (%q, %v), want (science fiction, true)", got, ok)
	}
	if got, ok := r.Resolve("terror"); ok {
		t.Fatalf("expected no match outside custom config, got %q", got)
	}
}
