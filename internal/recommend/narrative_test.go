package recommend

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cinebot/cinebot/internal/ai"
)

func TestDescribe_BuildsPromptFromTopN(t *testing.T) {
	prov := &fakeProvider{reply: "apresentação"}
	n := NewNarrator(prov, 5*time.Second)

	movies := []Movie{
		{ID: 1, Title: "First", Overview: "one", ReleaseDate: "1999-07-23"},
		{ID: 2, Title: "Second", Overview: "two", ReleaseDate: "1985"},
		{ID: 3, Title: "Third", Overview: "three", ReleaseDate: ""},
	}

	got, err := n.Describe(context.Background(), movies, 2)
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if got != "apresentação" {
		t.Fatalf("got %q", got)
	}
	if len(prov.last) != 1 || prov.last[0].Role != "user" {
		t.Fatalf("unexpected provider messages: %+v", prov.last)
	}

	prompt := prov.last[0].Content
	if !strings.Contains(prompt, `"First"`) || !strings.Contains(prompt, `"1999"`) {
		t.Fatalf("prompt missing first movie:\n%s", prompt)
	}
	if !strings.Contains(prompt, `"1985"`) {
		t.Fatalf("prompt should carry the year-only release date:\n%s", prompt)
	}
	if strings.Contains(prompt, "Third") {
		t.Fatalf("prompt should be truncated to topN:\n%s", prompt)
	}
}

func TestDescribe_StripsThinkBlocks(t *testing.T) {
	prov := &fakeProvider{reply: "<think>reasoning\nmore</think>\n\nA resposta."}
	n := NewNarrator(prov, 5*time.Second)

	got, err := n.Describe(context.Background(), []Movie{{ID: 1, Title: "X"}}, 5)
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if got != "A resposta." {
		t.Fatalf("got %q", got)
	}
}

func TestDescribe_PropagatesTimeout(t *testing.T) {
	slow := &blockingProvider{}
	n := NewNarrator(slow, 50*time.Millisecond)

	_, err := n.Describe(context.Background(), []Movie{{ID: 1, Title: "X"}}, 5)
	if err == nil {
		t.Fatalf("expected timeout error")
	}
}

type blockingProvider struct{}

func (p *blockingProvider) Chat(ctx context.Context, _ []ai.Message) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}
