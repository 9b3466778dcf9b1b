package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/cinebot/cinebot/internal/ai"
)

const narrativePrompt = "Seu trabalho é selecionar 3 desses filmes e apresentá-los de forma atraente para o usuário em português.\n" +
	"Para cada filme, inclua o título, o ano de lançamento e crie uma sinopse curta e cativante baseada no 'overview'.\n" +
	"Não adicione saudações ou conversas.\n" +
	"Dados dos filmes:\n%s"

// ApologyReply is sent in place of the narrative when the generator
// errors or times out. The request still completes.
const ApologyReply = "Desculpe, tive um problema para contatar a IA. Tente novamente mais tarde."

var thinkBlockRe = regexp.MustCompile(`(?s)<think>.*?</think>`)

type movieSummary struct {
	Title       string `json:"title"`
	ReleaseYear string `json:"release_year"`
	Overview    string `json:"overview"`
}

// Narrator turns a candidate list into free-form presentation text via
// a chat-completion provider.
type Narrator struct {
	provider ai.Provider
	timeout  time.Duration
}

func NewNarrator(provider ai.Provider, timeout time.Duration) *Narrator {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Narrator{provider: provider, timeout: timeout}
}

// Describe summarizes up to topN movies. The provider call is bounded
// by the narrator's timeout regardless of the caller's context.
func (n *Narrator) Describe(ctx context.Context, movies []Movie, topN int) (string, error) {
	if topN <= 0 {
		topN = 5
	}
	if len(movies) > topN {
		movies = movies[:topN]
	}

	summaries := make([]movieSummary, 0, len(movies))
	for _, m := range movies {
		summaries = append(summaries, movieSummary{
			Title:       m.Title,
			ReleaseYear: m.ReleaseYear(),
			Overview:    m.Overview,
		})
	}
	data, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return "", err
	}

	cctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	reply, err := n.provider.Chat(cctx, []ai.Message{
		{Role: "user", Content: fmt.Sprintf(narrativePrompt, data)},
	})
	if err != nil {
		return "", err
	}
	return stripThinkBlocks(reply), nil
}

// stripThinkBlocks removes reasoning traces some models emit before the
// actual answer.
func stripThinkBlocks(text string) string {
	return strings.TrimSpace(thinkBlockRe.ReplaceAllString(text, ""))
}
