package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cinebot/cinebot/internal/recommend"
	"github.com/rs/zerolog"
)

const (
	pollTimeoutSec = 50

	welcomeReply = "🎬 Olá! Sou seu recomendador de filmes pessoal.\n\n" +
		"Me diga um gênero de filme que você gosta, por **texto** ou por **mensagem de voz**, " +
		"e eu te darei 3 sugestões incríveis!"
	ackTextReply      = "Entendido! Buscando as melhores recomendações para você... 🧠"
	ackVoiceReply     = "Opa, um áudio! Deixa eu ouvir e transcrever... 🎤"
	voiceFailedReply  = "Desculpe, não consegui entender o que você disse no áudio. Pode tentar de novo?"
	voiceErrorReply   = "Ops, tive um problema técnico ao processar seu áudio. Tente novamente, por favor."
	transcribedFormat = "Acho que você disse: \"_%s_\"\n\nAgora, buscando recomendações com base nisso... 🧠"
)

// Transcriber converts voice audio to text. An empty string means the
// audio could not be understood.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// Poller long-polls the Bot API and dispatches each incoming message to
// a bounded worker pool, so one slow narrative call does not stall the
// rest of the conversation traffic.
type Poller struct {
	client      *Client
	svc         *recommend.Service
	transcriber Transcriber
	concurrency int
	log         zerolog.Logger
}

func NewPoller(client *Client, svc *recommend.Service, transcriber Transcriber, concurrency int, log zerolog.Logger) *Poller {
	if concurrency <= 0 {
		concurrency = 2
	}
	if concurrency > 50 {
		concurrency = 50
	}
	return &Poller{
		client:      client,
		svc:         svc,
		transcriber: transcriber,
		concurrency: concurrency,
		log:         log,
	}
}

// Run blocks until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	msgs := make(chan *Message, p.concurrency*2)

	var wg sync.WaitGroup
	wg.Add(p.concurrency)
	for i := 0; i < p.concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for m := range msgs {
				p.handleMessage(ctx, workerID, m)
			}
		}(i)
	}

	p.log.Info().Int("concurrency", p.concurrency).Msg("telegram poller started")

	var offset int64
	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("telegram poller shutting down")
			close(msgs)
			wg.Wait()
			return
		default:
		}

		updates, err := p.client.GetUpdates(ctx, offset, pollTimeoutSec)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.log.Error().Err(err).Msg("getUpdates failed")
			time.Sleep(2 * time.Second)
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			if u.Message == nil {
				continue
			}
			msgs <- u.Message
		}
	}
}

func (p *Poller) handleMessage(ctx context.Context, workerID int, m *Message) {
	chatID := m.Chat.ID
	start := time.Now()

	switch {
	case m.Voice != nil:
		p.handleVoice(ctx, chatID, m.Voice)
	case strings.HasPrefix(m.Text, "/start"), strings.HasPrefix(m.Text, "/help"):
		p.reply(ctx, chatID, welcomeReply)
	default:
		p.handleText(ctx, chatID, m.Text)
	}

	p.log.Debug().Int("worker", workerID).Int64("chat_id", chatID).
		Dur("cost", time.Since(start)).Msg("message handled")
}

func (p *Poller) handleText(ctx context.Context, chatID int64, text string) {
	p.reply(ctx, chatID, ackTextReply)

	res, err := p.svc.Recommend(ctx, chatID, text)
	if err != nil {
		p.log.Error().Err(err).Int64("chat_id", chatID).Msg("recommendation failed")
		p.reply(ctx, chatID, recommend.TechnicalErrorReply)
		return
	}
	p.reply(ctx, chatID, res.Reply)
}

func (p *Poller) handleVoice(ctx context.Context, chatID int64, voice *Voice) {
	p.reply(ctx, chatID, ackVoiceReply)

	audio, err := p.client.DownloadVoice(ctx, voice.FileID)
	if err != nil {
		p.log.Error().Err(err).Int64("chat_id", chatID).Msg("voice download failed")
		p.reply(ctx, chatID, voiceErrorReply)
		return
	}

	text, err := p.transcriber.Transcribe(ctx, audio, "voice.oga")
	if err != nil {
		p.log.Error().Err(err).Int64("chat_id", chatID).Msg("transcription failed")
		p.reply(ctx, chatID, voiceErrorReply)
		return
	}
	if text == "" {
		p.reply(ctx, chatID, voiceFailedReply)
		return
	}

	if err := p.client.SendMarkdown(ctx, chatID, fmt.Sprintf(transcribedFormat, text)); err != nil {
		p.log.Error().Err(err).Int64("chat_id", chatID).Msg("sendMessage failed")
	}

	res, err := p.svc.Recommend(ctx, chatID, text)
	if err != nil {
		p.log.Error().Err(err).Int64("chat_id", chatID).Msg("recommendation failed")
		p.reply(ctx, chatID, recommend.TechnicalErrorReply)
		return
	}
	p.reply(ctx, chatID, res.Reply)
}

func (p *Poller) reply(ctx context.Context, chatID int64, text string) {
	if err := p.client.SendMessage(ctx, chatID, text); err != nil {
		p.log.Error().Err(err).Int64("chat_id", chatID).Msg("sendMessage failed")
	}
}
