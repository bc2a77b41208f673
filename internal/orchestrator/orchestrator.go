package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/memohub/memo-gateway/internal/conversation"
	"github.com/memohub/memo-gateway/internal/gemini"
	"github.com/memohub/memo-gateway/internal/markdown"
	"github.com/memohub/memo-gateway/internal/metrics"
	"github.com/memohub/memo-gateway/internal/retry"
	"github.com/memohub/memo-gateway/internal/state"
)

const (
	maxAttempts    = 3
	retryBaseDelay = time.Second
	maxSources     = 3

	voiceHint = "Текст удобен для чтения."
)

// Backend is the generative backend contract.
type Backend interface {
	Generate(ctx context.Context, req *gemini.Request) (*gemini.Result, error)
}

// VoicePool schedules voice synthesis off the event path.
type VoicePool interface {
	Submit(ctx context.Context, rawText, langCode string) <-chan []byte
}

// Request describes one conversational turn to process.
type Request struct {
	ScopeKey     string
	Parts        []conversation.Part
	LanguageCode string
	ProjectLabel string
	IsThread     bool
	VoiceEnabled bool
}

// Reply is the outcome of a successful turn. Text is ready to send as
// MarkdownV2. Audio is non-nil when synthesis was scheduled; it closes
// empty if synthesis fails.
type Reply struct {
	Text    string
	RawText string
	Audio   <-chan []byte
}

// Orchestrator drives the request/response cycle against the backend:
// history bookkeeping, dynamic instruction, bounded retry, output
// post-processing and rollback on failure.
type Orchestrator struct {
	store     *state.Store
	backend   Backend
	voice     VoicePool
	logger    *slog.Logger
	persona   string
	baseDelay time.Duration
}

// New creates an orchestrator.
func New(store *state.Store, backend Backend, voice VoicePool, persona string, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		store:     store,
		backend:   backend,
		voice:     voice,
		logger:    logger,
		persona:   persona,
		baseDelay: retryBaseDelay,
	}
}

// HandleTurn runs one full turn at the request's scope key. A nil reply
// with nil error means the backend produced no output and nothing
// should be sent. On failure the just-appended user turn is rolled back
// so it does not pollute future context.
func (o *Orchestrator) HandleTurn(ctx context.Context, req *Request) (*Reply, error) {
	turnID := uuid.NewString()
	log := o.logger.With("turn_id", turnID, "scope_key", req.ScopeKey)

	o.store.Append(req.ScopeKey, conversation.UserTurn(req.Parts...))

	genReq := &gemini.Request{
		History:           o.store.History(req.ScopeKey),
		SystemInstruction: o.buildInstruction(req),
		SearchGrounding:   true,
	}

	var result *gemini.Result
	start := time.Now()
	err := retry.Do(ctx, maxAttempts, o.baseDelay, gemini.IsRateLimit,
		func(attempt int, err error) {
			metrics.BackendRetries.Inc()
			log.Warn("backend rate limited, backing off", "attempt", attempt+1, "error", err)
		},
		func(ctx context.Context) error {
			var genErr error
			result, genErr = o.backend.Generate(ctx, genReq)
			return genErr
		})
	metrics.BackendLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		o.store.TruncateLast(req.ScopeKey)
		metrics.TurnsTotal.WithLabelValues("error").Inc()
		log.Error("backend call failed", "error", err)
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	if result.Text == "" {
		metrics.TurnsTotal.WithLabelValues("empty").Inc()
		log.Info("backend returned no text, skipping reply")
		return nil, nil
	}

	o.store.Append(req.ScopeKey, conversation.ModelTurn(result.Text))
	metrics.TurnsTotal.WithLabelValues("ok").Inc()

	reply := &Reply{
		Text:    o.buildReplyText(req, result),
		RawText: result.Text,
	}
	if req.VoiceEnabled && o.voice != nil {
		reply.Audio = o.voice.Submit(ctx, result.Text, req.LanguageCode)
	}
	return reply, nil
}

// buildInstruction assembles the dynamic system instruction: persona,
// user language, active project context and a read-aloud hint when
// voice replies are on.
func (o *Orchestrator) buildInstruction(req *Request) string {
	lang := req.LanguageCode
	if lang == "" {
		lang = "ru"
	}
	var b strings.Builder
	b.WriteString(o.persona)
	b.WriteString("\nЯзык: ")
	b.WriteString(lang)
	b.WriteString("\nКонтекст: ")
	b.WriteString(req.ProjectLabel)
	if req.VoiceEnabled {
		b.WriteString("\n")
		b.WriteString(voiceHint)
	}
	return b.String()
}

// buildReplyText escapes the model output for MarkdownV2, prepends the
// project header for non-default user scopes and appends numbered
// grounding citations.
func (o *Orchestrator) buildReplyText(req *Request, result *gemini.Result) string {
	var b strings.Builder
	if !req.IsThread && req.ProjectLabel != state.DefaultProject {
		b.WriteString("📂 *[")
		b.WriteString(req.ProjectLabel)
		b.WriteString("]*\n")
	}
	b.WriteString(markdown.EscapeV2(result.Text))
	b.WriteString(formatSources(result.Sources))
	return b.String()
}

// formatSources renders deduplicated grounding citations, capped at
// maxSources, each line escaped for MarkdownV2.
func formatSources(sources []gemini.Source) string {
	if len(sources) == 0 {
		return ""
	}
	seen := make(map[gemini.Source]bool)
	var lines []string
	for _, src := range sources {
		if seen[src] {
			continue
		}
		seen[src] = true
		title := src.Title
		if title == "" {
			title = src.URI
		}
		lines = append(lines, markdown.EscapeV2(fmt.Sprintf("%d. %s — %s", len(lines)+1, title, src.URI)))
		if len(lines) == maxSources {
			break
		}
	}
	return "\n\n📚 Источники:\n" + strings.Join(lines, "\n")
}
