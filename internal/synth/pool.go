package synth

import (
	"context"
	"log/slog"
	"sync"

	"github.com/memohub/memo-gateway/internal/markdown"
	"github.com/memohub/memo-gateway/internal/metrics"
)

// Synthesizer converts text to audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, lang string) ([]byte, error)
}

// Pool runs voice synthesis on dedicated workers so it never blocks the
// goroutines handling chat events. Failures are logged and swallowed:
// the text reply has already been delivered by the time a job runs.
type Pool struct {
	synth       Synthesizer
	logger      *slog.Logger
	jobs        chan job
	wg          sync.WaitGroup
	defaultLang string
	maxChars    int
}

type job struct {
	ctx  context.Context
	text string
	lang string
	out  chan []byte
}

// NewPool creates a pool with the given number of workers.
func NewPool(workers int, synth Synthesizer, logger *slog.Logger, defaultLang string, maxChars int) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{
		synth:       synth,
		logger:      logger,
		jobs:        make(chan job, workers*4),
		defaultLang: defaultLang,
		maxChars:    maxChars,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit queues raw model output for synthesis and returns a channel
// delivering the audio bytes. On failure the channel closes without a
// value. The raw text is cleaned of markup and truncated before
// synthesis; langCode is reduced to its two-letter prefix.
func (p *Pool) Submit(ctx context.Context, rawText, langCode string) <-chan []byte {
	out := make(chan []byte, 1)
	text := p.prepare(rawText)
	if text == "" {
		close(out)
		return out
	}
	j := job{ctx: ctx, text: text, lang: p.shortLang(langCode), out: out}
	select {
	case p.jobs <- j:
	default:
		// Queue full: drop rather than stall the event path.
		p.logger.Warn("synthesis queue full, dropping job")
		metrics.SynthesisFailures.Inc()
		close(out)
	}
	return out
}

// Stop drains queued jobs and waits for the workers to exit.
func (p *Pool) Stop() {
	close(p.jobs)
	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for j := range p.jobs {
		audio, err := p.synth.Synthesize(j.ctx, j.text, j.lang)
		if err != nil {
			p.logger.Error("voice synthesis failed", "error", err)
			metrics.SynthesisFailures.Inc()
			close(j.out)
			continue
		}
		j.out <- audio
		close(j.out)
	}
}

func (p *Pool) prepare(raw string) string {
	text := markdown.StripForSpeech(raw)
	runes := []rune(text)
	if p.maxChars > 0 && len(runes) > p.maxChars {
		text = string(runes[:p.maxChars])
	}
	return text
}

func (p *Pool) shortLang(code string) string {
	if code == "" {
		return p.defaultLang
	}
	runes := []rune(code)
	if len(runes) > 2 {
		runes = runes[:2]
	}
	return string(runes)
}
