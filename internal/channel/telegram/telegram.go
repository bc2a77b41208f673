package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/memohub/memo-gateway/internal/assembler"
	"github.com/memohub/memo-gateway/internal/menu"
	"github.com/memohub/memo-gateway/internal/orchestrator"
	"github.com/memohub/memo-gateway/internal/state"
)

const pollTimeout = 30 // seconds

// Bot is the Telegram adapter: it owns the long-poll loop and routes
// commands, menu taps and conversational content. Each update is
// handled on its own goroutine.
type Bot struct {
	token  string
	api    *tgbotapi.BotAPI
	store  *state.Store
	orch   *orchestrator.Orchestrator
	menu   *menu.Controller
	asm    *assembler.Assembler
	logger *slog.Logger
	http   *http.Client

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewBot creates the Telegram adapter. The network connection is not
// opened until Start.
func NewBot(token string, store *state.Store, orch *orchestrator.Orchestrator, menuCtl *menu.Controller, logger *slog.Logger) *Bot {
	b := &Bot{
		token:  token,
		store:  store,
		orch:   orch,
		menu:   menuCtl,
		logger: logger,
		http:   &http.Client{Timeout: 60 * time.Second},
	}
	b.asm = assembler.New(b, logger)
	return b
}

func (b *Bot) Name() string {
	return "telegram"
}

// Start authenticates with the Bot API and launches the update loop.
func (b *Bot) Start(ctx context.Context) error {
	api, err := tgbotapi.NewBotAPI(b.token)
	if err != nil {
		return fmt.Errorf("failed to connect to telegram: %w", err)
	}
	b.api = api
	b.logger.Info("authorized on telegram", "username", api.Self.UserName)

	ctx, b.cancel = context.WithCancel(ctx)
	b.wg.Add(1)
	go b.poll(ctx)
	return nil
}

// Stop cancels the update loop and waits for it to exit. In-flight
// handlers finish on their own.
func (b *Bot) Stop() error {
	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()
	return nil
}

// topicInfo carries the forum-topic fields introduced in Bot API 6.3,
// which postdates the library's last release. They are pulled off the
// raw update JSON alongside the library's own parsing.
type topicInfo struct {
	MessageThreadID int  `json:"message_thread_id"`
	IsTopicMessage  bool `json:"is_topic_message"`
}

type updateExt struct {
	Message *topicInfo `json:"message"`
}

// poll runs getUpdates directly so the raw update JSON is available for
// fields the library does not model yet. Pending updates accumulated
// while the bot was down are dropped first.
func (b *Bot) poll(ctx context.Context) {
	defer b.wg.Done()

	offset := b.dropPendingUpdates()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		params := tgbotapi.Params{}
		params.AddNonZero("offset", offset)
		params.AddNonZero("timeout", pollTimeout)
		resp, err := b.api.MakeRequest("getUpdates", params)
		if err != nil {
			b.logger.Error("getUpdates failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(3 * time.Second):
			}
			continue
		}

		var batch []json.RawMessage
		if err := json.Unmarshal(resp.Result, &batch); err != nil {
			b.logger.Error("failed to decode updates", "error", err)
			continue
		}
		for _, raw := range batch {
			var u tgbotapi.Update
			if err := json.Unmarshal(raw, &u); err != nil {
				b.logger.Error("failed to decode update", "error", err)
				continue
			}
			var ext updateExt
			_ = json.Unmarshal(raw, &ext)

			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			b.wg.Add(1)
			go func(u tgbotapi.Update, topic *topicInfo) {
				defer b.wg.Done()
				b.dispatch(ctx, &u, topic)
			}(u, ext.Message)
		}
	}
}

// dropPendingUpdates asks for the newest update only and returns the
// offset just past it.
func (b *Bot) dropPendingUpdates() int {
	params := tgbotapi.Params{}
	params.AddNonZero("offset", -1)
	resp, err := b.api.MakeRequest("getUpdates", params)
	if err != nil {
		return 0
	}
	var updates []tgbotapi.Update
	if err := json.Unmarshal(resp.Result, &updates); err != nil || len(updates) == 0 {
		return 0
	}
	return updates[len(updates)-1].UpdateID + 1
}

func (b *Bot) dispatch(ctx context.Context, u *tgbotapi.Update, topic *topicInfo) {
	switch {
	case u.CallbackQuery != nil:
		b.handleCallback(u.CallbackQuery)
	case u.Message != nil:
		b.handleMessage(ctx, u.Message, topic)
	}
}

// Download fetches attachment bytes through the Bot API file endpoint.
// It implements assembler.Downloader.
func (b *Bot) Download(ctx context.Context, fileID string) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve file: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
