package telegram

import (
	"context"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/memohub/memo-gateway/internal/assembler"
	"github.com/memohub/memo-gateway/internal/menu"
	"github.com/memohub/memo-gateway/internal/orchestrator"
)

const (
	actionTyping      = "typing"
	actionUploadPhoto = "upload_photo"
	actionRecordVoice = "record_voice"

	greeting       = "👋 Привет! Я Мемо."
	failureMessage = "⛔️ Произошла ошибка. Попробуй позже."
	newUsage       = "Укажи имя: `/new работа`"
	resetDone      = "✅ Очищено."
)

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message, topic *topicInfo) {
	isThread := topic != nil && topic.IsTopicMessage
	threadID := 0
	if topic != nil {
		threadID = topic.MessageThreadID
	}

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			b.handleStart(msg)
		case "new":
			b.handleNewProject(msg, isThread)
		case "reset":
			b.handleReset(msg, isThread, threadID)
		}
		return
	}

	if !isThread && msg.Text == menu.MainMenuButton {
		b.deleteMessage(msg.Chat.ID, msg.MessageID)
		b.sendMenuMessage(msg.Chat.ID, b.menu.RootView())
		return
	}

	b.converse(ctx, msg, isThread, threadID)
}

func (b *Bot) handleStart(msg *tgbotapi.Message) {
	b.deleteMessage(msg.Chat.ID, msg.MessageID)
	reply := tgbotapi.NewMessage(msg.Chat.ID, greeting)
	reply.ReplyMarkup = tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(menu.MainMenuButton)),
	)
	b.send(reply)
}

func (b *Bot) handleNewProject(msg *tgbotapi.Message, isThread bool) {
	if isThread {
		return
	}
	name := strings.Fields(msg.CommandArguments())
	if len(name) == 0 {
		usage := tgbotapi.NewMessage(msg.Chat.ID, newUsage)
		usage.ParseMode = tgbotapi.ModeMarkdown
		b.send(usage)
		return
	}

	b.store.SwitchProject(msg.From.ID, name[0])
	b.deleteMessage(msg.Chat.ID, msg.MessageID)

	created := tgbotapi.NewMessage(msg.Chat.ID, "✅ Создан: **"+name[0]+"**")
	created.ParseMode = tgbotapi.ModeMarkdown
	b.send(created)
	b.sendMenuMessage(msg.Chat.ID, b.menu.RootView())
}

func (b *Bot) handleReset(msg *tgbotapi.Message, isThread bool, threadID int) {
	key := b.store.ScopeKey(msg.Chat.ID, msg.From.ID, isThread, threadID)
	b.store.Clear(key)
	reply := tgbotapi.NewMessage(msg.Chat.ID, resetDone)
	reply.ReplyToMessageID = msg.MessageID
	b.send(reply)
}

// converse routes ordinary content through the assembler and the
// orchestrator, then delivers the text reply and, when scheduled, the
// voice reply.
func (b *Bot) converse(ctx context.Context, msg *tgbotapi.Message, isThread bool, threadID int) {
	ev := buildEvent(msg)

	if ev.Photo != nil || ev.Document != nil {
		b.sendChatAction(msg.Chat.ID, actionUploadPhoto)
	}
	if ev.Voice != nil {
		b.sendChatAction(msg.Chat.ID, actionRecordVoice)
	}

	parts := b.asm.Assemble(ctx, ev)
	if len(parts) == 0 {
		return
	}

	b.sendChatAction(msg.Chat.ID, actionTyping)

	userID := msg.From.ID
	projectLabel := b.store.ActiveProject(userID)
	if isThread {
		projectLabel = threadLabel(threadID)
	}
	req := &orchestrator.Request{
		ScopeKey:     b.store.ScopeKey(msg.Chat.ID, userID, isThread, threadID),
		Parts:        parts,
		LanguageCode: msg.From.LanguageCode,
		ProjectLabel: projectLabel,
		IsThread:     isThread,
		VoiceEnabled: b.store.Settings(userID).VoiceEnabled(),
	}

	reply, err := b.orch.HandleTurn(ctx, req)
	if err != nil {
		fail := tgbotapi.NewMessage(msg.Chat.ID, failureMessage)
		fail.ReplyToMessageID = msg.MessageID
		b.send(fail)
		return
	}
	if reply == nil {
		return
	}

	out := tgbotapi.NewMessage(msg.Chat.ID, reply.Text)
	out.ParseMode = tgbotapi.ModeMarkdownV2
	out.ReplyToMessageID = msg.MessageID
	if _, err := b.api.Send(out); err != nil {
		// Markup rejection should not lose the answer; retry unformatted.
		b.logger.Warn("markdown reply rejected, sending plain", "error", err)
		plain := tgbotapi.NewMessage(msg.Chat.ID, reply.RawText)
		plain.ReplyToMessageID = msg.MessageID
		b.send(plain)
	}

	if reply.Audio != nil {
		b.sendChatAction(msg.Chat.ID, actionRecordVoice)
		select {
		case audio, ok := <-reply.Audio:
			if ok && len(audio) > 0 {
				voice := tgbotapi.NewVoice(msg.Chat.ID, tgbotapi.FileBytes{Name: "memo.mp3", Bytes: audio})
				voice.ReplyToMessageID = msg.MessageID
				b.send(voice)
			}
		case <-ctx.Done():
		}
	}
}

func (b *Bot) handleCallback(cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	res := b.menu.HandleCallback(cb.From.ID, cb.Data)

	switch {
	case res.Close:
		b.deleteMessage(cb.Message.Chat.ID, cb.Message.MessageID)
	case res.View != nil:
		markup := toInlineKeyboard(res.View.Keyboard)
		edit := tgbotapi.EditMessageTextConfig{
			BaseEdit: tgbotapi.BaseEdit{
				ChatID:      cb.Message.Chat.ID,
				MessageID:   cb.Message.MessageID,
				ReplyMarkup: &markup,
			},
			Text:      res.View.Text,
			ParseMode: tgbotapi.ModeMarkdown,
		}
		if _, err := b.api.Request(edit); err != nil {
			b.logger.Warn("failed to edit menu", "error", err)
		}
	}

	answer := tgbotapi.NewCallback(cb.ID, res.Alert)
	answer.ShowAlert = res.ShowAlert
	if _, err := b.api.Request(answer); err != nil {
		b.logger.Warn("failed to answer callback", "error", err)
	}
}

func toInlineKeyboard(rows [][]menu.Button) tgbotapi.InlineKeyboardMarkup {
	out := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(btn.Label, btn.Data))
		}
		out = append(out, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(out...)
}

func (b *Bot) sendMenuMessage(chatID int64, v menu.View) {
	out := tgbotapi.NewMessage(chatID, v.Text)
	out.ParseMode = tgbotapi.ModeMarkdown
	out.ReplyMarkup = toInlineKeyboard(v.Keyboard)
	b.send(out)
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.logger.Warn("send failed", "error", err)
	}
}

// deleteMessage is best-effort: the bot may lack deletion rights.
func (b *Bot) deleteMessage(chatID int64, messageID int) {
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		b.logger.Debug("failed to delete message", "error", err)
	}
}

func (b *Bot) sendChatAction(chatID int64, action string) {
	if _, err := b.api.Request(tgbotapi.NewChatAction(chatID, action)); err != nil {
		b.logger.Debug("failed to send chat action", "error", err)
	}
}

// buildEvent reduces a Telegram message to the assembler's input,
// picking the highest-resolution photo variant and only image-typed
// documents.
func buildEvent(msg *tgbotapi.Message) *assembler.Event {
	ev := &assembler.Event{
		Text:    msg.Text,
		Caption: msg.Caption,
	}
	if len(msg.Photo) > 0 {
		ev.Photo = &assembler.FileRef{FileID: msg.Photo[len(msg.Photo)-1].FileID}
	}
	if msg.Document != nil {
		ev.Document = &assembler.FileRef{FileID: msg.Document.FileID, Mime: msg.Document.MimeType}
	}
	if msg.Voice != nil {
		ev.Voice = &assembler.FileRef{FileID: msg.Voice.FileID}
	}
	return ev
}

func threadLabel(threadID int) string {
	return "Тема #" + strconv.Itoa(threadID)
}
