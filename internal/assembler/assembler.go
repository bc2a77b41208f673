package assembler

import (
	"context"
	"log/slog"
	"strings"

	"github.com/memohub/memo-gateway/internal/conversation"
)

// Synthetic instructions appended when an attachment arrives with no
// accompanying text.
const (
	describeImagePrompt = "Что на этом изображении? Опиши подробно."
	answerAudioPrompt   = "Прослушай аудио и ответь."
)

// Downloader fetches attachment bytes from the messaging transport.
type Downloader interface {
	Download(ctx context.Context, fileID string) ([]byte, error)
}

// FileRef points at a downloadable attachment.
type FileRef struct {
	FileID string
	Mime   string
}

// Event is one inbound chat event, already reduced to the fields the
// assembler cares about. Photo carries the highest-resolution variant;
// Document is only set for image-typed documents.
type Event struct {
	Text     string
	Caption  string
	Photo    *FileRef
	Document *FileRef
	Voice    *FileRef
}

// Assembler converts inbound chat events into ordered request parts.
type Assembler struct {
	downloader Downloader
	logger     *slog.Logger
}

// New creates an assembler using the given transport downloader.
func New(downloader Downloader, logger *slog.Logger) *Assembler {
	return &Assembler{downloader: downloader, logger: logger}
}

// Assemble builds the ordered part sequence for one event: text first,
// then image, then voice, with synthetic instructions when an
// attachment has no text. A nil result means the event carried nothing
// actionable and the caller must not act on it. A failed attachment
// download skips that part rather than failing the whole event.
func (a *Assembler) Assemble(ctx context.Context, ev *Event) []conversation.Part {
	var parts []conversation.Part

	text := ev.Text
	if text == "" {
		text = ev.Caption
	}
	if text != "" {
		parts = append(parts, conversation.TextPart(text))
	}

	image := ev.Photo
	if image == nil && ev.Document != nil && strings.HasPrefix(ev.Document.Mime, "image") {
		image = ev.Document
	}
	if image != nil {
		mime := image.Mime
		if mime == "" {
			mime = "image/jpeg"
		}
		data, err := a.downloader.Download(ctx, image.FileID)
		if err != nil {
			a.logger.Error("failed to download image", "error", err)
		} else {
			parts = append(parts, conversation.BlobPart(data, mime))
		}
		if text == "" {
			parts = append(parts, conversation.TextPart(describeImagePrompt))
		}
	}

	if ev.Voice != nil {
		data, err := a.downloader.Download(ctx, ev.Voice.FileID)
		if err != nil {
			a.logger.Error("failed to download voice", "error", err)
		} else {
			parts = append(parts, conversation.BlobPart(data, "audio/ogg"))
		}
		if text == "" && image == nil {
			parts = append(parts, conversation.TextPart(answerAudioPrompt))
		}
	}

	return parts
}
