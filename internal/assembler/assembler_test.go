package assembler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memohub/memo-gateway/internal/logging"
)

type fakeDownloader struct {
	files map[string][]byte
	err   error
}

func (f *fakeDownloader) Download(_ context.Context, fileID string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.files[fileID], nil
}

func newTestAssembler(d Downloader) *Assembler {
	return New(d, logging.WithComponent("assembler-test"))
}

func TestTextOnly(t *testing.T) {
	a := newTestAssembler(&fakeDownloader{})
	parts := a.Assemble(context.Background(), &Event{Text: "Hello"})
	require.Len(t, parts, 1)
	assert.Equal(t, "Hello", parts[0].Text)
}

func TestPhotoWithoutCaption(t *testing.T) {
	d := &fakeDownloader{files: map[string][]byte{"p1": {1, 2, 3}}}
	a := newTestAssembler(d)

	parts := a.Assemble(context.Background(), &Event{Photo: &FileRef{FileID: "p1"}})
	require.Len(t, parts, 2)
	assert.Equal(t, []byte{1, 2, 3}, parts[0].Data)
	assert.Equal(t, "image/jpeg", parts[0].Mime)
	assert.Equal(t, describeImagePrompt, parts[1].Text)
}

func TestPhotoWithCaption(t *testing.T) {
	d := &fakeDownloader{files: map[string][]byte{"p1": {9}}}
	a := newTestAssembler(d)

	parts := a.Assemble(context.Background(), &Event{Caption: "смотри", Photo: &FileRef{FileID: "p1"}})
	require.Len(t, parts, 2)
	assert.Equal(t, "смотри", parts[0].Text)
	assert.True(t, parts[1].IsBlob())
}

func TestImageDocumentKeepsMime(t *testing.T) {
	d := &fakeDownloader{files: map[string][]byte{"d1": {7}}}
	a := newTestAssembler(d)

	parts := a.Assemble(context.Background(), &Event{Document: &FileRef{FileID: "d1", Mime: "image/png"}})
	require.Len(t, parts, 2)
	assert.Equal(t, "image/png", parts[0].Mime)
}

func TestNonImageDocumentIgnored(t *testing.T) {
	a := newTestAssembler(&fakeDownloader{})
	parts := a.Assemble(context.Background(), &Event{Document: &FileRef{FileID: "d1", Mime: "application/pdf"}})
	assert.Empty(t, parts)
}

func TestVoiceWithoutText(t *testing.T) {
	d := &fakeDownloader{files: map[string][]byte{"v1": {5, 5}}}
	a := newTestAssembler(d)

	parts := a.Assemble(context.Background(), &Event{Voice: &FileRef{FileID: "v1"}})
	require.Len(t, parts, 2)
	assert.Equal(t, "audio/ogg", parts[0].Mime)
	assert.Equal(t, answerAudioPrompt, parts[1].Text)
}

func TestVoiceWithText(t *testing.T) {
	d := &fakeDownloader{files: map[string][]byte{"v1": {5}}}
	a := newTestAssembler(d)

	parts := a.Assemble(context.Background(), &Event{Text: "переведи", Voice: &FileRef{FileID: "v1"}})
	require.Len(t, parts, 2)
	assert.Equal(t, "переведи", parts[0].Text)
	assert.Equal(t, "audio/ogg", parts[1].Mime)
}

func TestEmptyEventProducesNothing(t *testing.T) {
	a := newTestAssembler(&fakeDownloader{})
	assert.Empty(t, a.Assemble(context.Background(), &Event{}))
}

func TestDownloadFailureSkipsPart(t *testing.T) {
	d := &fakeDownloader{err: errors.New("network")}
	a := newTestAssembler(d)

	parts := a.Assemble(context.Background(), &Event{Caption: "фото", Photo: &FileRef{FileID: "p1"}})
	require.Len(t, parts, 1)
	assert.Equal(t, "фото", parts[0].Text)
}
