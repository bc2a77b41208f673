package synth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memohub/memo-gateway/internal/logging"
)

type fakeSynth struct {
	mu    sync.Mutex
	calls []struct{ text, lang string }
	err   error
}

func (f *fakeSynth) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, struct{ text, lang string }{text, lang})
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return []byte("audio:" + text), nil
}

func newTestPool(s Synthesizer) *Pool {
	return NewPool(1, s, logging.WithComponent("synth-test"), "ru", 800)
}

func await(t *testing.T, out <-chan []byte) ([]byte, bool) {
	t.Helper()
	select {
	case audio, ok := <-out:
		return audio, ok
	case <-time.After(2 * time.Second):
		t.Fatal("synthesis result never arrived")
		return nil, false
	}
}

func TestSubmitDeliversAudio(t *testing.T) {
	fs := &fakeSynth{}
	pool := newTestPool(fs)
	defer pool.Stop()

	audio, ok := await(t, pool.Submit(context.Background(), "hello", "en-US"))
	require.True(t, ok)
	assert.Equal(t, []byte("audio:hello"), audio)

	fs.mu.Lock()
	defer fs.mu.Unlock()
	require.Len(t, fs.calls, 1)
	assert.Equal(t, "en", fs.calls[0].lang)
}

func TestSubmitStripsMarkupAndTruncates(t *testing.T) {
	fs := &fakeSynth{}
	pool := newTestPool(fs)
	defer pool.Stop()

	long := "*bold* " + strings.Repeat("а", 900)
	_, ok := await(t, pool.Submit(context.Background(), long, ""))
	require.True(t, ok)

	fs.mu.Lock()
	defer fs.mu.Unlock()
	require.Len(t, fs.calls, 1)
	assert.NotContains(t, fs.calls[0].text, "*")
	assert.Len(t, []rune(fs.calls[0].text), 800)
	assert.Equal(t, "ru", fs.calls[0].lang)
}

func TestSubmitFailureClosesEmpty(t *testing.T) {
	fs := &fakeSynth{err: errors.New("engine down")}
	pool := newTestPool(fs)
	defer pool.Stop()

	audio, ok := await(t, pool.Submit(context.Background(), "text", "ru"))
	assert.False(t, ok)
	assert.Nil(t, audio)
}

func TestSubmitEmptyAfterCleanup(t *testing.T) {
	fs := &fakeSynth{}
	pool := newTestPool(fs)
	defer pool.Stop()

	audio, ok := await(t, pool.Submit(context.Background(), "*#`_", "ru"))
	assert.False(t, ok)
	assert.Nil(t, audio)

	fs.mu.Lock()
	defer fs.mu.Unlock()
	assert.Empty(t, fs.calls)
}
