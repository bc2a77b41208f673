package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
	"unicode/utf8"
)

const (
	defaultBaseURL = "https://translate.google.com/translate_tts"

	// The endpoint rejects long inputs, so text is synthesized in chunks
	// and the MP3 payloads concatenated. MP3 frames are self-contained,
	// so straight concatenation stays playable.
	maxChunkRunes = 200
)

// Client represents a Google Translate text-to-speech client
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new TTS client
func NewClient() *Client {
	return &Client{
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewClientWithBaseURL creates a client against a non-default endpoint.
func NewClientWithBaseURL(baseURL string) *Client {
	c := NewClient()
	c.baseURL = baseURL
	return c
}

// Synthesize converts text to MP3 audio in the given language.
func (c *Client) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	var audio []byte
	for _, chunk := range splitChunks(text, maxChunkRunes) {
		data, err := c.fetchChunk(ctx, chunk, lang)
		if err != nil {
			return nil, err
		}
		audio = append(audio, data...)
	}
	return audio, nil
}

func (c *Client) fetchChunk(ctx context.Context, chunk, lang string) ([]byte, error) {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", lang)
	q.Set("q", chunk)
	q.Set("textlen", fmt.Sprintf("%d", utf8.RuneCountInString(chunk)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("synthesis failed with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	return data, nil
}

// splitChunks breaks text into rune-bounded chunks, preferring to cut at
// whitespace so words are not split mid-syllable.
func splitChunks(text string, limit int) []string {
	runes := []rune(text)
	var chunks []string
	for len(runes) > 0 {
		if len(runes) <= limit {
			chunks = append(chunks, string(runes))
			break
		}
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == ' ' || runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	return chunks
}
