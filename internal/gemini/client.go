package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/memohub/memo-gateway/internal/config"
	"github.com/memohub/memo-gateway/internal/conversation"
)

// Client represents a Gemini generateContent REST client
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient creates a new Gemini client
func NewClient(cfg *config.GeminiConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: cfg.GetTimeout(),
		},
	}
}

// RateLimitError signals a transient backend overload (HTTP 429). The
// caller may retry with backoff; every other failure is final.
type RateLimitError struct {
	Message string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: %s", e.Message)
}

// Source is a grounding citation reported by the backend.
type Source struct {
	URI   string
	Title string
}

// Result is a successful generation outcome. Text may be empty when the
// model produced no usable output; that is not an error.
type Result struct {
	Text    string
	Sources []Source
}

// Request carries one generation call.
type Request struct {
	History           []conversation.Turn
	SystemInstruction string
	SearchGrounding   bool
}

// wire format

type wirePart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *wireInlineData `json:"inline_data,omitempty"`
}

type wireInlineData struct {
	MimeType string `json:"mime_type"`
	Data     []byte `json:"data"` // encoding/json base64-encodes byte slices
}

type wireContent struct {
	Role  string     `json:"role"`
	Parts []wirePart `json:"parts"`
}

type wireRequest struct {
	Contents          []wireContent            `json:"contents"`
	SystemInstruction *wireContent             `json:"system_instruction,omitempty"`
	Tools             []map[string]interface{} `json:"tools,omitempty"`
}

type wireResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		GroundingMetadata *struct {
			GroundingChunks []struct {
				Web *struct {
					URI   string `json:"uri"`
					Title string `json:"title"`
				} `json:"web"`
			} `json:"groundingChunks"`
		} `json:"groundingMetadata"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate sends the accumulated history to the backend and returns the
// model's text plus any web-grounding sources. A response with no
// candidates or missing metadata degrades to an empty result, never an
// error.
func (c *Client) Generate(ctx context.Context, req *Request) (*Result, error) {
	wire := wireRequest{
		Contents: encodeHistory(req.History),
	}
	if req.SystemInstruction != "" {
		wire.SystemInstruction = &wireContent{
			Parts: []wirePart{{Text: req.SystemInstruction}},
		}
	}
	if req.SearchGrounding {
		wire.Tools = []map[string]interface{}{
			{"google_search": map[string]interface{}{}},
		}
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal generate request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", "Memo-Gateway/1.0.0")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("generate request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result wireResponse
	if unmarshalErr := json.Unmarshal(respBody, &result); unmarshalErr != nil && resp.StatusCode == http.StatusOK {
		return nil, fmt.Errorf("failed to decode response: %w", unmarshalErr)
	}

	if resp.StatusCode == http.StatusTooManyRequests || (result.Error != nil && result.Error.Status == "RESOURCE_EXHAUSTED") {
		msg := ""
		if result.Error != nil {
			msg = result.Error.Message
		}
		return nil, &RateLimitError{Message: msg}
	}
	if resp.StatusCode != http.StatusOK {
		if result.Error != nil {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, result.Error.Message)
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}
	if result.Error != nil {
		return nil, fmt.Errorf("API error: %s", result.Error.Message)
	}

	return decodeResult(&result), nil
}

func encodeHistory(history []conversation.Turn) []wireContent {
	contents := make([]wireContent, 0, len(history))
	for _, turn := range history {
		wc := wireContent{Role: turn.Role}
		for _, p := range turn.Parts {
			if p.IsBlob() {
				wc.Parts = append(wc.Parts, wirePart{InlineData: &wireInlineData{
					MimeType: p.Mime,
					Data:     p.Data,
				}})
			} else {
				wc.Parts = append(wc.Parts, wirePart{Text: p.Text})
			}
		}
		contents = append(contents, wc)
	}
	return contents
}

func decodeResult(resp *wireResponse) *Result {
	out := &Result{}
	if len(resp.Candidates) == 0 {
		return out
	}
	cand := resp.Candidates[0]

	var texts []string
	for _, p := range cand.Content.Parts {
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	out.Text = strings.Join(texts, "")

	if cand.GroundingMetadata != nil {
		for _, chunk := range cand.GroundingMetadata.GroundingChunks {
			if chunk.Web != nil && chunk.Web.URI != "" {
				out.Sources = append(out.Sources, Source{URI: chunk.Web.URI, Title: chunk.Web.Title})
			}
		}
	}
	return out
}

// IsRateLimit reports whether err is the transient overload signal.
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}
