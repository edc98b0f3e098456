// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package oracle

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/pdiddy/pagescribe/internal/httputil"
	"github.com/pdiddy/pagescribe/pkg/types"
)

// claudeAPIURL is the Claude API endpoint. Package-level var for test substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

// httpRateLimitRetries is the transport-level smoothing budget: quick 429
// retries absorbed inside one Transcribe call before the rate limit is
// surfaced to the pipeline as a RateLimitError.
const httpRateLimitRetries = 1

// ClaudeBackend calls the Claude Messages API with a vision request: the
// page image as a base64 PNG content block plus the fixed transcription
// instruction.
type ClaudeBackend struct {
	APIKey string
	Client *http.Client
}

// NewClaudeBackend builds a backend with a client configured from cfg.
func NewClaudeBackend(apiKey string, cfg types.HTTPConfig) *ClaudeBackend {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &ClaudeBackend{
		APIKey: apiKey,
		Client: &http.Client{Timeout: timeout},
	}
}

// claudeRequest is the request body for the Claude Messages API.
type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []claudeMessage `json:"messages"`
}

// claudeMessage is a single message in the Claude API conversation. For a
// vision request the content is a list of blocks rather than a string.
type claudeMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

// contentBlock is one block of a multimodal message: either text or a
// base64-encoded image source.
type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

// imageSource carries the base64 PNG payload of a page image.
type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// claudeResponse is the response body from the Claude Messages API.
type claudeResponse struct {
	Content []claudeContent `json:"content"`
	Error   *claudeError    `json:"error"`
}

// claudeContent is a content block in the Claude API response.
type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// claudeError is the error object in a non-200 Claude API response.
type claudeError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Transcribe sends the page image and transcription prompt to the named
// model and returns the raw reply text. Rate limits and server failures
// come back as typed errors so the pipeline can classify them; reply
// content is returned as-is, garbled or not.
func (c *ClaudeBackend) Transcribe(ctx context.Context, img types.PageImage, model string) (string, error) {
	prompt, err := renderPrompt(img.Index)
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}

	reqBody := claudeRequest{
		Model:     model,
		MaxTokens: 8192,
		Messages: []claudeMessage{
			{
				Role: "user",
				Content: []contentBlock{
					{Type: "text", Text: prompt},
					{
						Type: "image",
						Source: &imageSource{
							Type:      "base64",
							MediaType: "image/png",
							Data:      base64.StdEncoding.EncodeToString(img.PNG),
						},
					},
				},
			},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, claudeAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, httpRateLimitRetries)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", &TransportError{Err: fmt.Errorf("reading response: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		var wait time.Duration
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			wait = time.Duration(secs) * time.Second
		}
		return "", &RateLimitError{Message: string(respBody), RetryAfter: wait}
	case resp.StatusCode >= 500:
		return "", &TransportError{StatusCode: resp.StatusCode, Message: string(respBody)}
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("Claude API returned %d: %s", resp.StatusCode, string(respBody))
	}

	var cResp claudeResponse
	if err := json.Unmarshal(respBody, &cResp); err != nil {
		return "", fmt.Errorf("decoding Claude response: %w", err)
	}
	if cResp.Error != nil {
		return "", fmt.Errorf("Claude API error: %s: %s", cResp.Error.Type, cResp.Error.Message)
	}

	for _, block := range cResp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}

	// An empty reply is not an error here; the pipeline's shape check
	// will classify it as malformed.
	return "", nil
}
