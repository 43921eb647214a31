// Package anthropic translates normalized chat requests into Anthropic
// messages API calls and converts the replies, streamed or whole, back into
// plain text.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/relaykit/anthrelay/pkg/llm"
)

const defaultBaseURL = "https://api.anthropic.com"

// Config holds the client settings. It is read once at construction and
// never reloaded.
type Config struct {
	// APIKey is sent in the x-api-key header. Requests fail before any
	// network call when it is empty.
	APIKey string

	// APIVersion is sent in the anthropic-version header.
	APIVersion string

	// BaseURL overrides the API endpoint, mainly for tests.
	BaseURL string

	// MaxTokens and Temperature are the defaults applied when the caller
	// omits them.
	MaxTokens   int
	Temperature float64

	// RequestTimeout bounds the whole exchange including reading the body;
	// ConnectTimeout bounds dialing only.
	RequestTimeout time.Duration
	ConnectTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.APIVersion == "" {
		c.APIVersion = "2023-06-01"
	}
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 4096
	}
	if c.Temperature == 0 {
		c.Temperature = 1.0
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 60 * time.Second
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 3 * time.Second
	}
	return c
}

// Client is a translator between the caller's chat request shape and the
// Anthropic messages API. A Client is safe for concurrent use; each call
// builds its own payload and response state.
type Client struct {
	config      Config
	logger      *zap.Logger
	httpClient  *http.Client
	probeClient *http.Client
}

// New creates a Client from the given config.
func New(config Config, logger *zap.Logger) *Client {
	config = config.withDefaults()

	dialer := &net.Dialer{Timeout: config.ConnectTimeout}
	return &Client{
		config: config,
		logger: logger,
		httpClient: &http.Client{
			Timeout:   config.RequestTimeout,
			Transport: &http.Transport{DialContext: dialer.DialContext},
		},
		probeClient: &http.Client{Timeout: imageProbeTimeout},
	}
}

// prepare runs the full validation and translation pipeline: credential
// check, model resolution, message normalization, payload construction.
// Any failure here happens before a network call.
func (c *Client) prepare(req llm.ChatRequest, stream bool) (messagesRequest, error) {
	if c.config.APIKey == "" {
		return messagesRequest{}, ErrMissingAPIKey
	}

	modelID, err := ResolveModelID(req.Model)
	if err != nil {
		return messagesRequest{}, fmt.Errorf("invalid model format: %w", err)
	}

	system, messages, err := c.normalizeMessages(req.Messages)
	if err != nil {
		return messagesRequest{}, err
	}

	return c.buildPayload(modelID, messages, system, req, stream), nil
}

func (c *Client) post(ctx context.Context, payload messagesRequest) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("x-api-key", c.config.APIKey)
	httpReq.Header.Set("anthropic-version", c.config.APIVersion)
	httpReq.Header.Set("content-type", "application/json")

	c.logger.Debug("sending messages request",
		zap.String("model", payload.Model),
		zap.Int("message_count", len(payload.Messages)),
		zap.Bool("stream", payload.Stream),
	)

	return c.httpClient.Do(httpReq)
}

// Complete sends a non-streaming request and returns the text of the first
// text block in the reply. A non-2xx status is not an error: it comes back
// as a descriptive string value, since the remote's complaint is the answer
// the caller gets to see.
func (c *Client) Complete(ctx context.Context, req llm.ChatRequest) (string, error) {
	payload, err := c.prepare(req, false)
	if err != nil {
		return "", err
	}

	resp, err := c.post(ctx, payload)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("anthropic API error",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body),
		)
		return httpErrorText(resp.StatusCode, body), nil
	}

	var decoded messagesResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	return decoded.firstText(), nil
}

func httpErrorText(status int, body []byte) string {
	return fmt.Sprintf("Error: HTTP %d: %s", status, body)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
