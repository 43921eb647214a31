// Package proxy exposes the Anthropic relay over HTTP.
package proxy

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/relaykit/anthrelay/pkg/anthropic"
	"github.com/relaykit/anthrelay/pkg/history"
	"github.com/relaykit/anthrelay/pkg/llm"
)

// Version is reported by the /version endpoint.
const Version = "0.1.0"

// Proxy accepts normalized chat requests, translates them for the Anthropic
// messages API, and relays the reply back as plain text (whole or streamed).
// Every completed turn is recorded in a transcript store; storage failures
// never fail the request.
type Proxy struct {
	config Config
	client *anthropic.Client
	store  history.Store
	logger *zap.Logger
	server *fiber.App
}

// New creates a new Proxy.
func New(config Config, logger *zap.Logger) (*Proxy, error) {
	var store history.Store
	var err error

	if config.DBPath != "" {
		store, err = history.NewSQLiteStore(config.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite store: %w", err)
		}
		logger.Info("using SQLite transcript store", zap.String("path", config.DBPath))
	} else {
		store = history.NewMemoryStore()
		logger.Info("using in-memory transcript store")
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
		// Enable streaming
		StreamRequestBody: true,
	})

	p := &Proxy{
		config: config,
		client: anthropic.New(config.ClientConfig(), logger),
		store:  store,
		logger: logger,
		server: app,
	}

	// Register routes
	app.Post("/api/chat", p.handleChat)
	app.Get("/v1/models", p.handleModels)
	app.Get("/history", p.handleHistory)

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})

	// Version endpoint, kept as a plain net/http handler.
	app.Get("/version", adaptor.HTTPHandlerFunc(handleVersion))

	return p, nil
}

// Run starts the relay server on the configured listening address
func (p *Proxy) Run() error {
	p.logger.Info("starting relay server", zap.String("listen", p.config.ListenAddr))
	return p.server.Listen(p.config.ListenAddr)
}

// Close shuts down the relay and releases resources.
func (p *Proxy) Close() error {
	return p.store.Close()
}

func handleVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"version": Version})
}

// handleModels returns the static model catalog.
func (p *Proxy) handleModels(c *fiber.Ctx) error {
	return c.JSON(anthropic.Models())
}

// handleHistory returns recent transcript turns, newest first.
func (p *Proxy) handleHistory(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	turns, err := p.store.List(c.Context(), limit)
	if err != nil {
		p.logger.Error("failed to list history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to list history"})
	}
	return c.JSON(turns)
}

// handleChat relays a chat request to the Anthropic API. Validation and
// remote failures come back to the caller as descriptive text, not as HTTP
// errors: the only HTTP-level failure is a malformed request body.
func (p *Proxy) handleChat(c *fiber.Ctx) error {
	startTime := time.Now()

	var req llm.ChatRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		p.logger.Error("failed to parse request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}

	p.logger.Debug("received chat request",
		zap.String("model", req.Model),
		zap.Int("message_count", len(req.Messages)),
		zap.Bool("stream", req.Stream),
	)

	if req.Stream {
		return p.handleStreamingChat(c, req, startTime)
	}
	return p.handleNonStreamingChat(c, req, startTime)
}

// handleNonStreamingChat relays a buffered request and answers with a
// single text value.
func (p *Proxy) handleNonStreamingChat(c *fiber.Ctx, req llm.ChatRequest, startTime time.Time) error {
	text, err := p.client.Complete(c.Context(), req)
	if err != nil {
		p.logger.Error("chat request failed", zap.Error(err))
		text = errorText(err)
	}

	p.logger.Debug("chat request complete",
		zap.String("model", req.Model),
		zap.String("response_preview", preview(text, 100)),
		zap.Duration("duration", time.Since(startTime)),
	)

	p.recordTurn(context.Background(), req, text, false)

	return c.JSON(llm.ChatResponse{
		Model:     req.Model,
		CreatedAt: time.Now().UTC(),
		Response:  text,
	})
}

// handleStreamingChat relays a streaming request, writing text fragments to
// the caller as they arrive. Failures before the stream opens (validation,
// missing credential, transport) answer in the non-streaming shape.
func (p *Proxy) handleStreamingChat(c *fiber.Ctx, req llm.ChatRequest, startTime time.Time) error {
	stream, err := p.client.Stream(c.Context(), req)
	if err != nil {
		p.logger.Error("chat request failed", zap.Error(err))
		text := errorText(err)
		p.recordTurn(context.Background(), req, text, true)
		return c.JSON(llm.ChatResponse{
			Model:     req.Model,
			CreatedAt: time.Now().UTC(),
			Response:  text,
		})
	}

	c.Set("Content-Type", "text/plain; charset=utf-8")
	c.Set("Transfer-Encoding", "chunked")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer stream.Close()

		var full strings.Builder
		for {
			fragment, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				p.logger.Error("error reading stream", zap.Error(err))
				fragment = errorText(err)
				full.WriteString(fragment)
				w.WriteString(fragment)
				w.Flush()
				break
			}

			full.WriteString(fragment)
			if _, err := w.WriteString(fragment); err != nil {
				// Client went away; stop pulling so the upstream
				// connection is released.
				p.logger.Debug("client disconnected mid-stream")
				break
			}
			w.Flush()
		}

		p.logger.Debug("streaming complete",
			zap.String("response_preview", preview(full.String(), 200)),
			zap.Duration("duration", time.Since(startTime)),
		)

		p.recordTurn(context.Background(), req, full.String(), true)
	}))

	return nil
}

// recordTurn stores a completed exchange best-effort.
func (p *Proxy) recordTurn(ctx context.Context, req llm.ChatRequest, response string, streamed bool) {
	turn := &history.Turn{
		Model:     req.Model,
		Prompt:    lastUserText(req.Messages),
		Response:  response,
		Streamed:  streamed,
		CreatedAt: time.Now().UTC(),
	}
	if err := p.store.Record(ctx, turn); err != nil {
		p.logger.Error("failed to record turn", zap.Error(err))
	}
}

// lastUserText returns the text of the most recent user message.
func lastUserText(messages []llm.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == llm.RoleUser {
			return messages[i].Content.Text()
		}
	}
	return ""
}

func errorText(err error) string {
	return fmt.Sprintf("Error: %v", err)
}

func preview(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
