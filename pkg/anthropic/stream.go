package anthropic

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/relaykit/anthrelay/pkg/llm"
)

const dataPrefix = "data: "

// Event types in the messages API streaming feed. Everything else
// (message_start, content_block_start, ping, ...) is ignored.
const (
	eventContentBlockDelta = "content_block_delta"
	eventMessageStop       = "message_stop"
)

// streamEvent is the envelope of one "data:" line.
type streamEvent struct {
	Type  string       `json:"type"`
	Delta *streamDelta `json:"delta"`
}

type streamDelta struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Stream is a forward-only reader over the messages API event feed. Recv
// returns one text fragment per content delta and io.EOF once the feed
// terminates; each Recv drives a network read. A Stream is not restartable
// and must be closed by the consumer unless Recv already returned io.EOF.
type Stream struct {
	resp    *http.Response
	scanner *bufio.Scanner
	logger  *zap.Logger

	// errText is a pending one-shot fragment describing a non-2xx response.
	errText string

	done   bool
	closed bool
}

// Stream sends a streaming request and returns a reader over the resulting
// text fragments. Validation failures surface as an error before any
// network call; a non-2xx response surfaces as a single error fragment from
// the returned stream, mirroring the non-streaming behavior.
func (c *Client) Stream(ctx context.Context, req llm.ChatRequest) (*Stream, error) {
	payload, err := c.prepare(req, true)
	if err != nil {
		return nil, err
	}

	resp, err := c.post(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		resp.Body.Close()
		c.logger.Error("anthropic API error",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body),
		)
		return &Stream{
			logger:  c.logger,
			errText: httpErrorText(resp.StatusCode, body),
			closed:  true,
		}, nil
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	return &Stream{
		resp:    resp,
		scanner: scanner,
		logger:  c.logger,
	}, nil
}

// Recv returns the next text fragment. It returns io.EOF after the
// message_stop event, on feed exhaustion, or after the one-shot error
// fragment of a failed request.
func (s *Stream) Recv() (string, error) {
	if s.errText != "" {
		text := s.errText
		s.errText = ""
		s.done = true
		return text, nil
	}
	if s.done {
		return "", io.EOF
	}

	for s.scanner.Scan() {
		line := s.scanner.Text()
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}

		var event streamEvent
		if err := json.Unmarshal([]byte(line[len(dataPrefix):]), &event); err != nil {
			// A single malformed event must not abort the stream.
			s.logger.Warn("skipping malformed stream event",
				zap.String("line", truncate(line, 100)),
				zap.Error(err),
			)
			continue
		}

		switch event.Type {
		case eventContentBlockDelta:
			if event.Delta == nil {
				s.logger.Warn("content_block_delta without delta", zap.String("line", truncate(line, 100)))
				continue
			}
			if event.Delta.Text == "" {
				continue
			}
			return event.Delta.Text, nil

		case eventMessageStop:
			s.finish()
			return "", io.EOF
		}
	}

	err := s.scanner.Err()
	s.finish()
	if err != nil {
		return "", fmt.Errorf("read stream: %w", err)
	}
	return "", io.EOF
}

// finish marks the stream done and releases the connection. No further
// lines are consumed even if the feed has more.
func (s *Stream) finish() {
	s.done = true
	s.Close()
}

// Close releases the underlying connection. It is idempotent.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.resp != nil && s.resp.Body != nil {
		return s.resp.Body.Close()
	}
	return nil
}
