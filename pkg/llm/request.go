// Package llm holds the caller-facing representations of chat requests and
// responses which are then translated into the Anthropic wire format.
package llm

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Content part types accepted on the inbound side.
const (
	PartText     = "text"
	PartImageURL = "image_url"
)

// ContentPart is one typed segment of a structured message content array.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageRef `json:"image_url,omitempty"`
}

// ImageRef references an image by URL. The URL may be a regular http(s)
// URL or a base64 data URI.
type ImageRef struct {
	URL string `json:"url"`
}

// Content is message content that arrives either as a plain JSON string or
// as an array of typed parts. The shape is resolved once, at decode time;
// downstream code only ever sees parts.
type Content struct {
	parts      []ContentPart
	structured bool
}

// TextContent wraps a plain string as unstructured content.
func TextContent(text string) Content {
	return Content{parts: []ContentPart{{Type: PartText, Text: text}}}
}

// PartsContent builds structured content from typed parts.
func PartsContent(parts ...ContentPart) Content {
	return Content{parts: parts, structured: true}
}

// Parts returns the typed segments of the content.
func (c Content) Parts() []ContentPart { return c.parts }

// Structured reports whether the content arrived as an array of typed parts
// rather than a plain string.
func (c Content) Structured() bool { return c.structured }

// Text returns the concatenated text of all text parts.
func (c Content) Text() string {
	var b strings.Builder
	for _, p := range c.parts {
		if p.Type == PartText {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

func (c *Content) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = TextContent(s)
		return nil
	}
	var parts []ContentPart
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("content must be a string or an array of parts: %w", err)
	}
	*c = PartsContent(parts...)
	return nil
}

func (c Content) MarshalJSON() ([]byte, error) {
	if !c.structured {
		return json.Marshal(c.Text())
	}
	return json.Marshal(c.parts)
}

// Message represents a single message in a conversation.
type Message struct {
	Role    Role    `json:"role"`
	Content Content `json:"content"`
}

// ChatRequest represents a chat completion request as submitted by the
// caller. Sampling parameters are pointers so that "omitted" is
// distinguishable from zero values.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
	Stop        []string  `json:"stop,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

// ChatResponse is the non-streaming reply returned to the caller.
type ChatResponse struct {
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	Response  string    `json:"response"`
}

// ErrorResponse represents a caller-side error (e.g. a malformed request body).
type ErrorResponse struct {
	Error string `json:"error"`
}
