package anthropic

import "github.com/relaykit/anthrelay/pkg/llm"

// ContentBlock is one typed unit of message content in the messages API
// wire format. Type is "text" or "image".
type ContentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *ImageSource `json:"source,omitempty"`
}

// ImageSource describes where image bytes come from: embedded base64 data
// or a URL the API fetches itself.
type ImageSource struct {
	Type      string `json:"type"` // "base64" or "url"
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

// Message is a normalized message in the messages API wire format.
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// messagesRequest is the JSON body POSTed to /v1/messages. The API
// distinguishes absent from empty for stop_sequences and system, so both
// are omitted entirely when unset.
type messagesRequest struct {
	Model         string    `json:"model"`
	Messages      []Message `json:"messages"`
	MaxTokens     int       `json:"max_tokens"`
	Temperature   float64   `json:"temperature"`
	Stream        bool      `json:"stream"`
	StopSequences []string  `json:"stop_sequences,omitempty"`
	System        string    `json:"system,omitempty"`
}

// messagesResponse is the body of a complete (non-streaming) reply.
type messagesResponse struct {
	Content []ContentBlock `json:"content"`
}

// firstText returns the text of the first text block, or "" if there is none.
func (r messagesResponse) firstText() string {
	for _, block := range r.Content {
		if block.Type == "text" {
			return block.Text
		}
	}
	return ""
}

func textBlock(text string) ContentBlock {
	return ContentBlock{Type: "text", Text: text}
}

// buildPayload assembles the outbound request body, applying the configured
// defaults for max_tokens and temperature when the caller omitted them.
// All validation has already happened upstream.
func (c *Client) buildPayload(modelID string, messages []Message, system string, req llm.ChatRequest, stream bool) messagesRequest {
	payload := messagesRequest{
		Model:       modelID,
		Messages:    messages,
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.Temperature,
		Stream:      stream,
	}
	if req.MaxTokens != nil {
		payload.MaxTokens = *req.MaxTokens
	}
	if req.Temperature != nil {
		payload.Temperature = *req.Temperature
	}
	if len(req.Stop) > 0 {
		payload.StopSequences = req.Stop
	}
	if system != "" {
		payload.System = system
	}
	return payload
}
