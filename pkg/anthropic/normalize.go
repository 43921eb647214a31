package anthropic

import (
	"fmt"

	"github.com/relaykit/anthrelay/pkg/llm"
)

// normalizeMessages separates a leading system message and flattens the
// remaining messages into messages-API content blocks. Text parts pass
// through verbatim; image parts go through validateImage. Inline image
// sizes accumulate across the whole batch and failing the cumulative limit
// aborts the request before anything is sent. Normalization is
// all-or-nothing: any per-item failure discards the entire batch.
func (c *Client) normalizeMessages(messages []llm.Message) (system string, out []Message, err error) {
	if len(messages) > 0 && messages[0].Role == llm.RoleSystem {
		system = messages[0].Content.Text()
		messages = messages[1:]
	}

	out = make([]Message, 0, len(messages))
	var totalImageSize int64

	for _, msg := range messages {
		var blocks []ContentBlock

		if msg.Content.Structured() {
			for _, part := range msg.Content.Parts() {
				switch part.Type {
				case llm.PartText:
					blocks = append(blocks, textBlock(part.Text))

				case llm.PartImageURL:
					if part.ImageURL == nil {
						return "", nil, fmt.Errorf("image part has no image_url")
					}
					block, size, err := c.validateImage(part.ImageURL.URL)
					if err != nil {
						return "", nil, fmt.Errorf("failed to process image: %w", err)
					}
					totalImageSize += size
					if totalImageSize > maxTotalImageSize {
						return "", nil, fmt.Errorf("%w: %.2fMB", ErrTotalImageSize, mb(totalImageSize))
					}
					blocks = append(blocks, block)

				default:
					return "", nil, fmt.Errorf("unsupported content part type %q", part.Type)
				}
			}
		} else {
			blocks = []ContentBlock{textBlock(msg.Content.Text())}
		}

		out = append(out, Message{Role: string(msg.Role), Content: blocks})
	}

	return system, out, nil
}
