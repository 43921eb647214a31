package anthropic

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	maxImageSize      = 5 * 1024 * 1024   // per image
	maxTotalImageSize = 100 * 1024 * 1024 // per request, inline images only

	imageProbeTimeout = 5 * time.Second
)

// validateImage converts one inbound image URL into a messages-API image
// block and enforces the per-image size limit. It returns the estimated
// decoded size for inline images (0 for URL images) so the caller can track
// the cumulative total across the batch.
func (c *Client) validateImage(url string) (ContentBlock, int64, error) {
	if strings.HasPrefix(url, "data:image") {
		meta, data, ok := strings.Cut(url, ",")
		if !ok {
			return ContentBlock{}, 0, fmt.Errorf("malformed image data URI")
		}
		mediaType := strings.TrimPrefix(meta, "data:")
		if mt, _, found := strings.Cut(mediaType, ";"); found {
			mediaType = mt
		}

		size := inlineImageSize(data)
		if size > maxImageSize {
			return ContentBlock{}, 0, fmt.Errorf("%w: %.2fMB", ErrImageTooLarge, mb(size))
		}

		return ContentBlock{
			Type: "image",
			Source: &ImageSource{
				Type:      "base64",
				MediaType: mediaType,
				Data:      data,
			},
		}, size, nil
	}

	// URL image: best-effort size probe only. The API is the final
	// authority, so an inconclusive probe never blocks the request.
	if size, ok := c.probeImageSize(url); ok && size > maxImageSize {
		return ContentBlock{}, 0, fmt.Errorf("%w: image at URL is %.2fMB", ErrImageTooLarge, mb(size))
	}

	return ContentBlock{
		Type:   "image",
		Source: &ImageSource{Type: "url", URL: url},
	}, 0, nil
}

// inlineImageSize estimates the decoded byte size of a base64 payload as
// len*3/4. The estimate ignores padding and can slightly overstate sizes
// near the limit; the bound is deliberately conservative.
func inlineImageSize(base64Data string) int64 {
	return int64(len(base64Data)) * 3 / 4
}

// probeImageSize issues a HEAD request and reports the declared content
// length. A failed probe or a missing length is a valid outcome, not an
// error.
func (c *Client) probeImageSize(url string) (int64, bool) {
	req, err := http.NewRequest(http.MethodHead, url, nil)
	if err != nil {
		c.logger.Warn("could not build image size probe", zap.String("url", url), zap.Error(err))
		return 0, false
	}

	resp, err := c.probeClient.Do(req)
	if err != nil {
		c.logger.Warn("could not verify image size", zap.String("url", url), zap.Error(err))
		return 0, false
	}
	defer resp.Body.Close()

	if resp.ContentLength <= 0 {
		return 0, false
	}
	return resp.ContentLength, true
}

func mb(size int64) float64 {
	return float64(size) / (1024 * 1024)
}
