package anthropic

import "errors"

// ErrMissingAPIKey is returned before any network call when no API key is
// configured.
var ErrMissingAPIKey = errors.New("ANTHROPIC_API_KEY not configured")

// ErrInvalidModel is returned when the caller supplies an empty model string.
var ErrInvalidModel = errors.New("model string is empty")

// ErrImageTooLarge is returned when a single image exceeds the per-image
// size limit.
var ErrImageTooLarge = errors.New("image exceeds 5MB limit")

// ErrTotalImageSize is returned when the inline images of one request
// together exceed the cumulative size limit.
var ErrTotalImageSize = errors.New("total image size exceeds 100MB limit")
