package anthropic

import "strings"

// Model is one entry in the static model catalog.
type Model struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Models returns the supported Anthropic models. The set is fixed at build
// time; it never changes at runtime.
func Models() []Model {
	return []Model{
		{ID: "claude-sonnet-4-5-20250929", Name: "claude-sonnet-4.5"},
		{ID: "claude-haiku-4-5-20251001", Name: "claude-haiku-4.5"},
		{ID: "claude-opus-4-5-20251101", Name: "claude-opus-4.5"},
	}
}

// ResolveModelID extracts the bare model identifier from a caller-supplied
// model string. Prefixed forms like "anthropic.claude-opus-4-5" resolve to
// everything after the first "."; unprefixed strings pass through unchanged.
func ResolveModelID(model string) (string, error) {
	if model == "" {
		return "", ErrInvalidModel
	}
	if _, after, ok := strings.Cut(model, "."); ok {
		return after, nil
	}
	return model, nil
}
