package anthropic

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testClient(overrides ...func(*Config)) *Client {
	cfg := Config{APIKey: "test-key"}
	for _, o := range overrides {
		o(&cfg)
	}
	return New(cfg, zap.NewNop())
}

func TestValidateImageInline(t *testing.T) {
	c := testClient()

	data := base64.StdEncoding.EncodeToString([]byte("tiny image bytes"))
	block, size, err := c.validateImage("data:image/png;base64," + data)
	require.NoError(t, err)

	assert.Equal(t, "image", block.Type)
	require.NotNil(t, block.Source)
	assert.Equal(t, "base64", block.Source.Type)
	assert.Equal(t, "image/png", block.Source.MediaType)
	assert.Equal(t, data, block.Source.Data, "payload must pass through byte-identical")
	assert.Equal(t, int64(len(data))*3/4, size)
}

func TestValidateImageInlineTooLarge(t *testing.T) {
	c := testClient()

	// ~6MB decoded, comfortably over the 5MB limit.
	payload := strings.Repeat("A", 8*1024*1024)
	_, _, err := c.validateImage("data:image/jpeg;base64," + payload)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrImageTooLarge)
}

func TestValidateImageMalformedDataURI(t *testing.T) {
	c := testClient()

	_, _, err := c.validateImage("data:image/png;base64")
	require.Error(t, err)
}

func TestValidateImageURLTooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.Header().Set("Content-Length", fmt.Sprint(6*1024*1024))
	}))
	defer server.Close()

	c := testClient()
	_, _, err := c.validateImage(server.URL + "/big.png")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrImageTooLarge)
}

func TestValidateImageURLWithinLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", fmt.Sprint(1024))
	}))
	defer server.Close()

	c := testClient()
	block, size, err := c.validateImage(server.URL + "/small.png")
	require.NoError(t, err)

	assert.Equal(t, "image", block.Type)
	require.NotNil(t, block.Source)
	assert.Equal(t, "url", block.Source.Type)
	assert.Equal(t, server.URL+"/small.png", block.Source.URL)
	assert.Zero(t, size, "URL images do not count against the inline total")
}

func TestValidateImageURLProbeFailureIsNonFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL + "/gone.png"
	server.Close()

	c := testClient()
	block, _, err := c.validateImage(url)
	require.NoError(t, err, "a failed probe must not block the request")
	assert.Equal(t, "url", block.Source.Type)
}

func TestValidateImageURLMissingLengthIsNonFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// No Content-Length declared for HEAD.
	}))
	defer server.Close()

	c := testClient()
	block, _, err := c.validateImage(server.URL + "/unknown.png")
	require.NoError(t, err)
	assert.Equal(t, "url", block.Source.Type)
}

func TestInlineImageSizeEstimate(t *testing.T) {
	assert.Equal(t, int64(3), inlineImageSize("AAAA"))
	assert.Equal(t, int64(0), inlineImageSize(""))
}
