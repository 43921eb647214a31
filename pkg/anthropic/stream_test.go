package anthropic_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/relaykit/anthrelay/pkg/anthropic"
	"github.com/relaykit/anthrelay/pkg/llm"
)

func sseFeed(events ...string) string {
	var b strings.Builder
	for _, e := range events {
		b.WriteString("data: " + e + "\n\n")
	}
	return b.String()
}

func deltaEvent(text string) string {
	return `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"` + text + `"}}`
}

const stopEvent = `{"type":"message_stop"}`

var _ = Describe("Stream", func() {
	var (
		status int
		body   string
		server *httptest.Server
		stream *anthropic.Stream
	)

	BeforeEach(func() {
		status = http.StatusOK
		body = ""
	})

	JustBeforeEach(func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if status != http.StatusOK {
				w.WriteHeader(status)
			} else {
				w.Header().Set("Content-Type", "text/event-stream")
			}
			io.WriteString(w, body)
		}))

		client := anthropic.New(anthropic.Config{
			APIKey:  "test-key",
			BaseURL: server.URL,
		}, zap.NewNop())

		var err error
		stream, err = client.Stream(context.Background(), llm.ChatRequest{
			Model: "claude-sonnet-4-5-20250929",
			Messages: []llm.Message{
				{Role: llm.RoleUser, Content: llm.TextContent("hi")},
			},
			Stream: true,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		stream.Close()
		server.Close()
	})

	collect := func() []string {
		var out []string
		for {
			fragment, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return out
			}
			Expect(err).NotTo(HaveOccurred())
			out = append(out, fragment)
		}
	}

	Context("with an ordinary delta feed", func() {
		BeforeEach(func() {
			body = sseFeed(deltaEvent("a"), deltaEvent("b"), stopEvent)
		})

		It("yields the deltas in order", func() {
			Expect(collect()).To(Equal([]string{"a", "b"}))
		})

		It("keeps returning io.EOF after exhaustion", func() {
			collect()
			_, err := stream.Recv()
			Expect(err).To(MatchError(io.EOF))
		})
	})

	Context("with lines after message_stop", func() {
		BeforeEach(func() {
			body = sseFeed(deltaEvent("a"), stopEvent, deltaEvent("never"))
		})

		It("stops at message_stop and ignores the rest", func() {
			Expect(collect()).To(Equal([]string{"a"}))
		})
	})

	Context("with a malformed line sandwiched between deltas", func() {
		BeforeEach(func() {
			body = sseFeed(deltaEvent("a"), `{not json`, deltaEvent("b"), stopEvent)
		})

		It("skips the bad line and keeps both fragments", func() {
			Expect(collect()).To(Equal([]string{"a", "b"}))
		})
	})

	Context("with unrecognized event kinds", func() {
		BeforeEach(func() {
			body = sseFeed(
				`{"type":"message_start","message":{"id":"msg_1"}}`,
				`{"type":"content_block_start","index":0}`,
				deltaEvent("a"),
				`{"type":"ping"}`,
				deltaEvent("b"),
				stopEvent,
			)
		})

		It("ignores them", func() {
			Expect(collect()).To(Equal([]string{"a", "b"}))
		})
	})

	Context("with non-data noise in the feed", func() {
		BeforeEach(func() {
			body = "event: content_block_delta\n" +
				sseFeed(deltaEvent("a")) +
				"\n\n" +
				sseFeed(stopEvent)
		})

		It("only reads data lines", func() {
			Expect(collect()).To(Equal([]string{"a"}))
		})
	})

	Context("with a delta missing its payload", func() {
		BeforeEach(func() {
			body = sseFeed(`{"type":"content_block_delta","index":0}`, deltaEvent("a"), stopEvent)
		})

		It("skips it and continues", func() {
			Expect(collect()).To(Equal([]string{"a"}))
		})
	})

	Context("when the feed ends without message_stop", func() {
		BeforeEach(func() {
			body = sseFeed(deltaEvent("a"), deltaEvent("b"))
		})

		It("terminates on exhaustion", func() {
			Expect(collect()).To(Equal([]string{"a", "b"}))
		})
	})

	Context("when the API answers non-2xx", func() {
		BeforeEach(func() {
			status = http.StatusUnauthorized
			body = "unauthorized"
		})

		It("yields exactly one error fragment and then io.EOF", func() {
			fragments := collect()
			Expect(fragments).To(HaveLen(1))
			Expect(fragments[0]).To(ContainSubstring("401"))
			Expect(fragments[0]).To(ContainSubstring("unauthorized"))
		})
	})
})

var _ = Describe("Stream validation", func() {
	It("fails before any network call when no API key is configured", func() {
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
		}))
		defer server.Close()

		client := anthropic.New(anthropic.Config{BaseURL: server.URL}, zap.NewNop())
		_, err := client.Stream(context.Background(), llm.ChatRequest{
			Model:    "claude-sonnet-4-5-20250929",
			Messages: []llm.Message{{Role: llm.RoleUser, Content: llm.TextContent("hi")}},
		})
		Expect(err).To(MatchError(anthropic.ErrMissingAPIKey))
		Expect(calls).To(BeZero())
	})
})
