package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/aegis/pkg/loop"
	"github.com/entrhq/aegis/pkg/types"
)

// echoConversation replies to every transcript through its sink.
type echoConversation struct {
	sink loop.EventSink
}

func (c *echoConversation) HandleTranscript(ctx context.Context, transcript string) {
	c.sink(types.NewAgentResponseEvent("heard: " + transcript))
}

func newTestServer() *Server {
	return New(func(sink loop.EventSink) (Conversation, func(), error) {
		return &echoConversation{sink: sink}, func() {}, nil
	})
}

func TestHealthEndpoint(t *testing.T) {
	ts := httptest.NewServer(newTestServer().Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWebSocketRoundTrip(t *testing.T) {
	ts := httptest.NewServer(newTestServer().Router())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "done")

	msg, err := json.Marshal(types.ClientMessage{Type: "user_speech", Transcript: "hello there"})
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, msg))

	// Read until the echoed agent response arrives; a status greeting may
	// come first.
	for {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err)

		var event types.ServerEvent
		require.NoError(t, json.Unmarshal(data, &event))
		if event.Type == types.EventAgentResponse {
			assert.Equal(t, "heard: hello there", event.Text)
			return
		}
	}
}

func TestWebSocketIgnoresMalformedMessages(t *testing.T) {
	ts := httptest.NewServer(newTestServer().Router())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "done")

	// Malformed payloads and unknown types are dropped, not fatal.
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("not json")))
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"type":"unknown"}`)))

	msg, _ := json.Marshal(types.ClientMessage{Type: "user_speech", Transcript: "still alive"})
	require.NoError(t, conn.Write(ctx, websocket.MessageText, msg))

	for {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err)

		var event types.ServerEvent
		require.NoError(t, json.Unmarshal(data, &event))
		if event.Type == types.EventAgentResponse {
			assert.Equal(t, "heard: still alive", event.Text)
			return
		}
	}
}
