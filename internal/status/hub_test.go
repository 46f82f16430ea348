package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alpha/internal/session"
)

func TestHubBroadcastsEvents(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the register channel a moment to land before publishing.
	time.Sleep(50 * time.Millisecond)

	hub.Publish(session.Event{
		Kind:  "state",
		State: "listening",
		At:    time.Now(),
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev session.Event
	require.NoError(t, json.Unmarshal(data, &ev))
	assert.Equal(t, "state", ev.Kind)
	assert.Equal(t, "listening", ev.State)
}

func TestPublishDoesNotBlockWithoutClients(t *testing.T) {
	hub := NewHub()
	// No Run goroutine and no clients; Publish must still return promptly.
	for i := 0; i < sendBuffer+5; i++ {
		hub.Publish(session.Event{Kind: "state", State: "idle"})
	}
}
