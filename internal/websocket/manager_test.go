package websocket

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

	"github.com/nanosprinkle/tipbot/internal/types"
)

func dialTestClient(t *testing.T, manager *WebSocketManager) *websocket.Conn {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		manager.HandleWebSocket(w, r)
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })

	// Allow some time for the connection to be registered
	time.Sleep(100 * time.Millisecond)

	return ws
}

func TestWebSocketManager_BroadcastTipEvent(t *testing.T) {
	manager := NewWebSocketManager()
	go manager.Run()

	ws := dialTestClient(t, manager)

	manager.BroadcastTipEvent(types.TipEvent{
		BlockHash:       "AAAA",
		Amount:          "5",
		SenderHandle:    "alice",
		RecipientHandle: "bob",
	})

	_, message, err := ws.ReadMessage()
	require.NoError(t, err)

	var received map[string]interface{}
	require.NoError(t, json.Unmarshal(message, &received))

	assert.Equal(t, "tip_event", received["type"])
	event := received["event"].(map[string]interface{})
	assert.Equal(t, "AAAA", event["block_hash"])
	assert.Equal(t, "5", event["amount"])
	assert.Equal(t, "alice", event["sender"])
	assert.Equal(t, "bob", event["recipient"])
}

func TestWebSocketManager_BroadcastRefundEvent(t *testing.T) {
	manager := NewWebSocketManager()
	go manager.Run()

	ws := dialTestClient(t, manager)

	manager.BroadcastRefundEvent(types.RefundEvent{
		BlockHash:  "AAAA",
		RefundHash: "BBBB",
		Amount:     "5",
	})

	_, message, err := ws.ReadMessage()
	require.NoError(t, err)

	var received map[string]interface{}
	require.NoError(t, json.Unmarshal(message, &received))

	assert.Equal(t, "refund_event", received["type"])
	event := received["event"].(map[string]interface{})
	assert.Equal(t, "AAAA", event["block_hash"])
	assert.Equal(t, "BBBB", event["refund_hash"])
}

func TestWebSocketManager_UnregisterOnClose(t *testing.T) {
	manager := NewWebSocketManager()
	go manager.Run()

	ws := dialTestClient(t, manager)
	ws.Close()

	// Allow some time for the read pump to notice and unregister
	time.Sleep(100 * time.Millisecond)

	manager.mutex.Lock()
	clientCount := len(manager.clients)
	manager.mutex.Unlock()

	assert.Equal(t, 0, clientCount)
}
