package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nanosprinkle/tipbot/internal/types"
	"github.com/nanosprinkle/tipbot/internal/websocket"
)

// recordingHandler captures dispatched events and signals arrival, since the
// ingestion endpoints hand events off asynchronously.
type recordingHandler struct {
	mu       sync.Mutex
	mentions []types.MentionEvent
	messages []types.MessageEvent
	received chan struct{}
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{received: make(chan struct{}, 16)}
}

func (r *recordingHandler) HandleMention(_ context.Context, event types.MentionEvent) error {
	r.mu.Lock()
	r.mentions = append(r.mentions, event)
	r.mu.Unlock()
	r.received <- struct{}{}
	return nil
}

func (r *recordingHandler) HandleMessage(_ context.Context, event types.MessageEvent) error {
	r.mu.Lock()
	r.messages = append(r.messages, event)
	r.mu.Unlock()
	r.received <- struct{}{}
	return nil
}

func (r *recordingHandler) waitForEvent(t *testing.T) {
	t.Helper()
	select {
	case <-r.received:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event dispatch")
	}
}

func setupTestRouter(bot EventHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return SetupRouter(NewHandler(bot), websocket.NewWebSocketManager(), "test-key")
}

func postJSON(router *gin.Engine, path, apiKey, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestIngestMention(t *testing.T) {
	bot := newRecordingHandler()
	router := setupTestRouter(bot)

	w := postJSON(router, "/mention", "test-key", `{
		"id_str": "1839000000000000001",
		"full_text": "@NanoSprinkle !tip 5",
		"user_id_str": "42",
		"user_screen_name": "alice",
		"user_mentions": [{"id_str": "1000", "screen_name": "NanoSprinkle"}],
		"in_reply_to_user_id_str": "43",
		"in_reply_to_screen_name": "bob"
	}`)

	assert.Equal(t, http.StatusAccepted, w.Code)

	bot.waitForEvent(t)
	bot.mu.Lock()
	defer bot.mu.Unlock()
	require.Len(t, bot.mentions, 1)
	assert.Equal(t, "1839000000000000001", bot.mentions[0].ID)
	assert.Equal(t, "42", bot.mentions[0].AuthorID)
	assert.Equal(t, "43", bot.mentions[0].ReplyToUserID)
	require.Len(t, bot.mentions[0].Mentions, 1)
	assert.Equal(t, "NanoSprinkle", bot.mentions[0].Mentions[0].Handle)
}

func TestIngestMentionRejectsBadPayload(t *testing.T) {
	bot := newRecordingHandler()
	router := setupTestRouter(bot)

	w := postJSON(router, "/mention", "test-key", `{"full_text": "no ids here"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, bot.mentions)
}

func TestIngestMentionRequiresAPIKey(t *testing.T) {
	bot := newRecordingHandler()
	router := setupTestRouter(bot)

	w := postJSON(router, "/mention", "wrong-key", `{"id_str": "1", "user_id_str": "42"}`)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, bot.mentions)
}

func TestIngestMessage(t *testing.T) {
	bot := newRecordingHandler()
	router := setupTestRouter(bot)

	w := postJSON(router, "/message", "test-key", `{
		"id": "msg-1",
		"text": "!balance",
		"sender_id": "42",
		"sender_screen_name": "alice",
		"conversation_id": "conv-42"
	}`)

	assert.Equal(t, http.StatusAccepted, w.Code)

	bot.waitForEvent(t)
	bot.mu.Lock()
	defer bot.mu.Unlock()
	require.Len(t, bot.messages, 1)
	assert.Equal(t, "msg-1", bot.messages[0].ID)
	assert.Equal(t, "!balance", bot.messages[0].Text)
	assert.Equal(t, "conv-42", bot.messages[0].ConversationID)
}

func TestHealthz(t *testing.T) {
	bot := newRecordingHandler()
	router := setupTestRouter(bot)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/healthz", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestRequestIDHeader(t *testing.T) {
	bot := newRecordingHandler()
	router := setupTestRouter(bot)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/healthz", nil)
	router.ServeHTTP(w, req)

	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
