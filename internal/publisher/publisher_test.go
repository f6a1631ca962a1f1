package publisher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostReply(t *testing.T) {
	var got replyRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/reply", r.URL.Path)
		require.Equal(t, "secret", r.Header.Get("X-API-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret")
	err := client.PostReply(context.Background(), "1839", "nice tip!", []string{"45"})

	require.NoError(t, err)
	assert.Equal(t, "1839", got.InReplyToEventID)
	assert.Equal(t, "nice tip!", got.Text)
	assert.Equal(t, []string{"45"}, got.ExcludedIDs)
}

func TestPostReplyMissingEventID(t *testing.T) {
	client := NewClient("http://unreachable", "secret")

	err := client.PostReply(context.Background(), "", "text", nil)
	assert.Error(t, err)
}

func TestSendMessageOrderedPerConversation(t *testing.T) {
	var mu sync.Mutex
	var received []string
	firstArrived := make(chan struct{})
	release := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg messageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		if msg.Text == "first" {
			close(firstArrived)
			<-release
		}
		mu.Lock()
		received = append(received, msg.Text)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, client.SendMessage(context.Background(), "42", "conv", "first"))
	}()

	// Wait until the first send is in flight, then queue a second one in
	// the same conversation. It must not reach the server yet.
	<-firstArrived
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, client.SendMessage(context.Background(), "42", "conv", "second"))
	}()

	// A different conversation is not held up by the blocked one.
	assert.NoError(t, client.SendMessage(context.Background(), "43", "other-conv", "independent"))

	mu.Lock()
	assert.NotContains(t, received, "second", "second message must wait for the first to finish")
	mu.Unlock()

	close(release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"independent", "first", "second"}, received)
}

func TestLookupHandle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/user", r.URL.Path)
		require.Equal(t, "carol", r.URL.Query().Get("handle"))
		json.NewEncoder(w).Encode(map[string]string{"id": "44", "handle": "carol"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret")
	user, err := client.LookupHandle(context.Background(), "carol")

	require.NoError(t, err)
	assert.Equal(t, "44", user.ID)
	assert.Equal(t, "carol", user.Handle)
}

func TestLookupHandleNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret")
	_, err := client.LookupHandle(context.Background(), "ghost")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
