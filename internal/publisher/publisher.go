package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/nanosprinkle/tipbot/internal/errors"
	"github.com/nanosprinkle/tipbot/internal/types"
	"github.com/nanosprinkle/tipbot/pkg/logger"
)

const requestTimeout = 15 * time.Second

// Client talks to the platform-side publisher service, which owns the OAuth
// session and performs the actual posting. Public replies go out as-is;
// direct messages are serialized per conversation so one user never sees
// replies out of order.
type Client struct {
	url    string
	apiKey string
	client *http.Client

	mu    sync.Mutex
	tails map[string]chan struct{}
}

func NewClient(serviceURL, apiKey string) *Client {
	return &Client{
		url:    serviceURL,
		apiKey: apiKey,
		client: &http.Client{Timeout: requestTimeout},
		tails:  make(map[string]chan struct{}),
	}
}

type replyRequest struct {
	InReplyToEventID string   `json:"in_reply_to_event_id"`
	Text             string   `json:"text"`
	ExcludedIDs      []string `json:"excluded_participant_ids"`
}

type messageRequest struct {
	RecipientID    string `json:"recipient_id"`
	ConversationID string `json:"conversation_id"`
	Text           string `json:"text"`
}

// PostReply posts a public reply against the source event. Excluded ids are
// dropped from the notification fan-out.
func (c *Client) PostReply(ctx context.Context, inReplyToEventID, text string, excludedIDs []string) error {
	if inReplyToEventID == "" {
		return &errors.PublisherError{Operation: "post reply", Err: fmt.Errorf("missing event id")}
	}

	logger.Info("Replying to event %s: %s", inReplyToEventID, text)

	err := c.post(ctx, "/reply", replyRequest{
		InReplyToEventID: inReplyToEventID,
		Text:             text,
		ExcludedIDs:      excludedIDs,
	})
	if err != nil {
		return &errors.PublisherError{Operation: "post reply", Err: err}
	}
	return nil
}

// SendMessage sends a direct message. Messages within one conversation are
// delivered strictly in submission order: each send waits for the previous
// send in that conversation to finish.
func (c *Client) SendMessage(ctx context.Context, recipientID, conversationID, text string) error {
	wait, done := c.enqueue(conversationID)
	defer done()

	if wait != nil {
		select {
		case <-wait:
		case <-ctx.Done():
			return &errors.PublisherError{Operation: "send message", Err: ctx.Err()}
		}
	}

	err := c.post(ctx, "/message", messageRequest{
		RecipientID:    recipientID,
		ConversationID: conversationID,
		Text:           text,
	})
	if err != nil {
		return &errors.PublisherError{Operation: "send message", Err: err}
	}
	return nil
}

// enqueue appends this send to the conversation's queue and returns the
// previous tail to wait on. done must be called once the send completes,
// successful or not, to unblock the next sender.
func (c *Client) enqueue(conversationID string) (wait <-chan struct{}, done func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.tails[conversationID]
	next := make(chan struct{})
	c.tails[conversationID] = next

	return prev, func() { close(next) }
}

// LookupHandle resolves a platform handle to a user id via the publisher
// service's directory endpoint.
func (c *Client) LookupHandle(ctx context.Context, handle string) (types.DirectoryUser, error) {
	logger.Info("Fetching user for @%s", handle)

	endpoint := fmt.Sprintf("%s/user?handle=%s", c.url, url.QueryEscape(handle))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return types.DirectoryUser{}, &errors.PublisherError{Operation: "lookup handle", Err: err}
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return types.DirectoryUser{}, &errors.PublisherError{Operation: "lookup handle", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return types.DirectoryUser{}, &errors.NotFoundError{Resource: "user", Identifier: handle}
	}
	if resp.StatusCode != http.StatusOK {
		return types.DirectoryUser{}, &errors.PublisherError{
			Operation: "lookup handle",
			Err:       fmt.Errorf("directory returned status %d", resp.StatusCode),
		}
	}

	var user types.DirectoryUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return types.DirectoryUser{}, &errors.PublisherError{Operation: "lookup handle", Err: err}
	}
	if user.ID == "" {
		return types.DirectoryUser{}, &errors.NotFoundError{Resource: "user", Identifier: handle}
	}

	return user, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("publisher returned status %d: %s", resp.StatusCode, respBody)
	}
	return nil
}
