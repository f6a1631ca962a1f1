package api

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nanosprinkle/tipbot/internal/errors"
	"github.com/nanosprinkle/tipbot/internal/types"
	"github.com/nanosprinkle/tipbot/pkg/logger"
)

// EventHandler processes normalized feed events. Satisfied by bot.Service.
type EventHandler interface {
	HandleMention(ctx context.Context, event types.MentionEvent) error
	HandleMessage(ctx context.Context, event types.MessageEvent) error
}

// Handler exposes the ingestion endpoints the scraper posts events to.
type Handler struct {
	bot EventHandler
}

func NewHandler(bot EventHandler) *Handler {
	return &Handler{bot: bot}
}

// IngestMention accepts a mention event and dispatches the tip pipeline
// asynchronously. The scraper gets a 202 immediately; it must never wait on
// a pipeline's completion.
func (h *Handler) IngestMention(c *gin.Context) {
	var event types.MentionEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.Error(&errors.APIError{StatusCode: http.StatusBadRequest, Message: "Invalid mention payload", Err: err})
		return
	}
	if event.ID == "" || event.AuthorID == "" {
		c.Error(&errors.APIError{StatusCode: http.StatusBadRequest, Message: "Missing event or author id"})
		return
	}

	// The pipeline outlives the HTTP request on purpose: once the event is
	// marked processed it must run to completion.
	go func() {
		if err := h.bot.HandleMention(context.Background(), event); err != nil && !isExpectedAbort(err) {
			logger.Error("Mention pipeline failed for event %s: %v", event.ID, err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// IngestMessage accepts a direct-message event and dispatches the command
// handler asynchronously.
func (h *Handler) IngestMessage(c *gin.Context) {
	var event types.MessageEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.Error(&errors.APIError{StatusCode: http.StatusBadRequest, Message: "Invalid message payload", Err: err})
		return
	}
	if event.ID == "" || event.SenderID == "" {
		c.Error(&errors.APIError{StatusCode: http.StatusBadRequest, Message: "Missing message or sender id"})
		return
	}

	go func() {
		if err := h.bot.HandleMessage(context.Background(), event); err != nil && !isExpectedAbort(err) {
			logger.Error("Message pipeline failed for event %s: %v", event.ID, err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// Healthz reports process liveness.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// isExpectedAbort reports whether err is a normal pipeline abort rather than
// a failure worth logging at error level.
func isExpectedAbort(err error) bool {
	return stderrors.Is(err, errors.ErrDuplicateEvent) ||
		stderrors.Is(err, errors.ErrNoTipIntent) ||
		stderrors.Is(err, errors.ErrRateLimited) ||
		stderrors.Is(err, errors.ErrRecipientUnresolvable)
}
