package bot

import (
	"context"

	"github.com/nanosprinkle/tipbot/internal/types"
)

// UserDirectory resolves a platform handle to a real account. Backed by the
// platform's user-lookup API.
type UserDirectory interface {
	LookupHandle(ctx context.Context, handle string) (types.DirectoryUser, error)
}

// ReplyPublisher posts public replies and direct messages back to the
// platform. PostReply suppresses notification fan-out for the excluded ids.
type ReplyPublisher interface {
	PostReply(ctx context.Context, inReplyToEventID, text string, excludedIDs []string) error
	SendMessage(ctx context.Context, recipientID, conversationID, text string) error
}

// Broadcaster pushes completed-tip events to connected dashboard clients.
type Broadcaster interface {
	BroadcastTipEvent(event types.TipEvent)
}
