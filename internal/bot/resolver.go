package bot

import (
	"context"
	"strings"

	"github.com/nanosprinkle/tipbot/internal/errors"
	"github.com/nanosprinkle/tipbot/internal/intent"
	"github.com/nanosprinkle/tipbot/internal/types"
	"github.com/nanosprinkle/tipbot/pkg/logger"
)

// Recipient is a resolved tip destination. ExcludedIDs lists the mentioned
// users who are not party to the tip, so the confirmation reply does not
// notify them.
type Recipient struct {
	ID          string
	Handle      string
	ExcludedIDs []string
}

// resolveRecipient determines the tip destination. An explicit handle in the
// intent wins: first matched against the event's mention list, then looked up
// in the platform directory. Without an explicit handle the tip goes to the
// reply target; a top-level post with no reply target has no recipient.
func (s *Service) resolveRecipient(ctx context.Context, tipIntent *intent.TipIntent, event types.MentionEvent) (Recipient, error) {
	recipient, err := s.pickRecipient(ctx, tipIntent, event)
	if err != nil {
		return Recipient{}, err
	}

	recipient.ExcludedIDs = excludedMentionIDs(event, recipient.ID, s.botUserID)
	return recipient, nil
}

func (s *Service) pickRecipient(ctx context.Context, tipIntent *intent.TipIntent, event types.MentionEvent) (Recipient, error) {
	if tipIntent.Recipient != "" {
		for _, mention := range event.Mentions {
			if strings.EqualFold(mention.Handle, tipIntent.Recipient) {
				return Recipient{ID: mention.ID, Handle: mention.Handle}, nil
			}
		}

		user, err := s.directory.LookupHandle(ctx, tipIntent.Recipient)
		if err != nil {
			logger.Warn("Handle @%s did not resolve: %v", tipIntent.Recipient, err)
			return Recipient{}, errors.ErrRecipientUnresolvable
		}
		return Recipient{ID: user.ID, Handle: user.Handle}, nil
	}

	// An implicit recipient needs a reply context to point at.
	if event.ReplyToUserID == "" {
		return Recipient{}, errors.ErrRecipientUnresolvable
	}

	return Recipient{ID: event.ReplyToUserID, Handle: event.ReplyToHandle}, nil
}

// excludedMentionIDs returns the mentioned ids that should not be notified by
// the confirmation reply. The resolved recipient and the bot itself stay
// notified; everyone else mentioned is uninvolved.
func excludedMentionIDs(event types.MentionEvent, recipientID, botUserID string) []string {
	excluded := make([]string, 0, len(event.Mentions))
	for _, mention := range event.Mentions {
		if mention.ID == recipientID || mention.ID == botUserID {
			continue
		}
		excluded = append(excluded, mention.ID)
	}
	return excluded
}
