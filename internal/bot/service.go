package bot

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/nanosprinkle/tipbot/internal/db"
	"github.com/nanosprinkle/tipbot/internal/errors"
	"github.com/nanosprinkle/tipbot/internal/intent"
	"github.com/nanosprinkle/tipbot/internal/ratelimit"
	"github.com/nanosprinkle/tipbot/internal/types"
	"github.com/nanosprinkle/tipbot/internal/wallet"
	"github.com/nanosprinkle/tipbot/pkg/logger"
)

const tipWindow = 24 * time.Hour

// Service drives the tip pipeline: dedupe, intent extraction, rate limiting,
// recipient resolution, account provisioning, transfer and confirmation.
type Service struct {
	botUserID string
	botHandle string

	db          db.DBService
	wallet      wallet.WalletService
	parser      intent.TipParser
	directory   UserDirectory
	publisher   ReplyPublisher
	composer    Composer
	engine      *Engine
	broadcaster Broadcaster

	tipsPerDay     int
	messagesMinute *ratelimit.Limiter
	messagesDay    *ratelimit.Limiter
}

type ServiceParams struct {
	BotUserID string
	BotHandle string

	DB          db.DBService
	Wallet      wallet.WalletService
	Parser      intent.TipParser
	Directory   UserDirectory
	Publisher   ReplyPublisher
	Composer    Composer
	Engine      *Engine
	Broadcaster Broadcaster

	TipsPerDay     int
	MessagesMinute *ratelimit.Limiter
	MessagesDay    *ratelimit.Limiter
}

func NewService(p ServiceParams) *Service {
	return &Service{
		botUserID:      p.BotUserID,
		botHandle:      p.BotHandle,
		db:             p.DB,
		wallet:         p.Wallet,
		parser:         p.Parser,
		directory:      p.Directory,
		publisher:      p.Publisher,
		composer:       p.Composer,
		engine:         p.Engine,
		broadcaster:    p.Broadcaster,
		tipsPerDay:     p.TipsPerDay,
		messagesMinute: p.MessagesMinute,
		messagesDay:    p.MessagesDay,
	}
}

// HandleMention runs the full tip pipeline for one mention event. All abort
// paths are silent to the requester; failed public tips never get public
// error replies.
func (s *Service) HandleMention(ctx context.Context, event types.MentionEvent) error {
	newlyMarked, err := s.db.MarkEventProcessed(ctx, event.ID)
	if err != nil {
		return err
	}
	if !newlyMarked {
		logger.Debug("Event %s already processed, skipping", event.ID)
		return errors.ErrDuplicateEvent
	}

	if event.AuthorID == s.botUserID {
		logger.Debug("Ignoring self-authored event %s", event.ID)
		return nil
	}

	// Keep the display name fresh, but never block a tip on it.
	if err := s.db.UpdateUsername(ctx, event.AuthorID, event.AuthorHandle); err != nil {
		logger.Warn("Failed to update username for %s: %v", event.AuthorID, err)
	}

	tipIntent, err := s.parser.Parse(ctx, event.FullText)
	if err != nil {
		if stderrors.Is(err, errors.ErrNoTipIntent) {
			logger.Info("No tip intent in event %s: %q", event.ID, event.FullText)
		} else {
			logger.Error("Intent extraction failed for event %s: %v", event.ID, err)
		}
		return errors.ErrNoTipIntent
	}

	count, err := s.db.CountTipsBySenderSince(ctx, event.AuthorID, time.Now().Add(-tipWindow))
	if err != nil {
		return err
	}
	if count >= s.tipsPerDay {
		logger.Info("User %s hit the daily tip limit (%d)", event.AuthorID, s.tipsPerDay)
		return errors.ErrRateLimited
	}

	recipient, err := s.resolveRecipient(ctx, tipIntent, event)
	if err != nil {
		logger.Info("Could not resolve recipient for event %s: %v", event.ID, err)
		return err
	}

	sender, err := s.db.GetOrCreateUser(ctx, event.AuthorID, s.wallet.CreateAccount)
	if err != nil {
		return err
	}
	recipientUser, err := s.db.GetOrCreateUser(ctx, recipient.ID, s.wallet.CreateAccount)
	if err != nil {
		return err
	}
	if err := s.db.UpdateUsername(ctx, recipient.ID, recipient.Handle); err != nil {
		logger.Warn("Failed to update username for %s: %v", recipient.ID, err)
	}

	blockHash, err := s.engine.Transfer(ctx, TransferRequest{
		Source:      sender.Account,
		Destination: recipientUser.Account,
		Amount:      tipIntent.Amount,
		SenderID:    sender.ID,
		RecipientID: recipientUser.ID,
		EventID:     event.ID,
	})
	if err != nil {
		logger.Error("Failed to execute tip for %s: %v", event.AuthorID, err)
		return err
	}

	reply := s.composer.Compose(ctx, ComposeParams{
		Amount:          tipIntent.Amount,
		SenderHandle:    event.AuthorHandle,
		RecipientHandle: recipient.Handle,
		BlockHash:       blockHash,
		EventText:       event.FullText,
	})

	// The tip is already complete; a failed confirmation is an accepted
	// inconsistency, not a rollback trigger.
	if err := s.publisher.PostReply(ctx, event.ID, reply, recipient.ExcludedIDs); err != nil {
		logger.LogError(&errors.PublisherError{Operation: "post tip confirmation", Err: err})
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastTipEvent(types.TipEvent{
			BlockHash:       blockHash,
			Amount:          tipIntent.Amount,
			SenderHandle:    event.AuthorHandle,
			RecipientHandle: recipient.Handle,
		})
	}

	return nil
}
