package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/nanosprinkle/tipbot/internal/currency"
	"github.com/nanosprinkle/tipbot/internal/db"
	"github.com/nanosprinkle/tipbot/internal/errors"
	"github.com/nanosprinkle/tipbot/internal/types"
	"github.com/nanosprinkle/tipbot/internal/wallet"
	"github.com/nanosprinkle/tipbot/pkg/logger"
)

const (
	sendUsage          = "usage: !send nano_yournanoaddreess 50"
	giveawayUsage      = "usage: !giveaway summer2024 nano_yournanoaddreess"
	rateLimitedMessage = "You're sending commands too fast. Take a breather and try again in a bit."
)

// HandleMessage processes one direct-message command. Unlike mentions,
// command errors are user-visible: the reply carries a usage string.
func (s *Service) HandleMessage(ctx context.Context, event types.MessageEvent) error {
	newlyMarked, err := s.db.MarkEventProcessed(ctx, event.ID)
	if err != nil {
		return err
	}
	if !newlyMarked {
		logger.Debug("Message %s already processed, skipping", event.ID)
		return errors.ErrDuplicateEvent
	}

	if !s.messagesMinute.Allow(event.SenderID) || !s.messagesDay.Allow(event.SenderID) {
		logger.Info("User %s hit the message rate limit", event.SenderID)
		s.reply(ctx, event, rateLimitedMessage)
		return errors.ErrRateLimited
	}

	// Talking to the bot over DM is the recipient acknowledging their wallet:
	// settle receivable funds and take pending incoming tips off the sweep.
	s.claimIncoming(ctx, event.SenderID)

	response := s.runCommand(ctx, event)
	if response == "" {
		return nil
	}

	s.reply(ctx, event, response)
	return nil
}

func (s *Service) claimIncoming(ctx context.Context, senderID string) {
	user, err := s.db.GetOrCreateUser(ctx, senderID, s.wallet.CreateAccount)
	if err != nil {
		logger.Warn("Failed to look up account for %s: %v", senderID, err)
		return
	}

	if err := s.wallet.ReceiveAll(ctx, user.Account); err != nil {
		logger.Warn("Failed to settle receivables for %s: %v", senderID, err)
	}

	claimed, err := s.db.ClaimTips(ctx, senderID)
	if err != nil {
		logger.Warn("Failed to claim tips for %s: %v", senderID, err)
		return
	}
	if claimed > 0 {
		logger.Info("User %s claimed %d pending tips", senderID, claimed)
	}
}

func (s *Service) runCommand(ctx context.Context, event types.MessageEvent) string {
	text := strings.TrimSpace(event.Text)

	switch {
	case text == "!account":
		return s.accountCommand(ctx, event.SenderID)
	case text == "!balance":
		return s.balanceCommand(ctx, event.SenderID)
	case strings.HasPrefix(text, "!send"):
		return s.sendCommand(ctx, event)
	case strings.HasPrefix(text, "!giveaway"):
		return s.giveawayCommand(ctx, event)
	}

	return ""
}

func (s *Service) accountCommand(ctx context.Context, senderID string) string {
	user, err := s.db.GetOrCreateUser(ctx, senderID, s.wallet.CreateAccount)
	if err != nil {
		logger.Error("Failed to look up account for %s: %v", senderID, err)
		return "Something went wrong, please try again later."
	}
	return user.Account
}

func (s *Service) balanceCommand(ctx context.Context, senderID string) string {
	user, err := s.db.GetOrCreateUser(ctx, senderID, s.wallet.CreateAccount)
	if err != nil {
		logger.Error("Failed to look up account for %s: %v", senderID, err)
		return "Something went wrong, please try again later."
	}

	balance, err := s.wallet.Balance(ctx, user.Account)
	if err != nil {
		logger.Error("Failed to fetch balance for %s: %v", senderID, err)
		return "Something went wrong, please try again later."
	}

	if balance.Receivable != "0" {
		return fmt.Sprintf("%s Ӿ (+%s Ӿ receivable)", balance.Balance, balance.Receivable)
	}
	return balance.Balance + " Ӿ"
}

// sendCommand executes a withdrawal to an external address. Any malformed
// input or wallet failure comes back as the usage string.
func (s *Service) sendCommand(ctx context.Context, event types.MessageEvent) string {
	words := strings.Fields(event.Text)
	if len(words) != 3 {
		return sendUsage
	}
	address, amount := words[1], words[2]

	if !wallet.CheckAddress(address) {
		return sendUsage
	}

	user, err := s.db.GetOrCreateUser(ctx, event.SenderID, s.wallet.CreateAccount)
	if err != nil {
		logger.Error("Failed to look up account for %s: %v", event.SenderID, err)
		return "Something went wrong, please try again later."
	}

	amountRaw, err := currency.ToRaw(amount)
	if err != nil {
		return sendUsage
	}

	blockHash, err := s.wallet.Send(ctx, address, user.Account, amountRaw, event.ID)
	if err != nil {
		logger.Error("Withdrawal failed for %s: %v", event.SenderID, err)
		return sendUsage
	}

	logger.Info("User %s withdrew %s to %s (block %s)", event.SenderID, amount, address, blockHash)
	return fmt.Sprintf("Send successful. Block hash: %s", blockHash)
}

func (s *Service) giveawayCommand(ctx context.Context, event types.MessageEvent) string {
	words := strings.Fields(event.Text)
	if len(words) != 3 {
		return giveawayUsage
	}
	giveawayID, address := words[1], words[2]

	if !wallet.CheckAddress(address) {
		return giveawayUsage
	}

	entered, err := s.db.AddGiveawayParticipant(ctx, db.GiveawayParticipant{
		SourceEventID: event.ID,
		UserID:        event.SenderID,
		GiveawayID:    giveawayID,
		Address:       address,
	})
	if err != nil {
		logger.Error("Failed to record giveaway entry for %s: %v", event.SenderID, err)
		return "Something went wrong, please try again later."
	}
	if !entered {
		return ""
	}

	return fmt.Sprintf("You're in! Entered @%s into giveaway %s.", event.SenderHandle, giveawayID)
}

func (s *Service) reply(ctx context.Context, event types.MessageEvent, text string) {
	if err := s.publisher.SendMessage(ctx, event.SenderID, event.ConversationID, text); err != nil {
		logger.LogError(&errors.PublisherError{Operation: "send direct message", Err: err})
	}
}
