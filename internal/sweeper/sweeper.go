package sweeper

import (
	"context"
	"time"

	"github.com/nanosprinkle/tipbot/internal/currency"
	"github.com/nanosprinkle/tipbot/internal/db"
	"github.com/nanosprinkle/tipbot/internal/types"
	"github.com/nanosprinkle/tipbot/internal/wallet"
	"github.com/nanosprinkle/tipbot/pkg/logger"
)

// Broadcaster pushes refund events to connected dashboard clients.
type Broadcaster interface {
	BroadcastRefundEvent(event types.RefundEvent)
}

// Sweeper periodically returns stale, unclaimed tips to their senders. Each
// pass queries tips past the grace period, settles the pending transfer into
// the recipient's account and sends the amount back. Tips are processed
// independently; a failing tip stays eligible and is retried next pass.
type Sweeper struct {
	db          db.DBService
	wallet      wallet.WalletService
	broadcaster Broadcaster

	gracePeriod time.Duration
	interval    time.Duration

	stop chan struct{}
	done chan struct{}
}

func New(database db.DBService, walletSvc wallet.WalletService, broadcaster Broadcaster, gracePeriod, interval time.Duration) *Sweeper {
	return &Sweeper{
		db:          database,
		wallet:      walletSvc,
		broadcaster: broadcaster,
		gracePeriod: gracePeriod,
		interval:    interval,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop is called.
func (s *Sweeper) Start(ctx context.Context) {
	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		logger.Info("Refund sweeper started (grace period %s, interval %s)", s.gracePeriod, s.interval)

		for {
			select {
			case <-ticker.C:
				s.RunOnce(ctx)
			case <-s.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the sweep loop and waits for an in-flight pass to finish.
func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.done
}

// RunOnce executes a single sweep pass. Exposed so tests can drive the
// sweeper synchronously against a seeded store.
func (s *Sweeper) RunOnce(ctx context.Context) {
	cutoff := time.Now().Add(-s.gracePeriod)

	tips, err := s.db.RefundableTips(ctx, cutoff)
	if err != nil {
		logger.Error("Refund sweep query failed: %v", err)
		return
	}

	if len(tips) == 0 {
		return
	}

	logger.Info("Sweeping %d unclaimed tips older than %s", len(tips), s.gracePeriod)

	refunded := 0
	for _, tip := range tips {
		if err := s.refund(ctx, tip); err != nil {
			// The tip stays eligible and is retried next pass.
			logger.Error("Failed to refund tip %s: %v", tip.BlockHash, err)
			continue
		}
		refunded++
	}

	logger.Info("Sweep complete: %d of %d tips refunded", refunded, len(tips))
}

func (s *Sweeper) refund(ctx context.Context, tip db.Tip) error {
	sender, err := s.db.GetUser(ctx, tip.SenderID)
	if err != nil {
		return err
	}
	recipient, err := s.db.GetUser(ctx, tip.RecipientID)
	if err != nil {
		return err
	}

	// Settle the pending transfer into the recipient's account first; funds
	// cannot be sent back out while they are still receivable.
	if _, err := s.wallet.Receive(ctx, recipient.Account, tip.BlockHash); err != nil {
		return err
	}

	amountRaw, err := currency.ToRaw(tip.Amount)
	if err != nil {
		return err
	}

	refundHash, err := s.wallet.Send(ctx, sender.Account, recipient.Account, amountRaw, "refund-"+tip.BlockHash)
	if err != nil {
		return err
	}

	updated, err := s.db.SetRefundHash(ctx, tip.BlockHash, refundHash)
	if err != nil {
		return err
	}
	if !updated {
		logger.Warn("Tip %s was already refunded, skipping record", tip.BlockHash)
		return nil
	}

	logger.Info("Refunded tip %s back to user %s (block %s)", tip.BlockHash, tip.SenderID, refundHash)

	if s.broadcaster != nil {
		s.broadcaster.BroadcastRefundEvent(types.RefundEvent{
			BlockHash:  tip.BlockHash,
			RefundHash: refundHash,
			Amount:     tip.Amount,
		})
	}

	return nil
}
