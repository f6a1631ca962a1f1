package bot

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nanosprinkle/tipbot/internal/alert"
	"github.com/nanosprinkle/tipbot/internal/currency"
	"github.com/nanosprinkle/tipbot/internal/db"
	"github.com/nanosprinkle/tipbot/internal/errors"
	"github.com/nanosprinkle/tipbot/internal/wallet"
	"github.com/nanosprinkle/tipbot/pkg/logger"
)

// TransferRequest describes a single fund movement between two users.
// Amount is in display units. EventID, when set, doubles as the wallet-side
// idempotency id and the tip's provenance marker.
type TransferRequest struct {
	Source      string
	Destination string
	Amount      string
	SenderID    string
	RecipientID string
	EventID     string
}

// Engine executes fund movements through the wallet daemon and records the
// resulting tip. The tip row is written only after the send succeeds, so the
// ledger never contains a transfer that did not happen.
type Engine struct {
	db      db.DBService
	wallet  wallet.WalletService
	alerter alert.Alerter
}

func NewEngine(database db.DBService, walletSvc wallet.WalletService, alerter alert.Alerter) *Engine {
	return &Engine{
		db:      database,
		wallet:  walletSvc,
		alerter: alerter,
	}
}

// Transfer validates the request, sends the funds and records the tip.
// Returns the block hash of the wallet transaction.
func (e *Engine) Transfer(ctx context.Context, req TransferRequest) (string, error) {
	if !wallet.CheckAddress(req.Source) || !wallet.CheckAddress(req.Destination) {
		return "", &errors.WalletError{Operation: "transfer", Err: fmt.Errorf("invalid account address")}
	}

	amountRaw, err := currency.ToRaw(req.Amount)
	if err != nil {
		return "", &errors.WalletError{Operation: "transfer", Err: err}
	}

	blockHash, err := e.wallet.Send(ctx, req.Destination, req.Source, amountRaw, req.EventID)
	if err != nil {
		return "", err
	}

	tip := db.Tip{
		BlockHash:   blockHash,
		Amount:      req.Amount,
		SenderID:    req.SenderID,
		RecipientID: req.RecipientID,
	}
	if req.EventID != "" {
		tip.SourceEventID = sql.NullString{String: req.EventID, Valid: true}
	}

	if err := e.db.RecordTip(ctx, tip); err != nil {
		// The funds moved but the ledger has no record of it. An operator
		// has to reconcile this by hand, so raise it loudly.
		reconcileErr := &errors.ReconciliationError{BlockHash: blockHash, Err: err}
		logger.LogError(reconcileErr)

		if alertErr := e.alerter.Send(ctx, alert.Alert{
			Type:    alert.TypeReconcileGap,
			Title:   "Tip sent but not recorded",
			Message: reconcileErr.Error(),
			Fields: map[string]string{
				"block_hash": blockHash,
				"amount":     req.Amount,
				"sender_id":  req.SenderID,
			},
		}); alertErr != nil {
			logger.Error("Failed to send reconciliation alert for block %s: %v", blockHash, alertErr)
		}

		return "", reconcileErr
	}

	logger.Info("Transferred %s from user %s to user %s (block %s)",
		req.Amount, req.SenderID, req.RecipientID, blockHash)

	return blockHash, nil
}
