package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/nanosprinkle/tipbot/internal/errors"
	"github.com/nanosprinkle/tipbot/pkg/logger"
)

// uniqueViolation is the PostgreSQL error code for unique-constraint failures.
const uniqueViolation = "23505"

// MarkEventProcessed records eventID in the idempotency ledger. It returns
// true when the event was newly marked; false means it was already handled
// and the caller must abort without side effects.
func (s *DBServiceImpl) MarkEventProcessed(ctx context.Context, eventID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO processed_events (event_id)
		VALUES ($1)
		ON CONFLICT (event_id) DO NOTHING
	`, eventID)
	if err != nil {
		return false, &errors.DatabaseError{Operation: "mark event processed", Err: err}
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, &errors.DatabaseError{Operation: "mark event processed", Err: err}
	}

	return rows > 0, nil
}

// GetOrCreateUser returns the user for userID, lazily provisioning a wallet
// account through provision when the user is new. Lookup and create run in a
// single transaction; a concurrent creator losing the unique-constraint race
// retries the lookup instead of erroring.
func (s *DBServiceImpl) GetOrCreateUser(ctx context.Context, userID string, provision func(context.Context) (string, error)) (User, error) {
	user, err := s.getOrCreateUserOnce(ctx, userID, provision)
	if err == nil {
		return user, nil
	}

	if pqErr, ok := unwrapPQError(err); ok && pqErr.Code == uniqueViolation {
		logger.Warn("Lost user provisioning race for %s, retrying lookup", userID)
		return s.GetUser(ctx, userID)
	}

	return User{}, err
}

func (s *DBServiceImpl) getOrCreateUserOnce(ctx context.Context, userID string, provision func(context.Context) (string, error)) (User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return User{}, &errors.DatabaseError{Operation: "begin get-or-create user", Err: err}
	}
	defer tx.Rollback()

	var user User
	err = tx.QueryRowContext(ctx,
		"SELECT id, account, username FROM users WHERE id = $1", userID).
		Scan(&user.ID, &user.Account, &user.Username)
	if err == nil {
		return user, tx.Commit()
	}
	if err != sql.ErrNoRows {
		return User{}, &errors.DatabaseError{Operation: "lookup user", Err: err}
	}

	account, err := provision(ctx)
	if err != nil {
		return User{}, fmt.Errorf("failed to provision wallet account: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO users (id, account) VALUES ($1, $2)", userID, account)
	if err != nil {
		return User{}, &errors.DatabaseError{Operation: "create user", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return User{}, &errors.DatabaseError{Operation: "commit get-or-create user", Err: err}
	}

	logger.Info("Provisioned account %s for user %s", account, userID)
	return User{ID: userID, Account: account}, nil
}

func unwrapPQError(err error) (*pq.Error, bool) {
	for err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			return pqErr, true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = unwrapper.Unwrap()
	}
	return nil, false
}

// GetUser retrieves a user by their platform id
func (s *DBServiceImpl) GetUser(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx,
		"SELECT id, account, username FROM users WHERE id = $1", userID).
		Scan(&user.ID, &user.Account, &user.Username)
	if err != nil {
		if err == sql.ErrNoRows {
			return User{}, &errors.NotFoundError{Resource: "user", Identifier: userID}
		}
		return User{}, &errors.DatabaseError{Operation: "get user", Err: err}
	}
	return user, nil
}

// UpdateUsername is a best-effort upsert of the display name; callers never
// block the main flow on its failure.
func (s *DBServiceImpl) UpdateUsername(ctx context.Context, userID, username string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE users SET username = $2 WHERE id = $1", userID, username)
	if err != nil {
		return &errors.DatabaseError{Operation: "update username", Err: err}
	}
	return nil
}

// CountTipsBySenderSince counts tips sent by senderID after since. The tip
// rate cap is counted from the store so it survives restarts.
func (s *DBServiceImpl) CountTipsBySenderSince(ctx context.Context, senderID string, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM tips
		WHERE sender_user_id = $1 AND created_at >= $2
	`, senderID, since).Scan(&count)
	if err != nil {
		return 0, &errors.DatabaseError{Operation: "count sender tips", Err: err}
	}
	return count, nil
}

// RecordTip persists a completed transfer. It must only be called after the
// wallet send succeeded.
func (s *DBServiceImpl) RecordTip(ctx context.Context, tip Tip) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tips (block_hash, amount, sender_user_id, recipient_user_id, source_event_id, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`, tip.BlockHash, tip.Amount, tip.SenderID, tip.RecipientID, tip.SourceEventID)
	if err != nil {
		return &errors.DatabaseError{Operation: "record tip", Err: err}
	}
	return nil
}

// ClaimTips flags all of a recipient's pending tips as acknowledged,
// permanently excluding them from refund sweeps. Returns the number of tips
// claimed. Tips already swept keep their refund.
func (s *DBServiceImpl) ClaimTips(ctx context.Context, recipientID string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE tips SET claimed = true
		WHERE recipient_user_id = $1 AND claimed = false AND refund_hash IS NULL
	`, recipientID)
	if err != nil {
		return 0, &errors.DatabaseError{Operation: "claim tips", Err: err}
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, &errors.DatabaseError{Operation: "claim tips", Err: err}
	}
	return rows, nil
}

// RefundableTips returns unclaimed, unrefunded tips created before olderThan.
func (s *DBServiceImpl) RefundableTips(ctx context.Context, olderThan time.Time) ([]Tip, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT block_hash, amount, sender_user_id, recipient_user_id, source_event_id, created_at, claimed, refund_hash
		FROM tips
		WHERE claimed = false AND refund_hash IS NULL AND created_at < $1
		ORDER BY created_at
	`, olderThan)
	if err != nil {
		return nil, &errors.DatabaseError{Operation: "query refundable tips", Err: err}
	}
	defer rows.Close()

	var tips []Tip
	for rows.Next() {
		var tip Tip
		err := rows.Scan(&tip.BlockHash, &tip.Amount, &tip.SenderID, &tip.RecipientID,
			&tip.SourceEventID, &tip.CreatedAt, &tip.Claimed, &tip.RefundHash)
		if err != nil {
			return nil, &errors.DatabaseError{Operation: "scan refundable tip", Err: err}
		}
		tips = append(tips, tip)
	}
	if err := rows.Err(); err != nil {
		return nil, &errors.DatabaseError{Operation: "iterate refundable tips", Err: err}
	}

	return tips, nil
}

// SetRefundHash records the compensating transfer for a tip. The refund hash
// is write-once: it returns false when the tip already has one.
func (s *DBServiceImpl) SetRefundHash(ctx context.Context, blockHash, refundHash string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE tips SET refund_hash = $2
		WHERE block_hash = $1 AND refund_hash IS NULL
	`, blockHash, refundHash)
	if err != nil {
		return false, &errors.DatabaseError{Operation: "set refund hash", Err: err}
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, &errors.DatabaseError{Operation: "set refund hash", Err: err}
	}

	return rows > 0, nil
}

// AddGiveawayParticipant records a participation entry. It returns false when
// the source event was already registered.
func (s *DBServiceImpl) AddGiveawayParticipant(ctx context.Context, participant GiveawayParticipant) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO giveaway_participants (source_event_id, user_id, giveaway_id, address)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (source_event_id) DO NOTHING
	`, participant.SourceEventID, participant.UserID, participant.GiveawayID, participant.Address)
	if err != nil {
		return false, &errors.DatabaseError{Operation: "add giveaway participant", Err: err}
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, &errors.DatabaseError{Operation: "add giveaway participant", Err: err}
	}

	return rows > 0, nil
}
