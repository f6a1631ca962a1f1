package db

import (
	"context"
	"time"
)

// DBService interface defines the methods we need from the database
type DBService interface {
	MarkEventProcessed(ctx context.Context, eventID string) (bool, error)
	GetOrCreateUser(ctx context.Context, userID string, provision func(context.Context) (string, error)) (User, error)
	GetUser(ctx context.Context, userID string) (User, error)
	UpdateUsername(ctx context.Context, userID, username string) error
	CountTipsBySenderSince(ctx context.Context, senderID string, since time.Time) (int, error)
	RecordTip(ctx context.Context, tip Tip) error
	ClaimTips(ctx context.Context, recipientID string) (int64, error)
	RefundableTips(ctx context.Context, olderThan time.Time) ([]Tip, error)
	SetRefundHash(ctx context.Context, blockHash, refundHash string) (bool, error)
	AddGiveawayParticipant(ctx context.Context, participant GiveawayParticipant) (bool, error)
	Close() error
}
