package db

import (
	"database/sql"
	"time"
)

// User maps a platform identity to a wallet account. The account is assigned
// once at provisioning; the username is best-effort and updated on each
// observed interaction.
type User struct {
	ID       string
	Account  string
	Username sql.NullString
}

// Tip is a completed transfer, keyed by the wallet's block hash. Rows are
// immutable except for Claimed and RefundHash.
type Tip struct {
	BlockHash     string
	Amount        string
	SenderID      string
	RecipientID   string
	SourceEventID sql.NullString
	CreatedAt     time.Time
	Claimed       bool
	RefundHash    sql.NullString
}

// GiveawayParticipant is a write-once participation record, keyed by the
// source event so repeated deliveries cannot double-enter a user.
type GiveawayParticipant struct {
	SourceEventID string
	UserID        string
	GiveawayID    string
	Address       string
}
