package errors

import (
	"errors"
	"fmt"
)

// Control-flow sentinels for the tip pipeline. These are expected conditions,
// not failures: callers abort the current event and move on.
var (
	ErrDuplicateEvent        = errors.New("event already processed")
	ErrNoTipIntent           = errors.New("no tip intent found")
	ErrRateLimited           = errors.New("rate limit reached")
	ErrRecipientUnresolvable = errors.New("recipient could not be resolved")
)

type DatabaseError struct {
	Operation string
	Err       error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database error during %s: %v", e.Operation, e.Err)
}

func (e *DatabaseError) Unwrap() error { return e.Err }

type NotFoundError struct {
	Resource   string
	Identifier string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Identifier)
}

type WalletError struct {
	Operation string
	Err       error
}

func (e *WalletError) Error() string {
	return fmt.Sprintf("wallet error during %s: %v", e.Operation, e.Err)
}

func (e *WalletError) Unwrap() error { return e.Err }

type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s - %v", e.StatusCode, e.Message, e.Err)
}

// ReconciliationError means a wallet send succeeded but recording the tip
// failed. The ledger is missing a transfer that actually happened, so this
// must be alerted on, never swallowed.
type ReconciliationError struct {
	BlockHash string
	Err       error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("tip %s sent but not recorded: %v", e.BlockHash, e.Err)
}

func (e *ReconciliationError) Unwrap() error { return e.Err }

type WebSocketError struct {
	Operation string
	Err       error
}

func (e *WebSocketError) Error() string {
	return fmt.Sprintf("websocket error during %s: %v", e.Operation, e.Err)
}

func (e *WebSocketError) Unwrap() error { return e.Err }

type PublisherError struct {
	Operation string
	Err       error
}

func (e *PublisherError) Error() string {
	return fmt.Sprintf("publisher error during %s: %v", e.Operation, e.Err)
}
