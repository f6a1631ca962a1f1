package wallet

import "context"

// Balance holds an account's settled and pending funds in display units.
type Balance struct {
	Balance    string
	Receivable string
}

// WalletService defines the operations the bot needs from the wallet daemon.
// The daemon is treated as an atomic ledger service: calls are fallible and
// are never retried here.
type WalletService interface {
	CreateAccount(ctx context.Context) (string, error)
	Send(ctx context.Context, destination, source, amountRaw, id string) (string, error)
	Receive(ctx context.Context, account, blockHash string) (string, error)
	ReceiveAll(ctx context.Context, account string) error
	Balance(ctx context.Context, account string) (Balance, error)
}
