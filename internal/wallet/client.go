package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nanosprinkle/tipbot/internal/currency"
	"github.com/nanosprinkle/tipbot/internal/errors"
	"github.com/nanosprinkle/tipbot/pkg/logger"
)

// rpcTimeout bounds every wallet daemon call so a stuck RPC cannot hang a
// pipeline task.
const rpcTimeout = 15 * time.Second

// Client talks to a Pippin wallet daemon over its JSON request/response
// protocol. A response carrying an "error" field is a failure regardless of
// the HTTP status code.
type Client struct {
	url    string
	wallet string
	client *http.Client
}

// NewClient creates a wallet client for the given daemon URL and wallet id.
func NewClient(url, wallet string) *Client {
	return &Client{
		url:    url,
		wallet: wallet,
		client: &http.Client{},
	}
}

type rpcError struct {
	Error string `json:"error"`
}

func (c *Client) rpc(ctx context.Context, operation string, request, response interface{}) error {
	body, err := json.Marshal(request)
	if err != nil {
		return &errors.WalletError{Operation: operation, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return &errors.WalletError{Operation: operation, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &errors.WalletError{Operation: operation, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &errors.WalletError{Operation: operation, Err: err}
	}

	var rpcErr rpcError
	if err := json.Unmarshal(respBody, &rpcErr); err != nil {
		return &errors.WalletError{
			Operation: operation,
			Err:       fmt.Errorf("RPC status %d: failed to parse JSON", resp.StatusCode),
		}
	}
	if rpcErr.Error != "" {
		logger.Error("Wallet daemon returned an error for %s: %s", operation, rpcErr.Error)
		return &errors.WalletError{Operation: operation, Err: fmt.Errorf("%s", rpcErr.Error)}
	}

	if resp.StatusCode != http.StatusOK {
		return &errors.WalletError{
			Operation: operation,
			Err:       fmt.Errorf("RPC status %d: %s", resp.StatusCode, string(respBody)),
		}
	}

	if err := json.Unmarshal(respBody, response); err != nil {
		return &errors.WalletError{Operation: operation, Err: err}
	}

	return nil
}

// CreateAccount provisions a new account inside the configured wallet.
func (c *Client) CreateAccount(ctx context.Context) (string, error) {
	request := map[string]string{
		"action": "account_create",
		"wallet": c.wallet,
	}

	var response struct {
		Account string `json:"account"`
	}
	if err := c.rpc(ctx, "account_create", request, &response); err != nil {
		return "", err
	}

	if !CheckAddress(response.Account) {
		return "", &errors.WalletError{
			Operation: "account_create",
			Err:       fmt.Errorf("daemon returned invalid account %q", response.Account),
		}
	}

	return response.Account, nil
}

// Send moves amountRaw base units from source to destination. The optional id
// makes the send idempotent on the daemon side.
func (c *Client) Send(ctx context.Context, destination, source, amountRaw, id string) (string, error) {
	if !CheckAddress(destination) || !CheckAddress(source) || !CheckRawAmount(amountRaw) {
		return "", &errors.WalletError{Operation: "send", Err: fmt.Errorf("invalid parameters")}
	}

	request := map[string]string{
		"action":      "send",
		"wallet":      c.wallet,
		"source":      source,
		"destination": destination,
		"amount":      amountRaw,
	}
	if id != "" {
		request["id"] = id
	}

	var response struct {
		Block string `json:"block"`
	}
	if err := c.rpc(ctx, "send", request, &response); err != nil {
		return "", err
	}

	if !CheckHash(response.Block) {
		return "", &errors.WalletError{
			Operation: "send",
			Err:       fmt.Errorf("daemon returned invalid block %q", response.Block),
		}
	}

	logger.Info("Sent %s raw to %s (block %s)", amountRaw, destination, response.Block)
	return response.Block, nil
}

// Receive settles a pending send block into the given account.
func (c *Client) Receive(ctx context.Context, account, blockHash string) (string, error) {
	if !CheckAddress(account) || !CheckHash(blockHash) {
		return "", &errors.WalletError{Operation: "receive", Err: fmt.Errorf("invalid parameters")}
	}

	request := map[string]string{
		"action":  "receive",
		"wallet":  c.wallet,
		"account": account,
		"block":   blockHash,
	}

	var response struct {
		Block string `json:"block"`
	}
	if err := c.rpc(ctx, "receive", request, &response); err != nil {
		return "", err
	}

	if !CheckHash(response.Block) {
		return "", &errors.WalletError{
			Operation: "receive",
			Err:       fmt.Errorf("daemon returned invalid block %q", response.Block),
		}
	}

	return response.Block, nil
}

// ReceiveAll settles every pending block on the given account.
func (c *Client) ReceiveAll(ctx context.Context, account string) error {
	if !CheckAddress(account) {
		return &errors.WalletError{Operation: "account_receive_all", Err: fmt.Errorf("invalid parameters")}
	}

	request := map[string]string{
		"action":  "account_receive_all",
		"wallet":  c.wallet,
		"account": account,
	}

	var response struct {
		Received int `json:"received"`
	}
	return c.rpc(ctx, "account_receive_all", request, &response)
}

// Balance returns the account's settled and receivable funds in display
// units.
func (c *Client) Balance(ctx context.Context, account string) (Balance, error) {
	request := map[string]interface{}{
		"action":                 "account_balance",
		"account":                account,
		"include_only_confirmed": false,
	}

	var response struct {
		Balance    string `json:"balance"`
		Receivable string `json:"receivable"`
	}
	if err := c.rpc(ctx, "account_balance", request, &response); err != nil {
		return Balance{}, err
	}

	if response.Balance == "" || response.Receivable == "" {
		return Balance{}, &errors.WalletError{
			Operation: "account_balance",
			Err:       fmt.Errorf("daemon returned incomplete balance"),
		}
	}

	balance, err := currency.FromRaw(response.Balance)
	if err != nil {
		return Balance{}, &errors.WalletError{Operation: "account_balance", Err: err}
	}
	receivable, err := currency.FromRaw(response.Receivable)
	if err != nil {
		return Balance{}, &errors.WalletError{Operation: "account_balance", Err: err}
	}

	return Balance{Balance: balance, Receivable: receivable}, nil
}
