package bot

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/nanosprinkle/tipbot/internal/db"
	"github.com/nanosprinkle/tipbot/internal/intent"
	"github.com/nanosprinkle/tipbot/internal/types"
	"github.com/nanosprinkle/tipbot/internal/wallet"
)

// fakeDB is an in-memory DBService for pipeline tests. It tracks processed
// events, users and recorded tips the way the real store would.
type fakeDB struct {
	mu        sync.Mutex
	processed map[string]bool
	users     map[string]db.User
	tips      []db.Tip
	claims    []string

	recordTipErr error
	tipCount     int
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		processed: make(map[string]bool),
		users:     make(map[string]db.User),
	}
}

func (f *fakeDB) MarkEventProcessed(_ context.Context, eventID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.processed[eventID] {
		return false, nil
	}
	f.processed[eventID] = true
	return true, nil
}

func (f *fakeDB) GetOrCreateUser(ctx context.Context, userID string, provision func(context.Context) (string, error)) (db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user, ok := f.users[userID]; ok {
		return user, nil
	}
	account, err := provision(ctx)
	if err != nil {
		return db.User{}, err
	}
	user := db.User{ID: userID, Account: account}
	f.users[userID] = user
	return user, nil
}

func (f *fakeDB) GetUser(_ context.Context, userID string) (db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user, ok := f.users[userID]; ok {
		return user, nil
	}
	return db.User{}, stderrors.New("user not found")
}

func (f *fakeDB) UpdateUsername(_ context.Context, _, _ string) error { return nil }

func (f *fakeDB) CountTipsBySenderSince(_ context.Context, _ string, _ time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tipCount, nil
}

func (f *fakeDB) RecordTip(_ context.Context, tip db.Tip) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordTipErr != nil {
		return f.recordTipErr
	}
	f.tips = append(f.tips, tip)
	return nil
}

func (f *fakeDB) ClaimTips(_ context.Context, recipientID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claims = append(f.claims, recipientID)
	return 0, nil
}

func (f *fakeDB) RefundableTips(_ context.Context, _ time.Time) ([]db.Tip, error) {
	return nil, nil
}

func (f *fakeDB) SetRefundHash(_ context.Context, _, _ string) (bool, error) { return true, nil }

func (f *fakeDB) AddGiveawayParticipant(_ context.Context, _ db.GiveawayParticipant) (bool, error) {
	return true, nil
}

func (f *fakeDB) Close() error { return nil }

// fakeWallet counts calls and hands out deterministic accounts and hashes.
type fakeWallet struct {
	mu       sync.Mutex
	accounts []string
	created  int
	sends    []fakeSend

	sendErr error
	balance wallet.Balance
}

type fakeSend struct {
	destination string
	source      string
	amountRaw   string
	id          string
}

func (f *fakeWallet) CreateAccount(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account := f.accounts[f.created]
	f.created++
	return account, nil
}

func (f *fakeWallet) Send(_ context.Context, destination, source, amountRaw, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sends = append(f.sends, fakeSend{destination, source, amountRaw, id})
	return testBlockHash, nil
}

func (f *fakeWallet) Receive(_ context.Context, _, _ string) (string, error) {
	return testBlockHash, nil
}

func (f *fakeWallet) ReceiveAll(_ context.Context, _ string) error { return nil }

func (f *fakeWallet) Balance(_ context.Context, _ string) (wallet.Balance, error) {
	return f.balance, nil
}

// fakeParser returns a fixed intent without touching the extractor.
type fakeParser struct {
	intent *intent.TipIntent
	err    error
}

func (f *fakeParser) Parse(_ context.Context, _ string) (*intent.TipIntent, error) {
	return f.intent, f.err
}

// fakeDirectory records lookups so tests can assert the directory was or
// was not consulted.
type fakeDirectory struct {
	mu      sync.Mutex
	lookups []string
	user    types.DirectoryUser
	err     error
}

func (f *fakeDirectory) LookupHandle(_ context.Context, handle string) (types.DirectoryUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups = append(f.lookups, handle)
	return f.user, f.err
}

// fakePublisher captures posted replies and direct messages.
type fakePublisher struct {
	mu       sync.Mutex
	replies  []postedReply
	messages []string
}

type postedReply struct {
	eventID     string
	text        string
	excludedIDs []string
}

func (f *fakePublisher) PostReply(_ context.Context, inReplyToEventID, text string, excludedIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, postedReply{inReplyToEventID, text, excludedIDs})
	return nil
}

func (f *fakePublisher) SendMessage(_ context.Context, _, _ string, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, text)
	return nil
}

// staticComposer keeps confirmations deterministic in tests.
type staticComposer struct{}

func (staticComposer) Compose(_ context.Context, params ComposeParams) string {
	return "tipped " + params.Amount + " to @" + params.RecipientHandle
}
