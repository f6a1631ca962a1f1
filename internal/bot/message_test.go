package bot

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nanosprinkle/tipbot/internal/types"
	"github.com/nanosprinkle/tipbot/internal/wallet"
)

func directMessage(text string) types.MessageEvent {
	return types.MessageEvent{
		ID:             "msg-1",
		Text:           text,
		SenderID:       "42",
		SenderHandle:   "alice",
		ConversationID: "conv-42",
	}
}

func TestHandleMessageAccount(t *testing.T) {
	f := newTestFixture(t, &fakeParser{})

	err := f.service.HandleMessage(context.Background(), directMessage("!account"))
	require.NoError(t, err)

	require.Len(t, f.publisher.messages, 1)
	assert.Equal(t, senderAccount, f.publisher.messages[0])
}

func TestHandleMessageBalance(t *testing.T) {
	f := newTestFixture(t, &fakeParser{})
	f.wallet.balance = wallet.Balance{Balance: "12.5", Receivable: "0"}

	err := f.service.HandleMessage(context.Background(), directMessage("!balance"))
	require.NoError(t, err)

	require.Len(t, f.publisher.messages, 1)
	assert.Equal(t, "12.5 Ӿ", f.publisher.messages[0])
}

func TestHandleMessageBalanceWithReceivable(t *testing.T) {
	f := newTestFixture(t, &fakeParser{})
	f.wallet.balance = wallet.Balance{Balance: "12.5", Receivable: "3"}

	err := f.service.HandleMessage(context.Background(), directMessage("!balance"))
	require.NoError(t, err)

	require.Len(t, f.publisher.messages, 1)
	assert.Equal(t, "12.5 Ӿ (+3 Ӿ receivable)", f.publisher.messages[0])
}

func TestHandleMessageSend(t *testing.T) {
	f := newTestFixture(t, &fakeParser{})

	err := f.service.HandleMessage(context.Background(),
		directMessage("!send "+recipientAccount+" 10"))
	require.NoError(t, err)

	require.Len(t, f.wallet.sends, 1)
	assert.Equal(t, recipientAccount, f.wallet.sends[0].destination)
	assert.Equal(t, senderAccount, f.wallet.sends[0].source)
	assert.Equal(t, "10000000000000000000000000000000", f.wallet.sends[0].amountRaw)
	assert.Equal(t, "msg-1", f.wallet.sends[0].id)

	require.Len(t, f.publisher.messages, 1)
	assert.Equal(t, fmt.Sprintf("Send successful. Block hash: %s", testBlockHash), f.publisher.messages[0])
}

func TestHandleMessageSendInvalidAddress(t *testing.T) {
	f := newTestFixture(t, &fakeParser{})

	// Wrong length, fails the address check before any wallet call.
	err := f.service.HandleMessage(context.Background(), directMessage("!send nano_1abc 10"))
	require.NoError(t, err)

	assert.Empty(t, f.wallet.sends, "malformed sends must not move funds")
	require.Len(t, f.publisher.messages, 1)
	assert.Equal(t, sendUsage, f.publisher.messages[0])
}

func TestHandleMessageSendUsageErrors(t *testing.T) {
	testCases := []struct {
		name string
		text string
	}{
		{name: "Missing amount", text: "!send " + recipientAccount},
		{name: "Extra words", text: "!send " + recipientAccount + " 10 please"},
		{name: "Bad amount", text: "!send " + recipientAccount + " lots"},
		{name: "Negative amount", text: "!send " + recipientAccount + " -1"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newTestFixture(t, &fakeParser{})

			err := f.service.HandleMessage(context.Background(), directMessage(tc.text))
			require.NoError(t, err)

			assert.Empty(t, f.wallet.sends)
			require.Len(t, f.publisher.messages, 1)
			assert.Equal(t, sendUsage, f.publisher.messages[0])
		})
	}
}

func TestHandleMessageGiveaway(t *testing.T) {
	f := newTestFixture(t, &fakeParser{})

	err := f.service.HandleMessage(context.Background(),
		directMessage("!giveaway summer2024 "+recipientAccount))
	require.NoError(t, err)

	require.Len(t, f.publisher.messages, 1)
	assert.Contains(t, f.publisher.messages[0], "summer2024")
}

func TestHandleMessageGiveawayBadAddress(t *testing.T) {
	f := newTestFixture(t, &fakeParser{})

	err := f.service.HandleMessage(context.Background(), directMessage("!giveaway summer2024 nano_1abc"))
	require.NoError(t, err)

	require.Len(t, f.publisher.messages, 1)
	assert.Equal(t, giveawayUsage, f.publisher.messages[0])
}

func TestHandleMessageClaimsIncomingTips(t *testing.T) {
	f := newTestFixture(t, &fakeParser{})

	err := f.service.HandleMessage(context.Background(), directMessage("!account"))
	require.NoError(t, err)

	// Any DM interaction acknowledges the sender's wallet.
	assert.Equal(t, []string{"42"}, f.db.claims)
}

func TestHandleMessageUnknownCommandIgnored(t *testing.T) {
	f := newTestFixture(t, &fakeParser{})

	err := f.service.HandleMessage(context.Background(), directMessage("hello there"))
	require.NoError(t, err)
	assert.Empty(t, f.publisher.messages)
}

func TestHandleMessageDuplicateIgnored(t *testing.T) {
	f := newTestFixture(t, &fakeParser{})

	require.NoError(t, f.service.HandleMessage(context.Background(), directMessage("!account")))

	err := f.service.HandleMessage(context.Background(), directMessage("!account"))
	assert.Error(t, err)
	assert.Len(t, f.publisher.messages, 1)
}

func TestHandleMessageRateLimitIsVisible(t *testing.T) {
	f := newTestFixture(t, &fakeParser{})

	for i := 0; i < 3; i++ {
		event := directMessage("!account")
		event.ID = fmt.Sprintf("msg-%d", i)
		require.NoError(t, f.service.HandleMessage(context.Background(), event))
	}

	event := directMessage("!account")
	event.ID = "msg-over"
	err := f.service.HandleMessage(context.Background(), event)
	assert.Error(t, err)

	require.Len(t, f.publisher.messages, 4)
	assert.Equal(t, rateLimitedMessage, f.publisher.messages[3])
}
