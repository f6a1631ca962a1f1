package bot

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/nanosprinkle/tipbot/internal/intent"
	"github.com/nanosprinkle/tipbot/pkg/logger"
)

// ComposeParams carries everything a confirmation reply may reference.
type ComposeParams struct {
	Amount          string
	SenderHandle    string
	RecipientHandle string
	BlockHash       string
	EventText       string
}

// Composer builds the human-facing confirmation for a completed transfer.
type Composer interface {
	Compose(ctx context.Context, params ComposeParams) string
}

var confirmationTemplates = []string{
	"💸 Just sent %[1]s Nano to @%[2]s! Block Hash: %[3]s 🚀",
	"Done! %[1]s Nano has been sent to @%[2]s. Block Hash: %[3]s 👍",
	"✨ @%[2]s just got %[1]s Nano! Block Hash: %[3]s. Enjoy! 💫",
	"🚀 Tipped %[1]s Nano to @%[2]s! Block Hash: %[3]s. Nano on its way! 🌟",
	"💰 %[1]s Nano sent to @%[2]s with love! Block Hash: %[3]s 💙",
	"🎉 %[1]s Nano just landed in @%[2]s's wallet! Block Hash: %[3]s 🎊",
	"⚡️ Fast as lightning! %[1]s Nano sent to @%[2]s. Block Hash: %[3]s 🌩️",
	"💎 @%[2]s received %[1]s Nano! Block Hash: %[3]s. Stay shiny! 🌟",
	"💨 Just sent %[1]s Nano to @%[2]s! Block Hash: %[3]s. Fast and feeless!",
	"🎁 Tip sent! %[1]s Nano delivered to @%[2]s. Block Hash: %[3]s. Pay it forward!",
	"📬 You've got Nano! %[1]s Nano sent to @%[2]s. Block Hash: %[3]s.",
	"🎯 Direct hit! %[1]s Nano delivered to @%[2]s. Block Hash: %[3]s.",
	"🏁 Tip complete! %[1]s Nano sent to @%[2]s. Block Hash: %[3]s. Race you to the next tip!",
	"🌈 Sent %[1]s Nano to @%[2]s! Block Hash: %[3]s. Colorful and feeless!",
	"🔔 Tip alert! %[1]s Nano sent to @%[2]s. Block Hash: %[3]s.",
}

// TemplateComposer picks a random canned confirmation.
type TemplateComposer struct{}

func (TemplateComposer) Compose(_ context.Context, params ComposeParams) string {
	template := confirmationTemplates[rand.Intn(len(confirmationTemplates))]
	return fmt.Sprintf(template, params.Amount, params.RecipientHandle, params.BlockHash)
}

var nanoFacts = []string{
	"Nano transactions are fully confirmed in less than a second.",
	"Nano used to be called RaiBlocks, after the Rai stones used as currency on the Micronesian Island of Yap.",
	"Nano is one of the few cryptocurrencies that is fully distributed. No additional Nano can ever be created.",
	"Nano node versions are generally named after ancient coins (Lydia, Daric, Follis).",
	"Nano is extremely energy-efficient. 15 million Nano transactions use about as much electricity as one Bitcoin transaction.",
	"Nano uses a unique block-lattice architecture, where each account has its own blockchain.",
	"Nano transactions are feeless, making it a popular choice for micropayments and international transfers.",
	"Nano's consensus mechanism is called Open Representative Voting (ORV), allowing users to choose representatives to vote on their behalf.",
	"Nano's instant finality ensures that once a transaction is confirmed, it is irreversible and immutable.",
	"Nano's total supply of 133,248,297 tokens was fully distributed through faucets, with no ICO or pre-mine.",
	"Nano has no 'dust': even the smallest balance can always be moved because transfers are feeless.",
	"Nano's block-lattice system allows transactions to be asynchronous, making it extremely fast.",
}

// GenerativeComposer asks the chat model for a context-aware confirmation and
// falls back to a canned template when the call fails.
type GenerativeComposer struct {
	client   intent.ChatCompleter
	handle   string
	fallback TemplateComposer
}

func NewGenerativeComposer(client intent.ChatCompleter, handle string) *GenerativeComposer {
	return &GenerativeComposer{client: client, handle: handle}
}

func (c *GenerativeComposer) Compose(ctx context.Context, params ComposeParams) string {
	prompt := fmt.Sprintf(`You are a Nano (Nanocurrency) tip bot on X/Twitter.

Your name is @%[1]s. You like to sprinkle Nano around the world. When someone wants to make
a tip they mention you, for example, '@%[1]s !tip 5'. You will write a creative, fun reply for the user
after successfully tipping the amount.

Write a response after handling this tweet: '%[2]s' and executing a tip of amount %[3]s XNO from user @%[4]s to @%[5]s. Be sure to include the amount.

Here is a random fact about Nano: %[6]s

You can include a random fun Nano fact to make your response informative and interesting (include all details and be accurate).

Don't use a discourse marker or prefatory expression with a ':' such as "Fun fact:"

Be creative, unpredictable and fun.

Keep your response to one line. Don't use water emojis. Don't use the word "splash".`,
		c.handle, params.EventText, params.Amount, params.SenderHandle, params.RecipientHandle,
		nanoFacts[rand.Intn(len(nanoFacts))])

	reply, err := c.client.Complete(ctx, []intent.ChatMessage{
		{Role: "user", Content: prompt},
	})
	if err != nil || reply == "" {
		logger.Warn("Generative reply failed, falling back to template: %v", err)
		return c.fallback.Compose(ctx, params)
	}

	return reply
}
