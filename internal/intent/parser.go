package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/nanosprinkle/tipbot/internal/errors"
	"github.com/nanosprinkle/tipbot/pkg/logger"
	"github.com/shopspring/decimal"
)

// TipIntent is a validated tip request extracted from event text. Recipient
// is the bare handle (no @) or "" when the tip goes to whomever the author
// replied to.
type TipIntent struct {
	Amount    string
	Recipient string
}

// TipParser extracts a tip intent from free text. Text that does not request
// a tip is rejected with errors.ErrNoTipIntent.
type TipParser interface {
	Parse(ctx context.Context, text string) (*TipIntent, error)
}

var tipTokenPattern = regexp.MustCompile(`!tip\s+(\d+(\.\d+)?)`)

// Parser parses explicit !tip tokens directly and falls back to the language
// model for natural-language requests.
type Parser struct {
	client ChatCompleter
	handle string
}

// NewParser creates a parser backed by the given completer. The handle is the
// bot's own mention handle, used in the extraction prompt.
func NewParser(client ChatCompleter, handle string) *Parser {
	return &Parser{client: client, handle: handle}
}

// Parse extracts a tip intent from text. Extractor output is untrusted and is
// schema-validated before use; malformed output or a call failure rejects the
// text.
func (p *Parser) Parse(ctx context.Context, text string) (*TipIntent, error) {
	if match := tipTokenPattern.FindStringSubmatch(text); match != nil {
		intent := &TipIntent{Amount: match[1]}
		if err := validate(intent); err != nil {
			return nil, err
		}
		return intent, nil
	}

	if p.client == nil {
		return nil, errors.ErrNoTipIntent
	}

	content, err := p.client.Complete(ctx, p.prompt(text))
	if err != nil {
		logger.Error("Intent extraction call failed: %v", err)
		return nil, errors.ErrNoTipIntent
	}

	return parseExtractorOutput(content)
}

// parseExtractorOutput validates the model's raw output against the expected
// schema: a JSON object with a numeric "amount" and an optional "@recipient".
func parseExtractorOutput(content string) (*TipIntent, error) {
	var data struct {
		Amount    string `json:"amount"`
		Recipient string `json:"recipient"`
	}
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		logger.Warn("Extractor returned unparsable output: %q", content)
		return nil, errors.ErrNoTipIntent
	}

	if data.Amount == "" {
		return nil, errors.ErrNoTipIntent
	}

	intent := &TipIntent{Amount: data.Amount}

	if data.Recipient != "" {
		if !strings.HasPrefix(data.Recipient, "@") {
			logger.Warn("Extractor returned malformed recipient: %q", data.Recipient)
			return nil, errors.ErrNoTipIntent
		}
		intent.Recipient = strings.TrimPrefix(data.Recipient, "@")
	}

	if err := validate(intent); err != nil {
		return nil, err
	}
	return intent, nil
}

func validate(intent *TipIntent) error {
	amount, err := decimal.NewFromString(intent.Amount)
	if err != nil || !amount.IsPositive() {
		return fmt.Errorf("invalid tip amount %q: %w", intent.Amount, errors.ErrNoTipIntent)
	}
	return nil
}

func (p *Parser) prompt(text string) []ChatMessage {
	system := fmt.Sprintf(`You are a Nano (Nanocurrency) tip bot on X/Twitter.
Your job is to allow people to send Nano to another X user by mentioning you (@%[1]s) and indicating
they want to make a tip, specifying the amount in Nano and optionally the recipient.

If the recipient is omitted the tip will default to being sent to whomever the user replied to.

You have been mentioned in a tweet. You need to first determine if they are trying to make a tip,
and if so, extract the amount and optionally the intended recipient of the tip.

You will be provided the full tweet text and your response must be valid, parsable JSON without markdown.

If the tweet is not explicitly requesting a tip to be executed then respond with an empty JSON object.

Only if the user is explicitly requesting that @%[1]s execute the tip then respond with a JSON object with
exactly 2 keys: 'amount' and 'recipient'.

The 'amount' is a numeric string.
'recipient' is either a string beginning with @, or null if the recipient was not specified.

DO NOT USE MARKDOWN. ONLY RESPOND WITH A JSON STRING.`, p.handle)

	return []ChatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: fmt.Sprintf(`@Dylan11951 @john @%s tip 0.001`, p.handle)},
		{Role: "assistant", Content: `{"amount":"0.001","recipient":null}`},
		{Role: "user", Content: fmt.Sprintf(`@john you use @%[1]s like this: "@%[1]s send 0.1 to @Nathan"`, p.handle)},
		{Role: "assistant", Content: `{}`},
		{Role: "user", Content: fmt.Sprintf(`Ciao @%s, manda un !tip di 3x a @ilgattolillo!`, p.handle)},
		{Role: "assistant", Content: `{"amount":"3","recipient":"@ilgattolillo"}`},
		{Role: "user", Content: text},
	}
}
