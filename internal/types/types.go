package types

// MentionedUser is a user referenced inside a mention event.
type MentionedUser struct {
	ID     string `json:"id_str"`
	Handle string `json:"screen_name"`
}

// MentionEvent is the normalized record the feed source delivers for a public
// post that mentions the bot. Field names follow the scraper payload.
type MentionEvent struct {
	ID              string          `json:"id_str"`
	FullText        string          `json:"full_text"`
	AuthorID        string          `json:"user_id_str"`
	AuthorHandle    string          `json:"user_screen_name"`
	Mentions        []MentionedUser `json:"user_mentions"`
	ReplyToUserID   string          `json:"in_reply_to_user_id_str"`
	ReplyToHandle   string          `json:"in_reply_to_screen_name"`
	ReplyToStatusID string          `json:"in_reply_to_status_id_str"`
}

// MessageEvent is a direct message delivered by the feed source.
type MessageEvent struct {
	ID             string `json:"id"`
	Text           string `json:"text"`
	SenderID       string `json:"sender_id"`
	SenderHandle   string `json:"sender_screen_name"`
	ConversationID string `json:"conversation_id"`
}

// DirectoryUser is the result of a handle lookup against the platform
// directory.
type DirectoryUser struct {
	ID     string `json:"id"`
	Handle string `json:"handle"`
}

// TipEvent is broadcast to dashboard clients after a completed transfer.
type TipEvent struct {
	BlockHash       string `json:"block_hash"`
	Amount          string `json:"amount"`
	SenderHandle    string `json:"sender"`
	RecipientHandle string `json:"recipient"`
}

// RefundEvent is broadcast to dashboard clients when a stale tip is swept
// back to its sender.
type RefundEvent struct {
	BlockHash  string `json:"block_hash"`
	RefundHash string `json:"refund_hash"`
	Amount     string `json:"amount"`
}
