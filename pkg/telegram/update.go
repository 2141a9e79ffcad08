package telegram

// Update is the webhook envelope Telegram posts to the bot. Only the fields
// the router consumes are decoded.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text,omitempty"`
}

type User struct {
	ID int64 `json:"id"`
}

type Chat struct {
	ID int64 `json:"id"`
}

// IsTextMessage reports whether the update carries a routable text message.
func (u *Update) IsTextMessage() bool {
	return u != nil && u.Message != nil && u.Message.From != nil && u.Message.Text != ""
}
