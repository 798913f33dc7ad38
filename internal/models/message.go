package models

import "time"

// Message types. Only "text" may be supplied by clients; the rest are
// written by the server when the chat lifecycle changes.
const (
	MessageTypeText           = "text"
	MessageTypeSystem         = "system"
	MessageTypeRevealRequest  = "reveal_request"
	MessageTypeRevealAccepted = "reveal_accepted"
	MessageTypeRevealDeclined = "reveal_declined"
)

// Message is one immutable ledger entry in an anonymous chat.
type Message struct {
	ID          int       `db:"id" json:"id"`
	ChatID      int       `db:"chat_id" json:"chat_id"`
	SenderID    int       `db:"sender_id" json:"sender_id"`
	Content     string    `db:"content" json:"content"`
	MessageType string    `db:"message_type" json:"message_type"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// MessageView annotates a message for the calling participant. Sender
// identity fields hold the pseudonym while the chat is anonymous and the
// real display name once revealed.
type MessageView struct {
	Message
	IsOwn           bool   `json:"is_own"`
	SenderName      string `json:"sender_name,omitempty"`
	SenderAvatarURL string `json:"sender_avatar_url,omitempty"`
}
