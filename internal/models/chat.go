package models

import "time"

// Chat lifecycle states.
const (
	StateAnonymous     = "anonymous"
	StateRevealPending = "reveal_pending"
	StateNormal        = "normal"
)

// AnonymousChat represents a pseudonymous chat between exactly two users.
// Slot assignment (user1/user2) is fixed at creation; the pair is stored
// normalized so one row exists per unordered pair.
type AnonymousChat struct {
	ID                 int        `db:"id" json:"id"`
	User1ID            int        `db:"user1_id" json:"user1_id"`
	User2ID            int        `db:"user2_id" json:"user2_id"`
	User1AnonymousName string     `db:"user1_anonymous_name" json:"user1_anonymous_name"`
	User2AnonymousName string     `db:"user2_anonymous_name" json:"user2_anonymous_name"`
	State              string     `db:"state" json:"state"`
	MessageCount       int        `db:"message_count" json:"message_count"`
	RevealRequestedBy  *int       `db:"reveal_requested_by" json:"reveal_requested_by,omitempty"`
	RevealRequestedAt  *time.Time `db:"reveal_requested_at" json:"reveal_requested_at,omitempty"`
	RevealedAt         *time.Time `db:"revealed_at" json:"revealed_at,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// IsParticipant reports whether the user occupies one of the two slots.
func (c AnonymousChat) IsParticipant(userID int) bool {
	return c.User1ID == userID || c.User2ID == userID
}

// PartnerID returns the other participant's id.
func (c AnonymousChat) PartnerID(userID int) int {
	if c.User1ID == userID {
		return c.User2ID
	}
	return c.User1ID
}

// AnonymousNameOf returns the pseudonym assigned to the given participant.
func (c AnonymousChat) AnonymousNameOf(userID int) string {
	if c.User1ID == userID {
		return c.User1AnonymousName
	}
	return c.User2AnonymousName
}

// IsRevealed reports whether both identities are visible.
func (c AnonymousChat) IsRevealed() bool {
	return c.State == StateNormal
}

// ChatView is the API shape of a chat relative to the calling participant.
// Partner real identity fields are populated only once the chat is revealed.
type ChatView struct {
	AnonymousChat
	MyAnonymousName      string `json:"my_anonymous_name"`
	PartnerID            int    `json:"partner_id"`
	PartnerAnonymousName string `json:"partner_anonymous_name"`
	PartnerDisplayName   string `json:"partner_display_name,omitempty"`
	PartnerAvatarURL     string `json:"partner_avatar_url,omitempty"`
	IsRevealed           bool   `json:"is_revealed"`
}

// ChatSummary is a list item: the caller-relative view plus the last
// message preview and the derived unread count.
type ChatSummary struct {
	ChatView
	LastMessage *Message `json:"last_message,omitempty"`
	UnreadCount int      `json:"unread_count"`
}
