package models

import "time"

// User holds the profile fields shown to a partner after a reveal.
type User struct {
	ID          int       `db:"id" json:"id"`
	DisplayName string    `db:"display_name" json:"display_name"`
	AvatarURL   string    `db:"avatar_url" json:"avatar_url,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ChatReadState is the per-(chat,user) bookmark used to derive unread counts.
type ChatReadState struct {
	ChatID     int       `db:"chat_id" json:"chat_id"`
	UserID     int       `db:"user_id" json:"user_id"`
	LastReadAt time.Time `db:"last_read_at" json:"last_read_at"`
}
