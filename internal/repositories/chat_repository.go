package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"anonchat-service/internal/models"
)

// ErrChatNotFound is returned when a chat does not exist or the caller is
// not a participant. The two cases are deliberately indistinguishable so
// non-participants learn nothing about a chat's existence.
var ErrChatNotFound = errors.New("chat not found")

const chatColumns = `id, user1_id, user2_id, user1_anonymous_name, user2_anonymous_name,
    state, message_count, reveal_requested_by, reveal_requested_at, revealed_at, created_at, updated_at`

// ListChatsParams filters and pages the chat list.
type ListChatsParams struct {
	State  string
	Limit  int
	Cursor *time.Time
}

// ChatListItem is a chat row with the annotations computed at list time.
type ChatListItem struct {
	models.AnonymousChat
	UnreadCount         int        `db:"unread_count"`
	LastMessageID       *int       `db:"last_message_id"`
	LastMessageSenderID *int       `db:"last_message_sender_id"`
	LastMessageContent  *string    `db:"last_message_content"`
	LastMessageType     *string    `db:"last_message_type"`
	LastMessageAt       *time.Time `db:"last_message_at"`
}

// ChatRepository abstracts anonymous chat persistence.
type ChatRepository interface {
	CreateOrGetChat(ctx context.Context, userA, userB int, nameA, nameB string) (models.AnonymousChat, bool, error)
	GetChatForUser(ctx context.Context, chatID, userID int) (models.AnonymousChat, error)
	ListChats(ctx context.Context, userID int, params ListChatsParams) ([]ChatListItem, error)
	MarkRevealRequested(ctx context.Context, chatID, requesterID, threshold int) (bool, error)
	MarkRevealAccepted(ctx context.Context, chatID, responderID int) (bool, error)
	MarkRevealDeclined(ctx context.Context, chatID, responderID int) (bool, error)
	DeleteChatForUser(ctx context.Context, chatID, userID int) error
}

// ChatRepo is a sqlx implementation of ChatRepository.
type ChatRepo struct {
	db *sqlx.DB
}

// NewChatRepo constructs a ChatRepo.
func NewChatRepo(db *sqlx.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

// CreateOrGetChat inserts a chat for the unordered pair or returns the
// existing one. The slot order is normalized so the unique constraint on
// (user1_id, user2_id) makes creation race-safe: two concurrent starts
// still resolve to a single row. The second return value reports whether
// a new chat was created.
func (r *ChatRepo) CreateOrGetChat(ctx context.Context, userA, userB int, nameA, nameB string) (models.AnonymousChat, bool, error) {
	if userA == userB {
		return models.AnonymousChat{}, false, errors.New("cannot create chat with self")
	}

	user1, user2, name1, name2 := userA, userB, nameA, nameB
	if user1 > user2 {
		user1, user2 = user2, user1
		name1, name2 = name2, name1
	}

	var chat models.AnonymousChat
	insert := fmt.Sprintf(`INSERT INTO anonymous_chats (user1_id, user2_id, user1_anonymous_name, user2_anonymous_name)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (user1_id, user2_id) DO NOTHING
        RETURNING %s`, chatColumns)
	err := r.db.QueryRowxContext(ctx, insert, user1, user2, name1, name2).StructScan(&chat)
	if err == nil {
		return chat, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.AnonymousChat{}, false, err
	}

	// Conflict: another call won the insert, fetch the existing row.
	query := fmt.Sprintf(`SELECT %s FROM anonymous_chats WHERE user1_id=$1 AND user2_id=$2`, chatColumns)
	if err := r.db.GetContext(ctx, &chat, query, user1, user2); err != nil {
		return models.AnonymousChat{}, false, err
	}
	return chat, false, nil
}

// GetChatForUser fetches a chat scoped to a participant. Non-participants
// and missing chats both yield ErrChatNotFound.
func (r *ChatRepo) GetChatForUser(ctx context.Context, chatID, userID int) (models.AnonymousChat, error) {
	var chat models.AnonymousChat
	query := fmt.Sprintf(`SELECT %s FROM anonymous_chats WHERE id=$1 AND (user1_id=$2 OR user2_id=$2)`, chatColumns)
	err := r.db.GetContext(ctx, &chat, query, chatID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AnonymousChat{}, ErrChatNotFound
	}
	return chat, err
}

// ListChats returns the user's chats ordered by last activity, each with
// its unread count and last message preview. The unread count is derived
// from the read-state bookmark at query time, never cached.
func (r *ChatRepo) ListChats(ctx context.Context, userID int, params ListChatsParams) ([]ChatListItem, error) {
	query := `SELECT c.id, c.user1_id, c.user2_id, c.user1_anonymous_name, c.user2_anonymous_name,
            c.state, c.message_count, c.reveal_requested_by, c.reveal_requested_at, c.revealed_at,
            c.created_at, c.updated_at,
            (SELECT COUNT(*) FROM anonymous_chat_messages m
                WHERE m.chat_id = c.id
                AND m.created_at > COALESCE(rs.last_read_at, 'epoch'::timestamptz)) AS unread_count,
            lm.id AS last_message_id,
            lm.sender_id AS last_message_sender_id,
            lm.content AS last_message_content,
            lm.message_type AS last_message_type,
            lm.created_at AS last_message_at
        FROM anonymous_chats c
        LEFT JOIN chat_read_states rs ON rs.chat_id = c.id AND rs.user_id = $1
        LEFT JOIN LATERAL (
            SELECT id, sender_id, content, message_type, created_at
            FROM anonymous_chat_messages
            WHERE chat_id = c.id
            ORDER BY created_at DESC, id DESC
            LIMIT 1
        ) lm ON TRUE
        WHERE (c.user1_id = $1 OR c.user2_id = $1)`
	args := []interface{}{userID}

	if params.State != "" {
		args = append(args, params.State)
		query += fmt.Sprintf(" AND c.state = $%d", len(args))
	}
	if params.Cursor != nil {
		args = append(args, *params.Cursor)
		query += fmt.Sprintf(" AND c.updated_at < $%d", len(args))
	}
	args = append(args, params.Limit)
	query += fmt.Sprintf(" ORDER BY c.updated_at DESC LIMIT $%d", len(args))

	var items []ChatListItem
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, err
	}
	return items, nil
}

// MarkRevealRequested transitions anonymous -> reveal_pending with a
// conditional update. The state and threshold guards are re-checked in the
// WHERE clause so two concurrent requests cannot both transition; zero
// rows affected means the guard failed.
func (r *ChatRepo) MarkRevealRequested(ctx context.Context, chatID, requesterID, threshold int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE anonymous_chats
        SET state = 'reveal_pending', reveal_requested_by = $2, reveal_requested_at = NOW(), updated_at = NOW()
        WHERE id = $1 AND state = 'anonymous' AND message_count >= $3`,
		chatID, requesterID, threshold)
	if err != nil {
		return false, err
	}
	return rowsAffected(res)
}

// MarkRevealAccepted transitions reveal_pending -> normal. The responder
// must differ from the requester; the guard lives in the WHERE clause.
func (r *ChatRepo) MarkRevealAccepted(ctx context.Context, chatID, responderID int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE anonymous_chats
        SET state = 'normal', revealed_at = NOW(), updated_at = NOW()
        WHERE id = $1 AND state = 'reveal_pending'
        AND reveal_requested_by IS NOT NULL AND reveal_requested_by <> $2`,
		chatID, responderID)
	if err != nil {
		return false, err
	}
	return rowsAffected(res)
}

// MarkRevealDeclined transitions reveal_pending back to anonymous and
// clears the request metadata. The message count is left untouched so the
// pair stays eligible to request again.
func (r *ChatRepo) MarkRevealDeclined(ctx context.Context, chatID, responderID int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE anonymous_chats
        SET state = 'anonymous', reveal_requested_by = NULL, reveal_requested_at = NULL, updated_at = NOW()
        WHERE id = $1 AND state = 'reveal_pending'
        AND reveal_requested_by IS NOT NULL AND reveal_requested_by <> $2`,
		chatID, responderID)
	if err != nil {
		return false, err
	}
	return rowsAffected(res)
}

// DeleteChatForUser removes the chat if the caller is a participant.
// Messages and read states cascade at the schema level.
func (r *ChatRepo) DeleteChatForUser(ctx context.Context, chatID, userID int) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM anonymous_chats WHERE id = $1 AND (user1_id = $2 OR user2_id = $2)`,
		chatID, userID)
	if err != nil {
		return err
	}
	ok, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if !ok {
		return ErrChatNotFound
	}
	return nil
}

func rowsAffected(res sql.Result) (bool, error) {
	count, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
