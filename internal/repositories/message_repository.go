package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"anonchat-service/internal/models"
)

const messageColumns = `id, chat_id, sender_id, content, message_type, created_at`

// ListMessagesParams pages backwards from the most recent message.
type ListMessagesParams struct {
	Limit  int
	Before *time.Time
}

// MessageRepository defines interactions with the append-only message ledger.
type MessageRepository interface {
	AppendMessage(ctx context.Context, chatID, senderID int, content, messageType string) (models.Message, error)
	ListMessages(ctx context.Context, chatID int, params ListMessagesParams) ([]models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// AppendMessage inserts a ledger row and bumps the parent chat's message
// counter in one transaction. The counter gates reveal eligibility, so it
// must stay exact under concurrent senders.
func (r *MessageRepo) AppendMessage(ctx context.Context, chatID, senderID int, content, messageType string) (models.Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer tx.Rollback()

	var msg models.Message
	insert := fmt.Sprintf(`INSERT INTO anonymous_chat_messages (chat_id, sender_id, content, message_type)
        VALUES ($1, $2, $3, $4) RETURNING %s`, messageColumns)
	if err := tx.QueryRowxContext(ctx, insert, chatID, senderID, content, messageType).StructScan(&msg); err != nil {
		return models.Message{}, err
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE anonymous_chats SET message_count = message_count + 1, updated_at = NOW() WHERE id = $1`,
		chatID)
	if err != nil {
		return models.Message{}, err
	}
	ok, err := rowsAffected(res)
	if err != nil {
		return models.Message{}, err
	}
	if !ok {
		return models.Message{}, ErrChatNotFound
	}

	if err := tx.Commit(); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// ListMessages returns messages in ascending order for display. The query
// walks backwards from the cursor with a limit, then the page is reversed.
// Ties on created_at break on the sequence id.
func (r *MessageRepo) ListMessages(ctx context.Context, chatID int, params ListMessagesParams) ([]models.Message, error) {
	query := fmt.Sprintf(`SELECT %s FROM anonymous_chat_messages WHERE chat_id = $1`, messageColumns)
	args := []interface{}{chatID}

	if params.Before != nil {
		args = append(args, *params.Before)
		query += fmt.Sprintf(" AND created_at < $%d", len(args))
	}
	args = append(args, params.Limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", len(args))

	var msgs []models.Message
	if err := r.db.SelectContext(ctx, &msgs, query, args...); err != nil {
		return nil, err
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
