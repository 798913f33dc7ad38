package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// ReadStateRepository tracks per-user read bookmarks.
type ReadStateRepository interface {
	MarkRead(ctx context.Context, chatID, userID int) error
}

// ReadStateRepo is a sqlx-backed repository.
type ReadStateRepo struct {
	db *sqlx.DB
}

// NewReadStateRepo constructs ReadStateRepo.
func NewReadStateRepo(db *sqlx.DB) *ReadStateRepo {
	return &ReadStateRepo{db: db}
}

// MarkRead upserts the bookmark to now. Idempotent; calling twice simply
// moves the bookmark forward.
func (r *ReadStateRepo) MarkRead(ctx context.Context, chatID, userID int) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO chat_read_states (chat_id, user_id, last_read_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (chat_id, user_id) DO UPDATE SET last_read_at = NOW()`,
		chatID, userID)
	return err
}
