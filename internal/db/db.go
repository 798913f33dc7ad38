package db

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect opens the database connection and runs migrations.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id SERIAL PRIMARY KEY,
            display_name TEXT NOT NULL,
            avatar_url TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		// Participant slots are normalized (user1_id < user2_id) so the
		// unique constraint covers the unordered pair.
		`CREATE TABLE IF NOT EXISTS anonymous_chats (
            id SERIAL PRIMARY KEY,
            user1_id INT NOT NULL,
            user2_id INT NOT NULL,
            user1_anonymous_name TEXT NOT NULL,
            user2_anonymous_name TEXT NOT NULL,
            state TEXT NOT NULL DEFAULT 'anonymous',
            message_count INT NOT NULL DEFAULT 0,
            reveal_requested_by INT,
            reveal_requested_at TIMESTAMPTZ,
            revealed_at TIMESTAMPTZ,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            CHECK (user1_id < user2_id),
            UNIQUE (user1_id, user2_id)
        );`,
		`CREATE TABLE IF NOT EXISTS anonymous_chat_messages (
            id SERIAL PRIMARY KEY,
            chat_id INT NOT NULL REFERENCES anonymous_chats(id) ON DELETE CASCADE,
            sender_id INT NOT NULL,
            content TEXT NOT NULL,
            message_type TEXT NOT NULL DEFAULT 'text',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE INDEX IF NOT EXISTS idx_anonymous_chat_messages_chat_created
            ON anonymous_chat_messages (chat_id, created_at);`,
		`CREATE TABLE IF NOT EXISTS chat_read_states (
            chat_id INT NOT NULL REFERENCES anonymous_chats(id) ON DELETE CASCADE,
            user_id INT NOT NULL,
            last_read_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            PRIMARY KEY (chat_id, user_id)
        );`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	log.Println("database migrations applied")
	return nil
}
