package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SessionRepo keeps at most one serialized quiz session per user.
type SessionRepo interface {
	// Get returns the stored session bytes, or nil if the user has none.
	Get(ctx context.Context, userID string) ([]byte, error)

	// Put stores data as the user's current session, replacing any other.
	Put(ctx context.Context, userID string, data []byte) error

	// Delete discards the user's session. Deleting a missing session is not
	// an error.
	Delete(ctx context.Context, userID string) error
}

type sessionRepo struct {
	db *sql.DB
}

func (r *sessionRepo) Get(ctx context.Context, userID string) ([]byte, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM sessions WHERE user_id = ?`, userID).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query session: %w", err)
	}
	return []byte(data), nil
}

func (r *sessionRepo) Put(ctx context.Context, userID string, data []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (user_id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		userID, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *sessionRepo) Delete(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
