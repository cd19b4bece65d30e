package progress

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const progressSchema = `
CREATE TABLE IF NOT EXISTS progress (
	user_id    TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

// SQLRepo stores records as JSON rows in a SQLite database. Updates run in
// an immediate transaction, so concurrent writers queue on the database
// write lock for at most the lock timeout.
type SQLRepo struct {
	db          *sql.DB
	lockTimeout time.Duration
	now         func() time.Time
}

// SQLOption configures a SQLRepo.
type SQLOption func(*SQLRepo)

// WithBusyTimeout sets the maximum wait for the database write lock.
func WithBusyTimeout(d time.Duration) SQLOption {
	return func(r *SQLRepo) {
		if d > 0 {
			r.lockTimeout = d
		}
	}
}

// NewSQLRepo ensures the progress table exists.
func NewSQLRepo(ctx context.Context, db *sql.DB, opts ...SQLOption) (*SQLRepo, error) {
	if _, err := db.ExecContext(ctx, progressSchema); err != nil {
		return nil, fmt.Errorf("create progress table: %w", err)
	}
	r := &SQLRepo{db: db, lockTimeout: DefaultLockTimeout, now: time.Now}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

func (r *SQLRepo) Load(ctx context.Context, userID string) (*Record, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM progress WHERE user_id = ?`, userID).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return NewRecord(), nil
		}
		return nil, fmt.Errorf("query progress record: %w", err)
	}
	return decodeRecord([]byte(data))
}

func (r *SQLRepo) Update(ctx context.Context, userID string, fn UpdateFunc) (err error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	busy := fmt.Sprintf("PRAGMA busy_timeout = %d", r.lockTimeout.Milliseconds())
	if _, err := conn.ExecContext(ctx, busy); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}

	// database/sql has no way to request an immediate transaction, so
	// drive it by hand on a pinned connection.
	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if isBusy(err) {
			return fmt.Errorf("%w after %s: %w", ErrLockTimeout, r.lockTimeout, err)
		}
		return fmt.Errorf("begin progress update: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			if _, rbErr := conn.ExecContext(context.Background(), "ROLLBACK"); rbErr != nil && err == nil {
				err = fmt.Errorf("rollback: %w", rbErr)
			}
		}
	}()

	var data string
	err = conn.QueryRowContext(ctx, `SELECT data FROM progress WHERE user_id = ?`, userID).Scan(&data)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("query progress record: %w", err)
	}
	rec, err := decodeRecord([]byte(data))
	if err != nil {
		return err
	}

	write, err := applyUpdate(rec, fn)
	if err != nil || !write {
		return err
	}

	rec.UpdatedAt = r.now().UTC()
	encoded, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	_, err = conn.ExecContext(ctx, `
		INSERT INTO progress (user_id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		userID, string(encoded), rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save progress record: %w", err)
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("commit progress record: %w", err)
	}
	committed = true
	return nil
}

// isBusy reports whether err is SQLITE_BUSY or one of its extended codes.
func isBusy(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	return serr.Code()&0xff == sqlite3.SQLITE_BUSY
}
