package progress

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/renameio/v2"
)

// DefaultLockTimeout bounds how long Update waits for the per-user lock.
const DefaultLockTimeout = 2 * time.Second

const lockRetryDelay = 20 * time.Millisecond

var safeUserID = regexp.MustCompile(`^[A-Za-z0-9_.@-]{1,128}$`)

// FileRepo stores one pretty-printed JSON file per user in a directory.
// Writers serialize on a lock file next to the record; records are replaced
// atomically so readers never see a partial write.
type FileRepo struct {
	dir         string
	lockTimeout time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

// FileOption configures a FileRepo.
type FileOption func(*FileRepo)

// WithLockTimeout sets the maximum wait for the per-user lock.
func WithLockTimeout(d time.Duration) FileOption {
	return func(r *FileRepo) {
		if d > 0 {
			r.lockTimeout = d
		}
	}
}

// WithClock overrides the clock used for updated_at.
func WithClock(now func() time.Time) FileOption {
	return func(r *FileRepo) { r.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) FileOption {
	return func(r *FileRepo) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewFileRepo creates the directory if needed and returns a repo rooted at it.
func NewFileRepo(dir string, opts ...FileOption) (*FileRepo, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create progress dir: %w", err)
	}
	r := &FileRepo{
		dir:         dir,
		lockTimeout: DefaultLockTimeout,
		now:         time.Now,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Path returns the record file for userID. Ids that are not safe file
// names are hex-encoded behind a "~" prefix, which safe names never carry.
func (r *FileRepo) Path(userID string) string {
	name := userID
	if !safeUserID.MatchString(name) || name == "." || name == ".." {
		name = "~" + hex.EncodeToString([]byte(userID))
	}
	return filepath.Join(r.dir, name+".json")
}

func (r *FileRepo) Load(ctx context.Context, userID string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.read(userID)
}

func (r *FileRepo) read(userID string) (*Record, error) {
	data, err := os.ReadFile(r.Path(userID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewRecord(), nil
		}
		return nil, fmt.Errorf("read progress record: %w", err)
	}
	return decodeRecord(data)
}

func (r *FileRepo) Update(ctx context.Context, userID string, fn UpdateFunc) error {
	path := r.Path(userID)
	lock := flock.New(path + ".lock")

	lockCtx, cancel := context.WithTimeout(ctx, r.lockTimeout)
	defer cancel()

	start := time.Now()
	locked, err := lock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil || !locked {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("lock progress record: %w", err)
		}
		return fmt.Errorf("%w after %s", ErrLockTimeout, r.lockTimeout)
	}
	defer lock.Unlock()

	if waited := time.Since(start); waited > 10*lockRetryDelay {
		r.logger.Debug("waited for progress lock", "user", userID, "waited", waited)
	}

	rec, err := r.read(userID)
	if err != nil {
		return err
	}
	write, err := applyUpdate(rec, fn)
	if err != nil || !write {
		return err
	}

	rec.UpdatedAt = r.now().UTC()
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write progress record: %w", err)
	}
	return nil
}
