package progress

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/examkit/internal/store"
)

func newFileRepo(t *testing.T, opts ...FileOption) *FileRepo {
	t.Helper()
	r, err := NewFileRepo(filepath.Join(t.TempDir(), "progress"), opts...)
	require.NoError(t, err)
	return r
}

func newSQLRepo(t *testing.T, opts ...SQLOption) *SQLRepo {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "examkit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	r, err := NewSQLRepo(context.Background(), st.DB(), opts...)
	require.NoError(t, err)
	return r
}

func eachRepo(t *testing.T, fn func(t *testing.T, repo Repo)) {
	t.Run("file", func(t *testing.T) { fn(t, newFileRepo(t)) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newSQLRepo(t)) })
}

func TestRepo_LoadMissingIsEmpty(t *testing.T) {
	eachRepo(t, func(t *testing.T, repo Repo) {
		rec, err := repo.Load(context.Background(), "nobody")
		require.NoError(t, err)
		assert.Empty(t, rec.PassedTests)
		assert.Empty(t, rec.PassedItems)
		assert.Empty(t, rec.Mistakes)
	})
}

func TestRepo_UpdateRoundTrip(t *testing.T) {
	eachRepo(t, func(t *testing.T, repo Repo) {
		ctx := context.Background()

		err := repo.Update(ctx, "u1", func(rec *Record) error {
			rec.MarkTestPassed(5)
			rec.AddMistakes(0, []int{9, 7})
			return nil
		})
		require.NoError(t, err)

		rec, err := repo.Load(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, []int{5}, rec.PassedTests)
		assert.Equal(t, []int{7, 9}, rec.Mistakes[0])
		assert.False(t, rec.UpdatedAt.IsZero())

		other, err := repo.Load(ctx, "u2")
		require.NoError(t, err)
		assert.Empty(t, other.PassedTests)
	})
}

func TestRepo_UpdateErrorDoesNotWrite(t *testing.T) {
	eachRepo(t, func(t *testing.T, repo Repo) {
		ctx := context.Background()
		boom := errors.New("boom")

		err := repo.Update(ctx, "u1", func(rec *Record) error {
			rec.MarkTestPassed(1)
			return boom
		})
		require.ErrorIs(t, err, boom)

		err = repo.Update(ctx, "u1", func(rec *Record) error {
			rec.MarkTestPassed(2)
			return ErrNoChange
		})
		require.NoError(t, err)

		rec, err := repo.Load(ctx, "u1")
		require.NoError(t, err)
		assert.Empty(t, rec.PassedTests)
	})
}

func TestRepo_ConcurrentUpdatesKeepAllWrites(t *testing.T) {
	eachRepo(t, func(t *testing.T, repo Repo) {
		ctx := context.Background()
		const writers = 16

		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for i := 1; i <= writers; i++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				errs <- repo.Update(ctx, "shared", func(rec *Record) error {
					rec.AddMistakes(0, []int{id})
					rec.MarkTestPassed(id)
					return nil
				})
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		rec, err := repo.Load(ctx, "shared")
		require.NoError(t, err)
		assert.Len(t, rec.Mistakes[0], writers)
		assert.Len(t, rec.PassedTests, writers)
	})
}

func TestFileRepo_LockTimeout(t *testing.T) {
	repo := newFileRepo(t, WithLockTimeout(100*time.Millisecond))

	held := flock.New(repo.Path("u1") + ".lock")
	locked, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer held.Unlock()

	start := time.Now()
	err = repo.Update(context.Background(), "u1", func(rec *Record) error { return nil })
	require.ErrorIs(t, err, ErrLockTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSQLRepo_LockTimeout(t *testing.T) {
	repo := newSQLRepo(t, WithBusyTimeout(100*time.Millisecond))
	ctx := context.Background()

	holder, err := repo.db.Conn(ctx)
	require.NoError(t, err)
	defer holder.Close()
	_, err = holder.ExecContext(ctx, "BEGIN IMMEDIATE")
	require.NoError(t, err)
	defer holder.ExecContext(ctx, "ROLLBACK")

	start := time.Now()
	err = repo.Update(ctx, "u1", func(rec *Record) error { return nil })
	require.ErrorIs(t, err, ErrLockTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSQLRepo_CancelledContextIsNotLockTimeout(t *testing.T) {
	repo := newSQLRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := repo.Update(ctx, "u1", func(rec *Record) error { return nil })
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, ErrLockTimeout))
}

func TestFileRepo_WritesHumanReadableJSON(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := newFileRepo(t, WithClock(func() time.Time { return fixed }))

	require.NoError(t, repo.Update(context.Background(), "u1", func(rec *Record) error {
		rec.MarkTestPassed(5)
		return nil
	}))

	data, err := os.ReadFile(repo.Path("u1"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"passed_tests\": [\n    5\n  ]")
	assert.Contains(t, string(data), `"updated_at": "2026-03-01T12:00:00Z"`)

	entries, err := os.ReadDir(filepath.Dir(repo.Path("u1")))
	require.NoError(t, err)
	for _, e := range entries {
		assert.Contains(t, []string{"u1.json", "u1.json.lock"}, e.Name(), "no temp files left behind")
	}
}

func TestFileRepo_PathEscapesUnsafeIDs(t *testing.T) {
	repo := newFileRepo(t)
	dir := filepath.Dir(repo.Path("plain"))

	tests := []string{"../etc/passwd", "a/b", "..", "имя"}
	for _, id := range tests {
		p := repo.Path(id)
		assert.Equal(t, dir, filepath.Dir(p), "path for %q escapes the directory", id)
	}
	assert.Equal(t, filepath.Join(dir, "user-42@example.com.json"), repo.Path("user-42@example.com"))
	assert.NotEqual(t, repo.Path("a b"), repo.Path("u-612062"))
	assert.NotEqual(t, repo.Path("a b"), repo.Path("612062"))
}

func TestFileRepo_EscapedIDsDoNotShareRecords(t *testing.T) {
	repo := newFileRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Update(ctx, "a b", func(rec *Record) error {
		rec.MarkTestPassed(7)
		return nil
	}))
	for _, other := range []string{"u-612062", "612062", "~612062"} {
		rec, err := repo.Load(ctx, other)
		require.NoError(t, err)
		assert.False(t, rec.TestPassed(7), "user %q sees a record of user %q", other, "a b")
	}
}

func TestFileRepo_CorruptRecordFails(t *testing.T) {
	repo := newFileRepo(t)
	require.NoError(t, os.WriteFile(repo.Path("u1"), []byte("{not json"), 0o644))

	_, err := repo.Load(context.Background(), "u1")
	require.Error(t, err)

	err = repo.Update(context.Background(), "u1", func(rec *Record) error { return nil })
	require.Error(t, err)
}
