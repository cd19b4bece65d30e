// Package progress persists each learner's mistakes, passed tests and
// passed exam/trainer configurations.
package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrLockTimeout is returned when the per-user lock cannot be acquired in
// time.
var ErrLockTimeout = errors.New("progress record is locked")

// ErrNoChange may be returned from an update function to skip the write.
var ErrNoChange = errors.New("no change")

// UpdateFunc patches a loaded record in memory.
type UpdateFunc func(rec *Record) error

// Repo loads and atomically updates per-user progress records.
type Repo interface {
	// Load returns the user's record, or an empty record if none exists.
	Load(ctx context.Context, userID string) (*Record, error)

	// Update loads the record, applies fn and writes the result back while
	// holding an exclusive per-user lock. If fn returns ErrNoChange nothing
	// is written and Update returns nil.
	Update(ctx context.Context, userID string, fn UpdateFunc) error
}

func decodeRecord(data []byte) (*Record, error) {
	rec := &Record{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, rec); err != nil {
			return nil, fmt.Errorf("decode progress record: %w", err)
		}
	}
	rec.normalize()
	return rec, nil
}

func encodeRecord(rec *Record) ([]byte, error) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode progress record: %w", err)
	}
	return append(data, '\n'), nil
}

// applyUpdate runs fn and reports whether the record should be written.
func applyUpdate(rec *Record, fn UpdateFunc) (bool, error) {
	if err := fn(rec); err != nil {
		if errors.Is(err, ErrNoChange) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
