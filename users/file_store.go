package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/alexstashenko/hr-assistant-bot/internal/fsstore"
)

const fileLockKey = "users"

// FileStore keeps all user records in a single pretty-printed JSON file
// (one object keyed by decimal user id). Mutations take a flock-backed
// advisory lock so concurrent processes do not clobber each other, and
// every mutation is written back before the call returns.
type FileStore struct {
	path     string
	lockRoot string
	logger   *slog.Logger
	now      func() time.Time

	mu sync.Mutex
}

// NewFileStore builds a store over path. lockRoot is the directory that
// holds the advisory lock file; logger may be nil.
func NewFileStore(path, lockRoot string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{
		path:     path,
		lockRoot: lockRoot,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *FileStore) GetOrCreate(ctx context.Context, userID int64) (Record, error) {
	var out Record
	err := s.mutate(ctx, func(state map[string]Record) error {
		key := formatUserID(userID)
		rec, ok := state[key]
		if !ok {
			rec = Record{FirstSeen: s.now().UTC()}
			state[key] = rec
		}
		out = rec
		return nil
	})
	return out, err
}

func (s *FileStore) UpdateIdentity(ctx context.Context, userID int64, username, displayName string) error {
	return s.mutate(ctx, func(state map[string]Record) error {
		key := formatUserID(userID)
		rec := s.ensure(state, key)
		if username != "" {
			rec.Username = username
		}
		if displayName != "" {
			rec.DisplayName = displayName
		}
		state[key] = rec
		return nil
	})
}

func (s *FileStore) IncrementMessageCount(ctx context.Context, userID int64) error {
	return s.mutate(ctx, func(state map[string]Record) error {
		key := formatUserID(userID)
		rec := s.ensure(state, key)
		rec.MessageCount++
		state[key] = rec
		return nil
	})
}

func (s *FileStore) Reset(ctx context.Context, userID int64) error {
	return s.mutate(ctx, func(state map[string]Record) error {
		key := formatUserID(userID)
		rec := s.ensure(state, key)
		rec.MessageCount = 0
		rec.QuotaNotified = false
		state[key] = rec
		return nil
	})
}

func (s *FileStore) SetQuotaNotified(ctx context.Context, userID int64) error {
	return s.mutate(ctx, func(state map[string]Record) error {
		key := formatUserID(userID)
		rec := s.ensure(state, key)
		rec.QuotaNotified = true
		state[key] = rec
		return nil
	})
}

// ensure returns the existing record for key or seeds a fresh one with
// FirstSeen stamped now.
func (s *FileStore) ensure(state map[string]Record, key string) Record {
	rec, ok := state[key]
	if !ok {
		rec = Record{FirstSeen: s.now().UTC()}
	}
	return rec
}

// mutate loads the state file, applies fn, and writes the result back, all
// under the advisory lock.
func (s *FileStore) mutate(ctx context.Context, fn func(state map[string]Record) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lockPath, err := fsstore.BuildLockPath(s.lockRoot, fileLockKey)
	if err != nil {
		return fmt.Errorf("users: build lock path: %w", err)
	}
	return fsstore.WithLock(ctx, lockPath, func() error {
		state, err := s.load()
		if err != nil {
			return err
		}
		if err := fn(state); err != nil {
			return err
		}
		if err := fsstore.WriteJSONAtomic(s.path, state, fsstore.FileOptions{}); err != nil {
			return fmt.Errorf("users: write %s: %w", s.path, err)
		}
		return nil
	})
}

func (s *FileStore) load() (map[string]Record, error) {
	state := map[string]Record{}
	found, err := fsstore.ReadJSON(s.path, &state)
	if err != nil {
		if errors.Is(err, fsstore.ErrDecodeFailed) {
			// A corrupt file must not take the bot down; start over and let
			// the next write replace it.
			s.logger.Warn("users_state_corrupt_reset", "path", s.path, "error", err)
			return map[string]Record{}, nil
		}
		return nil, fmt.Errorf("users: read %s: %w", s.path, err)
	}
	if !found {
		return map[string]Record{}, nil
	}
	if state == nil {
		state = map[string]Record{}
	}
	return state, nil
}

func formatUserID(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
