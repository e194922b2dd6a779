package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/alexstashenko/hr-assistant-bot/internal/fsstore"
)

// Log is the durable, unbounded transcript store: one pretty-printed JSON
// array per user, named user_<id>.json. Appends reach disk before returning.
type Log struct {
	dir      string
	lockRoot string
	logger   *slog.Logger
}

// NewLog stores transcripts under dir; lockRoot holds the per-user advisory
// lock files. logger may be nil.
func NewLog(dir, lockRoot string, logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{dir: dir, lockRoot: lockRoot, logger: logger}
}

// FilePath returns the transcript file for userID.
func (l *Log) FilePath(userID int64) string {
	return filepath.Join(l.dir, fmt.Sprintf("user_%d.json", userID))
}

// Append adds one turn to the user's transcript, synchronously.
func (l *Log) Append(ctx context.Context, userID int64, role, content string) error {
	lockPath, err := fsstore.BuildLockPath(l.lockRoot, transcriptLockKey(userID))
	if err != nil {
		return fmt.Errorf("conversation: build lock path: %w", err)
	}
	return fsstore.WithLock(ctx, lockPath, func() error {
		turns, err := l.load(userID)
		if err != nil {
			return err
		}
		turns = append(turns, Turn{Role: role, Content: content})
		path := l.FilePath(userID)
		if err := fsstore.WriteJSONAtomic(path, turns, fsstore.FileOptions{}); err != nil {
			return fmt.Errorf("conversation: write %s: %w", path, err)
		}
		return nil
	})
}

// Load returns the full transcript for userID; a missing file is an empty
// transcript. A corrupt file is logged and treated as empty rather than
// taking the bot down.
func (l *Log) Load(ctx context.Context, userID int64) ([]Turn, error) {
	_ = ctx
	return l.load(userID)
}

func (l *Log) load(userID int64) ([]Turn, error) {
	path := l.FilePath(userID)
	var turns []Turn
	found, err := fsstore.ReadJSON(path, &turns)
	if err != nil {
		if errors.Is(err, fsstore.ErrDecodeFailed) {
			l.logger.Warn("conversation_file_corrupt_reset", "path", path, "error", err)
			return []Turn{}, nil
		}
		return nil, fmt.Errorf("conversation: read %s: %w", path, err)
	}
	if !found {
		return []Turn{}, nil
	}
	return turns, nil
}

func transcriptLockKey(userID int64) string {
	return "conversation." + strconv.FormatInt(userID, 10)
}
