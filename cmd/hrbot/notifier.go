package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/alexstashenko/hr-assistant-bot/conversation"
	"github.com/alexstashenko/hr-assistant-bot/users"
)

// telegramNotifier tells the admin when a user burns through the demo quota:
// a summary message, the transcript as a document, and an archival copy of
// the export kept on disk.
type telegramNotifier struct {
	api         *telegramAPI
	adminChatID int64
	convLog     *conversation.Log
	exportsDir  string
	logger      *slog.Logger
	now         func() time.Time
}

func newTelegramNotifier(api *telegramAPI, adminChatID int64, convLog *conversation.Log, exportsDir string, logger *slog.Logger) *telegramNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &telegramNotifier{
		api:         api,
		adminChatID: adminChatID,
		convLog:     convLog,
		exportsDir:  exportsDir,
		logger:      logger,
		now:         time.Now,
	}
}

func (n *telegramNotifier) QuotaExhausted(ctx context.Context, userID int64, rec users.Record) error {
	turns, err := n.convLog.Load(ctx, userID)
	if err != nil {
		n.logger.Error("notify_transcript_load_error", "user_id", userID, "error", err)
		turns = nil
	}

	info := conversation.ExportInfo{
		UserID:      userID,
		Username:    rec.Username,
		DisplayName: rec.DisplayName,
		FirstSeen:   rec.FirstSeen,
		ExportedAt:  n.now(),
	}

	// Archival copy first: even if Telegram delivery fails, the transcript
	// survives on disk.
	exportPath, err := conversation.ExportToFile(n.exportsDir, info, turns)
	if err != nil {
		return fmt.Errorf("archive transcript: %w", err)
	}
	n.logger.Info("transcript_archived", "user_id", userID, "path", exportPath)

	if err := n.api.sendMessage(ctx, n.adminChatID, n.summaryText(userID, rec, len(turns))); err != nil {
		return fmt.Errorf("send admin summary: %w", err)
	}

	caption := fmt.Sprintf("История переписки пользователя %d", userID)
	if err := n.api.sendDocument(ctx, n.adminChatID, exportPath, filepath.Base(exportPath), caption); err != nil {
		return fmt.Errorf("send transcript document: %w", err)
	}
	return nil
}

func (n *telegramNotifier) summaryText(userID int64, rec users.Record, turnCount int) string {
	var b strings.Builder
	b.WriteString("🔔 Демо-доступ исчерпан\n\n")
	if rec.DisplayName != "" {
		b.WriteString("Пользователь: " + rec.DisplayName + "\n")
	}
	if rec.Username != "" {
		b.WriteString("Username: @" + strings.TrimPrefix(rec.Username, "@") + "\n")
	}
	fmt.Fprintf(&b, "ID: %d\n", userID)
	fmt.Fprintf(&b, "Сообщений использовано: %d\n", rec.MessageCount)
	fmt.Fprintf(&b, "Реплик в истории: %d\n", turnCount)
	if !rec.FirstSeen.IsZero() {
		b.WriteString("Первое обращение: " + rec.FirstSeen.Format("2006-01-02 15:04:05") + "\n")
	}
	b.WriteString("\nЧтобы выдать новый доступ: /grant " + fmt.Sprintf("%d", userID))
	return b.String()
}
