package conversation

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/alexstashenko/hr-assistant-bot/internal/fsstore"
	"github.com/alexstashenko/hr-assistant-bot/llm"
)

const (
	exportHeaderTitle = "ИСТОРИЯ ПЕРЕПИСКИ"
	exportEndMarker   = "КОНЕЦ ИСТОРИИ"

	labelUser      = "ПОЛЬЗОВАТЕЛЬ"
	labelAssistant = "АССИСТЕНТ"

	exportTimeLayout = "2006-01-02 15:04:05"
	exportFileLayout = "20060102_150405"
)

var exportSeparator = strings.Repeat("=", 80)

// ExportInfo is the header block of a transcript export.
type ExportInfo struct {
	UserID      int64
	Username    string
	DisplayName string
	FirstSeen   time.Time
	ExportedAt  time.Time
}

// ExportText renders a transcript in the archival format the admin receives:
// a header block, an 80-character separator, numbered role-labeled turns,
// and an end marker. Changing this shape breaks existing archived exports.
func ExportText(info ExportInfo, turns []Turn) string {
	var b strings.Builder

	b.WriteString(exportHeaderTitle + "\n")
	displayName := info.DisplayName
	if displayName == "" {
		displayName = "(не указано)"
	}
	b.WriteString("Пользователь: " + displayName + "\n")
	username := info.Username
	if username == "" {
		username = "(нет)"
	} else if !strings.HasPrefix(username, "@") {
		username = "@" + username
	}
	b.WriteString("Username: " + username + "\n")
	fmt.Fprintf(&b, "ID: %d\n", info.UserID)
	if !info.FirstSeen.IsZero() {
		b.WriteString("Первое обращение: " + info.FirstSeen.Format(exportTimeLayout) + "\n")
	}
	fmt.Fprintf(&b, "Всего сообщений: %d\n", len(turns))
	b.WriteString("Дата выгрузки: " + info.ExportedAt.Format(exportTimeLayout) + "\n")
	b.WriteString(exportSeparator + "\n\n")

	for i, turn := range turns {
		fmt.Fprintf(&b, "[%d] %s:\n%s\n\n", i+1, roleLabel(turn.Role), turn.Content)
	}

	b.WriteString(exportSeparator + "\n")
	b.WriteString(exportEndMarker + "\n")
	return b.String()
}

// ExportToFile writes the rendered export under dir and returns its path.
// Files are named conversation_user_<id>_<timestamp>.txt so repeated exports
// for the same user never overwrite each other.
func ExportToFile(dir string, info ExportInfo, turns []Turn) (string, error) {
	name := fmt.Sprintf("conversation_user_%d_%s.txt", info.UserID, info.ExportedAt.Format(exportFileLayout))
	path := filepath.Join(dir, name)
	if err := fsstore.WriteTextAtomic(path, ExportText(info, turns), fsstore.FileOptions{}); err != nil {
		return "", fmt.Errorf("conversation: write export %s: %w", path, err)
	}
	return path, nil
}

func roleLabel(role string) string {
	switch role {
	case llm.RoleUser:
		return labelUser
	case llm.RoleAssistant:
		return labelAssistant
	default:
		return strings.ToUpper(role)
	}
}
