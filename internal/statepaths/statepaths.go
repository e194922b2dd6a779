// Package statepaths centralizes the on-disk layout of bot state.
//
// Everything lives under one state directory (viper key "file_state_dir"):
//
//	users.json            user records, one JSON object keyed by string user id
//	conversations/        one user_<id>.json transcript per user
//	exports/              transcript exports sent to the admin
//	persona.md            optional system-prompt override
//	.fslocks/             advisory lock files
package statepaths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	usersFilename   = "users.json"
	conversationDir = "conversations"
	exportsDirName  = "exports"
	personaFilename = "persona.md"
	locksDirName    = ".fslocks"
)

func StateDir() string {
	dir := strings.TrimSpace(viper.GetString("file_state_dir"))
	if dir == "" {
		dir = "~/.hr-assistant"
	}
	return expandHomePath(dir)
}

func UsersFilePath() string {
	return filepath.Join(StateDir(), usersFilename)
}

func ConversationsDir() string {
	return filepath.Join(StateDir(), conversationDir)
}

func ConversationFilePath(userID int64) string {
	return filepath.Join(ConversationsDir(), fmt.Sprintf("user_%d.json", userID))
}

func ExportsDir() string {
	return filepath.Join(StateDir(), exportsDirName)
}

func PersonaFilePath() string {
	return filepath.Join(StateDir(), personaFilename)
}

func LocksDir() string {
	return filepath.Join(StateDir(), locksDirName)
}

func expandHomePath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil && strings.TrimSpace(home) != "" {
			if path == "~" {
				return home
			}
			return filepath.Join(home, path[2:])
		}
	}
	return filepath.Clean(path)
}
