package main

import (
	"time"

	"github.com/spf13/viper"
)

func initViperDefaults() {
	// LLM
	viper.SetDefault("provider", "anthropic")
	// endpoint has no default here: the run command resolves it per
	// provider so an anthropic URL never leaks into the openai client.
	viper.SetDefault("endpoint", "")
	viper.SetDefault("model", "")
	viper.SetDefault("api_key", "")
	viper.SetDefault("max_tokens", 0)
	viper.SetDefault("llm.request_timeout", 90*time.Second)

	// Telegram
	viper.SetDefault("telegram.token", "")
	viper.SetDefault("telegram.base_url", "https://api.telegram.org")
	viper.SetDefault("telegram.poll_timeout", 30*time.Second)
	viper.SetDefault("telegram.max_concurrency", 3)

	// Quota
	viper.SetDefault("quota.demo_limit", 10)
	viper.SetDefault("quota.admin_user_id", int64(0))

	// State
	viper.SetDefault("file_state_dir", "~/.hr-assistant")
	viper.SetDefault("db.driver", "file")
	viper.SetDefault("db.path", "")

	// Health / metrics listener
	viper.SetDefault("health.listen", ":8080")

	// Logging
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.add_source", false)
}
