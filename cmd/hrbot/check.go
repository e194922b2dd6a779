package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/alexstashenko/hr-assistant-bot/llm"
	"github.com/alexstashenko/hr-assistant-bot/persona"
)

// newCheckCmd validates configuration and connectivity before deploying:
// credential shapes, the Telegram getMe call, and a one-token LLM ping.
func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate configuration and connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd)
		},
	}

	cmd.Flags().String("telegram-token", "", "Telegram bot token.")
	cmd.Flags().String("provider", "", "LLM provider: anthropic|openai.")
	cmd.Flags().String("endpoint", "", "LLM API base URL.")
	cmd.Flags().String("api-key", "", "LLM API key.")
	cmd.Flags().String("model", "", "Model override (defaults to the persona's model).")
	cmd.Flags().Int64("admin-user-id", 0, "Telegram user id of the admin.")
	cmd.Flags().Int("demo-limit", 0, "Demo message limit per user.")
	cmd.Flags().String("state-dir", "", "State directory.")
	cmd.Flags().String("health-listen", "", "Health/metrics listen address.")
	cmd.Flags().Duration("poll-timeout", 0, "Telegram long-poll timeout.")
	cmd.Flags().Bool("skip-connect", false, "Only validate settings, skip network checks.")

	return cmd
}

func runCheck(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	var errs []string
	var warns []string

	token := strings.TrimSpace(flagOrViperString(cmd, "telegram-token", "telegram.token"))
	switch {
	case token == "":
		errs = append(errs, fmt.Sprintf("telegram.token is not set (env %s_TELEGRAM_TOKEN)", envPrefix))
	case len(strings.Split(token, ":")) != 2:
		warns = append(warns, "telegram.token does not look like <bot_id>:<secret>")
	default:
		fmt.Fprintln(out, "ok: telegram.token set")
	}

	provider := strings.ToLower(strings.TrimSpace(flagOrViperString(cmd, "provider", "provider")))
	apiKey := strings.TrimSpace(flagOrViperString(cmd, "api-key", "api_key"))
	switch {
	case apiKey == "":
		errs = append(errs, fmt.Sprintf("api_key is not set (env %s_API_KEY)", envPrefix))
	case provider == "anthropic" && !strings.HasPrefix(apiKey, "sk-ant-"):
		warns = append(warns, "api_key does not start with sk-ant- (wrong key for the anthropic provider?)")
	default:
		fmt.Fprintln(out, "ok: api_key set")
	}

	if provider != "anthropic" && provider != "openai" {
		errs = append(errs, fmt.Sprintf("unknown provider: %q (want anthropic or openai)", provider))
	}

	adminID := flagOrViperInt64(cmd, "admin-user-id", "quota.admin_user_id")
	if adminID == 0 {
		errs = append(errs, fmt.Sprintf("quota.admin_user_id is not set (env %s_QUOTA_ADMIN_USER_ID)", envPrefix))
	} else {
		fmt.Fprintf(out, "ok: admin user id %d\n", adminID)
	}

	for _, w := range warns {
		fmt.Fprintln(out, "warn:", w)
	}
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintln(out, "error:", e)
		}
		return fmt.Errorf("configuration check failed (%d errors)", len(errs))
	}

	if skip, _ := cmd.Flags().GetBool("skip-connect"); skip {
		fmt.Fprintln(out, "settings ok (network checks skipped)")
		return nil
	}

	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	api := newTelegramAPI(nil, cfg.telegramBaseURL, cfg.telegramToken)
	me, err := api.getMe(ctx)
	if err != nil {
		return fmt.Errorf("telegram connectivity check failed: %w", err)
	}
	fmt.Fprintf(out, "ok: telegram bot @%s (id %d)\n", me.Username, me.ID)

	client := llmClientFromConfig(cfg)
	model := checkPingModel(cfg.modelOverride, viper.GetString("check.model"))
	_, err = client.Chat(ctx, llm.Request{
		Model:     model,
		MaxTokens: 10,
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: "Hi"}},
	})
	if err != nil {
		return fmt.Errorf("llm connectivity check failed: %w", err)
	}
	fmt.Fprintf(out, "ok: %s responds (model %s)\n", cfg.provider, model)

	fmt.Fprintln(out, "all checks passed")
	return nil
}

// checkPingModel picks the model for the one-token ping: explicit override,
// then check.model from config, then the model the bot itself runs with.
func checkPingModel(override, configured string) string {
	if override = strings.TrimSpace(override); override != "" {
		return override
	}
	if configured = strings.TrimSpace(configured); configured != "" {
		return configured
	}
	return persona.DefaultModel
}
