package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/alexstashenko/hr-assistant-bot/chat"
	"github.com/alexstashenko/hr-assistant-bot/conversation"
	"github.com/alexstashenko/hr-assistant-bot/internal/fsstore"
	"github.com/alexstashenko/hr-assistant-bot/internal/healthcheck"
	"github.com/alexstashenko/hr-assistant-bot/internal/observability"
	"github.com/alexstashenko/hr-assistant-bot/internal/retryutil"
	"github.com/alexstashenko/hr-assistant-bot/internal/statepaths"
	"github.com/alexstashenko/hr-assistant-bot/llm"
	"github.com/alexstashenko/hr-assistant-bot/persona"
	"github.com/alexstashenko/hr-assistant-bot/providers/anthropic"
	"github.com/alexstashenko/hr-assistant-bot/providers/openai"
	"github.com/alexstashenko/hr-assistant-bot/quota"
	"github.com/alexstashenko/hr-assistant-bot/users"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the bot (long polling)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd)
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

	return cmd
}

type runConfig struct {
	telegramToken   string
	telegramBaseURL string
	pollTimeout     time.Duration
	maxConcurrency  int

	provider       string
	endpoint       string
	apiKey         string
	modelOverride  string
	maxTokens      int
	requestTimeout time.Duration

	adminUserID int64
	demoLimit   int

	dbDriver string
	dbPath   string

	healthListen string
}

func loadRunConfig(cmd *cobra.Command) (runConfig, error) {
	cfg := runConfig{
		telegramToken:   strings.TrimSpace(flagOrViperString(cmd, "telegram-token", "telegram.token")),
		telegramBaseURL: strings.TrimSpace(viper.GetString("telegram.base_url")),
		pollTimeout:     flagOrViperDuration(cmd, "poll-timeout", "telegram.poll_timeout"),
		maxConcurrency:  viper.GetInt("telegram.max_concurrency"),
		provider:        strings.ToLower(strings.TrimSpace(flagOrViperString(cmd, "provider", "provider"))),
		endpoint:        strings.TrimSpace(flagOrViperString(cmd, "endpoint", "endpoint")),
		apiKey:          strings.TrimSpace(flagOrViperString(cmd, "api-key", "api_key")),
		modelOverride:   strings.TrimSpace(flagOrViperString(cmd, "model", "model")),
		maxTokens:       viper.GetInt("max_tokens"),
		requestTimeout:  viper.GetDuration("llm.request_timeout"),
		adminUserID:     flagOrViperInt64(cmd, "admin-user-id", "quota.admin_user_id"),
		demoLimit:       flagOrViperInt(cmd, "demo-limit", "quota.demo_limit"),
		dbDriver:        strings.ToLower(strings.TrimSpace(viper.GetString("db.driver"))),
		dbPath:          strings.TrimSpace(viper.GetString("db.path")),
		healthListen:    strings.TrimSpace(flagOrViperString(cmd, "health-listen", "health.listen")),
	}

	if cfg.telegramToken == "" {
		return cfg, fmt.Errorf("missing required setting telegram.token (env %s_TELEGRAM_TOKEN)", envPrefix)
	}
	if cfg.apiKey == "" {
		return cfg, fmt.Errorf("missing required setting api_key (env %s_API_KEY)", envPrefix)
	}
	if cfg.adminUserID == 0 {
		return cfg, fmt.Errorf("missing required setting quota.admin_user_id (env %s_QUOTA_ADMIN_USER_ID)", envPrefix)
	}
	switch cfg.provider {
	case "anthropic", "openai":
	default:
		return cfg, fmt.Errorf("unknown provider: %s (want anthropic or openai)", cfg.provider)
	}
	cfg.endpoint = resolveEndpoint(cfg.provider, cfg.endpoint)
	return cfg, nil
}

// resolveEndpoint fills in the provider's own API host when the operator
// did not supply an endpoint.
func resolveEndpoint(provider, endpoint string) string {
	if endpoint != "" {
		return endpoint
	}
	switch provider {
	case "openai":
		return "https://api.openai.com"
	default:
		return "https://api.anthropic.com"
	}
}

func llmClientFromConfig(cfg runConfig) llm.Client {
	switch cfg.provider {
	case "openai":
		return openai.New(cfg.endpoint, cfg.apiKey, cfg.requestTimeout)
	default:
		return anthropic.New(cfg.endpoint, cfg.apiKey, cfg.requestTimeout)
	}
}

func usersStoreFromConfig(cfg runConfig, logger *slog.Logger) (users.Store, func() error, error) {
	switch cfg.dbDriver {
	case "", "file":
		store := users.NewFileStore(statepaths.UsersFilePath(), statepaths.LocksDir(), logger)
		return store, func() error { return nil }, nil
	case "sqlite":
		path := cfg.dbPath
		if path == "" {
			path = statepaths.UsersFilePath() + ".db"
		}
		store, err := users.OpenSQLite(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite user store: %w", err)
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown db.driver: %s (want file or sqlite)", cfg.dbDriver)
	}
}

func runBot(cmd *cobra.Command) error {
	logger, err := newLoggerFromConfig(loggerConfigFromViper())
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}
	if stateDir := strings.TrimSpace(flagOrViperString(cmd, "state-dir", "file_state_dir")); stateDir != "" {
		viper.Set("file_state_dir", stateDir)
	}
	if err := fsstore.EnsureDir(statepaths.StateDir(), 0); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := persona.Load(statepaths.PersonaFilePath())
	if err != nil {
		return err
	}
	if cfg.modelOverride != "" {
		p.Model = cfg.modelOverride
	}
	if cfg.maxTokens > 0 {
		p.MaxTokens = cfg.maxTokens
	}

	userStore, closeStore, err := usersStoreFromConfig(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	convLog := conversation.NewLog(statepaths.ConversationsDir(), statepaths.LocksDir(), logger)
	manager := conversation.NewManager(convLog, conversation.DefaultWindowSize)

	metrics := observability.NewMetrics("hrbot")

	api := newTelegramAPI(&http.Client{Timeout: cfg.pollTimeout + 30*time.Second}, cfg.telegramBaseURL, cfg.telegramToken)
	notifier := newTelegramNotifier(api, cfg.adminUserID, convLog, statepaths.ExportsDir(), logger)

	svc := chat.NewService(chat.Options{
		Users:    userStore,
		Conv:     manager,
		Policy:   quota.NewPolicy(cfg.demoLimit, cfg.adminUserID),
		Client:   llmClientFromConfig(cfg),
		Persona:  p,
		Notifier: notifier,
		Metrics:  metrics,
		Logger:   logger,
	})

	if cfg.healthListen != "" {
		srv, err := healthcheck.StartServer(ctx, logger, healthcheck.NormalizeListen(cfg.healthListen), "hrbot")
		if err != nil {
			logger.Warn("healthcheck_start_error", "error", err)
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
		}
	}

	me, err := api.getMe(ctx)
	if err != nil {
		return fmt.Errorf("telegram getMe: %w", err)
	}
	logger.Info("bot_started",
		"bot_username", me.Username,
		"provider", cfg.provider,
		"model", p.Model,
		"demo_limit", cfg.demoLimit,
	)

	return pollLoop(ctx, logger, api, svc, cfg)
}

func loggerConfigFromViper() loggerConfig {
	return loggerConfig{
		Level:     viper.GetString("logging.level"),
		Format:    viper.GetString("logging.format"),
		AddSource: viper.GetBool("logging.add_source"),
	}
}

// userWorker serializes message handling per user so turns are appended in
// arrival order even when many users chat at once.
type userWorker struct {
	ch chan telegramMessage
}

func pollLoop(ctx context.Context, logger *slog.Logger, api *telegramAPI, svc *chat.Service, cfg runConfig) error {
	maxConcurrency := cfg.maxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = 3
	}
	semaphore := make(chan struct{}, maxConcurrency)

	var wg sync.WaitGroup
	workers := make(map[int64]*userWorker)

	dispatch := func(msg telegramMessage) {
		userID := msg.From.ID
		w, ok := workers[userID]
		if !ok {
			w = &userWorker{ch: make(chan telegramMessage, 16)}
			workers[userID] = w
			wg.Add(1)
			go func() {
				defer wg.Done()
				for m := range w.ch {
					semaphore <- struct{}{}
					handleMessage(ctx, logger, api, svc, cfg, m)
					<-semaphore
				}
			}()
		}
		select {
		case w.ch <- msg:
		default:
			logger.Warn("user_queue_full_drop", "user_id", userID)
		}
	}

	var offset int64
	for {
		select {
		case <-ctx.Done():
			for _, w := range workers {
				close(w.ch)
			}
			wg.Wait()
			logger.Info("bot_stopped")
			return nil
		default:
		}

		updates, next, err := api.getUpdates(ctx, offset, cfg.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			if !isTelegramPollTimeoutError(err) {
				logger.Warn("telegram_poll_error", "error", err)
				time.Sleep(2 * time.Second)
			}
			continue
		}
		offset = next

		for _, u := range updates {
			msg := u.Message
			if msg == nil || msg.From == nil || msg.From.IsBot || msg.Chat == nil {
				continue
			}
			if strings.TrimSpace(msg.Text) == "" {
				continue
			}
			dispatch(*msg)
		}
	}
}

func handleMessage(ctx context.Context, logger *slog.Logger, api *telegramAPI, svc *chat.Service, cfg runConfig, msg telegramMessage) {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	if strings.HasPrefix(text, "/") {
		handleCommand(ctx, logger, api, svc, cfg, msg)
		return
	}

	// Keep the typing indicator alive while the model thinks.
	typingCtx, stopTyping := context.WithCancel(ctx)
	defer stopTyping()
	go func() {
		ticker := time.NewTicker(4 * time.Second)
		defer ticker.Stop()
		_ = api.sendChatAction(typingCtx, chatID, "typing")
		for {
			select {
			case <-typingCtx.Done():
				return
			case <-ticker.C:
				_ = api.sendChatAction(typingCtx, chatID, "typing")
			}
		}
	}()

	reply := svc.HandleMessage(ctx, chat.Inbound{
		UserID:      msg.From.ID,
		Username:    msg.From.Username,
		DisplayName: telegramDisplayName(msg.From),
		Text:        text,
	})
	stopTyping()

	sendReply(ctx, logger, api, chatID, reply)
}

// sendReply delivers a reply and, on a transient failure, retries once in
// the background. Losing a computed reply costs the user a quota unit.
func sendReply(ctx context.Context, logger *slog.Logger, api *telegramAPI, chatID int64, reply string) {
	if err := api.sendMessageChunked(ctx, chatID, reply); err != nil {
		logger.Error("telegram_reply_send_error", "chat_id", chatID, "error", err)
		retryutil.AsyncRetry(logger, "telegram_reply", 0, 0, func(ctx context.Context) error {
			return api.sendMessageChunked(ctx, chatID, reply)
		})
	}
}

func handleCommand(ctx context.Context, logger *slog.Logger, api *telegramAPI, svc *chat.Service, cfg runConfig, msg telegramMessage) {
	chatID := msg.Chat.ID
	userID := msg.From.ID
	fields := strings.Fields(msg.Text)
	command := strings.ToLower(strings.SplitN(fields[0], "@", 2)[0])

	var reply string
	switch command {
	case "/start":
		svc.ResetSession(userID)
		reply = welcomeText(msg.From.FirstName)
		logger.Info("command_start", "user_id", userID, "username", msg.From.Username)
	case "/help":
		reply = helpText
	case "/new":
		svc.ResetSession(userID)
		reply = "История разговора очищена. Начнем с начала!\n\n" +
			"Опишите новую ситуацию, с которой вам нужна помощь."
	case "/status":
		remaining, limit, err := svc.Status(ctx, userID)
		if err != nil {
			logger.Error("command_status_error", "user_id", userID, "error", err)
			reply = "Не удалось получить статус. Попробуйте еще раз."
		} else if userID == cfg.adminUserID {
			reply = "Вы администратор: ограничений нет."
		} else {
			reply = fmt.Sprintf("Осталось сообщений в демо-доступе: %d из %d.", remaining, limit)
		}
	case "/grant":
		reply = handleGrant(ctx, logger, svc, cfg, userID, fields)
	default:
		reply = "Неизвестная команда. Используйте /help для справки."
	}

	sendReply(ctx, logger, api, chatID, reply)
}

func handleGrant(ctx context.Context, logger *slog.Logger, svc *chat.Service, cfg runConfig, issuerID int64, fields []string) string {
	if issuerID != cfg.adminUserID {
		return "Эта команда доступна только администратору."
	}
	if len(fields) != 2 {
		return "Использование: /grant <user_id>"
	}
	target, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return "Использование: /grant <user_id> — аргумент должен быть числом."
	}
	if err := svc.GrantQuota(ctx, target); err != nil {
		logger.Error("command_grant_error", "target_user_id", target, "error", err)
		return "Не удалось сбросить квоту. Подробности в журнале."
	}
	return fmt.Sprintf("Квота пользователя %d сброшена: демо-доступ выдан заново.", target)
}

func welcomeText(firstName string) string {
	name := strings.TrimSpace(firstName)
	greeting := "Здравствуйте!"
	if name != "" {
		greeting = "Здравствуйте, " + name + "!"
	}
	return greeting + "\n\n" +
		"Я — ваш персональный консультант по управлению персоналом на базе Claude AI.\n\n" +
		"Я помогу вам:\n" +
		"• Мотивировать сотрудников\n" +
		"• Давать эффективную обратную связь\n" +
		"• Решать конфликты в команде\n" +
		"• Управлять производительностью\n" +
		"• Проводить сложные разговоры\n" +
		"• И многое другое!\n\n" +
		"Просто опишите вашу ситуацию, и я задам уточняющие вопросы, " +
		"чтобы дать вам конкретные практичные рекомендации.\n\n" +
		"Используйте команды:\n" +
		"/start — начать работу с ботом\n" +
		"/help — справка по использованию\n\n" +
		"Давайте начнем! Какая ситуация вас беспокоит?"
}

const helpText = "Как работать с ботом:\n\n" +
	"1. Опишите вашу ситуацию или проблему с сотрудником/командой\n" +
	"2. Я задам уточняющие вопросы (по одному)\n" +
	"3. После уточнений вы получите:\n" +
	"   • Диагностику ситуации\n" +
	"   • Конкретный план действий\n" +
	"   • Готовые скрипты разговоров\n" +
	"   • Предупреждения о возможных ошибках\n\n" +
	"Доступные команды:\n" +
	"/start — начать работу с ботом\n" +
	"/help — показать эту справку\n" +
	"/new — начать новый разговор\n" +
	"/status — остаток сообщений в демо-доступе\n\n" +
	"Примеры запросов:\n" +
	"• Мой сотрудник перестал выполнять задачи в срок\n" +
	"• Как дать обратную связь о плохой работе?\n" +
	"• Два члена команды конфликтуют между собой\n" +
	"• Нужно отказать в повышении\n\n" +
	"Я использую проверенные модели управления (PAEI Адизеса, " +
	"Ситуационное лидерство Херси-Бланшара) для диагностики и рекомендаций."
