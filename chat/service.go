// Package chat runs the per-message workflow: identity, quota gate, context
// window, LLM call, persistence, and admin notification side effects.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alexstashenko/hr-assistant-bot/conversation"
	"github.com/alexstashenko/hr-assistant-bot/internal/observability"
	"github.com/alexstashenko/hr-assistant-bot/llm"
	"github.com/alexstashenko/hr-assistant-bot/persona"
	"github.com/alexstashenko/hr-assistant-bot/quota"
	"github.com/alexstashenko/hr-assistant-bot/users"
)

const (
	// ApologyText is what the user sees when the LLM call fails. It is not
	// recorded into conversation history: a delivery fallback is not a model
	// turn and must not pollute future context.
	ApologyText = "Извините, произошла ошибка при обработке вашего запроса. Попробуйте еще раз."

	deniedTextFormat = "Демо-доступ исчерпан: вы использовали все %d сообщений.\n\n" +
		"Администратор уже получил уведомление. Свяжитесь с ним, чтобы продолжить работу."

	warnSuffixFormat = "\n\n⚠️ Осталось сообщений в демо-доступе: %d"
)

// Notifier delivers the quota-exhaustion summary and transcript to the
// admin. Implementations must not block on retries.
type Notifier interface {
	QuotaExhausted(ctx context.Context, userID int64, rec users.Record) error
}

// NopNotifier drops notifications; used when no admin is configured.
type NopNotifier struct{}

func (NopNotifier) QuotaExhausted(context.Context, int64, users.Record) error { return nil }

// Inbound is one text message from the transport.
type Inbound struct {
	UserID      int64
	Username    string
	DisplayName string
	Text        string
}

// Service is the orchestrator. All methods are safe for concurrent use as
// long as messages from a single user are serialized by the caller.
type Service struct {
	users    users.Store
	conv     *conversation.Manager
	policy   quota.Policy
	client   llm.Client
	persona  persona.Persona
	notifier Notifier
	metrics  *observability.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

type Options struct {
	Users    users.Store
	Conv     *conversation.Manager
	Policy   quota.Policy
	Client   llm.Client
	Persona  persona.Persona
	Notifier Notifier
	Metrics  *observability.Metrics
	Logger   *slog.Logger
}

func NewService(opts Options) *Service {
	if opts.Notifier == nil {
		opts.Notifier = NopNotifier{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		users:    opts.Users,
		conv:     opts.Conv,
		policy:   opts.Policy,
		client:   opts.Client,
		persona:  opts.Persona,
		notifier: opts.Notifier,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		now:      time.Now,
	}
}

// HandleMessage processes one inbound user message and returns the reply
// text. Every failure path ends in a logged event plus a safe fallback
// reply; nothing propagates to the transport.
func (s *Service) HandleMessage(ctx context.Context, in Inbound) string {
	correlationID := uuid.NewString()
	logger := s.logger.With("correlation_id", correlationID, "user_id", in.UserID)

	rec := s.identify(ctx, logger, in)

	// Quota gate: denied users get no LLM call and no count increment.
	if !s.policy.HasAllowance(in.UserID, rec) {
		s.countOutcome("denied")
		if s.metrics != nil {
			s.metrics.QuotaDenials.Inc()
		}
		logger.Info("message_denied_quota_exhausted", "message_count", rec.MessageCount)
		s.notifyExhausted(ctx, logger, in.UserID, rec)
		return fmt.Sprintf(deniedTextFormat, s.policy.LimitFor(in.UserID))
	}

	// The attempt is what is rate-limited: spend quota before the LLM call,
	// so a failed call still consumes a message.
	if err := s.users.IncrementMessageCount(ctx, in.UserID); err != nil {
		logger.Error("user_count_increment_error", "error", err)
	}

	if err := s.conv.AddTurn(ctx, in.UserID, llm.RoleUser, in.Text); err != nil {
		logger.Error("conversation_append_user_error", "error", err)
	}
	window, err := s.conv.Window(ctx, in.UserID)
	if err != nil {
		logger.Error("conversation_window_error", "error", err)
		window = []conversation.Turn{{Role: llm.RoleUser, Content: in.Text}}
	}

	reply, ok := s.callLLM(ctx, logger, window)
	if !ok {
		s.countOutcome("llm_error")
		return ApologyText
	}

	if err := s.conv.AddTurn(ctx, in.UserID, llm.RoleAssistant, reply); err != nil {
		logger.Error("conversation_append_assistant_error", "error", err)
	}

	reply = s.applyQuotaSuffix(ctx, logger, in.UserID, reply)
	s.countOutcome("ok")
	return reply
}

// identify refreshes stored identity fields from the inbound sender. Store
// failures degrade to a default record so the message path keeps working.
func (s *Service) identify(ctx context.Context, logger *slog.Logger, in Inbound) users.Record {
	if err := s.users.UpdateIdentity(ctx, in.UserID, in.Username, in.DisplayName); err != nil {
		logger.Error("user_identity_update_error", "error", err)
	}
	rec, err := s.users.GetOrCreate(ctx, in.UserID)
	if err != nil {
		logger.Error("user_load_error", "error", err)
		return users.Record{FirstSeen: s.now().UTC()}
	}
	return rec
}

func (s *Service) callLLM(ctx context.Context, logger *slog.Logger, window []conversation.Turn) (string, bool) {
	start := s.now()
	result, err := s.client.Chat(ctx, llm.Request{
		Model:     s.persona.Model,
		System:    s.persona.SystemPrompt,
		MaxTokens: s.persona.MaxTokens,
		Messages:  conversation.Messages(window),
	})
	elapsed := s.now().Sub(start)
	if s.metrics != nil {
		s.metrics.ObserveLLMRequest(elapsed)
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.LLMRequests.WithLabelValues(s.persona.Model, "error").Inc()
		}
		logger.Error("llm_request_error", "error", err, "elapsed_ms", elapsed.Milliseconds())
		return "", false
	}
	if s.metrics != nil {
		s.metrics.LLMRequests.WithLabelValues(s.persona.Model, "ok").Inc()
	}
	logger.Info("llm_request_done",
		"elapsed_ms", elapsed.Milliseconds(),
		"input_tokens", result.Usage.InputTokens,
		"output_tokens", result.Usage.OutputTokens,
	)
	return strings.TrimSpace(result.Text), true
}

// applyQuotaSuffix recomputes remaining quota after the reply was produced,
// fires the one-time admin notification on exhaustion, and appends the
// low-quota warning when the demo is nearly over.
func (s *Service) applyQuotaSuffix(ctx context.Context, logger *slog.Logger, userID int64, reply string) string {
	rec, err := s.users.GetOrCreate(ctx, userID)
	if err != nil {
		logger.Error("user_load_error", "error", err)
		return reply
	}
	remaining := s.policy.Remaining(userID, rec)
	if remaining == 0 {
		s.notifyExhausted(ctx, logger, userID, rec)
	}
	if s.policy.ShouldWarn(userID, remaining) {
		reply += fmt.Sprintf(warnSuffixFormat, remaining)
	}
	return reply
}

// notifyExhausted fires the admin notification at most once per exhaustion
// episode. Delivery failure is logged, never retried, and never blocks the
// reply already computed for the end user; the episode is still marked
// notified so a broken admin channel cannot cause a notification storm.
func (s *Service) notifyExhausted(ctx context.Context, logger *slog.Logger, userID int64, rec users.Record) {
	if rec.QuotaNotified {
		return
	}
	if err := s.users.SetQuotaNotified(ctx, userID); err != nil {
		logger.Error("user_mark_notified_error", "error", err)
	}
	if err := s.notifier.QuotaExhausted(ctx, userID, rec); err != nil {
		if s.metrics != nil {
			s.metrics.AdminNotifications.WithLabelValues("error").Inc()
		}
		logger.Error("admin_notification_error", "error", err)
		return
	}
	if s.metrics != nil {
		s.metrics.AdminNotifications.WithLabelValues("ok").Inc()
	}
	logger.Info("admin_notification_sent", "user_id", userID)
}

func (s *Service) countOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.MessagesTotal.WithLabelValues(outcome).Inc()
	}
}

// ResetSession clears the user's context window. The durable transcript is
// kept; the next exchange simply starts with no prior context.
func (s *Service) ResetSession(userID int64) {
	s.conv.ResetWindow(userID)
	s.logger.Info("session_reset", "user_id", userID)
}

// GrantQuota is the admin reset: the target's message count returns to zero
// and a new exhaustion cycle can trigger a fresh notification.
func (s *Service) GrantQuota(ctx context.Context, targetUserID int64) error {
	if err := s.users.Reset(ctx, targetUserID); err != nil {
		return fmt.Errorf("grant quota for %d: %w", targetUserID, err)
	}
	s.logger.Info("quota_granted", "target_user_id", targetUserID)
	return nil
}

// Status reports the target's quota standing for the /status command.
func (s *Service) Status(ctx context.Context, userID int64) (remaining, limit int, err error) {
	rec, err := s.users.GetOrCreate(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	return s.policy.Remaining(userID, rec), s.policy.LimitFor(userID), nil
}
