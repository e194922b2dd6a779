package chat

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alexstashenko/hr-assistant-bot/conversation"
	"github.com/alexstashenko/hr-assistant-bot/llm"
	"github.com/alexstashenko/hr-assistant-bot/persona"
	"github.com/alexstashenko/hr-assistant-bot/quota"
	"github.com/alexstashenko/hr-assistant-bot/users"
)

// memStore is an in-memory users.Store for orchestrator tests.
type memStore struct {
	mu      sync.Mutex
	records map[int64]users.Record
}

var _ users.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{records: make(map[int64]users.Record)}
}

func (m *memStore) GetOrCreate(_ context.Context, userID int64) (users.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[userID]
	if !ok {
		rec = users.Record{FirstSeen: time.Now().UTC()}
		m.records[userID] = rec
	}
	return rec, nil
}

func (m *memStore) UpdateIdentity(_ context.Context, userID int64, username, displayName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.records[userID]
	if username != "" {
		rec.Username = username
	}
	if displayName != "" {
		rec.DisplayName = displayName
	}
	m.records[userID] = rec
	return nil
}

func (m *memStore) IncrementMessageCount(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.records[userID]
	rec.MessageCount++
	m.records[userID] = rec
	return nil
}

func (m *memStore) Reset(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.records[userID]
	rec.MessageCount = 0
	rec.QuotaNotified = false
	m.records[userID] = rec
	return nil
}

func (m *memStore) SetQuotaNotified(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.records[userID]
	rec.QuotaNotified = true
	m.records[userID] = rec
	return nil
}

// fakeLLM replays canned replies or a fixed error.
type fakeLLM struct {
	reply string
	err   error
	calls int
}

func (f *fakeLLM) Chat(_ context.Context, req llm.Request) (llm.Result, error) {
	f.calls++
	if f.err != nil {
		return llm.Result{}, f.err
	}
	return llm.Result{Text: f.reply}, nil
}

// recordingNotifier counts QuotaExhausted calls.
type recordingNotifier struct {
	mu    sync.Mutex
	calls []int64
	err   error
}

func (n *recordingNotifier) QuotaExhausted(_ context.Context, userID int64, _ users.Record) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, userID)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

type fixture struct {
	svc      *Service
	store    *memStore
	log      *conversation.Log
	llm      *fakeLLM
	notifier *recordingNotifier
}

func newFixture(t *testing.T, policy quota.Policy) *fixture {
	t.Helper()
	dir := t.TempDir()
	log := conversation.NewLog(filepath.Join(dir, "conversations"), dir, nil)
	store := newMemStore()
	client := &fakeLLM{reply: "Понимаю вашу ситуацию. Что уже было предпринято?"}
	notifier := &recordingNotifier{}
	svc := NewService(Options{
		Users:    store,
		Conv:     conversation.NewManager(log, conversation.DefaultWindowSize),
		Policy:   policy,
		Client:   client,
		Persona:  persona.Default(),
		Notifier: notifier,
	})
	return &fixture{svc: svc, store: store, log: log, llm: client, notifier: notifier}
}

func inbound(userID int64, text string) Inbound {
	return Inbound{UserID: userID, Username: "user", DisplayName: "User", Text: text}
}

// Scenario: a new user's first message is answered and leaves remaining = limit-1.
func TestFirstMessageConsumesOneQuota(t *testing.T) {
	f := newFixture(t, quota.NewPolicy(10, 999))
	ctx := context.Background()

	reply := f.svc.HandleMessage(ctx, inbound(42, "Hello"))
	if !strings.Contains(reply, "Понимаю вашу ситуацию") {
		t.Fatalf("reply = %q", reply)
	}

	remaining, limit, err := f.svc.Status(ctx, 42)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if limit != 10 || remaining != 9 {
		t.Fatalf("remaining/limit = %d/%d, want 9/10", remaining, limit)
	}
	if f.notifier.count() != 0 {
		t.Fatal("no notification expected for a fresh user")
	}
}

// Scenario: the admin identity is never denied no matter the volume.
func TestAdminNeverDenied(t *testing.T) {
	f := newFixture(t, quota.NewPolicy(10, 999))
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		reply := f.svc.HandleMessage(ctx, inbound(999, fmt.Sprintf("msg %d", i)))
		if strings.Contains(reply, "Демо-доступ исчерпан") {
			t.Fatalf("admin denied at message %d", i+1)
		}
		if strings.Contains(reply, "Осталось сообщений") {
			t.Fatalf("admin warned at message %d", i+1)
		}
	}
	if f.llm.calls != 50 {
		t.Fatalf("llm calls = %d, want 50", f.llm.calls)
	}
	if f.notifier.count() != 0 {
		t.Fatal("admin traffic must never notify")
	}
}

// Scenario: the final allowed message still gets a normal reply, the admin
// is notified exactly once, and the next message is denied outright.
func TestExhaustionNotifiesOnce(t *testing.T) {
	f := newFixture(t, quota.NewPolicy(10, 999))
	ctx := context.Background()

	var lastReply string
	for i := 0; i < 10; i++ {
		lastReply = f.svc.HandleMessage(ctx, inbound(42, fmt.Sprintf("msg %d", i)))
	}
	if !strings.Contains(lastReply, "Понимаю вашу ситуацию") {
		t.Fatalf("10th reply not produced normally: %q", lastReply)
	}
	if f.notifier.count() != 1 {
		t.Fatalf("notifications = %d, want 1", f.notifier.count())
	}

	remaining, _, err := f.svc.Status(ctx, 42)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("remaining = %d, want 0", remaining)
	}

	// 11th message: denied, no LLM call, no extra count, no second notification.
	callsBefore := f.llm.calls
	denied := f.svc.HandleMessage(ctx, inbound(42, "еще один вопрос"))
	if !strings.Contains(denied, "Демо-доступ исчерпан") {
		t.Fatalf("denial text = %q", denied)
	}
	if f.llm.calls != callsBefore {
		t.Fatal("denied message must not reach the LLM")
	}
	rec, _ := f.store.GetOrCreate(ctx, 42)
	if rec.MessageCount != 10 {
		t.Fatalf("denied message incremented count: %d", rec.MessageCount)
	}
	if f.notifier.count() != 1 {
		t.Fatalf("second notification fired: %d", f.notifier.count())
	}
}

// Scenario: an LLM failure yields the fixed apology, still spends quota, and
// the apology never enters conversation history.
func TestLLMFailureApology(t *testing.T) {
	f := newFixture(t, quota.NewPolicy(10, 999))
	f.llm.err = errors.New("upstream 529")
	ctx := context.Background()

	reply := f.svc.HandleMessage(ctx, inbound(42, "Вопрос"))
	if reply != ApologyText {
		t.Fatalf("reply = %q, want apology", reply)
	}

	rec, _ := f.store.GetOrCreate(ctx, 42)
	if rec.MessageCount != 1 {
		t.Fatalf("failed call must still consume quota, count = %d", rec.MessageCount)
	}

	turns, err := f.log.Load(ctx, 42)
	if err != nil {
		t.Fatalf("load transcript: %v", err)
	}
	if len(turns) != 1 || turns[0].Role != llm.RoleUser {
		t.Fatalf("transcript after failure = %+v, want only the user turn", turns)
	}
	for _, turn := range turns {
		if strings.Contains(turn.Content, "произошла ошибка") {
			t.Fatal("apology text leaked into conversation history")
		}
	}
}

// Scenario: admin reset restores the full allowance and re-arms notification.
func TestGrantQuotaRearmsNotification(t *testing.T) {
	f := newFixture(t, quota.NewPolicy(3, 999))
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		f.svc.HandleMessage(ctx, inbound(42, fmt.Sprintf("msg %d", i)))
	}
	if f.notifier.count() != 1 {
		t.Fatalf("notifications = %d, want 1", f.notifier.count())
	}

	if err := f.svc.GrantQuota(ctx, 42); err != nil {
		t.Fatalf("grant: %v", err)
	}
	remaining, _, err := f.svc.Status(ctx, 42)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if remaining != 3 {
		t.Fatalf("remaining after grant = %d, want 3", remaining)
	}

	// A fresh exhaustion cycle triggers a fresh notification.
	for i := 0; i < 3; i++ {
		f.svc.HandleMessage(ctx, inbound(42, fmt.Sprintf("again %d", i)))
	}
	if f.notifier.count() != 2 {
		t.Fatalf("notifications after second cycle = %d, want 2", f.notifier.count())
	}
}

func TestLowQuotaWarningSuffix(t *testing.T) {
	f := newFixture(t, quota.NewPolicy(10, 999))
	ctx := context.Background()

	var replies []string
	for i := 0; i < 10; i++ {
		replies = append(replies, f.svc.HandleMessage(ctx, inbound(42, fmt.Sprintf("msg %d", i))))
	}

	// Messages 1..6 leave remaining 9..4: no warning yet.
	for i := 0; i < 6; i++ {
		if strings.Contains(replies[i], "Осталось сообщений") {
			t.Fatalf("premature warning on message %d: %q", i+1, replies[i])
		}
	}
	// Messages 7..10 leave remaining 3..0: warning present with the count,
	// including zero on the final allowed reply.
	for i := 6; i < 10; i++ {
		want := fmt.Sprintf("Осталось сообщений в демо-доступе: %d", 10-(i+1))
		if !strings.Contains(replies[i], want) {
			t.Fatalf("message %d missing warning %q: %q", i+1, want, replies[i])
		}
	}
}

func TestNotifierFailureDoesNotBlockReply(t *testing.T) {
	f := newFixture(t, quota.NewPolicy(1, 999))
	f.notifier.err = errors.New("admin chat unreachable")
	ctx := context.Background()

	reply := f.svc.HandleMessage(ctx, inbound(42, "единственное сообщение"))
	if !strings.Contains(reply, "Понимаю вашу ситуацию") {
		t.Fatalf("reply lost to notifier failure: %q", reply)
	}

	// The episode is still marked notified: a broken admin channel must not
	// cause a notification storm.
	f.svc.HandleMessage(ctx, inbound(42, "второе"))
	if f.notifier.count() != 1 {
		t.Fatalf("notifier retried: %d calls", f.notifier.count())
	}
}

func TestResetSessionClearsContextOnly(t *testing.T) {
	f := newFixture(t, quota.NewPolicy(10, 999))
	ctx := context.Background()

	f.svc.HandleMessage(ctx, inbound(42, "до сброса"))
	f.svc.ResetSession(42)

	rec, _ := f.store.GetOrCreate(ctx, 42)
	if rec.MessageCount != 1 {
		t.Fatalf("session reset touched quota: count = %d", rec.MessageCount)
	}
	turns, err := f.log.Load(ctx, 42)
	if err != nil {
		t.Fatalf("load transcript: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("session reset truncated the durable transcript: %d turns", len(turns))
	}
}

func TestIdentityRefreshedOnEveryMessage(t *testing.T) {
	f := newFixture(t, quota.NewPolicy(10, 999))
	ctx := context.Background()

	f.svc.HandleMessage(ctx, Inbound{UserID: 42, Username: "old", DisplayName: "Old Name", Text: "hi"})
	f.svc.HandleMessage(ctx, Inbound{UserID: 42, Username: "new", DisplayName: "New Name", Text: "again"})

	rec, _ := f.store.GetOrCreate(ctx, 42)
	if rec.Username != "new" || rec.DisplayName != "New Name" {
		t.Fatalf("identity not refreshed: %+v", rec)
	}
}
