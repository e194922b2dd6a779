package conversation

import (
	"context"
	"sync"
)

// Manager maintains the bounded in-memory context window per user on top of
// the durable Log. The window is what gets sent to the model; the Log keeps
// everything.
type Manager struct {
	log        *Log
	windowSize int

	mu      sync.Mutex
	windows map[int64][]Turn
}

func NewManager(log *Log, windowSize int) *Manager {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	return &Manager{
		log:        log,
		windowSize: windowSize,
		windows:    make(map[int64][]Turn),
	}
}

// Window returns a copy of the user's context window. On first access after
// process start it hydrates from the durable transcript, clipped to the most
// recent windowSize turns.
func (m *Manager) Window(ctx context.Context, userID int64) ([]Turn, error) {
	m.mu.Lock()
	cached, ok := m.windows[userID]
	m.mu.Unlock()
	if ok {
		return copyTurns(cached), nil
	}

	turns, err := m.log.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	turns = clip(turns, m.windowSize)

	m.mu.Lock()
	// Another goroutine may have hydrated meanwhile; keep the first result.
	if existing, ok := m.windows[userID]; ok {
		turns = existing
	} else {
		m.windows[userID] = turns
	}
	m.mu.Unlock()
	return copyTurns(turns), nil
}

// AddTurn appends a turn durably, then to the cached window, then clips the
// cache. Durable write first, so a crash cannot lose a turn the window has.
func (m *Manager) AddTurn(ctx context.Context, userID int64, role, content string) error {
	// Hydrate before appending so the window reflects prior history too.
	if _, err := m.Window(ctx, userID); err != nil {
		return err
	}
	if err := m.log.Append(ctx, userID, role, content); err != nil {
		return err
	}

	m.mu.Lock()
	window := append(m.windows[userID], Turn{Role: role, Content: content})
	m.windows[userID] = clip(window, m.windowSize)
	m.mu.Unlock()
	return nil
}

// ResetWindow empties the cached window for userID. The durable transcript
// is untouched; the user simply starts the next exchange with no context.
func (m *Manager) ResetWindow(userID int64) {
	m.mu.Lock()
	m.windows[userID] = []Turn{}
	m.mu.Unlock()
}

func clip(turns []Turn, n int) []Turn {
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return turns
}

func copyTurns(turns []Turn) []Turn {
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}
