package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/BT0mob40-bot/gameplay/internal/models"
)

// Memory mirrors the Redis store for hermetic engine tests.
type Memory struct {
	mu        sync.Mutex
	sessions  map[string]*models.GameSession
	active    map[int64]map[string]bool
	completed map[int64][]string
	crashes   []models.CrashOutcome
}

func NewMemory() *Memory {
	return &Memory{
		sessions:  make(map[string]*models.GameSession),
		active:    make(map[int64]map[string]bool),
		completed: make(map[int64][]string),
	}
}

func (m *Memory) SaveSession(ctx context.Context, session *models.GameSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *session
	m.sessions[session.ID] = &copied
	if m.active[session.UserID] == nil {
		m.active[session.UserID] = make(map[string]bool)
	}
	m.active[session.UserID][session.ID] = true
	return nil
}

func (m *Memory) GetSession(ctx context.Context, id string) (*models.GameSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("game not found: %s", id)
	}
	copied := *session
	return &copied, nil
}

func (m *Memory) UpdateSession(ctx context.Context, session *models.GameSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *session
	m.sessions[session.ID] = &copied
	return nil
}

func (m *Memory) CompleteSession(ctx context.Context, userID int64, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.active[userID], id)
	m.completed[userID] = append(m.completed[userID], id)
	return nil
}

func (m *Memory) ActiveSessions(ctx context.Context, userID int64) ([]*models.GameSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*models.GameSession, 0)
	for id := range m.active[userID] {
		if session, ok := m.sessions[id]; ok {
			copied := *session
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *Memory) SessionHistory(ctx context.Context, userID int64, limit int64) ([]*models.GameSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := m.completed[userID]
	out := make([]*models.GameSession, 0, limit)
	for i := len(ids) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		if session, ok := m.sessions[ids[i]]; ok {
			copied := *session
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *Memory) PushCrashOutcome(ctx context.Context, outcome models.CrashOutcome, keep int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.crashes = append([]models.CrashOutcome{outcome}, m.crashes...)
	if int64(len(m.crashes)) > keep {
		m.crashes = m.crashes[:keep]
	}
	return nil
}

func (m *Memory) CrashOutcomes(ctx context.Context, limit int64) ([]models.CrashOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 || limit > int64(len(m.crashes)) {
		limit = int64(len(m.crashes))
	}
	out := make([]models.CrashOutcome, limit)
	copy(out, m.crashes[:limit])
	return out, nil
}

func (m *Memory) CheckRateLimit(ctx context.Context, userID int64, action string, limit int, window time.Duration) (bool, error) {
	return true, nil
}
