package attempt

import (
	"context"
	"sync"
	"time"

	"edubridge_backend/internal/util"
	"edubridge_backend/pkg/logger"
	"edubridge_backend/pkg/monitoring"
	"go.uber.org/zap"
)

// evictGrace is how long a session may outlive its own deadline (covers a
// submission still in flight) and how long terminal sessions stay readable
// before the janitor drops them.
const evictGrace = 10 * time.Minute

// Manager owns the live attempt sessions. Attempts are keyed by their UUID
// and are never shared across sessions; one student navigating back to a
// graded attempt gets the same session until the janitor evicts it.
type Manager struct {
	boundary     GradingBoundary
	tickInterval time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session

	stopJanitor chan struct{}
	janitorOnce sync.Once
}

func NewManager(boundary GradingBoundary, tickInterval time.Duration) *Manager {
	m := &Manager{
		boundary:     boundary,
		tickInterval: tickInterval,
		sessions:     make(map[string]*Session),
		stopJanitor:  make(chan struct{}),
	}
	go m.janitor()
	return m
}

// Start loads the quiz and opens a new Active session for the student.
func (m *Manager) Start(ctx context.Context, quizID, userID uint) (*Session, error) {
	session, err := NewSession(ctx, m.boundary, quizID, userID, m.tickInterval)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()

	monitoring.AttemptsStarted.Inc()
	monitoring.ActiveAttempts.Inc()
	return session, nil
}

// Get returns a live session by attempt ID.
func (m *Manager) Get(attemptID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[attemptID]
	if !ok {
		return nil, util.ErrAttemptNotFound
	}
	return session, nil
}

// Remove tears a session down and releases its countdown. The unmount path.
func (m *Manager) Remove(attemptID string) error {
	m.mu.Lock()
	session, ok := m.sessions[attemptID]
	if ok {
		delete(m.sessions, attemptID)
	}
	m.mu.Unlock()

	if !ok {
		return util.ErrAttemptNotFound
	}
	session.Close()
	monitoring.ActiveAttempts.Dec()
	return nil
}

// Shutdown stops the janitor and closes every live session.
func (m *Manager) Shutdown() {
	m.janitorOnce.Do(func() { close(m.stopJanitor) })

	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, session := range sessions {
		session.Close()
		monitoring.ActiveAttempts.Dec()
	}
}

// janitor periodically drops sessions nobody can use anymore: terminal ones
// past the grace window, and abandoned ones past their time limit plus
// grace. Closing releases the countdown goroutine.
func (m *Manager) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopJanitor:
			return
		case <-ticker.C:
			m.sweep(time.Now())
		}
	}
}

func (m *Manager) sweep(now time.Time) {
	m.mu.Lock()
	var expired []*Session
	for id, session := range m.sessions {
		deadline := session.CreatedAt.Add(time.Duration(session.Def.TimeLimitMinutes)*time.Minute + evictGrace)
		drop := now.After(deadline)
		if endedAt, ended := session.EndedAt(); ended && now.Sub(endedAt) > evictGrace {
			drop = true
		}
		if drop {
			expired = append(expired, session)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, session := range expired {
		session.Close()
		monitoring.ActiveAttempts.Dec()
		logger.Log.Info("evicted attempt session",
			zap.String("attemptId", session.ID),
			zap.String("phase", session.Phase().String()))
	}
}
