package application

import (
	"sync"
	"time"

	"github.com/bnema/dcloud-assistant/internal/domain"
	"github.com/bnema/dcloud-assistant/internal/metrics"
	"github.com/bnema/dcloud-assistant/internal/ports"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	DefaultSessionCapacity = 20
	DefaultSessionCooldown = 600 * time.Second
)

type Session struct {
	ID        string
	Memory    *RetrievalMemory
	Model     ports.Completer
	CreatedAt time.Time

	mu        sync.Mutex
	touchedAt time.Time
}

func (s *Session) TouchedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touchedAt
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.touchedAt = now
	s.mu.Unlock()
}

type SessionManagerConfig struct {
	Capacity int
	Cooldown time.Duration
}

// SessionManager keeps sessions in creation order. Once per cool-down an
// eviction pass drops the oldest sessions until the count is back to capacity.
type SessionManager struct {
	mu           sync.Mutex
	sessions     map[string]*Session
	order        []string
	lastEviction time.Time
	closed       bool

	capacity int
	cooldown time.Duration
	model    ports.Completer
	embedder ports.Embedder
	clock    ports.Clock
	logger   zerolog.Logger
}

func NewSessionManager(cfg SessionManagerConfig, model ports.Completer, embedder ports.Embedder, clock ports.Clock, logger zerolog.Logger) *SessionManager {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultSessionCapacity
	}
	if cfg.Cooldown < 0 {
		cfg.Cooldown = DefaultSessionCooldown
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &SessionManager{
		sessions:     make(map[string]*Session),
		lastEviction: clock.Now(),
		capacity:     cfg.Capacity,
		cooldown:     cfg.Cooldown,
		model:        model,
		embedder:     embedder,
		clock:        clock,
		logger:       logger,
	}
}

func (m *SessionManager) Create() (*Session, error) {
	now := m.clock.Now()
	memory := NewRetrievalMemory(m.embedder, m.logger)
	memory.AppendTurn(datetimeTurn(now))

	session := &Session{
		ID:        uuid.NewString(),
		Memory:    memory,
		Model:     m.model,
		CreatedAt: now,
		touchedAt: now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, domain.ErrSessionManagerClosed
	}

	m.sessions[session.ID] = session
	m.order = append(m.order, session.ID)
	m.evictLocked()
	metrics.SessionsActive.Set(float64(len(m.sessions)))

	m.logger.Info().Str("session", session.ID).Int("sessions", len(m.sessions)).Msg("session created")

	return session, nil
}

func (m *SessionManager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	session, ok := m.sessions[id]
	m.mu.Unlock()

	if ok {
		session.touch(m.clock.Now())
	}
	return session, ok
}

func (m *SessionManager) EvictIfDue() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := m.evictLocked()
	metrics.SessionsActive.Set(float64(len(m.sessions)))
	return evicted
}

func (m *SessionManager) evictLocked() int {
	if len(m.order) <= m.capacity {
		return 0
	}
	now := m.clock.Now()
	if now.Sub(m.lastEviction) <= m.cooldown {
		return 0
	}

	excess := len(m.order) - m.capacity
	for _, id := range m.order[:excess] {
		delete(m.sessions, id)
		m.logger.Debug().Str("session", id).Msg("session evicted")
	}
	m.order = append([]string(nil), m.order[excess:]...)
	m.lastEviction = now

	metrics.SessionEvictionsTotal.Add(float64(excess))
	m.logger.Info().Int("evicted", excess).Int("sessions", len(m.order)).Msg("session eviction pass")
	return excess
}

func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// IDs returns session ids oldest first.
func (m *SessionManager) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

func (m *SessionManager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.sessions = make(map[string]*Session)
	m.order = nil
	metrics.SessionsActive.Set(0)
}
