package sessions

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/osa-run/osa/internal/bus"
	"github.com/osa-run/osa/pkg/models"
)

type supervisedActor struct {
	actor    *Actor
	restarts int
	closing  atomic.Bool
}

// Manager is the Session Manager (§4.K): a `session_id → actor` lookup
// with a one-restart-then-escalate supervision policy.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*supervisedActor
	sessionsDir string
	process     ProcessFunc
	bus         *bus.Bus
	logger      *slog.Logger
}

// New builds a Session Manager. process implements the actual ReAct
// reasoning (internal/reasoning.Loop.Run, typically).
func New(sessionsDir string, process ProcessFunc, b *bus.Bus, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		sessions:    map[string]*supervisedActor{},
		sessionsDir: sessionsDir,
		process:     process,
		bus:         b,
		logger:      logger.With("component", "sessions"),
	}
}

// Create spawns a supervised reasoning actor, auto-generating an id if
// sessionID is empty; idempotent (returns ErrAlreadyStarted if the id
// already has a live actor — §4.K "idempotent with :already_started").
func (m *Manager) Create(sessionID string) (string, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sessionID]; ok {
		return sessionID, ErrAlreadyStarted
	}
	m.sessions[sessionID] = m.spawn(sessionID)
	return sessionID, nil
}

// Resume returns the existing actor for sessionID, or creates one.
func (m *Manager) Resume(sessionID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sessionID]; !ok {
		m.sessions[sessionID] = m.spawn(sessionID)
	}
	return sessionID
}

func (m *Manager) spawn(sessionID string) *supervisedActor {
	sup := &supervisedActor{}
	sup.actor = newActor(sessionID, m.sessionsDir, m.process, m.bus, m.logger)
	go m.watch(sessionID, sup)
	return sup
}

// watch restarts a crashed actor's mailbox loop once before escalating
// (logging and leaving the session absent from the table) (§4.K
// "at most one restart per session before escalating").
func (m *Manager) watch(sessionID string, sup *supervisedActor) {
	<-sup.actor.done
	if sup.closing.Load() {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.sessions[sessionID]
	if !ok || current != sup {
		return
	}
	if sup.restarts >= 1 {
		m.logger.Error("session actor crashed twice, escalating", "session_id", sessionID)
		delete(m.sessions, sessionID)
		return
	}

	m.logger.Warn("session actor mailbox loop ended unexpectedly, restarting once", "session_id", sessionID)
	restarted := &supervisedActor{restarts: sup.restarts + 1}
	restarted.actor = newActor(sessionID, m.sessionsDir, m.process, m.bus, m.logger)
	m.sessions[sessionID] = restarted
	go m.watch(sessionID, restarted)
}

// Send routes message to sessionID's actor, creating it via Resume
// semantics if absent.
func (m *Manager) Send(ctx context.Context, sessionID, message, channel string) (string, error) {
	m.mu.RLock()
	sup, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		m.Resume(sessionID)
		m.mu.RLock()
		sup = m.sessions[sessionID]
		m.mu.RUnlock()
	}
	return sup.actor.Send(ctx, message, channel)
}

// Close gracefully stops sessionID's actor.
func (m *Manager) Close(sessionID string) error {
	m.mu.Lock()
	sup, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	sup.closing.Store(true)
	sup.actor.Close()
	return nil
}

// Alive reports whether sessionID currently has a live actor.
func (m *Manager) Alive(sessionID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.sessions[sessionID]
	return ok
}

// List returns every currently-live session id.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		out = append(out, id)
	}
	return out
}

// GetMessages returns sessionID's transcript, from the live actor if
// present or from disk otherwise (§4.K "get_messages (via persistent JSONL)").
func (m *Manager) GetMessages(sessionID string) ([]models.Message, error) {
	m.mu.RLock()
	sup, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if ok {
		return sup.actor.Messages(), nil
	}
	return LoadMessages(m.sessionsDir, sessionID)
}
