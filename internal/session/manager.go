package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pictosong/pictosong-server/internal/game"
	"github.com/pictosong/pictosong-server/internal/push"
	"github.com/pictosong/pictosong-server/internal/room"
	"github.com/pictosong/pictosong-server/internal/round"
	"github.com/pictosong/pictosong-server/internal/store"
)

// Manager owns the live sessions, one per started match, keyed by room code.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	rooms *room.Registry
	store store.Store
}

// NewManager creates a session manager.
func NewManager(rooms *room.Registry, st store.Store) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		rooms:    rooms,
		store:    st,
	}
}

// StartMatch builds a session for a started room, subscribes every current
// member's push channel, and kicks off the first round.
func (m *Manager) StartMatch(r *room.Room) (*Session, error) {
	s := &Session{
		code:   r.Code,
		room:   r,
		pushes: push.NewRegistry(),
		store:  m.store,
	}

	names := r.Players()
	for _, name := range names {
		if ch := r.Pushes().Get(name); ch != nil {
			s.pushes.Subscribe(name, ch)
		}
	}

	s.ctrl = round.NewController(r.Code, m.resolveConfig(r), names, m.store, s)
	s.onFinished = func() {
		r.Finish()
		m.remove(r.Code)
		m.rooms.Remove(r.Code)
	}

	m.mu.Lock()
	m.sessions[r.Code] = s
	m.mu.Unlock()

	if err := s.ctrl.Start(); err != nil {
		m.remove(r.Code)
		return nil, err
	}

	slog.Info("match started", "room", r.Code, "players", len(names))
	return s, nil
}

// Get returns the session for a room code, or nil.
func (m *Manager) Get(code string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[code]
}

// Abandon stops and releases the session for a room code, if any.
func (m *Manager) Abandon(code string) {
	m.mu.Lock()
	s := m.sessions[code]
	delete(m.sessions, code)
	m.mu.Unlock()

	if s != nil {
		s.Stop()
		slog.Info("match abandoned", "room", code)
	}
}

// resolveConfig consults the room configuration source. On any failure it
// falls back to the configuration the room was created with, and as a last
// resort to the fixed default, rather than failing the match.
func (m *Manager) resolveConfig(r *room.Room) game.MatchConfig {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	cfg, err := m.store.RoomConfiguration(ctx, r.Code)
	if err != nil {
		slog.Warn("room configuration lookup failed, using creation config", "room", r.Code, "error", err)
		cfg = r.Config
	}
	if cfg.Validate() != nil {
		return game.DefaultConfig
	}
	return cfg
}

func (m *Manager) remove(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, code)
}
