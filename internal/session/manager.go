// Package session resolves which conversation a message belongs to. Absence
// is never an error: a missing, inactive, or foreign session token silently
// falls through to creating a fresh session, so a forged token yields a new
// conversation rather than an explicit denial. That mirrors the product
// behavior and is flagged in DESIGN.md.
package session

import (
	"context"
	"errors"
	"sync"

	"agentchat/internal/store"

	"github.com/google/uuid"
)

type Store interface {
	CreateSession(ctx context.Context, userID, sessionToken string) (store.ChatSession, error)
	ActiveSessionByToken(ctx context.Context, sessionToken string) (store.ChatSession, error)
	ActiveUserSession(ctx context.Context, userID, sessionToken string) (store.ChatSession, error)
	ListActiveSessions(ctx context.Context, userID string) ([]store.ChatSession, error)
}

// Manager owns the ephemeral user -> active-session-token cache. The cache is
// a best-effort accelerator; ownership is always re-verified against the
// store. Check-then-create runs under a per-user mutex so concurrent first
// requests from one user cannot spawn duplicate sessions.
type Manager struct {
	store Store

	mu     sync.Mutex
	active map[string]string
	locks  map[string]*sync.Mutex
}

func NewManager(sessionStore Store) *Manager {
	return &Manager{
		store:  sessionStore,
		active: make(map[string]string),
		locks:  make(map[string]*sync.Mutex),
	}
}

// Resolve returns the session token a new message for userID belongs to,
// creating a fresh session when no valid one exists. Only store failures
// propagate; "session not found" never does.
func (m *Manager) Resolve(ctx context.Context, userID, providedToken string) (string, error) {
	lock := m.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if providedToken != "" {
		_, err := m.store.ActiveUserSession(ctx, userID, providedToken)
		switch {
		case err == nil:
			m.setActive(userID, providedToken)
			return providedToken, nil
		case errors.Is(err, store.ErrNotFound):
			// Wrong owner, inactive, or unknown: fall through to a fresh session.
			return m.createSession(ctx, userID)
		default:
			return "", err
		}
	}

	if token, ok := m.activeToken(userID); ok {
		_, err := m.store.ActiveSessionByToken(ctx, token)
		switch {
		case err == nil:
			return token, nil
		case errors.Is(err, store.ErrNotFound):
			// Deactivated behind our back; drop through and recreate.
		default:
			return "", err
		}
	}

	return m.createSession(ctx, userID)
}

// Sessions lists the user's active sessions, newest first.
func (m *Manager) Sessions(ctx context.Context, userID string) ([]store.ChatSession, error) {
	return m.store.ListActiveSessions(ctx, userID)
}

// Invalidate drops the user's cache entry without touching the durable
// record, forcing the next Resolve without a token to create a new session.
func (m *Manager) Invalidate(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, userID)
}

func (m *Manager) createSession(ctx context.Context, userID string) (string, error) {
	token := uuid.NewString()
	if _, err := m.store.CreateSession(ctx, userID, token); err != nil {
		return "", err
	}
	m.setActive(userID, token)
	return token, nil
}

func (m *Manager) userLock(userID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[userID] = lock
	}
	return lock
}

func (m *Manager) activeToken(userID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.active[userID]
	return token, ok
}

func (m *Manager) setActive(userID, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active[userID] = token
}
