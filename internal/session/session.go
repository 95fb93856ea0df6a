// Package session tracks logged-in operators. Sessions live only in
// process memory: a restart logs everyone out, which is the intended
// behavior for a gate kiosk.
package session

import (
	"sync"
	"time"

	"campusgate/internal/auth"
)

// Identity is the resolved operator attached to a session token.
// Handlers receive it as a value, never through globals.
type Identity struct {
	ID       int64
	Username string
	FullName string
	Role     string
}

type entry struct {
	identity  Identity
	expiresAt time.Time
}

// Manager issues opaque tokens and resolves them back to identities
// until they expire or are deleted.
type Manager struct {
	ttl time.Duration

	mu       sync.RWMutex
	sessions map[string]entry

	done     chan struct{}
	stopOnce sync.Once
}

// NewManager starts a manager whose sessions last ttl. A background
// sweeper reclaims expired entries; call Stop to end it.
func NewManager(ttl time.Duration) *Manager {
	m := &Manager{
		ttl:      ttl,
		sessions: make(map[string]entry),
		done:     make(chan struct{}),
	}
	go m.sweepLoop()
	return m
}

// Create issues a fresh token for id.
func (m *Manager) Create(id Identity) (string, error) {
	token, err := auth.NewToken(32)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.sessions[token] = entry{identity: id, expiresAt: time.Now().Add(m.ttl)}
	m.mu.Unlock()
	return token, nil
}

// Get resolves a token. Expired entries are dropped on sight.
func (m *Manager) Get(token string) (Identity, bool) {
	if token == "" {
		return Identity{}, false
	}
	m.mu.RLock()
	e, ok := m.sessions[token]
	m.mu.RUnlock()
	if !ok {
		return Identity{}, false
	}
	if time.Now().After(e.expiresAt) {
		m.Delete(token)
		return Identity{}, false
	}
	return e.identity, true
}

// TTL reports how long a freshly created session lives.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Delete destroys a session. Safe to call with unknown tokens.
func (m *Manager) Delete(token string) {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
}

// Stop ends the background sweeper. Existing sessions remain readable.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.done) })
}

func (m *Manager) sweepLoop() {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-t.C:
			m.sweep(time.Now())
		}
	}
}

func (m *Manager) sweep(now time.Time) {
	m.mu.Lock()
	for token, e := range m.sessions {
		if now.After(e.expiresAt) {
			delete(m.sessions, token)
		}
	}
	m.mu.Unlock()
}
