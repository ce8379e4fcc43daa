package server

import (
	"sync"

	"github.com/google/uuid"
)

// Registry is the live-session registry: one slot per username. It enforces
// a single active login per username and answers presence queries. Safe for
// concurrent use.
type Registry struct {
	mu    sync.Mutex
	users map[string]uuid.UUID
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{users: make(map[string]uuid.UUID)}
}

// Login claims the username for the given session. It returns false if
// another live session already holds it.
func (r *Registry) Login(username string, id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[username]; ok {
		return false
	}
	r.users[username] = id
	return true
}

// Logout releases the username, but only if the given session still owns it.
// The owner check keeps a stale teardown from evicting a fresh login.
func (r *Registry) Logout(username string, id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if owner, ok := r.users[username]; ok && owner == id {
		delete(r.users, username)
	}
}

// Online returns the usernames with a live session.
func (r *Registry) Online() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	online := make([]string, 0, len(r.users))
	for username := range r.users {
		online = append(online, username)
	}
	return online
}

// Count returns the number of live logged-in sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}
