package checkout

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for unknown or foreign session ids.
var ErrSessionNotFound = errors.New("session not found")

// Registry holds live checkout sessions in memory. Sessions are ephemeral;
// losing the process loses in-flight carts, which is acceptable because
// nothing is persisted before submit.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewRegistry returns an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: map[uuid.UUID]*Session{}}
}

// Create starts a new session for the vendor and registers it.
func (r *Registry) Create(vendorID uuid.UUID, customer Customer) *Session {
	s := NewSession(vendorID, customer)
	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()
	return s
}

// Get returns the session scoped to the vendor. Foreign sessions are reported
// as not found to avoid leaking their existence across tenants.
func (r *Registry) Get(vendorID, id uuid.UUID) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok || s.VendorID() != vendorID {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete removes the session if it belongs to the vendor. Sessions owned by
// an in-flight submit cannot be removed.
func (r *Registry) Delete(vendorID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.VendorID() != vendorID {
		return ErrSessionNotFound
	}
	if s.Snapshot().State == StateSubmitting {
		return ErrSessionLocked
	}
	delete(r.sessions, id)
	return nil
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
