package memory

import (
	"sync"

	"github.com/google/uuid"
)

// presenceEntry binds a user to its current live connection. The announced
// role is kept alongside so the offline transition can decide whether to
// broadcast without consulting the directory.
type presenceEntry struct {
	connID uuid.UUID
	role   string
}

// PresenceRepository tracks which users currently hold a live connection.
// At most one connection per email: a later SetOnline silently supersedes
// the earlier connection (last-connect-wins). All operations are total —
// absence is an empty result, never an error.
type PresenceRepository struct {
	mu      sync.RWMutex
	byEmail map[string]presenceEntry
	byConn  map[uuid.UUID]string
}

// NewPresenceRepository creates an empty presence registry
func NewPresenceRepository() *PresenceRepository {
	return &PresenceRepository{
		byEmail: make(map[string]presenceEntry),
		byConn:  make(map[uuid.UUID]string),
	}
}

// SetOnline registers (or overwrites) the live connection for email.
// A previous connection handle for the same email is discarded without
// notification.
func (r *PresenceRepository) SetOnline(email, role string, connID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byEmail[email]; ok {
		delete(r.byConn, prev.connID)
	}
	r.byEmail[email] = presenceEntry{connID: connID, role: role}
	r.byConn[connID] = email
}

// SetOffline removes the presence entry bound to connID and reports the
// identity it carried. A connection that never announced itself online
// (or was already removed, or superseded) yields ok=false.
func (r *PresenceRepository) SetOffline(connID uuid.UUID) (email, role string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	email, ok = r.byConn[connID]
	if !ok {
		return "", "", false
	}

	entry := r.byEmail[email]
	// Only drop the presence entry if it still points at this connection;
	// a newer connection may have superseded it.
	if entry.connID == connID {
		delete(r.byEmail, email)
	}
	delete(r.byConn, connID)

	return email, entry.role, true
}

// Lookup returns the live connection for email, if any
func (r *PresenceRepository) Lookup(email string) (uuid.UUID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.byEmail[email]
	return entry.connID, ok
}

// IsOnline reports whether email currently holds a live connection
func (r *PresenceRepository) IsOnline(email string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byEmail[email]
	return ok
}

// OnlineEmails returns all identities with a live presence entry
func (r *PresenceRepository) OnlineEmails() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	emails := make([]string, 0, len(r.byEmail))
	for email := range r.byEmail {
		emails = append(emails, email)
	}
	return emails
}

// Count returns the number of live presence entries
func (r *PresenceRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byEmail)
}
