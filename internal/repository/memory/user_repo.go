package memory

import (
	"sort"
	"sync"

	"telehealth-backend/internal/domain"
)

// UserRepository is the in-memory user directory, keyed by email.
// Registration is overwrite-on-conflict; there is no uniqueness failure.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User
}

// NewUserRepository creates an empty user directory
func NewUserRepository() *UserRepository {
	return &UserRepository{
		users: make(map[string]*domain.User),
	}
}

// Save stores (or overwrites) the user record
func (r *UserRepository) Save(user domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u := user
	u.Profile = copyMap(user.Profile)
	r.users[user.Email] = &u
}

// Get returns a snapshot of the user with the given email
func (r *UserRepository) Get(email string) (domain.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[email]
	if !ok {
		return domain.User{}, false
	}
	return userSnapshot(u), true
}

// Role returns the stored role for email, or "" if unknown
func (r *UserRepository) Role(email string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if u, ok := r.users[email]; ok {
		return u.Role
	}
	return ""
}

// List returns all users ordered by email
func (r *UserRepository) List() []domain.User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, userSnapshot(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out
}

func userSnapshot(u *domain.User) domain.User {
	out := *u
	out.Profile = copyMap(u.Profile)
	return out
}
