package user

import (
	"strings"
	"time"

	"telehealth-backend/internal/domain"
	"telehealth-backend/pkg/constants"
	apperrors "telehealth-backend/pkg/errors"
	"telehealth-backend/pkg/jwt"
	"telehealth-backend/pkg/password"
)

// UserRepository is the directory the service reads and writes
type UserRepository interface {
	Save(user domain.User)
	Get(email string) (domain.User, bool)
	Role(email string) string
	List() []domain.User
}

// PresenceRegistry is the read-side of presence used for doctor listings
type PresenceRegistry interface {
	OnlineEmails() []string
}

// Service handles user registration, login and directory queries
type Service struct {
	users      UserRepository
	presence   PresenceRegistry
	jwtManager *jwt.Manager
}

// NewService creates a new user service
func NewService(users UserRepository, presence PresenceRegistry, jwtManager *jwt.Manager) *Service {
	return &Service{
		users:      users,
		presence:   presence,
		jwtManager: jwtManager,
	}
}

// RegisterInput contains registration data
type RegisterInput struct {
	Email    string
	Role     string
	Profile  map[string]interface{}
	Password string
}

// Register stores (or updates) a user record. Registration is
// overwrite-on-conflict; an existing password hash is preserved when the
// update carries no new password, and the original registration date is
// kept across updates.
func (s *Service) Register(input *RegisterInput) (*domain.UserResponse, error) {
	if input.Email == "" {
		return nil, apperrors.MissingFieldError("email")
	}
	if len(input.Email) > constants.MaxEmailLength {
		return nil, apperrors.ValidationError("Email address too long")
	}
	if input.Role == "" {
		return nil, apperrors.MissingFieldError("userType")
	}
	if input.Profile == nil {
		return nil, apperrors.MissingFieldError("userData")
	}

	existing, exists := s.users.Get(input.Email)

	passwordHash := ""
	if input.Password != "" {
		if err := password.Validate(input.Password); err != nil {
			return nil, apperrors.ValidationError(err.Error())
		}
		hash, err := password.Hash(input.Password)
		if err != nil {
			return nil, apperrors.InternalError("failed to hash password")
		}
		passwordHash = hash
	} else if exists {
		passwordHash = existing.PasswordHash
	}

	registeredDate := time.Now()
	if exists {
		registeredDate = existing.RegisteredDate
	}

	user := domain.User{
		Email:          input.Email,
		Role:           NormalizeRole(input.Role),
		Profile:        input.Profile,
		PasswordHash:   passwordHash,
		RegisteredDate: registeredDate,
	}
	s.users.Save(user)

	return user.ToResponse(), nil
}

// Login verifies credentials and issues an access token
func (s *Service) Login(email, plainPassword string) (*domain.UserResponse, string, error) {
	if email == "" || plainPassword == "" {
		return nil, "", apperrors.ValidationError("Email and password are required")
	}

	user, ok := s.users.Get(email)
	if !ok {
		return nil, "", apperrors.UserNotFoundError()
	}

	if user.PasswordHash == "" || !password.Verify(user.PasswordHash, plainPassword) {
		return nil, "", apperrors.InvalidCredentialsError()
	}

	token, err := s.jwtManager.GenerateAccessToken(user.Email, user.Role)
	if err != nil {
		return nil, "", apperrors.InternalError("failed to issue token")
	}

	return user.ToResponse(), token, nil
}

// Get returns a single user record
func (s *Service) Get(email string) (*domain.UserResponse, error) {
	user, ok := s.users.Get(email)
	if !ok {
		return nil, apperrors.UserNotFoundError()
	}
	return user.ToResponse(), nil
}

// List returns the full user directory, password hashes stripped
func (s *Service) List() []*domain.UserResponse {
	users := s.users.List()
	out := make([]*domain.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, users[i].ToResponse())
	}
	return out
}

// EnsureKnown upserts a minimal record for a user announcing itself online
// before completing registration, so the directory can resolve its role.
// An existing record keeps its password hash and registration date; profile
// fields from the announcement are merged over the stored ones.
func (s *Service) EnsureKnown(email, role string, profile map[string]interface{}) domain.User {
	existing, exists := s.users.Get(email)

	merged := make(map[string]interface{})
	if exists {
		for k, v := range existing.Profile {
			merged[k] = v
		}
	}
	for k, v := range profile {
		merged[k] = v
	}

	normalized := NormalizeRole(role)
	if normalized == "" && exists {
		normalized = existing.Role
	}

	user := domain.User{
		Email:          email,
		Role:           normalized,
		Profile:        merged,
		RegisteredDate: time.Now(),
	}
	if exists {
		user.PasswordHash = existing.PasswordHash
		user.RegisteredDate = existing.RegisteredDate
	}

	s.users.Save(user)
	return user
}

// OnlineDoctors returns the identities of all currently present users whose
// directory role is Doctor. Presence entries without a directory record, or
// with any other role, are excluded.
func (s *Service) OnlineDoctors() []string {
	doctors := make([]string, 0)
	for _, email := range s.presence.OnlineEmails() {
		if s.users.Role(email) == constants.RoleDoctor {
			doctors = append(doctors, email)
		}
	}
	return doctors
}

// NormalizeRole maps loosely-typed client role strings onto the two
// canonical roles; unrecognized values pass through unchanged.
func NormalizeRole(role string) string {
	switch strings.ToLower(role) {
	case "doctor":
		return constants.RoleDoctor
	case "patient":
		return constants.RolePatient
	default:
		return role
	}
}
