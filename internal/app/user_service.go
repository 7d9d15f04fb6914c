package app

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"braincraft/internal/domain"
	"github.com/google/uuid"
)

const minPasswordLength = 6

// Registration is the input for creating a local account.
type Registration struct {
	Username string
	Email    string
	Password string
}

// LoginResult is an authenticated user with a signed session token.
type LoginResult struct {
	User  domain.User
	Token string
}

// UserService handles registration, login and profiles.
type UserService struct {
	users  UserRepository
	stats  AnalyticsReader
	hasher PasswordHasher
	tokens TokenIssuer
}

func NewUserService(users UserRepository, stats AnalyticsReader, hasher PasswordHasher, tokens TokenIssuer) *UserService {
	return &UserService{users: users, stats: stats, hasher: hasher, tokens: tokens}
}

// Register creates an account with an empty stats row.
func (s *UserService) Register(ctx context.Context, in Registration) (domain.User, error) {
	username := strings.TrimSpace(in.Username)
	email := normalizeEmail(in.Email)
	if username == "" || email == "" || in.Password == "" {
		return domain.User{}, domain.Invalid("username, email and password are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.User{}, domain.Invalid("email is not valid")
	}
	if len(in.Password) < minPasswordLength {
		return domain.User{}, domain.Invalid("password must be at least 6 characters")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return domain.User{}, err
	}
	return s.users.CreateUser(ctx, domain.User{
		ID:       uuid.NewString(),
		Username: username,
		Email:    email,
		Role:     domain.DefaultRole,
	}, hash)
}

// Login verifies credentials and issues a session token. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return LoginResult{}, domain.Invalid("email and password are required")
	}
	user, hash, err := s.users.GetCredentials(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return LoginResult{}, domain.ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if !s.hasher.Compare(hash, password) {
		return LoginResult{}, domain.ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(user)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{User: user, Token: token}, nil
}

// Profile returns the user with stats; totals are zero before any activity.
func (s *UserService) Profile(ctx context.Context, userID string) (domain.Profile, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return domain.Profile{}, err
	}
	stats, err := s.stats.UserStats(ctx, userID)
	if err != nil {
		return domain.Profile{}, err
	}
	return domain.Profile{User: user, Stats: stats}, nil
}

// UpdateProfile applies a partial update of username, email and avatar.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (domain.Profile, error) {
	if update.Username != nil {
		username := strings.TrimSpace(*update.Username)
		if username == "" {
			return domain.Profile{}, domain.Invalid("username must not be empty")
		}
		update.Username = &username
	}
	if update.Email != nil {
		email := normalizeEmail(*update.Email)
		if _, err := mail.ParseAddress(email); err != nil {
			return domain.Profile{}, domain.Invalid("email is not valid")
		}
		update.Email = &email
	}
	if _, err := s.users.UpdateProfile(ctx, userID, update); err != nil {
		return domain.Profile{}, err
	}
	return s.Profile(ctx, userID)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
