package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"braincraft/internal/app"
	"braincraft/internal/auth"
	"braincraft/internal/domain"
	"braincraft/internal/infra/memory"
	"golang.org/x/crypto/bcrypt"
)

func newUserService(t *testing.T) (*app.UserService, *auth.Tokens) {
	t.Helper()
	tokens, err := auth.NewTokens("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	store := memory.NewStore()
	return app.NewUserService(store, store, auth.NewBcryptHasher(bcrypt.MinCost), tokens), tokens
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	users, tokens := newUserService(t)

	user, err := users.Register(ctx, app.Registration{Username: "alice", Email: " Alice@Example.com ", Password: "hunter22"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.ID == "" || user.Role != domain.DefaultRole || user.Email != "alice@example.com" {
		t.Fatalf("unexpected user %+v", user)
	}

	login, err := users.Login(ctx, "alice@example.com", "hunter22")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := tokens.Verify(login.Token)
	if err != nil || claims.Subject != user.ID {
		t.Fatalf("expected token for %s, got %+v %v", user.ID, claims, err)
	}

	if _, err := users.Login(ctx, "alice@example.com", "wrong"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for wrong password, got %v", err)
	}
	if _, err := users.Login(ctx, "nobody@example.com", "hunter22"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for unknown email, got %v", err)
	}

	profile, err := users.Profile(ctx, user.ID)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.Stats.QuizzesTaken != 0 || profile.Username != "alice" {
		t.Fatalf("unexpected profile %+v", profile)
	}
}

func TestRegisterConflictsAndValidation(t *testing.T) {
	ctx := context.Background()
	users, _ := newUserService(t)
	if _, err := users.Register(ctx, app.Registration{Username: "alice", Email: "a@example.com", Password: "hunter22"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := users.Register(ctx, app.Registration{Username: "alice2", Email: "a@example.com", Password: "hunter22"}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict on email, got %v", err)
	}
	if _, err := users.Register(ctx, app.Registration{Username: "alice", Email: "b@example.com", Password: "hunter22"}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict on username, got %v", err)
	}
	for _, in := range []app.Registration{
		{Email: "c@example.com", Password: "hunter22"},
		{Username: "carol", Email: "not-an-email", Password: "hunter22"},
		{Username: "carol", Email: "c@example.com", Password: "123"},
	} {
		if _, err := users.Register(ctx, in); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("expected invalid input for %+v, got %v", in, err)
		}
	}
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	users, _ := newUserService(t)
	alice, _ := users.Register(ctx, app.Registration{Username: "alice", Email: "a@example.com", Password: "hunter22"})
	_, _ = users.Register(ctx, app.Registration{Username: "bob", Email: "b@example.com", Password: "hunter22"})

	taken := "bob"
	if _, err := users.UpdateProfile(ctx, alice.ID, domain.ProfileUpdate{Username: &taken}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	avatar := "https://example.com/a.png"
	name := "alicia"
	profile, err := users.UpdateProfile(ctx, alice.ID, domain.ProfileUpdate{Username: &name, AvatarURL: &avatar})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if profile.Username != "alicia" || profile.AvatarURL == nil || *profile.AvatarURL != avatar || profile.Email != "a@example.com" {
		t.Fatalf("unexpected profile %+v", profile)
	}
}
