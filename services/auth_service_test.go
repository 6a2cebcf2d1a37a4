package services

import (
	"context"
	"errors"
	"testing"

	"github.com/guyajeux/tournament-registry/models"
)

func TestRegisterAndLogin(t *testing.T) {
	repo := newMemUserRepo()
	s := NewAuthService(repo, discardLogger())

	user, err := s.Register(context.Background(), SignupInput{Name: "Alice", Email: "Alice@Example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("expected lowercased email, got %s", user.Email)
	}
	if user.Role != models.RoleMember {
		t.Fatalf("expected member role, got %s", user.Role)
	}
	if user.PasswordHash != "" {
		t.Fatalf("expected password hash to be stripped from response")
	}

	// Повторная регистрация на тот же email.
	if _, err := s.Register(context.Background(), SignupInput{Name: "Alice2", Email: "alice@example.com", Password: "secret1"}); !errors.Is(err, ErrUserEmailConflict) {
		t.Fatalf("expected ErrUserEmailConflict, got %v", err)
	}

	logged, err := s.Login(context.Background(), LoginInput{Email: "alice@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if logged.LastLogin == nil {
		t.Fatalf("expected last login to be recorded")
	}

	if _, err := s.Login(context.Background(), LoginInput{Email: "alice@example.com", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := s.Login(context.Background(), LoginInput{Email: "nobody@example.com", Password: "secret1"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	repo := newMemUserRepo()
	s := NewAuthService(repo, discardLogger())

	if _, err := s.Register(context.Background(), SignupInput{Name: "", Email: "a@b.c", Password: "secret1"}); !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
	if _, err := s.Register(context.Background(), SignupInput{Name: "Alice", Email: "a@b.c", Password: "short"}); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
}

func TestLoginDisabledAccount(t *testing.T) {
	repo := newMemUserRepo()
	s := NewAuthService(repo, discardLogger())

	user, err := s.Register(context.Background(), SignupInput{Name: "Alice", Email: "alice@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := repo.UpdateActive(context.Background(), user.ID, false); err != nil {
		t.Fatalf("disable account: %v", err)
	}

	if _, err := s.Login(context.Background(), LoginInput{Email: "alice@example.com", Password: "secret1"}); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
}

func TestSeedAdminIdempotent(t *testing.T) {
	repo := newMemUserRepo()
	s := NewAuthService(repo, discardLogger())

	// Без настроенных учётных данных посев пропускается.
	if err := s.SeedAdmin(context.Background(), "", ""); err != nil {
		t.Fatalf("seed with empty credentials failed: %v", err)
	}
	if total, _, _, _ := repo.Count(context.Background()); total != 0 {
		t.Fatalf("expected no users after skipped seed, got %d", total)
	}

	for i := 0; i < 3; i++ {
		if err := s.SeedAdmin(context.Background(), "Admin@Example.com", "supersecret"); err != nil {
			t.Fatalf("seed attempt %d failed: %v", i, err)
		}
	}

	total, _, admins, err := repo.Count(context.Background())
	if err != nil {
		t.Fatalf("count users: %v", err)
	}
	if total != 1 || admins != 1 {
		t.Fatalf("expected exactly one admin account, got total=%d admins=%d", total, admins)
	}

	admin, err := repo.GetByEmail(context.Background(), "admin@example.com")
	if err != nil {
		t.Fatalf("load admin: %v", err)
	}
	if admin.Role != models.RoleAdmin {
		t.Fatalf("expected admin role, got %s", admin.Role)
	}

	// Повторный посев не перезаписывает пароль существующей учётки.
	if _, err := s.Login(context.Background(), LoginInput{Email: "admin@example.com", Password: "supersecret"}); err != nil {
		t.Fatalf("admin login failed: %v", err)
	}
	if err := s.SeedAdmin(context.Background(), "admin@example.com", "differentpassword"); err != nil {
		t.Fatalf("reseed failed: %v", err)
	}
	if _, err := s.Login(context.Background(), LoginInput{Email: "admin@example.com", Password: "supersecret"}); err != nil {
		t.Fatalf("expected original admin password to keep working: %v", err)
	}
}
