package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/guyajeux/tournament-registry/models"
	"github.com/guyajeux/tournament-registry/repositories"
	"golang.org/x/crypto/bcrypt"
)

type AuthService interface {
	Register(ctx context.Context, input SignupInput) (*models.User, error)
	Login(ctx context.Context, input LoginInput) (*models.User, error)
	// SeedAdmin идемпотентно создаёт административную учётку из конфигурации.
	// Учётные данные никогда не зашиваются в код; существующий пользователь
	// не перезаписывается.
	SeedAdmin(ctx context.Context, email, password string) error
}

type SignupInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authService struct {
	userRepo repositories.UserRepository
	logger   *slog.Logger
}

func NewAuthService(userRepo repositories.UserRepository, logger *slog.Logger) AuthService {
	return &authService{userRepo: userRepo, logger: logger}
}

func (s *authService) Register(ctx context.Context, input SignupInput) (*models.User, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))

	if input.Name == "" || input.Email == "" {
		return nil, ErrValidationFailed
	}
	if len(input.Password) < 6 {
		return nil, ErrPasswordTooShort
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:          input.Name,
		Email:         input.Email,
		PasswordHash:  string(hashedPassword),
		Role:          models.RoleMember,
		IsActive:      true,
		Notifications: true,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrUserEmailConflict) {
			return nil, ErrUserEmailConflict
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(input.Email)))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to compare password hash: %w", err)
	}

	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	now := time.Now()
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("failed to update last login", slog.Int("user_id", user.ID), slog.Any("error", err))
	}
	user.LastLogin = &now

	user.PasswordHash = ""
	return user, nil
}

func (s *authService) SeedAdmin(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		s.logger.Info("admin seed skipped: credentials not configured")
		return nil
	}

	_, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return nil // учётка уже существует, ничего не трогаем
	}
	if !errors.Is(err, repositories.ErrUserNotFound) {
		return fmt.Errorf("failed to check for existing admin: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &models.User{
		Name:          "Administrator",
		Email:         email,
		PasswordHash:  string(hashedPassword),
		Role:          models.RoleAdmin,
		IsActive:      true,
		Notifications: true,
	}
	if err := s.userRepo.Create(ctx, admin); err != nil {
		if errors.Is(err, repositories.ErrUserEmailConflict) {
			return nil // гонка с параллельным запуском, учётка уже есть
		}
		return fmt.Errorf("failed to seed admin account: %w", err)
	}

	s.logger.Info("admin account seeded", slog.String("email", email))
	return nil
}
