package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/guyajeux/tournament-registry/models"
	"github.com/guyajeux/tournament-registry/repositories"
	"github.com/guyajeux/tournament-registry/storage"
)

type UserService interface {
	GetUserByID(ctx context.Context, id int) (*models.User, error)
	UpdateProfile(ctx context.Context, id int, input UpdateProfileInput) (*models.User, error)
	UploadAvatar(ctx context.Context, id int, contentType string, avatar io.Reader) (*models.User, error)

	// Администрирование пользователей
	ListUsers(ctx context.Context, filter models.UserFilter) (models.UserListResponse, error)
	SetUserActive(ctx context.Context, userID int, isActive bool) (*models.User, error)
	SetUserRole(ctx context.Context, userID, actorID int, role models.UserRole) (*models.User, error)
}

type UpdateProfileInput struct {
	Name          *string  `json:"name,omitempty"`
	Notifications *bool    `json:"notifications,omitempty"`
	FavoriteGames []string `json:"favorite_games,omitempty"`
}

type userService struct {
	userRepo repositories.UserRepository
	uploader storage.FileUploader
}

func NewUserService(userRepo repositories.UserRepository, uploader storage.FileUploader) UserService {
	return &userService{userRepo: userRepo, uploader: uploader}
}

func (s *userService) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	s.populateAvatarURL(user)
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, id int, input UpdateProfileInput) (*models.User, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrValidationFailed
		}
		user.Name = name
	}
	if input.Notifications != nil {
		user.Notifications = *input.Notifications
	}
	if input.FavoriteGames != nil {
		user.FavoriteGames = input.FavoriteGames
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	user.PasswordHash = ""
	s.populateAvatarURL(user)
	return user, nil
}

func (s *userService) UploadAvatar(ctx context.Context, id int, contentType string, avatar io.Reader) (*models.User, error) {
	if s.uploader == nil {
		return nil, ErrUploadsNotConfigured
	}

	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("users/%d/avatar", id)
	if _, err := s.uploader.Upload(ctx, key, contentType, avatar); err != nil {
		return nil, fmt.Errorf("failed to upload avatar: %w", err)
	}

	if err := s.userRepo.UpdateAvatarKey(ctx, id, &key); err != nil {
		return nil, fmt.Errorf("failed to store avatar key: %w", err)
	}
	user.AvatarKey = &key
	user.PasswordHash = ""
	s.populateAvatarURL(user)
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context, filter models.UserFilter) (models.UserListResponse, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}

	users, total, err := s.userRepo.List(ctx, filter)
	if err != nil {
		return models.UserListResponse{}, err
	}
	for i := range users {
		users[i].PasswordHash = ""
		s.populateAvatarURL(&users[i])
	}
	return models.UserListResponse{
		Users:      users,
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}, nil
}

func (s *userService) SetUserActive(ctx context.Context, userID int, isActive bool) (*models.User, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role == models.RoleAdmin && !isActive {
		return nil, ErrCannotDisableAdmin
	}

	if err := s.userRepo.UpdateActive(ctx, userID, isActive); err != nil {
		return nil, fmt.Errorf("failed to update active flag: %w", err)
	}
	user.IsActive = isActive
	user.PasswordHash = ""
	return user, nil
}

func (s *userService) SetUserRole(ctx context.Context, userID, actorID int, role models.UserRole) (*models.User, error) {
	switch role {
	case models.RoleMember, models.RoleOrganizer, models.RoleAdmin:
	default:
		return nil, ErrValidationFailed
	}
	if userID == actorID {
		return nil, ErrCannotDemoteSelf
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.UpdateRole(ctx, userID, role); err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}
	user.Role = role
	user.PasswordHash = ""
	return user, nil
}

func (s *userService) getUser(ctx context.Context, id int) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

func (s *userService) populateAvatarURL(u *models.User) {
	if u.AvatarKey != nil && s.uploader != nil {
		url := s.uploader.GetPublicURL(*u.AvatarKey)
		u.AvatarURL = &url
	}
}
