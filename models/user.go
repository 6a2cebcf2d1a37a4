package models

import "time"

// UserRole представляет роль пользователя, соответствующую ENUM в БД.
type UserRole string

const (
	RoleMember    UserRole = "member"
	RoleOrganizer UserRole = "organizer"
	RoleAdmin     UserRole = "admin"
)

// User представляет участника клуба.
type User struct {
	ID            int        `json:"id" db:"id"`
	Name          string     `json:"name" db:"name"`
	Email         string     `json:"email" db:"email"`
	PasswordHash  string     `json:"-" db:"password_hash"`
	Role          UserRole   `json:"role" db:"role"`
	IsActive      bool       `json:"is_active" db:"is_active"`
	Notifications bool       `json:"notifications" db:"notifications"`
	FavoriteGames []string   `json:"favorite_games,omitempty" db:"favorite_games"`
	AvatarKey     *string    `json:"-" db:"avatar_key"`
	AvatarURL     *string    `json:"avatar_url,omitempty" db:"-"`
	LastLogin     *time.Time `json:"last_login,omitempty" db:"last_login"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserFilter struct {
	Search string
	Page   int
	Limit  int
}

type UserListResponse struct {
	Users      []User `json:"users"`
	TotalCount int    `json:"total_count"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
}
