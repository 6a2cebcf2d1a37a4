package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/guyajeux/tournament-registry/models"
	"github.com/lib/pq"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserEmailConflict = errors.New("email address is already in use")
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	Update(ctx context.Context, user *models.User) error
	UpdateActive(ctx context.Context, id int, isActive bool) error
	UpdateRole(ctx context.Context, id int, role models.UserRole) error
	UpdateLastLogin(ctx context.Context, id int, at time.Time) error
	UpdateAvatarKey(ctx context.Context, id int, avatarKey *string) error
	Count(ctx context.Context) (total, active, admins int, err error)
}

type postgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

const userColumns = `id, name, email, password_hash, role, is_active, notifications, favorite_games, avatar_key, last_login, created_at`

func (r *postgresUserRepository) scanUser(row interface {
	Scan(dest ...interface{}) error
}, u *models.User) error {
	return row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive,
		&u.Notifications, pq.Array(&u.FavoriteGames), &u.AvatarKey, &u.LastLogin, &u.CreatedAt,
	)
}

func (r *postgresUserRepository) Create(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (name, email, password_hash, role, is_active, notifications, favorite_games)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		u.Name, u.Email, u.PasswordHash, u.Role, u.IsActive, u.Notifications, pq.Array(u.FavoriteGames),
	).Scan(&u.ID, &u.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			if pqErr.Constraint == "users_email_key" {
				return ErrUserEmailConflict
			}
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *postgresUserRepository) findOne(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	u := &models.User{}
	row := r.db.QueryRowContext(ctx, query, args...)
	if err := r.scanUser(row, u); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return u, nil
}

func (r *postgresUserRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	return r.findOne(ctx, query, id)
}

func (r *postgresUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE lower(email) = lower($1)`, userColumns)
	return r.findOne(ctx, query, email)
}

func (r *postgresUserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	where := ""
	args := []interface{}{}
	argID := 1

	if filter.Search != "" {
		where = fmt.Sprintf(" WHERE name ILIKE $%d OR email ILIKE $%d", argID, argID)
		args = append(args, "%"+filter.Search+"%")
		argID++
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM users` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM users%s ORDER BY created_at DESC`, userColumns, where)
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
		if filter.Page > 1 {
			query += fmt.Sprintf(" OFFSET $%d", argID)
			args = append(args, (filter.Page-1)*filter.Limit)
		}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		var u models.User
		if err := r.scanUser(rows, &u); err != nil {
			return nil, 0, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, u)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating user rows: %w", err)
	}
	return users, total, nil
}

func (r *postgresUserRepository) Update(ctx context.Context, u *models.User) error {
	query := `
		UPDATE users SET
			name = $1,
			password_hash = $2,
			notifications = $3,
			favorite_games = $4
		WHERE id = $5`

	result, err := r.db.ExecContext(ctx, query,
		u.Name, u.PasswordHash, u.Notifications, pq.Array(u.FavoriteGames), u.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) UpdateActive(ctx context.Context, id int, isActive bool) error {
	query := `UPDATE users SET is_active = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, isActive, id)
	if err != nil {
		return fmt.Errorf("failed to update user active flag: %w", err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) UpdateRole(ctx context.Context, id int, role models.UserRole) error {
	query := `UPDATE users SET role = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, role, id)
	if err != nil {
		return fmt.Errorf("failed to update user role: %w", err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) UpdateLastLogin(ctx context.Context, id int, at time.Time) error {
	query := `UPDATE users SET last_login = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) UpdateAvatarKey(ctx context.Context, id int, avatarKey *string) error {
	query := `UPDATE users SET avatar_key = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, avatarKey, id)
	if err != nil {
		return fmt.Errorf("failed to update user avatar key: %w", err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) Count(ctx context.Context) (int, int, int, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE is_active),
			COUNT(*) FILTER (WHERE role = 'admin')
		FROM users`

	var total, active, admins int
	if err := r.db.QueryRowContext(ctx, query).Scan(&total, &active, &admins); err != nil {
		return 0, 0, 0, fmt.Errorf("failed to count users: %w", err)
	}
	return total, active, admins, nil
}
