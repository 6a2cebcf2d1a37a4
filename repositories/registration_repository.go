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
	ErrRegistrationNotFound          = errors.New("registration not found")
	ErrRegistrationConflict          = errors.New("registration conflict: user already registered for this tournament")
	ErrRegistrationUserInvalid       = errors.New("registration user conflict or invalid")
	ErrRegistrationTournamentInvalid = errors.New("registration tournament conflict or invalid")
)

type RegistrationRepository interface {
	Create(ctx context.Context, reg *models.Registration) error
	FindByID(ctx context.Context, id int) (*models.Registration, error)
	// FindActiveByUserAndTournament возвращает неотменённую заявку пары
	// (user, tournament) — по частичному уникальному индексу она одна.
	FindActiveByUserAndTournament(ctx context.Context, userID, tournamentID int) (*models.Registration, error)
	ListByTournament(ctx context.Context, tournamentID int, includeUser bool) ([]*models.Registration, error)
	ListByUser(ctx context.Context, userID int) ([]*models.Registration, error)
	UpdateStatus(ctx context.Context, id int, status models.RegistrationStatus) error
	// PromoteOldestWaitlisted переводит самую раннюю заявку листа ожидания
	// в confirmed. Возвращает её id, либо ErrRegistrationNotFound, если
	// лист ожидания пуст.
	PromoteOldestWaitlisted(ctx context.Context, tournamentID int) (int, error)
	SetCheckIn(ctx context.Context, id int, at time.Time) error
	SetResult(ctx context.Context, id int, result models.RegistrationResult) error
	SetFeedback(ctx context.Context, id int, feedback models.RegistrationFeedback) error
	CountCapacity(ctx context.Context, tournamentID int) (int, error)
	CountActiveByUser(ctx context.Context, userID int, onlyUpcoming bool, now time.Time) (int, error)
	Stats(ctx context.Context) (models.RegistrationStats, error)
}

type postgresRegistrationRepository struct {
	db *sql.DB
}

func NewPostgresRegistrationRepository(db *sql.DB) RegistrationRepository {
	return &postgresRegistrationRepository{db: db}
}

const registrationColumns = `id, user_id, tournament_id, registered_at, status, notes,
	checked_in, checked_in_at,
	result_position, result_points, result_won, result_lost, result_drawn, result_prize,
	feedback_rating, feedback_comment, created_at`

func (r *postgresRegistrationRepository) scanRegistration(row interface {
	Scan(dest ...interface{}) error
}, reg *models.Registration) error {
	var (
		resultPosition  sql.NullInt64
		resultPoints    sql.NullInt64
		resultWon       sql.NullInt64
		resultLost      sql.NullInt64
		resultDrawn     sql.NullInt64
		resultPrize     sql.NullString
		feedbackRating  sql.NullInt64
		feedbackComment sql.NullString
	)

	err := row.Scan(
		&reg.ID, &reg.UserID, &reg.TournamentID, &reg.RegisteredAt, &reg.Status, &reg.Notes,
		&reg.CheckedIn, &reg.CheckedInAt,
		&resultPosition, &resultPoints, &resultWon, &resultLost, &resultDrawn, &resultPrize,
		&feedbackRating, &feedbackComment, &reg.CreatedAt,
	)
	if err != nil {
		return err
	}

	if resultPoints.Valid {
		result := &models.RegistrationResult{
			Points: int(resultPoints.Int64),
			Won:    int(resultWon.Int64),
			Lost:   int(resultLost.Int64),
			Drawn:  int(resultDrawn.Int64),
		}
		if resultPosition.Valid {
			pos := int(resultPosition.Int64)
			result.Position = &pos
		}
		if resultPrize.Valid {
			result.Prize = &resultPrize.String
		}
		reg.Result = result
	}
	if feedbackRating.Valid {
		feedback := &models.RegistrationFeedback{Rating: int(feedbackRating.Int64)}
		if feedbackComment.Valid {
			feedback.Comment = &feedbackComment.String
		}
		reg.Feedback = feedback
	}
	return nil
}

func (r *postgresRegistrationRepository) Create(ctx context.Context, reg *models.Registration) error {
	query := `
		INSERT INTO registrations (user_id, tournament_id, registered_at, status, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		reg.UserID, reg.TournamentID, reg.RegisteredAt, reg.Status, reg.Notes,
	).Scan(&reg.ID, &reg.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505": // unique_violation
				if pqErr.Constraint == "registrations_user_tournament_active_key" {
					return ErrRegistrationConflict
				}
			case "23503": // foreign_key_violation
				switch pqErr.Constraint {
				case "registrations_user_id_fkey":
					return ErrRegistrationUserInvalid
				case "registrations_tournament_id_fkey":
					return ErrRegistrationTournamentInvalid
				}
			}
		}
		return fmt.Errorf("failed to create registration: %w", err)
	}
	return nil
}

func (r *postgresRegistrationRepository) findOne(ctx context.Context, query string, args ...interface{}) (*models.Registration, error) {
	reg := &models.Registration{}
	row := r.db.QueryRowContext(ctx, query, args...)
	if err := r.scanRegistration(row, reg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to find registration: %w", err)
	}
	return reg, nil
}

func (r *postgresRegistrationRepository) FindByID(ctx context.Context, id int) (*models.Registration, error) {
	query := fmt.Sprintf(`SELECT %s FROM registrations WHERE id = $1`, registrationColumns)
	return r.findOne(ctx, query, id)
}

func (r *postgresRegistrationRepository) FindActiveByUserAndTournament(ctx context.Context, userID, tournamentID int) (*models.Registration, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM registrations
		WHERE user_id = $1 AND tournament_id = $2 AND status <> 'cancelled'`, registrationColumns)
	return r.findOne(ctx, query, userID, tournamentID)
}

func (r *postgresRegistrationRepository) ListByTournament(ctx context.Context, tournamentID int, includeUser bool) ([]*models.Registration, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM registrations
		WHERE tournament_id = $1
		ORDER BY registered_at ASC`, registrationColumns)

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations by tournament: %w", err)
	}
	defer rows.Close()

	registrations := make([]*models.Registration, 0)
	for rows.Next() {
		var reg models.Registration
		if err := r.scanRegistration(rows, &reg); err != nil {
			return nil, fmt.Errorf("failed to scan registration row: %w", err)
		}
		registrations = append(registrations, &reg)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating registration rows: %w", err)
	}

	if includeUser && len(registrations) > 0 {
		if err := r.attachUsers(ctx, registrations); err != nil {
			return nil, err
		}
	}
	return registrations, nil
}

// attachUsers догружает краткие данные пользователей одним запросом.
func (r *postgresRegistrationRepository) attachUsers(ctx context.Context, registrations []*models.Registration) error {
	ids := make([]int64, 0, len(registrations))
	for _, reg := range registrations {
		ids = append(ids, int64(reg.UserID))
	}

	query := `SELECT id, name, email, role, is_active, created_at FROM users WHERE id = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to load registration users: %w", err)
	}
	defer rows.Close()

	users := make(map[int]*models.User)
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.IsActive, &u.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan registration user: %w", err)
		}
		users[u.ID] = &u
	}
	if err = rows.Err(); err != nil {
		return fmt.Errorf("error iterating registration users: %w", err)
	}

	for _, reg := range registrations {
		reg.User = users[reg.UserID]
	}
	return nil
}

func (r *postgresRegistrationRepository) ListByUser(ctx context.Context, userID int) ([]*models.Registration, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM registrations
		WHERE user_id = $1
		ORDER BY registered_at DESC`, registrationColumns)

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations by user: %w", err)
	}
	defer rows.Close()

	registrations := make([]*models.Registration, 0)
	for rows.Next() {
		var reg models.Registration
		if err := r.scanRegistration(rows, &reg); err != nil {
			return nil, fmt.Errorf("failed to scan registration row: %w", err)
		}
		registrations = append(registrations, &reg)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating registration rows: %w", err)
	}
	return registrations, nil
}

func (r *postgresRegistrationRepository) UpdateStatus(ctx context.Context, id int, status models.RegistrationStatus) error {
	query := `UPDATE registrations SET status = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update registration status: %w", err)
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}

func (r *postgresRegistrationRepository) PromoteOldestWaitlisted(ctx context.Context, tournamentID int) (int, error) {
	query := `
		UPDATE registrations SET status = 'confirmed'
		WHERE id = (
			SELECT id FROM registrations
			WHERE tournament_id = $1 AND status = 'waitlisted'
			ORDER BY registered_at ASC, id ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id`

	var id int
	err := r.db.QueryRowContext(ctx, query, tournamentID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrRegistrationNotFound
		}
		return 0, fmt.Errorf("failed to promote waitlisted registration: %w", err)
	}
	return id, nil
}

func (r *postgresRegistrationRepository) SetCheckIn(ctx context.Context, id int, at time.Time) error {
	query := `UPDATE registrations SET checked_in = TRUE, checked_in_at = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("failed to set registration check-in: %w", err)
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}

func (r *postgresRegistrationRepository) SetResult(ctx context.Context, id int, result models.RegistrationResult) error {
	query := `
		UPDATE registrations SET
			result_position = $1,
			result_points = $2,
			result_won = $3,
			result_lost = $4,
			result_drawn = $5,
			result_prize = $6
		WHERE id = $7`

	res, err := r.db.ExecContext(ctx, query,
		result.Position, result.Points, result.Won, result.Lost, result.Drawn, result.Prize, id,
	)
	if err != nil {
		return fmt.Errorf("failed to set registration result: %w", err)
	}
	return checkAffectedRows(res, ErrRegistrationNotFound)
}

func (r *postgresRegistrationRepository) SetFeedback(ctx context.Context, id int, feedback models.RegistrationFeedback) error {
	query := `UPDATE registrations SET feedback_rating = $1, feedback_comment = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, feedback.Rating, feedback.Comment, id)
	if err != nil {
		return fmt.Errorf("failed to set registration feedback: %w", err)
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}

// CountCapacity считает заявки, занимающие слоты турнира (без отменённых
// и листа ожидания). Это источник истины для current_players.
func (r *postgresRegistrationRepository) CountCapacity(ctx context.Context, tournamentID int) (int, error) {
	query := `
		SELECT COUNT(*) FROM registrations
		WHERE tournament_id = $1 AND status NOT IN ('cancelled', 'waitlisted')`

	var count int
	if err := r.db.QueryRowContext(ctx, query, tournamentID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tournament registrations: %w", err)
	}
	return count, nil
}

func (r *postgresRegistrationRepository) CountActiveByUser(ctx context.Context, userID int, onlyUpcoming bool, now time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM registrations r
		JOIN tournaments t ON t.id = r.tournament_id
		WHERE r.user_id = $1 AND r.status IN ('pending', 'confirmed', 'completed')`
	args := []interface{}{userID}

	if onlyUpcoming {
		query += ` AND t.date > $2 AND r.status <> 'completed'`
		args = append(args, now)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count user registrations: %w", err)
	}
	return count, nil
}

func (r *postgresRegistrationRepository) Stats(ctx context.Context) (models.RegistrationStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status IN ('pending', 'confirmed')),
			COUNT(*) FILTER (WHERE status = 'cancelled')
		FROM registrations`

	var stats models.RegistrationStats
	if err := r.db.QueryRowContext(ctx, query).Scan(&stats.Total, &stats.Active, &stats.Cancelled); err != nil {
		return models.RegistrationStats{}, fmt.Errorf("failed to load registration stats: %w", err)
	}
	if stats.Total > 0 {
		stats.CancellationRate = float64(stats.Cancelled) / float64(stats.Total) * 100
	}
	return stats, nil
}
