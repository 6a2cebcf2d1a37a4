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
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentNameConflict = errors.New("tournament name conflict for this date")
	ErrTournamentInvalidOwner = errors.New("invalid tournament creator reference")
	ErrTournamentInUse        = errors.New("tournament has registrations")
)

type ListTournamentsFilter struct {
	Status      *models.TournamentStatus
	Game        *string
	CreatedByID *int
	PublicOnly  bool
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	Update(ctx context.Context, tournament *models.Tournament) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error
	UpdateBannerKey(ctx context.Context, id int, bannerKey *string) error
	Delete(ctx context.Context, id int) error

	// ClaimSlot атомарно занимает слот: увеличивает current_players, только
	// пока есть свободная вместимость. false — турнир полон.
	ClaimSlot(ctx context.Context, id int) (bool, error)
	ReleaseSlot(ctx context.Context, id int) error
	SetPlayerCount(ctx context.Context, exec SQLExecutor, id int, count int) error

	CountByDate(ctx context.Context, now time.Time) (total, upcoming, past int, err error)
	SiteStats(ctx context.Context, now time.Time) (total, active, completed, games int, err error)
	ListNonTerminalIDs(ctx context.Context) ([]int, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `id, name, description, game, date, max_players, current_players,
	status, created_by, registration_deadline, entry_fee, is_public, tags, banner_key, created_at`

func (r *postgresTournamentRepository) scanTournament(row interface {
	Scan(dest ...interface{}) error
}, t *models.Tournament) error {
	return row.Scan(
		&t.ID, &t.Name, &t.Description, &t.Game, &t.Date, &t.MaxPlayers, &t.CurrentPlayers,
		&t.Status, &t.CreatedByID, &t.RegistrationDeadline, &t.EntryFee, &t.IsPublic,
		pq.Array(&t.Tags), &t.BannerKey, &t.CreatedAt,
	)
}

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (
			name, description, game, date, max_players, status,
			created_by, registration_deadline, entry_fee, is_public, tags
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, current_players, created_at`

	err := r.db.QueryRowContext(ctx, query,
		t.Name, t.Description, t.Game, t.Date, t.MaxPlayers, t.Status,
		t.CreatedByID, t.RegistrationDeadline, t.EntryFee, t.IsPublic, pq.Array(t.Tags),
	).Scan(&t.ID, &t.CurrentPlayers, &t.CreatedAt)

	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	query := fmt.Sprintf(`SELECT %s FROM tournaments WHERE id = $1`, tournamentColumns)

	t := &models.Tournament{}
	if err := r.scanTournament(r.db.QueryRowContext(ctx, query, id), t); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament: %w", err)
	}
	return t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	query := fmt.Sprintf(`SELECT %s FROM tournaments WHERE 1=1`, tournamentColumns)
	args := []interface{}{}
	argID := 1

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}
	if filter.Game != nil {
		query += fmt.Sprintf(" AND game ILIKE $%d", argID)
		args = append(args, "%"+*filter.Game+"%")
		argID++
	}
	if filter.CreatedByID != nil {
		query += fmt.Sprintf(" AND created_by = $%d", argID)
		args = append(args, *filter.CreatedByID)
		argID++
	}
	if filter.PublicOnly {
		query += " AND is_public"
	}
	if filter.From != nil {
		query += fmt.Sprintf(" AND date >= $%d", argID)
		args = append(args, *filter.From)
		argID++
	}
	if filter.To != nil {
		query += fmt.Sprintf(" AND date <= $%d", argID)
		args = append(args, *filter.To)
		argID++
	}

	query += " ORDER BY date ASC, created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		var t models.Tournament
		if scanErr := r.scanTournament(rows, &t); scanErr != nil {
			return nil, fmt.Errorf("failed to scan tournament row: %w", scanErr)
		}
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tournament rows: %w", err)
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) Update(ctx context.Context, t *models.Tournament) error {
	// current_players и banner_key обновляются своими методами
	query := `
		UPDATE tournaments SET
			name = $1,
			description = $2,
			game = $3,
			date = $4,
			max_players = $5,
			registration_deadline = $6,
			entry_fee = $7,
			is_public = $8,
			tags = $9
		WHERE id = $10`

	result, err := r.db.ExecContext(ctx, query,
		t.Name, t.Description, t.Game, t.Date, t.MaxPlayers,
		t.RegistrationDeadline, t.EntryFee, t.IsPublic, pq.Array(t.Tags),
		t.ID,
	)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET status = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, status, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateBannerKey(ctx context.Context, id int, bannerKey *string) error {
	query := `UPDATE tournaments SET banner_key = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, bannerKey, id)
	if err != nil {
		return fmt.Errorf("failed to update tournament banner key: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM tournaments WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) ClaimSlot(ctx context.Context, id int) (bool, error) {
	query := `
		UPDATE tournaments
		SET current_players = current_players + 1
		WHERE id = $1 AND current_players < max_players`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to claim tournament slot: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check claimed slot: %w", err)
	}
	return affected > 0, nil
}

func (r *postgresTournamentRepository) ReleaseSlot(ctx context.Context, id int) error {
	query := `
		UPDATE tournaments
		SET current_players = current_players - 1
		WHERE id = $1 AND current_players > 0`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to release tournament slot: %w", err)
	}
	return nil
}

func (r *postgresTournamentRepository) SetPlayerCount(ctx context.Context, exec SQLExecutor, id int, count int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET current_players = $1 WHERE id = $2 AND current_players <> $1`
	if _, err := executor.ExecContext(ctx, query, count, id); err != nil {
		return fmt.Errorf("failed to set tournament player count: %w", err)
	}
	return nil
}

func (r *postgresTournamentRepository) CountByDate(ctx context.Context, now time.Time) (int, int, int, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE date > $1),
			COUNT(*) FILTER (WHERE date <= $1)
		FROM tournaments`

	var total, upcoming, past int
	if err := r.db.QueryRowContext(ctx, query, now).Scan(&total, &upcoming, &past); err != nil {
		return 0, 0, 0, fmt.Errorf("failed to count tournaments: %w", err)
	}
	return total, upcoming, past, nil
}

func (r *postgresTournamentRepository) SiteStats(ctx context.Context, now time.Time) (int, int, int, int, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE date >= $1 AND status IN ('planned', 'registration_open', 'registration_closed', 'in_progress')),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(DISTINCT game)
		FROM tournaments`

	var total, active, completed, games int
	if err := r.db.QueryRowContext(ctx, query, now).Scan(&total, &active, &completed, &games); err != nil {
		return 0, 0, 0, 0, fmt.Errorf("failed to load site tournament stats: %w", err)
	}
	return total, active, completed, games, nil
}

func (r *postgresTournamentRepository) ListNonTerminalIDs(ctx context.Context) ([]int, error) {
	query := `SELECT id FROM tournaments WHERE status NOT IN ('completed', 'cancelled')`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list non-terminal tournaments: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan tournament id: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tournament ids: %w", err)
	}
	return ids, nil
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505": // unique_violation
			if pqErr.Constraint == "tournaments_name_date_key" {
				return ErrTournamentNameConflict
			}
		case "23503": // foreign_key_violation
			switch pqErr.Constraint {
			case "tournaments_created_by_fkey":
				return ErrTournamentInvalidOwner
			case "registrations_tournament_id_fkey":
				return ErrTournamentInUse
			}
		}
	}
	return fmt.Errorf("tournament repository error: %w", err)
}
