package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/guyajeux/tournament-registry/models"
	"github.com/guyajeux/tournament-registry/repositories"
	"github.com/guyajeux/tournament-registry/storage"
)

const (
	MinTournamentCapacity = 2
	MaxTournamentCapacity = 100
)

type TournamentService interface {
	CreateTournament(ctx context.Context, creatorID int, input CreateTournamentInput) (*models.Tournament, error)
	GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error)
	ListTournaments(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error)
	ListRange(ctx context.Context, from, to time.Time) ([]models.Tournament, error)
	UpdateTournamentDetails(ctx context.Context, id int, actor *models.User, input UpdateTournamentInput) (*models.Tournament, error)
	UpdateTournamentStatus(ctx context.Context, id int, actor *models.User, status models.TournamentStatus) (*models.Tournament, error)
	DeleteTournament(ctx context.Context, id int, actor *models.User) error
	UploadBanner(ctx context.Context, id int, actor *models.User, contentType string, banner io.Reader) (*models.Tournament, error)
}

type CreateTournamentInput struct {
	Name                 string     `json:"name"`
	Description          *string    `json:"description,omitempty"`
	Game                 string     `json:"game"`
	Date                 time.Time  `json:"date"`
	MaxPlayers           int        `json:"max_players"`
	RegistrationDeadline *time.Time `json:"registration_deadline,omitempty"`
	EntryFee             *float64   `json:"entry_fee,omitempty"`
	IsPublic             *bool      `json:"is_public,omitempty"`
	Tags                 []string   `json:"tags,omitempty"`
}

type UpdateTournamentInput struct {
	Name                 *string    `json:"name,omitempty"`
	Description          *string    `json:"description,omitempty"`
	Game                 *string    `json:"game,omitempty"`
	Date                 *time.Time `json:"date,omitempty"`
	MaxPlayers           *int       `json:"max_players,omitempty"`
	RegistrationDeadline *time.Time `json:"registration_deadline,omitempty"`
	EntryFee             *float64   `json:"entry_fee,omitempty"`
	IsPublic             *bool      `json:"is_public,omitempty"`
	Tags                 []string   `json:"tags,omitempty"`
}

type tournamentService struct {
	tournamentRepo   repositories.TournamentRepository
	registrationRepo repositories.RegistrationRepository
	uploader         storage.FileUploader
	logger           *slog.Logger
	now              func() time.Time
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	registrationRepo repositories.RegistrationRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tournamentRepo:   tournamentRepo,
		registrationRepo: registrationRepo,
		uploader:         uploader,
		logger:           logger,
		now:              time.Now,
	}
}

func (s *tournamentService) CreateTournament(ctx context.Context, creatorID int, input CreateTournamentInput) (*models.Tournament, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Game = strings.TrimSpace(input.Game)

	if err := s.validateDetails(input.Name, input.Game, input.Date, input.MaxPlayers, input.RegistrationDeadline, input.EntryFee); err != nil {
		return nil, err
	}
	if input.Date.Before(s.now()) {
		return nil, ErrTournamentDateInPast
	}

	isPublic := true
	if input.IsPublic != nil {
		isPublic = *input.IsPublic
	}

	tournament := &models.Tournament{
		Name:                 input.Name,
		Description:          input.Description,
		Game:                 input.Game,
		Date:                 input.Date,
		MaxPlayers:           input.MaxPlayers,
		Status:               models.StatusRegistrationOpen,
		CreatedByID:          creatorID,
		RegistrationDeadline: input.RegistrationDeadline,
		EntryFee:             input.EntryFee,
		IsPublic:             isPublic,
		Tags:                 input.Tags,
	}

	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		return nil, s.mapRepoError(err)
	}
	s.populateBannerURL(tournament)
	return tournament, nil
}

func (s *tournamentService) GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err)
	}
	s.populateBannerURL(tournament)
	return tournament, nil
}

// ListTournaments возвращает турниры и попутно чинит разъехавшиеся
// счётчики участников (оппортунистическая сверка).
func (s *tournamentService) ListTournaments(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	tournaments, err := s.tournamentRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	for i := range tournaments {
		t := &tournaments[i]
		count, err := s.registrationRepo.CountCapacity(ctx, t.ID)
		if err != nil {
			s.logger.Warn("failed to recount players during list",
				slog.Int("tournament_id", t.ID), slog.Any("error", err))
			continue
		}
		if count != t.CurrentPlayers {
			if err := s.tournamentRepo.SetPlayerCount(ctx, nil, t.ID, count); err != nil {
				s.logger.Warn("failed to repair player count",
					slog.Int("tournament_id", t.ID), slog.Any("error", err))
				continue
			}
			t.CurrentPlayers = count
		}
		s.populateBannerURL(t)
	}
	return tournaments, nil
}

func (s *tournamentService) ListRange(ctx context.Context, from, to time.Time) ([]models.Tournament, error) {
	filter := repositories.ListTournamentsFilter{From: &from, To: &to, PublicOnly: true}
	return s.ListTournaments(ctx, filter)
}

func (s *tournamentService) UpdateTournamentDetails(ctx context.Context, id int, actor *models.User, input UpdateTournamentInput) (*models.Tournament, error) {
	tournament, err := s.getOwned(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		tournament.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		tournament.Description = input.Description
	}
	if input.Game != nil {
		tournament.Game = strings.TrimSpace(*input.Game)
	}
	if input.Date != nil {
		tournament.Date = *input.Date
	}
	if input.MaxPlayers != nil {
		tournament.MaxPlayers = *input.MaxPlayers
	}
	if input.RegistrationDeadline != nil {
		tournament.RegistrationDeadline = input.RegistrationDeadline
	}
	if input.EntryFee != nil {
		tournament.EntryFee = input.EntryFee
	}
	if input.IsPublic != nil {
		tournament.IsPublic = *input.IsPublic
	}
	if input.Tags != nil {
		tournament.Tags = input.Tags
	}

	if err := s.validateDetails(tournament.Name, tournament.Game, tournament.Date, tournament.MaxPlayers, tournament.RegistrationDeadline, tournament.EntryFee); err != nil {
		return nil, err
	}

	if err := s.tournamentRepo.Update(ctx, tournament); err != nil {
		return nil, s.mapRepoError(err)
	}
	s.populateBannerURL(tournament)
	return tournament, nil
}

// UpdateTournamentStatus выполняет явный переход статуса. Автоматических
// переходов по времени нет: прошедший турнир с незакрытым статусом всё
// равно отклонит новые заявки через проверку даты в политике.
func (s *tournamentService) UpdateTournamentStatus(ctx context.Context, id int, actor *models.User, status models.TournamentStatus) (*models.Tournament, error) {
	if !isValidTournamentStatus(status) {
		return nil, ErrTournamentInvalidStatus
	}

	tournament, err := s.getOwned(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	if !isValidStatusTransition(tournament.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, tournament.Status, status)
	}

	if err := s.tournamentRepo.UpdateStatus(ctx, nil, id, status); err != nil {
		return nil, s.mapRepoError(err)
	}
	tournament.Status = status
	s.populateBannerURL(tournament)
	return tournament, nil
}

// DeleteTournament удаляет турнир. Удаление заблокировано, пока есть
// заявки, занимающие слоты.
func (s *tournamentService) DeleteTournament(ctx context.Context, id int, actor *models.User) error {
	tournament, err := s.getOwned(ctx, id, actor)
	if err != nil {
		return err
	}

	count, err := s.registrationRepo.CountCapacity(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count registrations before delete: %w", err)
	}
	if count > 0 {
		return ErrTournamentHasRegistrations
	}

	if err := s.tournamentRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrTournamentInUse) {
			return ErrTournamentHasRegistrations
		}
		return s.mapRepoError(err)
	}

	if tournament.BannerKey != nil && s.uploader != nil {
		if err := s.uploader.Delete(ctx, *tournament.BannerKey); err != nil {
			s.logger.Warn("failed to delete tournament banner",
				slog.Int("tournament_id", id), slog.Any("error", err))
		}
	}
	return nil
}

func (s *tournamentService) UploadBanner(ctx context.Context, id int, actor *models.User, contentType string, banner io.Reader) (*models.Tournament, error) {
	if s.uploader == nil {
		return nil, ErrUploadsNotConfigured
	}

	tournament, err := s.getOwned(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("tournaments/%d/banner", id)
	if _, err := s.uploader.Upload(ctx, key, contentType, banner); err != nil {
		return nil, fmt.Errorf("failed to upload banner: %w", err)
	}

	if err := s.tournamentRepo.UpdateBannerKey(ctx, id, &key); err != nil {
		return nil, s.mapRepoError(err)
	}
	tournament.BannerKey = &key
	s.populateBannerURL(tournament)
	return tournament, nil
}

func (s *tournamentService) getOwned(ctx context.Context, id int, actor *models.User) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err)
	}
	if actor.Role != models.RoleAdmin && tournament.CreatedByID != actor.ID {
		return nil, ErrForbiddenOperation
	}
	return tournament, nil
}

func (s *tournamentService) validateDetails(name, game string, date time.Time, maxPlayers int, deadline *time.Time, fee *float64) error {
	if name == "" {
		return ErrTournamentNameRequired
	}
	if game == "" {
		return ErrTournamentGameRequired
	}
	if date.IsZero() {
		return ErrTournamentDateRequired
	}
	if maxPlayers < MinTournamentCapacity || maxPlayers > MaxTournamentCapacity {
		return ErrTournamentInvalidCapacity
	}
	if deadline != nil && deadline.After(date) {
		return ErrTournamentInvalidDeadline
	}
	if fee != nil && *fee < 0 {
		return ErrTournamentInvalidFee
	}
	return nil
}

func (s *tournamentService) populateBannerURL(t *models.Tournament) {
	if t.BannerKey != nil && s.uploader != nil {
		url := s.uploader.GetPublicURL(*t.BannerKey)
		t.BannerURL = &url
	}
}

func (s *tournamentService) mapRepoError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrTournamentNameConflict):
		return ErrTournamentNameConflict
	default:
		return err
	}
}

func isValidTournamentStatus(status models.TournamentStatus) bool {
	switch status {
	case models.StatusPlanned, models.StatusRegistrationOpen, models.StatusRegistrationClosed,
		models.StatusInProgress, models.StatusCompleted, models.StatusCancelled:
		return true
	}
	return false
}

// isValidStatusTransition описывает машину состояний турнира. Отмена
// доступна из любого нетерминального состояния.
func isValidStatusTransition(current, next models.TournamentStatus) bool {
	if current == next {
		return true
	}
	if next == models.StatusCancelled {
		return !current.IsTerminal()
	}
	allowed := map[models.TournamentStatus]models.TournamentStatus{
		models.StatusPlanned:            models.StatusRegistrationOpen,
		models.StatusRegistrationOpen:   models.StatusRegistrationClosed,
		models.StatusRegistrationClosed: models.StatusInProgress,
		models.StatusInProgress:         models.StatusCompleted,
	}
	return allowed[current] == next
}
