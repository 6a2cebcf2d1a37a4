package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/guyajeux/tournament-registry/models"
	"github.com/guyajeux/tournament-registry/repositories"
)

// RegistrationService оркестрирует политику допуска над записями турнира
// и заявки.
type RegistrationService interface {
	Register(ctx context.Context, tournamentID, userID int, input RegisterInput) (*models.Registration, error)
	Unregister(ctx context.Context, tournamentID, userID int) error
	Confirm(ctx context.Context, registrationID, actorID int) (*models.Registration, error)
	CheckIn(ctx context.Context, registrationID, actorID int) (*models.Registration, error)
	SubmitResult(ctx context.Context, registrationID int, actor *models.User, result models.RegistrationResult) error
	SubmitFeedback(ctx context.Context, registrationID, actorID int, feedback models.RegistrationFeedback) error
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Registration, error)
	ListByUser(ctx context.Context, userID int) ([]*models.Registration, error)
	SyncPlayerCount(ctx context.Context, tournamentID int) (int, error)
}

const maxRegistrationNotesLength = 500

type RegisterInput struct {
	Notes        *string `json:"notes,omitempty"`
	JoinWaitlist bool    `json:"join_waitlist,omitempty"`
}

type registrationService struct {
	registrationRepo repositories.RegistrationRepository
	tournamentRepo   repositories.TournamentRepository
	userRepo         repositories.UserRepository
	logger           *slog.Logger
	now              func() time.Time
}

func NewRegistrationService(
	registrationRepo repositories.RegistrationRepository,
	tournamentRepo repositories.TournamentRepository,
	userRepo repositories.UserRepository,
	logger *slog.Logger,
) RegistrationService {
	return &registrationService{
		registrationRepo: registrationRepo,
		tournamentRepo:   tournamentRepo,
		userRepo:         userRepo,
		logger:           logger,
		now:              time.Now,
	}
}

// Register регистрирует участника в турнире. При отказе политики заявка не
// создаётся; при заполненном турнире и input.JoinWaitlist участник попадает
// в лист ожидания, не занимая слот.
func (s *registrationService) Register(ctx context.Context, tournamentID, userID int, input RegisterInput) (*models.Registration, error) {
	if input.Notes != nil && len(*input.Notes) > maxRegistrationNotesLength {
		return nil, ErrRegistrationNotesTooLong
	}

	tournament, err := s.getTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	existing, err := s.findActive(ctx, userID, tournamentID)
	if err != nil {
		return nil, err
	}

	if policyErr := CanRegister(tournament, existing, s.now()); policyErr != nil {
		if errors.Is(policyErr, ErrTournamentFull) && input.JoinWaitlist {
			return s.joinWaitlist(ctx, tournament, existing, userID, input)
		}
		return nil, policyErr
	}

	// Атомарный захват слота закрывает гонку check-then-act: два
	// одновременных запроса на последний слот не переполнят турнир.
	claimed, err := s.tournamentRepo.ClaimSlot(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to claim slot: %w", err)
	}
	if !claimed {
		return nil, ErrTournamentFull
	}

	registration := &models.Registration{
		UserID:       userID,
		TournamentID: tournamentID,
		RegisteredAt: s.now(),
		Status:       models.RegistrationConfirmed,
		Notes:        input.Notes,
	}

	if err := s.registrationRepo.Create(ctx, registration); err != nil {
		if releaseErr := s.tournamentRepo.ReleaseSlot(ctx, tournamentID); releaseErr != nil {
			s.logger.Error("failed to release slot after registration failure",
				slog.Int("tournament_id", tournamentID), slog.Any("error", releaseErr))
		}
		if errors.Is(err, repositories.ErrRegistrationConflict) {
			return nil, ErrAlreadyRegistered
		}
		return nil, fmt.Errorf("failed to create registration: %w", err)
	}

	count, err := s.SyncPlayerCount(ctx, tournamentID)
	if err != nil {
		// Счётчик починит фоновая сверка; сама регистрация уже состоялась.
		s.logger.Error("failed to sync player count after registration",
			slog.Int("tournament_id", tournamentID), slog.Any("error", err))
	} else {
		tournament.CurrentPlayers = count
	}

	s.attachContext(ctx, registration, tournament)
	return registration, nil
}

func (s *registrationService) joinWaitlist(ctx context.Context, tournament *models.Tournament, existing *models.Registration, userID int, input RegisterInput) (*models.Registration, error) {
	if err := CanJoinWaitlist(tournament, existing, s.now()); err != nil {
		return nil, err
	}

	registration := &models.Registration{
		UserID:       userID,
		TournamentID: tournament.ID,
		RegisteredAt: s.now(),
		Status:       models.RegistrationWaitlisted,
		Notes:        input.Notes,
	}
	if err := s.registrationRepo.Create(ctx, registration); err != nil {
		if errors.Is(err, repositories.ErrRegistrationConflict) {
			return nil, ErrAlreadyWaitlisted
		}
		return nil, fmt.Errorf("failed to create waitlist registration: %w", err)
	}

	s.attachContext(ctx, registration, tournament)
	return registration, nil
}

// Unregister отменяет заявку пары (user, tournament). Освободившийся слот
// отдаётся самой ранней заявке листа ожидания (FIFO); политика при
// продвижении не перепроверяется — лист пополнялся только пока турнир был
// полон.
func (s *registrationService) Unregister(ctx context.Context, tournamentID, userID int) error {
	if _, err := s.getTournament(ctx, tournamentID); err != nil {
		return err
	}

	registration, err := s.findActive(ctx, userID, tournamentID)
	if err != nil {
		return err
	}
	if registration == nil {
		return ErrRegistrationNotFound
	}

	if err := s.registrationRepo.UpdateStatus(ctx, registration.ID, models.RegistrationCancelled); err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return ErrRegistrationNotFound
		}
		return fmt.Errorf("failed to cancel registration: %w", err)
	}

	if registration.Status.CountsTowardCapacity() {
		promotedID, err := s.registrationRepo.PromoteOldestWaitlisted(ctx, tournamentID)
		switch {
		case err == nil:
			s.logger.Info("promoted waitlisted registration",
				slog.Int("tournament_id", tournamentID), slog.Int("registration_id", promotedID))
		case errors.Is(err, repositories.ErrRegistrationNotFound):
			// лист ожидания пуст
		default:
			return fmt.Errorf("failed to promote from waitlist: %w", err)
		}
	}

	if _, err := s.SyncPlayerCount(ctx, tournamentID); err != nil {
		s.logger.Error("failed to sync player count after unregistration",
			slog.Int("tournament_id", tournamentID), slog.Any("error", err))
	}
	return nil
}

func (s *registrationService) Confirm(ctx context.Context, registrationID, actorID int) (*models.Registration, error) {
	registration, err := s.getOwned(ctx, registrationID, actorID)
	if err != nil {
		return nil, err
	}
	if registration.Status != models.RegistrationPending {
		return registration, nil
	}
	if err := s.registrationRepo.UpdateStatus(ctx, registrationID, models.RegistrationConfirmed); err != nil {
		return nil, fmt.Errorf("failed to confirm registration: %w", err)
	}
	registration.Status = models.RegistrationConfirmed
	return registration, nil
}

func (s *registrationService) CheckIn(ctx context.Context, registrationID, actorID int) (*models.Registration, error) {
	registration, err := s.getOwned(ctx, registrationID, actorID)
	if err != nil {
		return nil, err
	}
	if !registration.Status.CountsTowardCapacity() {
		return nil, ErrForbiddenOperation
	}

	at := s.now()
	if err := s.registrationRepo.SetCheckIn(ctx, registrationID, at); err != nil {
		return nil, fmt.Errorf("failed to check in: %w", err)
	}
	registration.CheckedIn = true
	registration.CheckedInAt = &at
	return registration, nil
}

// SubmitResult фиксирует итог выступления. Доступно администраторам и
// организатору соответствующего турнира.
func (s *registrationService) SubmitResult(ctx context.Context, registrationID int, actor *models.User, result models.RegistrationResult) error {
	registration, err := s.registrationRepo.FindByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return ErrRegistrationNotFound
		}
		return fmt.Errorf("failed to load registration: %w", err)
	}

	if actor.Role != models.RoleAdmin {
		tournament, err := s.getTournament(ctx, registration.TournamentID)
		if err != nil {
			return err
		}
		if tournament.CreatedByID != actor.ID {
			return ErrForbiddenOperation
		}
	}

	if err := s.registrationRepo.SetResult(ctx, registrationID, result); err != nil {
		return fmt.Errorf("failed to store result: %w", err)
	}
	return nil
}

func (s *registrationService) SubmitFeedback(ctx context.Context, registrationID, actorID int, feedback models.RegistrationFeedback) error {
	if feedback.Rating < 1 || feedback.Rating > 5 {
		return ErrInvalidFeedbackRating
	}
	if _, err := s.getOwned(ctx, registrationID, actorID); err != nil {
		return err
	}
	if err := s.registrationRepo.SetFeedback(ctx, registrationID, feedback); err != nil {
		return fmt.Errorf("failed to store feedback: %w", err)
	}
	return nil
}

func (s *registrationService) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Registration, error) {
	if _, err := s.getTournament(ctx, tournamentID); err != nil {
		return nil, err
	}
	return s.registrationRepo.ListByTournament(ctx, tournamentID, true)
}

func (s *registrationService) ListByUser(ctx context.Context, userID int) ([]*models.Registration, error) {
	registrations, err := s.registrationRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	// Подгружаем турниры для отображения списка "мои заявки".
	for _, registration := range registrations {
		tournament, err := s.tournamentRepo.GetByID(ctx, registration.TournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to load tournament for registration: %w", err)
		}
		registration.Tournament = tournament
	}
	return registrations, nil
}

// SyncPlayerCount пересчитывает current_players по заявкам и записывает
// только при расхождении. Идемпотентна, безопасна для повторных запусков.
func (s *registrationService) SyncPlayerCount(ctx context.Context, tournamentID int) (int, error) {
	count, err := s.registrationRepo.CountCapacity(ctx, tournamentID)
	if err != nil {
		return 0, err
	}
	if err := s.tournamentRepo.SetPlayerCount(ctx, nil, tournamentID, count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *registrationService) getTournament(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament: %w", err)
	}
	return tournament, nil
}

// findActive возвращает nil, nil при отсутствии живой заявки.
func (s *registrationService) findActive(ctx context.Context, userID, tournamentID int) (*models.Registration, error) {
	registration, err := s.registrationRepo.FindActiveByUserAndTournament(ctx, userID, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to check existing registration: %w", err)
	}
	return registration, nil
}

func (s *registrationService) getOwned(ctx context.Context, registrationID, actorID int) (*models.Registration, error) {
	registration, err := s.registrationRepo.FindByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to load registration: %w", err)
	}
	if registration.UserID != actorID {
		return nil, ErrForbiddenOperation
	}
	return registration, nil
}

func (s *registrationService) attachContext(ctx context.Context, registration *models.Registration, tournament *models.Tournament) {
	registration.Tournament = tournament
	user, err := s.userRepo.GetByID(ctx, registration.UserID)
	if err != nil {
		s.logger.Warn("failed to attach user to registration",
			slog.Int("user_id", registration.UserID), slog.Any("error", err))
		return
	}
	user.PasswordHash = ""
	registration.User = user
}
