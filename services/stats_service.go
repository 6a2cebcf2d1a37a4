package services

import (
	"context"
	"fmt"
	"time"

	"github.com/guyajeux/tournament-registry/models"
	"github.com/guyajeux/tournament-registry/repositories"
)

type StatsService interface {
	SiteStats(ctx context.Context) (*models.SiteStats, error)
	AdminStats(ctx context.Context) (*models.AdminStats, error)
	UserStats(ctx context.Context, userID int) (*models.UserStats, error)
}

type statsService struct {
	userRepo         repositories.UserRepository
	tournamentRepo   repositories.TournamentRepository
	registrationRepo repositories.RegistrationRepository
}

func NewStatsService(
	userRepo repositories.UserRepository,
	tournamentRepo repositories.TournamentRepository,
	registrationRepo repositories.RegistrationRepository,
) StatsService {
	return &statsService{
		userRepo:         userRepo,
		tournamentRepo:   tournamentRepo,
		registrationRepo: registrationRepo,
	}
}

func (s *statsService) SiteStats(ctx context.Context) (*models.SiteStats, error) {
	totalMembers, _, _, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load user counts: %w", err)
	}

	total, active, completed, games, err := s.tournamentRepo.SiteStats(ctx, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to load tournament counts: %w", err)
	}

	return &models.SiteStats{
		TotalMembers:         totalMembers,
		TotalTournaments:     total,
		ActiveTournaments:    active,
		CompletedTournaments: completed,
		TotalGames:           games,
	}, nil
}

func (s *statsService) AdminStats(ctx context.Context) (*models.AdminStats, error) {
	stats := &models.AdminStats{}

	total, active, admins, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load user counts: %w", err)
	}
	stats.Users.Total = total
	stats.Users.Active = active
	stats.Users.Admins = admins
	stats.Users.Inactive = total - active

	tTotal, upcoming, past, err := s.tournamentRepo.CountByDate(ctx, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to load tournament counts: %w", err)
	}
	stats.Tournaments.Total = tTotal
	stats.Tournaments.Upcoming = upcoming
	stats.Tournaments.Past = past

	regStats, err := s.registrationRepo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load registration stats: %w", err)
	}
	stats.Registrations = regStats

	return stats, nil
}

func (s *statsService) UserStats(ctx context.Context, userID int) (*models.UserStats, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	now := time.Now()
	joined, err := s.registrationRepo.CountActiveByUser(ctx, userID, false, now)
	if err != nil {
		return nil, fmt.Errorf("failed to count user registrations: %w", err)
	}
	upcoming, err := s.registrationRepo.CountActiveByUser(ctx, userID, true, now)
	if err != nil {
		return nil, fmt.Errorf("failed to count upcoming registrations: %w", err)
	}

	return &models.UserStats{
		TournamentsJoined:   joined,
		UpcomingTournaments: upcoming,
		MemberSince:         user.CreatedAt,
		LastLogin:           user.LastLogin,
	}, nil
}
