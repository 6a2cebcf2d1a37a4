package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/guyajeux/tournament-registry/repositories"
	"golang.org/x/sync/errgroup"
)

const reconcilerWorkers = 4

// PlayerCountReconciler чинит расхождения между current_players и реальным
// числом заявок. Защищает от узкого окна неатомарного обновления счётчика
// при register/unregister.
type PlayerCountReconciler struct {
	tournamentRepo   repositories.TournamentRepository
	registrationRepo repositories.RegistrationRepository
	logger           *slog.Logger
}

func NewPlayerCountReconciler(
	tournamentRepo repositories.TournamentRepository,
	registrationRepo repositories.RegistrationRepository,
	logger *slog.Logger,
) *PlayerCountReconciler {
	return &PlayerCountReconciler{
		tournamentRepo:   tournamentRepo,
		registrationRepo: registrationRepo,
		logger:           logger,
	}
}

// Run пересчитывает счётчики всех нетерминальных турниров. Идемпотентна:
// повторный запуск на согласованных данных ничего не меняет.
func (r *PlayerCountReconciler) Run(ctx context.Context) error {
	ids, err := r.tournamentRepo.ListNonTerminalIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tournaments for reconciliation: %w", err)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(reconcilerWorkers)

	for _, id := range ids {
		id := id
		g.Go(func() error {
			count, err := r.registrationRepo.CountCapacity(gCtx, id)
			if err != nil {
				return fmt.Errorf("failed to recount tournament %d: %w", id, err)
			}
			if err := r.tournamentRepo.SetPlayerCount(gCtx, nil, id, count); err != nil {
				return fmt.Errorf("failed to repair count for tournament %d: %w", id, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	r.logger.Debug("player count reconciliation finished", slog.Int("tournaments", len(ids)))
	return nil
}
