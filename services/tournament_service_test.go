package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/guyajeux/tournament-registry/models"
	"github.com/guyajeux/tournament-registry/repositories"
)

type tournamentFixture struct {
	tournaments   *memTournamentRepo
	registrations *memRegistrationRepo
	service       *tournamentService
	now           time.Time
	organizer     *models.User
	admin         *models.User
}

func newTournamentFixture(t *testing.T) *tournamentFixture {
	t.Helper()
	f := &tournamentFixture{
		tournaments:   newMemTournamentRepo(),
		registrations: newMemRegistrationRepo(),
		now:           time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		organizer:     &models.User{ID: 10, Role: models.RoleOrganizer},
		admin:         &models.User{ID: 11, Role: models.RoleAdmin},
	}
	f.service = &tournamentService{
		tournamentRepo:   f.tournaments,
		registrationRepo: f.registrations,
		logger:           discardLogger(),
		now:              func() time.Time { return f.now },
	}
	return f
}

func (f *tournamentFixture) createInput(name string) CreateTournamentInput {
	return CreateTournamentInput{
		Name:       name,
		Game:       "chess",
		Date:       f.now.Add(72 * time.Hour),
		MaxPlayers: 16,
	}
}

func TestCreateTournamentDefaults(t *testing.T) {
	f := newTournamentFixture(t)

	created, err := f.service.CreateTournament(context.Background(), f.organizer.ID, f.createInput("Spring Cup"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.Status != models.StatusRegistrationOpen {
		t.Fatalf("expected registration_open status, got %s", created.Status)
	}
	if created.CurrentPlayers != 0 {
		t.Fatalf("expected zero current players, got %d", created.CurrentPlayers)
	}
	if !created.IsPublic {
		t.Fatalf("expected new tournament to be public by default")
	}
	if created.CreatedByID != f.organizer.ID {
		t.Fatalf("expected creator to be recorded")
	}
}

func TestCreateTournamentValidation(t *testing.T) {
	f := newTournamentFixture(t)

	cases := []struct {
		name   string
		mutate func(*CreateTournamentInput)
		want   error
	}{
		{"empty name", func(in *CreateTournamentInput) { in.Name = "  " }, ErrTournamentNameRequired},
		{"empty game", func(in *CreateTournamentInput) { in.Game = "" }, ErrTournamentGameRequired},
		{"capacity too small", func(in *CreateTournamentInput) { in.MaxPlayers = 1 }, ErrTournamentInvalidCapacity},
		{"capacity too large", func(in *CreateTournamentInput) { in.MaxPlayers = 101 }, ErrTournamentInvalidCapacity},
		{"past date", func(in *CreateTournamentInput) { in.Date = f.now.Add(-time.Hour) }, ErrTournamentDateInPast},
		{"deadline after date", func(in *CreateTournamentInput) {
			deadline := in.Date.Add(time.Hour)
			in.RegistrationDeadline = &deadline
		}, ErrTournamentInvalidDeadline},
		{"negative fee", func(in *CreateTournamentInput) {
			fee := -5.0
			in.EntryFee = &fee
		}, ErrTournamentInvalidFee},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := f.createInput("Validation Cup")
			tc.mutate(&input)
			if _, err := f.service.CreateTournament(context.Background(), f.organizer.ID, input); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateTournamentNameConflict(t *testing.T) {
	f := newTournamentFixture(t)

	if _, err := f.service.CreateTournament(context.Background(), f.organizer.ID, f.createInput("Spring Cup")); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	if _, err := f.service.CreateTournament(context.Background(), f.organizer.ID, f.createInput("Spring Cup")); !errors.Is(err, ErrTournamentNameConflict) {
		t.Fatalf("expected ErrTournamentNameConflict, got %v", err)
	}
}

func TestUpdateStatusTransitions(t *testing.T) {
	f := newTournamentFixture(t)

	created, err := f.service.CreateTournament(context.Background(), f.organizer.ID, f.createInput("Spring Cup"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Прямой путь машины состояний.
	path := []models.TournamentStatus{
		models.StatusRegistrationClosed,
		models.StatusInProgress,
		models.StatusCompleted,
	}
	for _, status := range path {
		if _, err := f.service.UpdateTournamentStatus(context.Background(), created.ID, f.organizer, status); err != nil {
			t.Fatalf("transition to %s failed: %v", status, err)
		}
	}

	// Из терминального состояния выходов нет, включая отмену.
	if _, err := f.service.UpdateTournamentStatus(context.Background(), created.ID, f.organizer, models.StatusCancelled); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Fatalf("expected ErrInvalidStatusTransition from completed, got %v", err)
	}
}

func TestUpdateStatusRejectsSkips(t *testing.T) {
	f := newTournamentFixture(t)

	created, err := f.service.CreateTournament(context.Background(), f.organizer.ID, f.createInput("Spring Cup"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// registration_open -> completed перескакивает состояния.
	if _, err := f.service.UpdateTournamentStatus(context.Background(), created.ID, f.organizer, models.StatusCompleted); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Fatalf("expected ErrInvalidStatusTransition, got %v", err)
	}

	// Отмена доступна из любого нетерминального состояния.
	if _, err := f.service.UpdateTournamentStatus(context.Background(), created.ID, f.organizer, models.StatusCancelled); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	if _, err := f.service.UpdateTournamentStatus(context.Background(), created.ID, f.organizer, "imaginary"); !errors.Is(err, ErrTournamentInvalidStatus) {
		t.Fatalf("expected ErrTournamentInvalidStatus, got %v", err)
	}
}

func TestTournamentOwnership(t *testing.T) {
	f := newTournamentFixture(t)

	created, err := f.service.CreateTournament(context.Background(), f.organizer.ID, f.createInput("Spring Cup"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	stranger := &models.User{ID: 99, Role: models.RoleOrganizer}
	newName := "Hijacked Cup"

	if _, err := f.service.UpdateTournamentDetails(context.Background(), created.ID, stranger, UpdateTournamentInput{Name: &newName}); !errors.Is(err, ErrForbiddenOperation) {
		t.Fatalf("expected ErrForbiddenOperation for stranger, got %v", err)
	}

	// Администратор может менять чужой турнир.
	if _, err := f.service.UpdateTournamentDetails(context.Background(), created.ID, f.admin, UpdateTournamentInput{Name: &newName}); err != nil {
		t.Fatalf("admin update failed: %v", err)
	}
}

func TestDeleteTournamentBlockedByRegistrations(t *testing.T) {
	f := newTournamentFixture(t)

	created, err := f.service.CreateTournament(context.Background(), f.organizer.ID, f.createInput("Spring Cup"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	reg := &models.Registration{
		UserID:       1,
		TournamentID: created.ID,
		RegisteredAt: f.now,
		Status:       models.RegistrationConfirmed,
	}
	if err := f.registrations.Create(context.Background(), reg); err != nil {
		t.Fatalf("create registration: %v", err)
	}

	if err := f.service.DeleteTournament(context.Background(), created.ID, f.organizer); !errors.Is(err, ErrTournamentHasRegistrations) {
		t.Fatalf("expected ErrTournamentHasRegistrations, got %v", err)
	}

	// После отмены заявки удаление проходит.
	if err := f.registrations.UpdateStatus(context.Background(), reg.ID, models.RegistrationCancelled); err != nil {
		t.Fatalf("cancel registration: %v", err)
	}
	if err := f.service.DeleteTournament(context.Background(), created.ID, f.organizer); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := f.tournaments.GetByID(context.Background(), created.ID); err == nil {
		t.Fatalf("expected tournament to be gone")
	}
}

// ListTournaments чинит разъехавшийся счётчик по фактическим заявкам.
func TestListTournamentsRepairsCounts(t *testing.T) {
	f := newTournamentFixture(t)

	created, err := f.service.CreateTournament(context.Background(), f.organizer.ID, f.createInput("Spring Cup"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	for userID := 1; userID <= 3; userID++ {
		reg := &models.Registration{
			UserID:       userID,
			TournamentID: created.ID,
			RegisteredAt: f.now,
			Status:       models.RegistrationConfirmed,
		}
		if err := f.registrations.Create(context.Background(), reg); err != nil {
			t.Fatalf("create registration: %v", err)
		}
	}
	if err := f.tournaments.SetPlayerCount(context.Background(), nil, created.ID, 7); err != nil {
		t.Fatalf("corrupt count: %v", err)
	}

	listed, err := f.service.ListTournaments(context.Background(), repositories.ListTournamentsFilter{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected one tournament, got %d", len(listed))
	}
	if listed[0].CurrentPlayers != 3 {
		t.Fatalf("expected repaired count 3, got %d", listed[0].CurrentPlayers)
	}

	stored, err := f.tournaments.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("load tournament: %v", err)
	}
	if stored.CurrentPlayers != 3 {
		t.Fatalf("expected stored count 3, got %d", stored.CurrentPlayers)
	}
}
