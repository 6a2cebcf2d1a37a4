package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/guyajeux/tournament-registry/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type registrationFixture struct {
	users         *memUserRepo
	tournaments   *memTournamentRepo
	registrations *memRegistrationRepo
	service       *registrationService
	now           time.Time
}

func newRegistrationFixture(t *testing.T) *registrationFixture {
	t.Helper()
	f := &registrationFixture{
		users:         newMemUserRepo(),
		tournaments:   newMemTournamentRepo(),
		registrations: newMemRegistrationRepo(),
		now:           time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	f.service = &registrationService{
		registrationRepo: f.registrations,
		tournamentRepo:   f.tournaments,
		userRepo:         f.users,
		logger:           discardLogger(),
		now:              func() time.Time { return f.now },
	}
	return f
}

func (f *registrationFixture) addUser(t *testing.T, name string) *models.User {
	t.Helper()
	u := &models.User{Name: name, Email: name + "@example.com", Role: models.RoleMember, IsActive: true}
	if err := f.users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}

func (f *registrationFixture) addTournament(t *testing.T, maxPlayers int) *models.Tournament {
	t.Helper()
	tournament := &models.Tournament{
		Name:       "Spring Cup",
		Game:       "chess",
		Date:       f.now.Add(72 * time.Hour),
		MaxPlayers: maxPlayers,
		Status:     models.StatusRegistrationOpen,
		IsPublic:   true,
	}
	if err := f.tournaments.Create(context.Background(), tournament); err != nil {
		t.Fatalf("create tournament: %v", err)
	}
	return tournament
}

func (f *registrationFixture) mustCount(t *testing.T, tournamentID, want int) {
	t.Helper()
	stored, err := f.tournaments.GetByID(context.Background(), tournamentID)
	if err != nil {
		t.Fatalf("load tournament: %v", err)
	}
	if stored.CurrentPlayers != want {
		t.Fatalf("expected current_players=%d, got %d", want, stored.CurrentPlayers)
	}
}

func TestRegisterHappyPath(t *testing.T) {
	f := newRegistrationFixture(t)
	user := f.addUser(t, "alice")
	tournament := f.addTournament(t, 8)

	reg, err := f.service.Register(context.Background(), tournament.ID, user.ID, RegisterInput{})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if reg.Status != models.RegistrationConfirmed {
		t.Fatalf("expected confirmed status, got %s", reg.Status)
	}
	if reg.Tournament == nil || reg.User == nil {
		t.Fatalf("expected tournament and user attached to registration")
	}
	f.mustCount(t, tournament.ID, 1)
}

func TestRegisterDuplicateRejected(t *testing.T) {
	f := newRegistrationFixture(t)
	user := f.addUser(t, "alice")
	tournament := f.addTournament(t, 8)

	if _, err := f.service.Register(context.Background(), tournament.ID, user.ID, RegisterInput{}); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if _, err := f.service.Register(context.Background(), tournament.ID, user.ID, RegisterInput{}); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}
	f.mustCount(t, tournament.ID, 1)
}

// Сценарий capacity=2: A и B занимают слоты, C получает отказ «турнир полон»;
// после ухода A освободившийся слот достаётся C.
func TestRegisterCapacityEnforced(t *testing.T) {
	f := newRegistrationFixture(t)
	a := f.addUser(t, "a")
	b := f.addUser(t, "b")
	c := f.addUser(t, "c")
	tournament := f.addTournament(t, 2)

	for _, u := range []*models.User{a, b} {
		if _, err := f.service.Register(context.Background(), tournament.ID, u.ID, RegisterInput{}); err != nil {
			t.Fatalf("register user %d failed: %v", u.ID, err)
		}
	}
	if _, err := f.service.Register(context.Background(), tournament.ID, c.ID, RegisterInput{}); !errors.Is(err, ErrTournamentFull) {
		t.Fatalf("expected ErrTournamentFull, got %v", err)
	}
	f.mustCount(t, tournament.ID, 2)

	if err := f.service.Unregister(context.Background(), tournament.ID, a.ID); err != nil {
		t.Fatalf("unregister failed: %v", err)
	}
	f.mustCount(t, tournament.ID, 1)

	reg, err := f.service.Register(context.Background(), tournament.ID, c.ID, RegisterInput{})
	if err != nil {
		t.Fatalf("register after freed slot failed: %v", err)
	}
	if reg.Status != models.RegistrationConfirmed {
		t.Fatalf("expected confirmed status, got %s", reg.Status)
	}
	f.mustCount(t, tournament.ID, 2)
}

func TestUnregisterThenRegisterAgain(t *testing.T) {
	f := newRegistrationFixture(t)
	user := f.addUser(t, "alice")
	tournament := f.addTournament(t, 8)

	if _, err := f.service.Register(context.Background(), tournament.ID, user.ID, RegisterInput{}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := f.service.Unregister(context.Background(), tournament.ID, user.ID); err != nil {
		t.Fatalf("unregister failed: %v", err)
	}
	f.mustCount(t, tournament.ID, 0)

	// Отменённая заявка не блокирует повторную регистрацию.
	if _, err := f.service.Register(context.Background(), tournament.ID, user.ID, RegisterInput{}); err != nil {
		t.Fatalf("re-register failed: %v", err)
	}
	f.mustCount(t, tournament.ID, 1)
}

func TestUnregisterWithoutRegistration(t *testing.T) {
	f := newRegistrationFixture(t)
	user := f.addUser(t, "alice")
	tournament := f.addTournament(t, 8)

	if err := f.service.Unregister(context.Background(), tournament.ID, user.ID); !errors.Is(err, ErrRegistrationNotFound) {
		t.Fatalf("expected ErrRegistrationNotFound, got %v", err)
	}
}

func TestRegisterAfterDeadline(t *testing.T) {
	f := newRegistrationFixture(t)
	user := f.addUser(t, "alice")
	tournament := f.addTournament(t, 8)

	deadline := f.now.Add(-time.Hour)
	tournament.RegistrationDeadline = &deadline
	if err := f.tournaments.Update(context.Background(), tournament); err != nil {
		t.Fatalf("update tournament: %v", err)
	}

	if _, err := f.service.Register(context.Background(), tournament.ID, user.ID, RegisterInput{}); !errors.Is(err, ErrRegistrationDeadlinePassed) {
		t.Fatalf("expected ErrRegistrationDeadlinePassed, got %v", err)
	}
}

func TestWaitlistJoinAndFIFOPromotion(t *testing.T) {
	f := newRegistrationFixture(t)
	a := f.addUser(t, "a")
	b := f.addUser(t, "b")
	c := f.addUser(t, "c")
	d := f.addUser(t, "d")
	tournament := f.addTournament(t, 2)

	for _, u := range []*models.User{a, b} {
		if _, err := f.service.Register(context.Background(), tournament.ID, u.ID, RegisterInput{}); err != nil {
			t.Fatalf("register user %d failed: %v", u.ID, err)
		}
	}

	// C и D встают в лист ожидания, C раньше.
	regC, err := f.service.Register(context.Background(), tournament.ID, c.ID, RegisterInput{JoinWaitlist: true})
	if err != nil {
		t.Fatalf("waitlist join for c failed: %v", err)
	}
	if regC.Status != models.RegistrationWaitlisted {
		t.Fatalf("expected waitlisted status, got %s", regC.Status)
	}
	f.now = f.now.Add(time.Minute)
	regD, err := f.service.Register(context.Background(), tournament.ID, d.ID, RegisterInput{JoinWaitlist: true})
	if err != nil {
		t.Fatalf("waitlist join for d failed: %v", err)
	}

	// Лист ожидания не занимает слоты.
	f.mustCount(t, tournament.ID, 2)

	// A уходит — продвигается C (самая ранняя заявка), D остаётся ждать.
	if err := f.service.Unregister(context.Background(), tournament.ID, a.ID); err != nil {
		t.Fatalf("unregister failed: %v", err)
	}

	promoted, err := f.registrations.FindByID(context.Background(), regC.ID)
	if err != nil {
		t.Fatalf("load promoted registration: %v", err)
	}
	if promoted.Status != models.RegistrationConfirmed {
		t.Fatalf("expected promoted registration to be confirmed, got %s", promoted.Status)
	}
	waiting, err := f.registrations.FindByID(context.Background(), regD.ID)
	if err != nil {
		t.Fatalf("load waiting registration: %v", err)
	}
	if waiting.Status != models.RegistrationWaitlisted {
		t.Fatalf("expected d to stay waitlisted, got %s", waiting.Status)
	}
	f.mustCount(t, tournament.ID, 2)
}

// join_waitlist на заполненном турнире не обходит проверку повторной заявки:
// подтверждённый участник получает «уже зарегистрирован», участник листа
// ожидания — «уже в листе ожидания».
func TestWaitlistJoinRejectsExistingRegistration(t *testing.T) {
	f := newRegistrationFixture(t)
	a := f.addUser(t, "a")
	b := f.addUser(t, "b")
	c := f.addUser(t, "c")
	tournament := f.addTournament(t, 2)

	for _, u := range []*models.User{a, b} {
		if _, err := f.service.Register(context.Background(), tournament.ID, u.ID, RegisterInput{}); err != nil {
			t.Fatalf("register user %d failed: %v", u.ID, err)
		}
	}

	if _, err := f.service.Register(context.Background(), tournament.ID, a.ID, RegisterInput{JoinWaitlist: true}); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered for confirmed registrant, got %v", err)
	}

	if _, err := f.service.Register(context.Background(), tournament.ID, c.ID, RegisterInput{JoinWaitlist: true}); err != nil {
		t.Fatalf("waitlist join for c failed: %v", err)
	}
	if _, err := f.service.Register(context.Background(), tournament.ID, c.ID, RegisterInput{JoinWaitlist: true}); !errors.Is(err, ErrAlreadyWaitlisted) {
		t.Fatalf("expected ErrAlreadyWaitlisted for waitlisted registrant, got %v", err)
	}
	f.mustCount(t, tournament.ID, 2)
}

func TestWaitlistLeaveDoesNotPromote(t *testing.T) {
	f := newRegistrationFixture(t)
	a := f.addUser(t, "a")
	b := f.addUser(t, "b")
	c := f.addUser(t, "c")
	d := f.addUser(t, "d")
	tournament := f.addTournament(t, 2)

	for _, u := range []*models.User{a, b} {
		if _, err := f.service.Register(context.Background(), tournament.ID, u.ID, RegisterInput{}); err != nil {
			t.Fatalf("register failed: %v", err)
		}
	}
	for _, u := range []*models.User{c, d} {
		if _, err := f.service.Register(context.Background(), tournament.ID, u.ID, RegisterInput{JoinWaitlist: true}); err != nil {
			t.Fatalf("waitlist join failed: %v", err)
		}
		f.now = f.now.Add(time.Minute)
	}

	// Уход из листа ожидания не освобождает слот и никого не продвигает.
	if err := f.service.Unregister(context.Background(), tournament.ID, c.ID); err != nil {
		t.Fatalf("unregister from waitlist failed: %v", err)
	}

	regD, err := f.registrations.FindActiveByUserAndTournament(context.Background(), d.ID, tournament.ID)
	if err != nil {
		t.Fatalf("load d registration: %v", err)
	}
	if regD.Status != models.RegistrationWaitlisted {
		t.Fatalf("expected d to stay waitlisted, got %s", regD.Status)
	}
	f.mustCount(t, tournament.ID, 2)
}

// SyncPlayerCount идемпотентна: повторные вызовы на согласованных данных
// ничего не меняют и возвращают тот же счётчик.
func TestSyncPlayerCountIdempotent(t *testing.T) {
	f := newRegistrationFixture(t)
	a := f.addUser(t, "a")
	b := f.addUser(t, "b")
	tournament := f.addTournament(t, 8)

	for _, u := range []*models.User{a, b} {
		if _, err := f.service.Register(context.Background(), tournament.ID, u.ID, RegisterInput{}); err != nil {
			t.Fatalf("register failed: %v", err)
		}
	}

	// Портим счётчик и убеждаемся, что сверка его чинит.
	if err := f.tournaments.SetPlayerCount(context.Background(), nil, tournament.ID, 99); err != nil {
		t.Fatalf("corrupt count: %v", err)
	}

	for i := 0; i < 3; i++ {
		count, err := f.service.SyncPlayerCount(context.Background(), tournament.ID)
		if err != nil {
			t.Fatalf("sync attempt %d failed: %v", i, err)
		}
		if count != 2 {
			t.Fatalf("sync attempt %d: expected count 2, got %d", i, count)
		}
		f.mustCount(t, tournament.ID, 2)
	}
}

func TestCheckInAndFeedback(t *testing.T) {
	f := newRegistrationFixture(t)
	user := f.addUser(t, "alice")
	stranger := f.addUser(t, "bob")
	tournament := f.addTournament(t, 8)

	reg, err := f.service.Register(context.Background(), tournament.ID, user.ID, RegisterInput{})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	// Чужую заявку отметить нельзя.
	if _, err := f.service.CheckIn(context.Background(), reg.ID, stranger.ID); !errors.Is(err, ErrForbiddenOperation) {
		t.Fatalf("expected ErrForbiddenOperation, got %v", err)
	}

	checked, err := f.service.CheckIn(context.Background(), reg.ID, user.ID)
	if err != nil {
		t.Fatalf("check-in failed: %v", err)
	}
	if !checked.CheckedIn || checked.CheckedInAt == nil {
		t.Fatalf("expected check-in to be recorded")
	}

	if err := f.service.SubmitFeedback(context.Background(), reg.ID, user.ID, models.RegistrationFeedback{Rating: 0}); !errors.Is(err, ErrInvalidFeedbackRating) {
		t.Fatalf("expected ErrInvalidFeedbackRating, got %v", err)
	}
	if err := f.service.SubmitFeedback(context.Background(), reg.ID, user.ID, models.RegistrationFeedback{Rating: 5}); err != nil {
		t.Fatalf("feedback failed: %v", err)
	}
}

func TestSubmitResultAuthorization(t *testing.T) {
	f := newRegistrationFixture(t)
	player := f.addUser(t, "player")
	organizer := f.addUser(t, "organizer")
	outsider := f.addUser(t, "outsider")
	admin := f.addUser(t, "admin")

	tournament := f.addTournament(t, 8)
	tournament.CreatedByID = organizer.ID
	if err := f.tournaments.Update(context.Background(), tournament); err != nil {
		t.Fatalf("update tournament: %v", err)
	}

	reg, err := f.service.Register(context.Background(), tournament.ID, player.ID, RegisterInput{})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	result := models.RegistrationResult{Points: 10, Won: 3, Lost: 1}

	outsider.Role = models.RoleOrganizer
	if err := f.service.SubmitResult(context.Background(), reg.ID, outsider, result); !errors.Is(err, ErrForbiddenOperation) {
		t.Fatalf("expected ErrForbiddenOperation for non-owner, got %v", err)
	}

	organizer.Role = models.RoleOrganizer
	if err := f.service.SubmitResult(context.Background(), reg.ID, organizer, result); err != nil {
		t.Fatalf("owner submit result failed: %v", err)
	}

	admin.Role = models.RoleAdmin
	if err := f.service.SubmitResult(context.Background(), reg.ID, admin, result); err != nil {
		t.Fatalf("admin submit result failed: %v", err)
	}
}
