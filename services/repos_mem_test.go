package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/guyajeux/tournament-registry/models"
	"github.com/guyajeux/tournament-registry/repositories"
)

// In-memory реализации репозиториев для тестов сервисного слоя.
// Хранят копии структур, как это делала бы настоящая БД.

type memUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[int]models.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{nextID: 1, users: map[int]models.User{}}
}

func (m *memUserRepo) Create(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return repositories.ErrUserEmailConflict
		}
	}
	u.ID = m.nextID
	m.nextID++
	u.CreatedAt = time.Now()
	m.users[u.ID] = *u
	return nil
}

func (m *memUserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		copied := u
		return &copied, nil
	}
	return nil, repositories.ErrUserNotFound
}

func (m *memUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			copied := u
			return &copied, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (m *memUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.User{}
	for _, u := range m.users {
		if filter.Search != "" &&
			!strings.Contains(strings.ToLower(u.Name), strings.ToLower(filter.Search)) &&
			!strings.Contains(strings.ToLower(u.Email), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *memUserRepo) Update(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.users[u.ID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	hash := stored.PasswordHash
	updated := *u
	if updated.PasswordHash == "" {
		updated.PasswordHash = hash
	}
	m.users[u.ID] = updated
	return nil
}

func (m *memUserRepo) UpdateActive(ctx context.Context, id int, isActive bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.IsActive = isActive
	m.users[id] = u
	return nil
}

func (m *memUserRepo) UpdateRole(ctx context.Context, id int, role models.UserRole) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.Role = role
	m.users[id] = u
	return nil
}

func (m *memUserRepo) UpdateLastLogin(ctx context.Context, id int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.LastLogin = &at
	m.users[id] = u
	return nil
}

func (m *memUserRepo) UpdateAvatarKey(ctx context.Context, id int, avatarKey *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.AvatarKey = avatarKey
	m.users[id] = u
	return nil
}

func (m *memUserRepo) Count(ctx context.Context) (total, active, admins int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		total++
		if u.IsActive {
			active++
		}
		if u.Role == models.RoleAdmin {
			admins++
		}
	}
	return total, active, admins, nil
}

type memTournamentRepo struct {
	mu          sync.Mutex
	nextID      int
	tournaments map[int]models.Tournament
}

func newMemTournamentRepo() *memTournamentRepo {
	return &memTournamentRepo{nextID: 1, tournaments: map[int]models.Tournament{}}
}

func (m *memTournamentRepo) Create(ctx context.Context, t *models.Tournament) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.tournaments {
		if existing.Name == t.Name && existing.Date.Equal(t.Date) {
			return repositories.ErrTournamentNameConflict
		}
	}
	t.ID = m.nextID
	m.nextID++
	t.CreatedAt = time.Now()
	m.tournaments[t.ID] = *t
	return nil
}

func (m *memTournamentRepo) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tournaments[id]; ok {
		copied := t
		return &copied, nil
	}
	return nil, repositories.ErrTournamentNotFound
}

func (m *memTournamentRepo) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Tournament{}
	for _, t := range m.tournaments {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.Game != nil && t.Game != *filter.Game {
			continue
		}
		if filter.CreatedByID != nil && t.CreatedByID != *filter.CreatedByID {
			continue
		}
		if filter.PublicOnly && !t.IsPublic {
			continue
		}
		if filter.From != nil && t.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !t.Date.Before(*filter.To) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *memTournamentRepo) Update(ctx context.Context, t *models.Tournament) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tournaments[t.ID]; !ok {
		return repositories.ErrTournamentNotFound
	}
	m.tournaments[t.ID] = *t
	return nil
}

func (m *memTournamentRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = status
	m.tournaments[id] = t
	return nil
}

func (m *memTournamentRepo) UpdateBannerKey(ctx context.Context, id int, bannerKey *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.BannerKey = bannerKey
	m.tournaments[id] = t
	return nil
}

func (m *memTournamentRepo) Delete(ctx context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tournaments[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	delete(m.tournaments, id)
	return nil
}

func (m *memTournamentRepo) ClaimSlot(ctx context.Context, id int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tournaments[id]
	if !ok {
		return false, repositories.ErrTournamentNotFound
	}
	if t.CurrentPlayers >= t.MaxPlayers {
		return false, nil
	}
	t.CurrentPlayers++
	m.tournaments[id] = t
	return true, nil
}

func (m *memTournamentRepo) ReleaseSlot(ctx context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	if t.CurrentPlayers > 0 {
		t.CurrentPlayers--
	}
	m.tournaments[id] = t
	return nil
}

func (m *memTournamentRepo) SetPlayerCount(ctx context.Context, exec repositories.SQLExecutor, id int, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.CurrentPlayers = count
	m.tournaments[id] = t
	return nil
}

func (m *memTournamentRepo) CountByDate(ctx context.Context, now time.Time) (total, upcoming, past int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tournaments {
		total++
		if t.Date.After(now) {
			upcoming++
		} else {
			past++
		}
	}
	return total, upcoming, past, nil
}

func (m *memTournamentRepo) SiteStats(ctx context.Context, now time.Time) (total, active, completed, games int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	for _, t := range m.tournaments {
		total++
		if !t.Status.IsTerminal() {
			active++
		}
		if t.Status == models.StatusCompleted {
			completed++
		}
		seen[t.Game] = true
	}
	return total, active, completed, len(seen), nil
}

func (m *memTournamentRepo) ListNonTerminalIDs(ctx context.Context) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := []int{}
	for id, t := range m.tournaments {
		if !t.Status.IsTerminal() {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

type memRegistrationRepo struct {
	mu            sync.Mutex
	nextID        int
	registrations map[int]models.Registration
}

func newMemRegistrationRepo() *memRegistrationRepo {
	return &memRegistrationRepo{nextID: 1, registrations: map[int]models.Registration{}}
}

func (m *memRegistrationRepo) Create(ctx context.Context, reg *models.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.registrations {
		if existing.UserID == reg.UserID && existing.TournamentID == reg.TournamentID &&
			existing.Status != models.RegistrationCancelled {
			return repositories.ErrRegistrationConflict
		}
	}
	reg.ID = m.nextID
	m.nextID++
	reg.CreatedAt = time.Now()
	m.registrations[reg.ID] = *reg
	return nil
}

func (m *memRegistrationRepo) FindByID(ctx context.Context, id int) (*models.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if reg, ok := m.registrations[id]; ok {
		copied := reg
		return &copied, nil
	}
	return nil, repositories.ErrRegistrationNotFound
}

func (m *memRegistrationRepo) FindActiveByUserAndTournament(ctx context.Context, userID, tournamentID int) (*models.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, reg := range m.registrations {
		if reg.UserID == userID && reg.TournamentID == tournamentID &&
			reg.Status != models.RegistrationCancelled {
			copied := reg
			return &copied, nil
		}
	}
	return nil, repositories.ErrRegistrationNotFound
}

func (m *memRegistrationRepo) ListByTournament(ctx context.Context, tournamentID int, includeUser bool) ([]*models.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.Registration{}
	for _, reg := range m.registrations {
		if reg.TournamentID == tournamentID {
			copied := reg
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegisteredAt.Before(out[j].RegisteredAt) })
	return out, nil
}

func (m *memRegistrationRepo) ListByUser(ctx context.Context, userID int) ([]*models.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.Registration{}
	for _, reg := range m.registrations {
		if reg.UserID == userID {
			copied := reg
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegisteredAt.After(out[j].RegisteredAt) })
	return out, nil
}

func (m *memRegistrationRepo) UpdateStatus(ctx context.Context, id int, status models.RegistrationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.registrations[id]
	if !ok {
		return repositories.ErrRegistrationNotFound
	}
	reg.Status = status
	m.registrations[id] = reg
	return nil
}

func (m *memRegistrationRepo) PromoteOldestWaitlisted(ctx context.Context, tournamentID int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	best := 0
	var bestAt time.Time
	for id, reg := range m.registrations {
		if reg.TournamentID != tournamentID || reg.Status != models.RegistrationWaitlisted {
			continue
		}
		if best == 0 || reg.RegisteredAt.Before(bestAt) || (reg.RegisteredAt.Equal(bestAt) && id < best) {
			best = id
			bestAt = reg.RegisteredAt
		}
	}
	if best == 0 {
		return 0, repositories.ErrRegistrationNotFound
	}
	reg := m.registrations[best]
	reg.Status = models.RegistrationConfirmed
	m.registrations[best] = reg
	return best, nil
}

func (m *memRegistrationRepo) SetCheckIn(ctx context.Context, id int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.registrations[id]
	if !ok {
		return repositories.ErrRegistrationNotFound
	}
	reg.CheckedIn = true
	reg.CheckedInAt = &at
	m.registrations[id] = reg
	return nil
}

func (m *memRegistrationRepo) SetResult(ctx context.Context, id int, result models.RegistrationResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.registrations[id]
	if !ok {
		return repositories.ErrRegistrationNotFound
	}
	reg.Result = &result
	m.registrations[id] = reg
	return nil
}

func (m *memRegistrationRepo) SetFeedback(ctx context.Context, id int, feedback models.RegistrationFeedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.registrations[id]
	if !ok {
		return repositories.ErrRegistrationNotFound
	}
	reg.Feedback = &feedback
	m.registrations[id] = reg
	return nil
}

func (m *memRegistrationRepo) CountCapacity(ctx context.Context, tournamentID int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, reg := range m.registrations {
		if reg.TournamentID == tournamentID && reg.Status.CountsTowardCapacity() {
			count++
		}
	}
	return count, nil
}

func (m *memRegistrationRepo) CountActiveByUser(ctx context.Context, userID int, onlyUpcoming bool, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, reg := range m.registrations {
		if reg.UserID == userID && reg.Status.IsActive() && reg.Status != models.RegistrationWaitlisted {
			count++
		}
	}
	return count, nil
}

func (m *memRegistrationRepo) Stats(ctx context.Context) (models.RegistrationStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stats models.RegistrationStats
	for _, reg := range m.registrations {
		stats.Total++
		switch reg.Status {
		case models.RegistrationPending, models.RegistrationConfirmed:
			stats.Active++
		case models.RegistrationCancelled:
			stats.Cancelled++
		}
	}
	if stats.Total > 0 {
		stats.CancellationRate = float64(stats.Cancelled) / float64(stats.Total) * 100
	}
	return stats, nil
}
