package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/guyajeux/tournament-registry/models"
	"github.com/guyajeux/tournament-registry/services"

	"github.com/go-chi/chi/v5"
)

// Заглушки поверх интерфейсов сервисов: переопределяются только методы,
// нужные конкретному тесту, остальные падают с nil-паникой.
type stubUserService struct {
	services.UserService
	getUserByID func(ctx context.Context, id int) (*models.User, error)
}

func (s *stubUserService) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	return s.getUserByID(ctx, id)
}

type stubRegistrationService struct {
	services.RegistrationService
	listByUser func(ctx context.Context, userID int) ([]*models.Registration, error)
}

func (s *stubRegistrationService) ListByUser(ctx context.Context, userID int) ([]*models.Registration, error) {
	return s.listByUser(ctx, userID)
}

func requestWithURLParam(method, target, key, value string) *http.Request {
	r := httptest.NewRequest(method, target, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Админская карточка пользователя возвращает и профиль, и его заявки.
func TestGetUserByIDIncludesRegistrations(t *testing.T) {
	h := &UserHandler{
		userService: &stubUserService{
			getUserByID: func(ctx context.Context, id int) (*models.User, error) {
				return &models.User{ID: id, Name: "alice", Email: "alice@example.com"}, nil
			},
		},
		registrationService: &stubRegistrationService{
			listByUser: func(ctx context.Context, userID int) ([]*models.Registration, error) {
				return []*models.Registration{
					{ID: 5, UserID: userID, TournamentID: 3, Status: models.RegistrationConfirmed},
				}, nil
			},
		},
	}

	rec := httptest.NewRecorder()
	h.GetUserByIDHandler(rec, requestWithURLParam(http.MethodGet, "/users/7", "userID", "7"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body struct {
		User          *models.User           `json:"user"`
		Registrations []*models.Registration `json:"registrations"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.User == nil || body.User.ID != 7 {
		t.Fatalf("expected user 7 in response, got %+v", body.User)
	}
	if len(body.Registrations) != 1 || body.Registrations[0].ID != 5 {
		t.Fatalf("expected one registration with id 5, got %+v", body.Registrations)
	}
}
