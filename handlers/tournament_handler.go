package handlers

import (
	"errors"
	"net/http"
	"strconv" // Для парсинга query параметров
	"time"

	"github.com/guyajeux/tournament-registry/models"
	"github.com/guyajeux/tournament-registry/repositories"
	"github.com/guyajeux/tournament-registry/services"

	"github.com/go-chi/chi/v5"
)

type TournamentHandler struct {
	tournamentService services.TournamentService
}

func NewTournamentHandler(ts services.TournamentService) *TournamentHandler {
	return &TournamentHandler{
		tournamentService: ts,
	}
}

// CreateHandler godoc
// @Summary Создать турнир
// @Tags tournaments
// @Accept json
// @Produce json
// @Param body body services.CreateTournamentInput true "Данные турнира (name, game, date, max_players и опциональные поля)"
// @Success 201 {object} map[string]interface{} "Созданный турнир"
// @Failure 400 {object} map[string]string "Ошибка валидации"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Failure 403 {object} map[string]string "Нет прав"
// @Failure 409 {object} map[string]string "Турнир с таким названием и датой уже есть"
// @Security BearerAuth
// @Router /tournaments [post]
func (h *TournamentHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromContext(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to create tournament")
		return
	}

	var input services.CreateTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.CreateTournament(r.Context(), actor.ID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByIDHandler godoc
// @Summary Получить турнир по ID
// @Tags tournaments
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Success 200 {object} map[string]interface{} "Турнир"
// @Failure 400 {object} map[string]string "Некорректный ID"
// @Failure 404 {object} map[string]string "Турнир не найден"
// @Router /tournaments/{tournamentID} [get]
func (h *TournamentHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.GetTournamentByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler godoc
// @Summary Список турниров
// @Tags tournaments
// @Produce json
// @Param status query string false "Фильтр по статусу"
// @Param game query string false "Фильтр по игре"
// @Param created_by query int false "Фильтр по организатору"
// @Param limit query int false "Размер страницы (по умолчанию 20)"
// @Param offset query int false "Смещение"
// @Success 200 {object} map[string]interface{} "Список турниров"
// @Failure 400 {object} map[string]string "Некорректные параметры запроса"
// @Router /tournaments [get]
func (h *TournamentHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	var filter repositories.ListTournamentsFilter
	query := r.URL.Query()

	if statusStr := query.Get("status"); statusStr != "" {
		status := models.TournamentStatus(statusStr)
		filter.Status = &status
	}
	if game := query.Get("game"); game != "" {
		filter.Game = &game
	}
	if createdByStr := query.Get("created_by"); createdByStr != "" {
		if id, err := strconv.Atoi(createdByStr); err == nil && id > 0 {
			filter.CreatedByID = &id
		} else {
			badRequestResponse(w, r, errors.New("invalid created_by query parameter"))
			return
		}
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			filter.Limit = limit
		} else {
			badRequestResponse(w, r, errors.New("invalid limit query parameter"))
			return
		}
	} else {
		filter.Limit = 20 // Значение по умолчанию
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filter.Offset = offset
		} else {
			badRequestResponse(w, r, errors.New("invalid offset query parameter"))
			return
		}
	}

	tournaments, err := h.tournamentService.ListTournaments(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	// Возвращаем список (даже если он пустой)
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// WeeklyHandler godoc
// @Summary Турниры на ближайшие 7 дней
// @Tags tournaments
// @Produce json
// @Success 200 {object} map[string]interface{} "Список турниров"
// @Router /tournaments/weekly [get]
func (h *TournamentHandler) WeeklyHandler(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	h.listRange(w, r, from, from.AddDate(0, 0, 7))
}

// MonthlyHandler godoc
// @Summary Турниры на ближайший месяц
// @Tags tournaments
// @Produce json
// @Success 200 {object} map[string]interface{} "Список турниров"
// @Router /tournaments/monthly [get]
func (h *TournamentHandler) MonthlyHandler(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	h.listRange(w, r, from, from.AddDate(0, 1, 0))
}

// CalendarHandler godoc
// @Summary Турниры за календарный месяц
// @Tags tournaments
// @Produce json
// @Param year path int true "Год (2000-2100)"
// @Param month path int true "Месяц (1-12)"
// @Success 200 {object} map[string]interface{} "Список турниров"
// @Failure 400 {object} map[string]string "Некорректные год или месяц"
// @Router /tournaments/calendar/{year}/{month} [get]
func (h *TournamentHandler) CalendarHandler(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 2000 || year > 2100 {
		badRequestResponse(w, r, errors.New("invalid year in URL path"))
		return
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil || month < 1 || month > 12 {
		badRequestResponse(w, r, errors.New("invalid month in URL path"))
		return
	}

	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	h.listRange(w, r, from, from.AddDate(0, 1, 0))
}

func (h *TournamentHandler) listRange(w http.ResponseWriter, r *http.Request, from, to time.Time) {
	tournaments, err := h.tournamentService.ListRange(r.Context(), from, to)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateDetailsHandler godoc
// @Summary Обновить данные турнира
// @Tags tournaments
// @Accept json
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Param body body services.UpdateTournamentInput true "Обновляемые поля (все опциональны)"
// @Success 200 {object} map[string]interface{} "Обновлённый турнир"
// @Failure 400 {object} map[string]string "Ошибка валидации"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Failure 403 {object} map[string]string "Не организатор этого турнира"
// @Failure 404 {object} map[string]string "Турнир не найден"
// @Security BearerAuth
// @Router /tournaments/{tournamentID} [put]
func (h *TournamentHandler) UpdateDetailsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	actor, err := actorFromContext(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to update tournament")
		return
	}

	var input services.UpdateTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.UpdateTournamentDetails(r.Context(), id, actor, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateStatusHandler godoc
// @Summary Сменить статус турнира
// @Tags tournaments
// @Description Допускаются только явные переходы жизненного цикла; отмена возможна из любого нетерминального статуса.
// @Accept json
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Param body body object true "Новый статус, поле status"
// @Success 200 {object} map[string]interface{} "Турнир с новым статусом"
// @Failure 400 {object} map[string]string "Недопустимый переход"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Failure 403 {object} map[string]string "Не организатор этого турнира"
// @Failure 404 {object} map[string]string "Турнир не найден"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/status [patch]
func (h *TournamentHandler) UpdateStatusHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	actor, err := actorFromContext(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to update tournament status")
		return
	}

	var statusInput struct {
		Status models.TournamentStatus `json:"status"`
	}
	if err := readJSON(w, r, &statusInput); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.UpdateTournamentStatus(r.Context(), id, actor, statusInput.Status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeleteHandler godoc
// @Summary Удалить турнир
// @Tags tournaments
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Success 204 "Турнир удалён"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Failure 403 {object} map[string]string "Не организатор этого турнира"
// @Failure 404 {object} map[string]string "Турнир не найден"
// @Failure 409 {object} map[string]string "Есть активные заявки"
// @Security BearerAuth
// @Router /tournaments/{tournamentID} [delete]
func (h *TournamentHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	actor, err := actorFromContext(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to delete tournament")
		return
	}

	err = h.tournamentService.DeleteTournament(r.Context(), id, actor)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UploadBannerHandler godoc
// @Summary Загрузить баннер турнира
// @Tags tournaments
// @Accept multipart/form-data
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Param banner formData file true "Файл баннера"
// @Success 200 {object} map[string]interface{} "Турнир с URL баннера"
// @Failure 400 {object} map[string]string "Файл не передан"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Failure 403 {object} map[string]string "Не организатор этого турнира"
// @Failure 404 {object} map[string]string "Турнир не найден"
// @Failure 503 {object} map[string]string "Хранилище файлов не настроено"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/banner [post]
func (h *TournamentHandler) UploadBannerHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	actor, err := actorFromContext(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to upload banner")
		return
	}

	file, header, err := r.FormFile("banner")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		badRequestResponse(w, r, errors.New("content type required"))
		return
	}

	tournament, err := h.tournamentService.UploadBanner(r.Context(), id, actor, contentType, file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
