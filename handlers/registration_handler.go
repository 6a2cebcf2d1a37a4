package handlers

import (
	"net/http"

	"github.com/guyajeux/tournament-registry/middleware"
	"github.com/guyajeux/tournament-registry/models"
	"github.com/guyajeux/tournament-registry/services"
)

type RegistrationHandler struct {
	registrationService services.RegistrationService
}

func NewRegistrationHandler(rs services.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{
		registrationService: rs,
	}
}

// RegisterHandler godoc
// @Summary Зарегистрироваться на турнир
// @Tags registrations
// @Description Тело опционально: заметки и флаг join_waitlist для листа ожидания при заполненном турнире.
// @Accept json
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Param body body services.RegisterInput false "Заметки и согласие на лист ожидания"
// @Success 201 {object} map[string]interface{} "Заявка создана (слот или лист ожидания)"
// @Failure 400 {object} map[string]string "Отказ политики допуска"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Failure 404 {object} map[string]string "Турнир не найден"
// @Failure 409 {object} map[string]string "Турнир полон или заявка уже есть"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/register [post]
func (h *RegistrationHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to register")
		return
	}

	// Тело опционально: заметки и явное согласие на лист ожидания.
	var input services.RegisterInput
	if r.ContentLength > 0 {
		if err := readJSON(w, r, &input); err != nil {
			badRequestResponse(w, r, err)
			return
		}
	}

	registration, err := h.registrationService.Register(r.Context(), tournamentID, currentUserID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	message := "successfully registered for tournament"
	if registration.Status == models.RegistrationWaitlisted {
		message = "tournament is full, added to the waiting list"
	}

	response := jsonResponse{
		"registration": registration,
		"message":      message,
	}

	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UnregisterHandler godoc
// @Summary Отменить свою заявку
// @Tags registrations
// @Description Освободившийся слот отдаётся самой ранней заявке листа ожидания.
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Success 200 {object} map[string]string "Заявка отменена"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Failure 404 {object} map[string]string "Заявка или турнир не найдены"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/register [delete]
func (h *RegistrationHandler) UnregisterHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to unregister")
		return
	}

	err = h.registrationService.Unregister(r.Context(), tournamentID, currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"message": "registration cancelled",
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListByTournamentHandler godoc
// @Summary Заявки турнира
// @Tags registrations
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Success 200 {object} map[string]interface{} "Список заявок"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Failure 403 {object} map[string]string "Нет прав"
// @Failure 404 {object} map[string]string "Турнир не найден"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/registrations [get]
func (h *RegistrationHandler) ListByTournamentHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	registrations, err := h.registrationService.ListByTournament(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registrations": registrations}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ConfirmHandler godoc
// @Summary Подтвердить свою заявку
// @Tags registrations
// @Produce json
// @Param registrationID path int true "Registration ID"
// @Success 200 {object} map[string]interface{} "Подтверждённая заявка"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Failure 403 {object} map[string]string "Чужая заявка"
// @Failure 404 {object} map[string]string "Заявка не найдена"
// @Security BearerAuth
// @Router /registrations/{registrationID}/confirm [post]
func (h *RegistrationHandler) ConfirmHandler(w http.ResponseWriter, r *http.Request) {
	registrationID, err := getIDFromURL(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	registration, err := h.registrationService.Confirm(r.Context(), registrationID, currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": registration}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CheckInHandler godoc
// @Summary Отметиться на турнире
// @Tags registrations
// @Produce json
// @Param registrationID path int true "Registration ID"
// @Success 200 {object} map[string]interface{} "Заявка с отметкой о явке"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Failure 403 {object} map[string]string "Чужая заявка или заявка без слота"
// @Failure 404 {object} map[string]string "Заявка не найдена"
// @Security BearerAuth
// @Router /registrations/{registrationID}/checkin [post]
func (h *RegistrationHandler) CheckInHandler(w http.ResponseWriter, r *http.Request) {
	registrationID, err := getIDFromURL(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	registration, err := h.registrationService.CheckIn(r.Context(), registrationID, currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": registration}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SubmitResultHandler godoc
// @Summary Записать результат участника
// @Tags registrations
// @Description Доступно администраторам и организатору соответствующего турнира.
// @Accept json
// @Produce json
// @Param registrationID path int true "Registration ID"
// @Param body body models.RegistrationResult true "Итог выступления"
// @Success 200 {object} map[string]string "Результат записан"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Failure 403 {object} map[string]string "Не организатор этого турнира"
// @Failure 404 {object} map[string]string "Заявка не найдена"
// @Security BearerAuth
// @Router /registrations/{registrationID}/result [put]
func (h *RegistrationHandler) SubmitResultHandler(w http.ResponseWriter, r *http.Request) {
	registrationID, err := getIDFromURL(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	actor, err := actorFromContext(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var result models.RegistrationResult
	if err := readJSON(w, r, &result); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	err = h.registrationService.SubmitResult(r.Context(), registrationID, actor, result)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"message": "result recorded",
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SubmitFeedbackHandler godoc
// @Summary Оставить отзыв о турнире
// @Tags registrations
// @Accept json
// @Produce json
// @Param registrationID path int true "Registration ID"
// @Param body body models.RegistrationFeedback true "Оценка 1-5 и комментарий"
// @Success 200 {object} map[string]string "Отзыв записан"
// @Failure 400 {object} map[string]string "Оценка вне диапазона"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Failure 403 {object} map[string]string "Чужая заявка"
// @Failure 404 {object} map[string]string "Заявка не найдена"
// @Security BearerAuth
// @Router /registrations/{registrationID}/feedback [post]
func (h *RegistrationHandler) SubmitFeedbackHandler(w http.ResponseWriter, r *http.Request) {
	registrationID, err := getIDFromURL(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var feedback models.RegistrationFeedback
	if err := readJSON(w, r, &feedback); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	err = h.registrationService.SubmitFeedback(r.Context(), registrationID, currentUserID, feedback)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"message": "feedback recorded",
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
