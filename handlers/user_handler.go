package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/guyajeux/tournament-registry/middleware"
	"github.com/guyajeux/tournament-registry/models"
	"github.com/guyajeux/tournament-registry/services"
)

type UserHandler struct {
	userService         services.UserService
	registrationService services.RegistrationService
	statsService        services.StatsService
}

func NewUserHandler(us services.UserService, rs services.RegistrationService, ss services.StatsService) *UserHandler {
	return &UserHandler{
		userService:         us,
		registrationService: rs,
		statsService:        ss,
	}
}

// GetMeHandler godoc
// @Summary Текущий пользователь
// @Tags users
// @Produce json
// @Success 200 {object} map[string]interface{} "Профиль"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Failure 404 {object} map[string]string "Пользователь не найден"
// @Security BearerAuth
// @Router /users/me [get]
func (h *UserHandler) GetMeHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	user, err := h.userService.GetUserByID(r.Context(), currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateMeHandler godoc
// @Summary Обновить свой профиль
// @Tags users
// @Accept json
// @Produce json
// @Param body body services.UpdateProfileInput true "Обновляемые поля (хотя бы одно)"
// @Success 200 {object} map[string]interface{} "Обновлённый профиль"
// @Failure 400 {object} map[string]string "Ошибка валидации"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Security BearerAuth
// @Router /users/me [put]
func (h *UserHandler) UpdateMeHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	var input services.UpdateProfileInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if input.Name == nil && input.Notifications == nil && input.FavoriteGames == nil {
		badRequestResponse(w, r, errors.New("no fields provided for update"))
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), currentUserID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UploadAvatarHandler godoc
// @Summary Загрузить аватар
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Param avatar formData file true "Файл аватара"
// @Success 200 {object} map[string]interface{} "Профиль с URL аватара"
// @Failure 400 {object} map[string]string "Файл не передан"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Failure 503 {object} map[string]string "Хранилище файлов не настроено"
// @Security BearerAuth
// @Router /users/me/avatar [put]
func (h *UserHandler) UploadAvatarHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	file, header, err := r.FormFile("avatar")
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

	user, err := h.userService.UploadAvatar(r.Context(), currentUserID, contentType, file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// MyRegistrationsHandler godoc
// @Summary Мои заявки
// @Tags users
// @Produce json
// @Success 200 {object} map[string]interface{} "Заявки с данными турниров"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Security BearerAuth
// @Router /users/me/registrations [get]
func (h *UserHandler) MyRegistrationsHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	registrations, err := h.registrationService.ListByUser(r.Context(), currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registrations": registrations}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// MyStatsHandler godoc
// @Summary Моя статистика участия
// @Tags users
// @Produce json
// @Success 200 {object} map[string]interface{} "Статистика пользователя"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Security BearerAuth
// @Router /users/me/stats [get]
func (h *UserHandler) MyStatsHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	stats, err := h.statsService.UserStats(r.Context(), currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"stats": stats}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListUsersHandler godoc
// @Summary Список пользователей
// @Tags users
// @Produce json
// @Param search query string false "Поиск по имени или email"
// @Param page query int false "Номер страницы"
// @Param limit query int false "Размер страницы"
// @Success 200 {object} map[string]interface{} "Страница пользователей"
// @Failure 400 {object} map[string]string "Некорректные параметры запроса"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Failure 403 {object} map[string]string "Только для администраторов"
// @Security BearerAuth
// @Router /users [get]
func (h *UserHandler) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	var filter models.UserFilter
	query := r.URL.Query()

	filter.Search = query.Get("search")
	if pageStr := query.Get("page"); pageStr != "" {
		if page, err := strconv.Atoi(pageStr); err == nil && page > 0 {
			filter.Page = page
		} else {
			badRequestResponse(w, r, errors.New("invalid page query parameter"))
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
	}

	list, err := h.userService.ListUsers(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, list, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetUserByIDHandler godoc
// @Summary Карточка пользователя с его заявками
// @Tags users
// @Produce json
// @Param userID path int true "User ID"
// @Success 200 {object} map[string]interface{} "Пользователь и его заявки"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Failure 403 {object} map[string]string "Только для администраторов"
// @Failure 404 {object} map[string]string "Пользователь не найден"
// @Security BearerAuth
// @Router /users/{userID} [get]
func (h *UserHandler) GetUserByIDHandler(w http.ResponseWriter, r *http.Request) {
	requestedUserID, err := getIDFromURL(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	user, err := h.userService.GetUserByID(r.Context(), requestedUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	registrations, err := h.registrationService.ListByUser(r.Context(), requestedUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"user":          user,
		"registrations": registrations,
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SetUserStatusHandler godoc
// @Summary Активировать или деактивировать пользователя
// @Tags users
// @Accept json
// @Produce json
// @Param userID path int true "User ID"
// @Param body body object true "Поле is_active"
// @Success 200 {object} map[string]interface{} "Обновлённый пользователь"
// @Failure 400 {object} map[string]string "is_active не передан"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Failure 403 {object} map[string]string "Нельзя деактивировать администратора"
// @Failure 404 {object} map[string]string "Пользователь не найден"
// @Security BearerAuth
// @Router /users/{userID}/status [put]
func (h *UserHandler) SetUserStatusHandler(w http.ResponseWriter, r *http.Request) {
	requestedUserID, err := getIDFromURL(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		IsActive *bool `json:"is_active"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.IsActive == nil {
		badRequestResponse(w, r, errors.New("is_active is required"))
		return
	}

	user, err := h.userService.SetUserActive(r.Context(), requestedUserID, *input.IsActive)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SetUserRoleHandler godoc
// @Summary Сменить роль пользователя
// @Tags users
// @Accept json
// @Produce json
// @Param userID path int true "User ID"
// @Param body body object true "Поле role (member, organizer, admin)"
// @Success 200 {object} map[string]interface{} "Обновлённый пользователь"
// @Failure 400 {object} map[string]string "Неизвестная роль"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Failure 403 {object} map[string]string "Нельзя снять роль с самого себя"
// @Failure 404 {object} map[string]string "Пользователь не найден"
// @Security BearerAuth
// @Router /users/{userID}/role [put]
func (h *UserHandler) SetUserRoleHandler(w http.ResponseWriter, r *http.Request) {
	requestedUserID, err := getIDFromURL(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	var input struct {
		Role models.UserRole `json:"role"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	user, err := h.userService.SetUserRole(r.Context(), requestedUserID, currentUserID, input.Role)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
