package handlers

import (
	"net/http"

	"github.com/guyajeux/tournament-registry/services"
)

type StatsHandler struct {
	statsService services.StatsService
}

func NewStatsHandler(ss services.StatsService) *StatsHandler {
	return &StatsHandler{
		statsService: ss,
	}
}

// SiteStatsHandler godoc
// @Summary Публичная сводка по клубу
// @Tags stats
// @Produce json
// @Success 200 {object} map[string]interface{} "Сводные показатели"
// @Router /stats [get]
func (h *StatsHandler) SiteStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsService.SiteStats(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"stats": stats}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AdminStatsHandler godoc
// @Summary Расширенная сводка для администратора
// @Tags stats
// @Produce json
// @Success 200 {object} map[string]interface{} "Расширенные показатели"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Failure 403 {object} map[string]string "Только для администраторов"
// @Security BearerAuth
// @Router /admin/stats [get]
func (h *StatsHandler) AdminStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsService.AdminStats(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"stats": stats}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
