package handler

import (
	"net/http"
	"strings"
	"time"

	"sitesafety/internal/dto"
	"sitesafety/internal/logger"
	"sitesafety/internal/model"
	"sitesafety/internal/service"
)

// StatusHandler handles GET /api/status.
func StatusHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodGet) {
			return
		}
		writeJSON(w, logger, http.StatusOK, manager.Status())
	}
}

// SettingsHandler handles POST /api/settings with a JSON body of optional mode and
// confidence fields, and answers with the resulting status.
func SettingsHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodPost) {
			return
		}

		var req dto.SettingsRequest
		if err := decodeJSON(r, &req); err != nil {
			badRequest(w, logger, "Invalid settings: "+err.Error())
			return
		}

		if req.Mode != nil {
			mode, err := model.ParseMode(*req.Mode)
			if err != nil {
				badRequest(w, logger, err.Error())
				return
			}
			manager.SetMode(mode)
		}
		if req.Confidence != nil {
			if _, err := manager.SetConfidence(*req.Confidence); err != nil {
				badRequest(w, logger, err.Error())
				return
			}
		}

		writeJSON(w, logger, http.StatusOK, manager.Status())
	}
}

// RunsHandler handles GET /api/runs?limit=N.
func RunsHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodGet) {
			return
		}

		limit := atoiDefault(r.URL.Query().Get("limit"), 20)
		runs, err := manager.Runs(limit)
		if err != nil {
			writeError(w, logger, err)
			return
		}

		now := time.Now().UTC()
		infos := make([]dto.RunInfo, 0, len(runs))
		for _, run := range runs {
			infos = append(infos, dto.NewRunInfo(run, now))
		}
		writeJSON(w, logger, http.StatusOK, infos)
	}
}

// RunHandler handles GET /api/runs/{id}.
func RunHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodGet) {
			return
		}

		id := strings.TrimPrefix(r.URL.Path, "/api/runs/")
		if id == "" || strings.Contains(id, "/") {
			badRequest(w, logger, "Invalid run id")
			return
		}

		run, err := manager.Run(id)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, dto.NewRunInfo(*run, time.Now().UTC()))
	}
}

// ClearRunsHandler handles POST /api/runs/clear.
func ClearRunsHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodPost) {
			return
		}
		if err := manager.ClearRuns(); err != nil {
			writeError(w, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
