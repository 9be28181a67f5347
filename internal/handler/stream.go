package handler

import (
	"net/http"

	"sitesafety/internal/config"
	"sitesafety/internal/dto"
	"sitesafety/internal/logger"
	"sitesafety/internal/service"
)

// StartVideoHandler handles POST /api/video: a multipart "video" (mp4, avi, mov)
// is analysed in the background; frames arrive over /api/view.
func StartVideoHandler(manager *service.Manager, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodPost) {
			return
		}

		file, header, err := formFile(w, r, "video", cfg.MaxUploadBytes())
		if err != nil {
			writeJSON(w, logger, uploadStatus(err), dto.ErrorResponse{Error: err.Error()})
			return
		}
		defer file.Close()

		run, err := manager.StartVideo(file, header.Filename)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusAccepted, dto.RunResponse{RunID: run.ID, Mode: run.Mode})
	}
}

// StopVideoHandler handles POST /api/video/stop.
func StopVideoHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodPost) {
			return
		}
		writeJSON(w, logger, http.StatusOK, map[string]bool{"stopping": manager.StopVideo()})
	}
}

// ActivateLiveHandler handles POST /api/live/activate.
func ActivateLiveHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodPost) {
			return
		}

		run, err := manager.ActivateLive()
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusAccepted, dto.RunResponse{RunID: run.ID, Mode: run.Mode})
	}
}

// DeactivateLiveHandler handles POST /api/live/deactivate.
func DeactivateLiveHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodPost) {
			return
		}
		manager.DeactivateLive()
		writeJSON(w, logger, http.StatusOK, map[string]bool{"active": false})
	}
}
